/*
Package ledger provides the points/membership ledger engine.

PURPOSE:
  This package contains the core types and the engine for managing a
  member's point balance. Every earn and redemption flows through here,
  is recorded as an immutable transaction, and triggers a deterministic
  tier recompute.

KEY CONCEPTS IN THIS FILE (types.go):
  - Points: An integral point quantity (deltas are always positive)
  - Transaction: An immutable ledger entry recording a balance change
  - Tier: Membership level derived from lifetime points earned
  - Account: The per-member state owned exclusively by the Engine
  - Snapshot: A consistent read-only copy handed to callers

DESIGN PRINCIPLES:
  1. Immutability: Transactions are never modified or deleted
  2. Single ownership: Only the Engine mutates an Account
  3. Derived tier: Tier is recomputed inside every mutation, never stored
     in a way that can drift from lifetime earned
  4. Auditability: Every balance change carries a description and timestamp

SEE ALSO:
  - engine.go: Earn/Redeem operations and the mutual-exclusion contract
  - tier.go: Tier thresholds and progress calculation
  - errors.go: Sentinel and structured errors
*/
package ledger

import (
	"time"
)

// =============================================================================
// POINTS - Integral point quantity
// =============================================================================

// Points is an integral number of loyalty points. Balances are never
// negative; transaction amounts are always positive.
type Points int64

// =============================================================================
// TIER - Membership level
// =============================================================================

type Tier string

const (
	TierBronze Tier = "BRONZE"
	TierSilver Tier = "SILVER"
	TierGold   Tier = "GOLD"
)

// =============================================================================
// TRANSACTION - Atomic change to the balance
// =============================================================================

type TransactionKind string

const (
	TxEarn   TransactionKind = "earn"   // Points added (bin scan, bonus)
	TxRedeem TransactionKind = "redeem" // Points spent on a reward
)

type TransactionID string

// Transaction is one immutable ledger entry. Created by the Engine at the
// moment of a successful mutation; never modified afterwards.
type Transaction struct {
	ID          TransactionID
	Kind        TransactionKind
	Amount      Points // always positive
	Description string
	Timestamp   time.Time
}

// =============================================================================
// IDENTITY - Opaque verified identity from the authentication provider
// =============================================================================

type Identity struct {
	Name   string
	Email  string
	Avatar string
}

// =============================================================================
// ACCOUNT - Per-member state, owned by the Engine
// =============================================================================

// Account holds the mutable ledger state for one member. Only the Engine
// may touch these fields; everyone else works with Snapshots.
type Account struct {
	Identity       Identity
	Balance        Points
	LifetimeEarned Points
	Tier           Tier
	History        []Transaction // newest first, append-only
	IsAdmin        bool
}

// Snapshot is a consistent read-only copy of an Account taken under the
// engine lock. The History slice is copied so callers can never observe
// a partial mutation.
type Snapshot struct {
	Identity       Identity
	Balance        Points
	LifetimeEarned Points
	Tier           Tier
	History        []Transaction
	IsAdmin        bool
}
