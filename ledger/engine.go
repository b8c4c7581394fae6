/*
engine.go - The ledger engine: sole owner of balance, tier, and history

PURPOSE:
  The Engine is the only component permitted to mutate an account's
  balance, lifetime earned, tier, and history. It exposes exactly two
  mutations, Earn and Redeem, and guards both with a mutex so no two
  operations on the same account can interleave their read-modify-write.

CRITICAL INVARIANTS:
  1. balance >= 0 always - Redeem's check-then-mutate is one critical section
  2. lifetimeEarned is non-decreasing - redemptions never reduce it
  3. Tier is recomputed inside every mutation, never lazily on read
  4. History is append-only, newest first; a failed Redeem appends nothing

CONCURRENCY:
  Two producers can mutate the same account from independently-arriving
  events: the bin-scan source (camera frame) and the redemption
  coordinator (user action). The mutex makes each operation atomic, so a
  scan arriving mid-redemption can never observe or create partial state.

SEE ALSO:
  - tier.go: TierFor, invoked inside every mutation
  - redeem/: Translates reward selections into Redeem calls
  - scan/: Translates accepted bin scans into Earn calls
*/
package ledger

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine owns one account's ledger state for the duration of a session.
type Engine struct {
	mu      sync.Mutex
	account Account

	// Now supplies transaction timestamps. Overridable in tests.
	Now func() time.Time
}

// NewMember creates an engine for a freshly authenticated member: balance
// and lifetime earned both seeded with the welcome bonus, tier derived
// from it, and a single "Welcome Bonus" EARN transaction in the history.
func NewMember(identity Identity, welcomeBonus Points) *Engine {
	e := &Engine{
		account: Account{Identity: identity},
		Now:     time.Now,
	}
	// Seeding through Earn keeps tier and history consistent by
	// construction.
	_, _ = e.Earn(welcomeBonus, "Welcome Bonus")
	return e
}

// NewAdmin creates an engine for an administrator session: an elevated
// fixed balance, no history.
func NewAdmin(identity Identity, seedBalance Points) *Engine {
	return &Engine{
		account: Account{
			Identity:       identity,
			Balance:        seedBalance,
			LifetimeEarned: seedBalance,
			Tier:           TierFor(seedBalance),
			IsAdmin:        true,
		},
		Now: time.Now,
	}
}

// =============================================================================
// MUTATIONS
// =============================================================================

// Earn adds points. Increases balance and lifetime earned, appends an
// EARN transaction, and recomputes the tier - all under the engine lock.
func (e *Engine) Earn(amount Points, description string) (Snapshot, error) {
	if amount <= 0 {
		return Snapshot{}, ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.account.Balance += amount
	e.account.LifetimeEarned += amount
	e.appendLocked(TxEarn, amount, description)
	e.account.Tier = TierFor(e.account.LifetimeEarned)
	return e.snapshotLocked(), nil
}

// Redeem spends points. The balance check and the mutation are a single
// atomic step: if the balance is short, nothing changes and the caller
// gets an InsufficientBalanceError. Lifetime earned is untouched, so a
// redemption can never lower the tier; the recompute is kept anyway so
// the rule stays uniform across mutations.
func (e *Engine) Redeem(amount Points, description string) (Snapshot, error) {
	if amount <= 0 {
		return Snapshot{}, ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.account.Balance < amount {
		return Snapshot{}, &InsufficientBalanceError{
			Available: e.account.Balance,
			Requested: amount,
		}
	}

	e.account.Balance -= amount
	e.appendLocked(TxRedeem, amount, description)
	e.account.Tier = TierFor(e.account.LifetimeEarned)
	return e.snapshotLocked(), nil
}

// Snapshot returns a consistent copy of the account state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// =============================================================================
// INTERNALS - callers must hold e.mu
// =============================================================================

func (e *Engine) appendLocked(kind TransactionKind, amount Points, description string) {
	tx := Transaction{
		ID:          TransactionID(uuid.NewString()),
		Kind:        kind,
		Amount:      amount,
		Description: description,
		Timestamp:   e.Now(),
	}
	// Newest first.
	e.account.History = append([]Transaction{tx}, e.account.History...)
}

func (e *Engine) snapshotLocked() Snapshot {
	history := make([]Transaction, len(e.account.History))
	copy(history, e.account.History)
	return Snapshot{
		Identity:       e.account.Identity,
		Balance:        e.account.Balance,
		LifetimeEarned: e.account.LifetimeEarned,
		Tier:           e.account.Tier,
		History:        history,
		IsAdmin:        e.account.IsAdmin,
	}
}
