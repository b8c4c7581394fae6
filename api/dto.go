/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry go-playground/validator struct tags; handlers run
  them through Handler.validate before touching domain logic.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/types.go: The domain model behind the DTOs
*/
package api

import (
	"time"

	"github.com/binrewards/loyalty-engine/catalog"
	"github.com/binrewards/loyalty-engine/ledger"
	"github.com/binrewards/loyalty-engine/notice"
	"github.com/binrewards/loyalty-engine/recommend"
	"github.com/binrewards/loyalty-engine/scan"
)

// =============================================================================
// SESSION TYPES
// =============================================================================

// IdentityDTO is an account option offered during sign-in.
type IdentityDTO struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar"`
}

// StartSessionResponse lists the identities available for selection.
type StartSessionResponse struct {
	State    string        `json:"state"`
	Accounts []IdentityDTO `json:"accounts"`
}

// StateResponse reports the machine state after a transition.
type StateResponse struct {
	State string `json:"state"`
}

// SelectAccountRequest picks one of the offered identities.
type SelectAccountRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// AddAccountRequest registers a fresh identity before verification.
type AddAccountRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

// VerifyRequest carries the one-time code.
type VerifyRequest struct {
	OTP string `json:"otp" validate:"required"`
}

// AdminLoginRequest carries operator credentials.
type AdminLoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned on successful login.
type AuthResponse struct {
	Token   string     `json:"token"`
	Account AccountDTO `json:"account"`
}

// =============================================================================
// ACCOUNT TYPES
// =============================================================================

// AccountDTO is the full account summary: identity, balance, and tier
// progression in one shape.
type AccountDTO struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Avatar          string `json:"avatar"`
	Balance         int64  `json:"balance"`
	LifetimeEarned  int64  `json:"lifetime_earned"`
	Tier            string `json:"tier"`
	NextGoal        string `json:"next_goal"`
	ProgressPercent int    `json:"progress_percent"`
	IsAdmin         bool   `json:"is_admin"`
}

// TransactionDTO is one ledger entry.
type TransactionDTO struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	Timestamp   string `json:"timestamp"`
}

func toAccountDTO(snap ledger.Snapshot) AccountDTO {
	nextGoal, percent := ledger.Progress(snap.Tier, snap.LifetimeEarned)
	return AccountDTO{
		Name:            snap.Identity.Name,
		Email:           snap.Identity.Email,
		Avatar:          snap.Identity.Avatar,
		Balance:         int64(snap.Balance),
		LifetimeEarned:  int64(snap.LifetimeEarned),
		Tier:            string(snap.Tier),
		NextGoal:        nextGoal,
		ProgressPercent: percent,
		IsAdmin:         snap.IsAdmin,
	}
}

func toTransactionDTOs(txs []ledger.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = TransactionDTO{
			ID:          string(tx.ID),
			Kind:        string(tx.Kind),
			Amount:      int64(tx.Amount),
			Description: tx.Description,
			Timestamp:   tx.Timestamp.Format(time.RFC3339),
		}
	}
	return dtos
}

// =============================================================================
// SCAN TYPES
// =============================================================================

// ScanRequest is one decoded QR payload.
type ScanRequest struct {
	Code string `json:"code" validate:"required"`
}

// ScanResponse classifies the submission and reports the new balance.
type ScanResponse struct {
	Result  string `json:"result"`
	Balance int64  `json:"balance"`
}

func toScanResponse(result scan.Result, snap ledger.Snapshot) ScanResponse {
	return ScanResponse{Result: string(result), Balance: int64(snap.Balance)}
}

// =============================================================================
// CATALOG TYPES
// =============================================================================

// RewardDTO is one catalog entry.
type RewardDTO struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Cost        int64  `json:"cost"`
	Category    string `json:"category"`
	Icon        string `json:"icon,omitempty"`
}

// UpsertRewardRequest creates or replaces a catalog entry.
type UpsertRewardRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	Cost        int64  `json:"cost" validate:"required,min=1"`
	Category    string `json:"category" validate:"required,oneof=voucher product experience"`
	Icon        string `json:"icon"`
}

// RedeemResponse is returned after a successful debit.
type RedeemResponse struct {
	Balance     int64          `json:"balance"`
	Tier        string         `json:"tier"`
	Transaction TransactionDTO `json:"transaction"`
}

func toRewardDTO(r catalog.Reward) RewardDTO {
	return RewardDTO{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Cost:        int64(r.Cost),
		Category:    string(r.Category),
		Icon:        r.Icon,
	}
}

func toRedeemResponse(snap ledger.Snapshot) RedeemResponse {
	resp := RedeemResponse{Balance: int64(snap.Balance), Tier: string(snap.Tier)}
	if len(snap.History) > 0 {
		resp.Transaction = toTransactionDTOs(snap.History[:1])[0]
	}
	return resp
}

// =============================================================================
// RECOMMENDATION TYPES
// =============================================================================

// RecommendationDTO is the current suggestion.
type RecommendationDTO struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Cost        int64  `json:"cost"`
	Reasoning   string `json:"reasoning"`
}

func toRecommendationDTO(r recommend.Reward) RecommendationDTO {
	return RecommendationDTO{
		Title:       r.Title,
		Description: r.Description,
		Cost:        r.Cost,
		Reasoning:   r.Reasoning,
	}
}

// =============================================================================
// NOTICE TYPES
// =============================================================================

// NoticeDTO is one active notice.
type NoticeDTO struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Message    string `json:"message"`
	Persistent bool   `json:"persistent"`
}

func toNoticeDTOs(notices []notice.Notice) []NoticeDTO {
	dtos := make([]NoticeDTO, len(notices))
	for i, n := range notices {
		dtos[i] = NoticeDTO{
			ID:         n.ID,
			Kind:       string(n.Kind),
			Message:    n.Message,
			Persistent: n.Persistent,
		}
	}
	return dtos
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
