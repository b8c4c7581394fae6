/*
handlers.go - HTTP API handlers for the loyalty engine

PURPOSE:
  Exposes the loyalty engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Session:
    POST   /api/session/start          Begin sign-in, list identities
    POST   /api/session/select         Choose an identity
    POST   /api/session/add-account    Register a fresh identity
    POST   /api/session/verify         Verify the one-time code
    POST   /api/session/admin          Operator login
    POST   /api/session/signout        End the session

  Account:
    GET    /api/account                Balance, tier, progress
    GET    /api/account/transactions   History, newest first

  Scanning:
    POST   /api/scan                   Submit a decoded QR payload
    POST   /api/scan/reset             Re-arm the scanner

  Rewards:
    GET    /api/rewards                Catalog
    POST   /api/rewards/{id}/redeem    Redeem a catalog entry

  Recommendation:
    GET    /api/recommendation         Current suggestion
    POST   /api/recommendation         Fetch a suggestion (coalesced)
    POST   /api/recommendation/redeem  Redeem the suggestion

  Notices:
    GET    /api/notices                Active notices, oldest first
    DELETE /api/notices/{id}           Dismiss a notice

  Admin:
    POST   /api/admin/rewards          Create catalog entry
    PUT    /api/admin/rewards/{id}     Update catalog entry
    DELETE /api/admin/rewards/{id}     Delete catalog entry

ARCHITECTURE:
  Handler holds the session manager plus everything a logged-in session
  needs. The redemption coordinator and scanner are PER-SESSION: they
  are built at login and torn down at sign-out, so nothing from one
  member's session leaks into the next.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, wrong machine state
  - 401: Missing/invalid token, failed verification
  - 403: Member hitting an operator endpoint
  - 404: Unknown reward, no suggestion to redeem
  - 409: Insufficient balance, duplicate redemption
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/binrewards/loyalty-engine/catalog"
	"github.com/binrewards/loyalty-engine/ledger"
	"github.com/binrewards/loyalty-engine/notice"
	"github.com/binrewards/loyalty-engine/redeem"
	"github.com/binrewards/loyalty-engine/scan"
	"github.com/binrewards/loyalty-engine/session"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Manager   *session.Manager
	Tokens    *session.Tokens
	Provider  session.Provider
	Rewards   catalog.Store
	Notices   *notice.Center
	Generator redeem.Generator

	BinCode    string
	ScanReward ledger.Points

	validate *validator.Validate
	log      zerolog.Logger

	// Built at login, dropped at sign-out.
	mu          sync.Mutex
	coordinator *redeem.Coordinator
	scanner     *scan.Scanner
}

// Deps collects everything NewHandler needs.
type Deps struct {
	Manager    *session.Manager
	Tokens     *session.Tokens
	Provider   session.Provider
	Rewards    catalog.Store
	Notices    *notice.Center
	Generator  redeem.Generator
	BinCode    string
	ScanReward ledger.Points
	Log        zerolog.Logger
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		Manager:    d.Manager,
		Tokens:     d.Tokens,
		Provider:   d.Provider,
		Rewards:    d.Rewards,
		Notices:    d.Notices,
		Generator:  d.Generator,
		BinCode:    d.BinCode,
		ScanReward: d.ScanReward,
		validate:   validator.New(),
		log:        d.Log,
	}
}

// bind wires the per-session components after a successful login.
func (h *Handler) bind(s *session.Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.coordinator = redeem.New(s.Engine, h.Rewards, h.Generator, h.Notices, h.log)
	h.scanner = scan.New(s.Engine, h.Notices, h.BinCode, h.ScanReward, h.log)
}

func (h *Handler) components() (*redeem.Coordinator, *scan.Scanner, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.coordinator, h.scanner, h.coordinator != nil
}

func (h *Handler) unbind() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.coordinator = nil
	h.scanner = nil
}

// decode parses the body and runs validator tags. A false return means
// the error response was already written.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// =============================================================================
// SESSION HANDLERS
// =============================================================================

// StartSession begins the sign-in flow.
// POST /api/session/start
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	identities, err := h.Manager.StartAuth()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	accounts := make([]IdentityDTO, len(identities))
	for i, id := range identities {
		accounts[i] = IdentityDTO{Name: id.Name, Email: id.Email, Avatar: id.Avatar}
	}
	writeJSON(w, http.StatusOK, StartSessionResponse{
		State:    string(h.Manager.State()),
		Accounts: accounts,
	})
}

// SelectAccount chooses one of the offered identities.
// POST /api/session/select
func (h *Handler) SelectAccount(w http.ResponseWriter, r *http.Request) {
	var req SelectAccountRequest
	if !h.decode(w, r, &req) {
		return
	}

	var chosen *ledger.Identity
	for _, id := range h.Provider.Accounts() {
		if id.Email == req.Email {
			chosen = &id
			break
		}
	}
	if chosen == nil {
		writeError(w, http.StatusBadRequest, "Unknown account", nil)
		return
	}

	if err := h.Manager.SelectAccount(*chosen); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StateResponse{State: string(h.Manager.State())})
}

// AddAccount registers a fresh identity and moves it to verification.
// POST /api/session/add-account
func (h *Handler) AddAccount(w http.ResponseWriter, r *http.Request) {
	var req AddAccountRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.Manager.AddAccount(req.Name, req.Email); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StateResponse{State: string(h.Manager.State())})
}

// VerifyOTP completes the consumer login.
// POST /api/session/verify
func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if !h.decode(w, r, &req) {
		return
	}

	s, err := h.Manager.VerifyOTP(req.OTP)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.login(w, s)
}

// AdminLogin completes the operator login. A fresh machine is moved
// into ADMIN_LOGIN implicitly, so the operator path is a single call.
// POST /api/session/admin
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req AdminLoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	if h.Manager.State() == session.StateLoggedOut {
		if err := h.Manager.StartAdmin(); err != nil {
			writeDomainError(w, err)
			return
		}
	}

	s, err := h.Manager.AdminLogin(req.Username, req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.login(w, s)
}

func (h *Handler) login(w http.ResponseWriter, s *session.Session) {
	token, err := h.Tokens.Issue(s)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to issue token", err)
		return
	}

	h.bind(s)
	snap := s.Engine.Snapshot()
	h.log.Info().Str("account", snap.Identity.Email).
		Bool("admin", snap.IsAdmin).Msg("session started")
	writeJSON(w, http.StatusOK, AuthResponse{Token: token, Account: toAccountDTO(snap)})
}

// SignOut ends the session. The session context is cancelled, which
// discards any in-flight recommendation fetch, and all notices clear.
// POST /api/session/signout
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.Manager.SignOut()
	h.unbind()
	h.Notices.Clear()
	writeJSON(w, http.StatusOK, StateResponse{State: string(h.Manager.State())})
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// GetAccount returns the session's account summary.
// GET /api/account
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	writeJSON(w, http.StatusOK, toAccountDTO(s.Engine.Snapshot()))
}

// GetTransactions returns the history, newest first.
// GET /api/account/transactions
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	writeJSON(w, http.StatusOK, toTransactionDTOs(s.Engine.Snapshot().History))
}

// =============================================================================
// SCAN HANDLERS
// =============================================================================

// SubmitScan classifies one decoded QR payload.
// POST /api/scan
func (h *Handler) SubmitScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if !h.decode(w, r, &req) {
		return
	}

	_, scanner, ok := h.components()
	if !ok {
		writeError(w, http.StatusUnauthorized, "No active session", nil)
		return
	}

	result, snap := scanner.Submit(req.Code)
	writeJSON(w, http.StatusOK, toScanResponse(result, snap))
}

// ResetScan re-arms the scanner after an accepted scan.
// POST /api/scan/reset
func (h *Handler) ResetScan(w http.ResponseWriter, r *http.Request) {
	_, scanner, ok := h.components()
	if !ok {
		writeError(w, http.StatusUnauthorized, "No active session", nil)
		return
	}

	scanner.Reset()
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// REWARD HANDLERS
// =============================================================================

// ListRewards returns the catalog.
// GET /api/rewards
func (h *Handler) ListRewards(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.Rewards.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rewards", err)
		return
	}

	dtos := make([]RewardDTO, len(rewards))
	for i, rw := range rewards {
		dtos[i] = toRewardDTO(rw)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RedeemReward debits a catalog entry.
// POST /api/rewards/{id}/redeem
func (h *Handler) RedeemReward(w http.ResponseWriter, r *http.Request) {
	coordinator, _, ok := h.components()
	if !ok {
		writeError(w, http.StatusUnauthorized, "No active session", nil)
		return
	}

	snap, err := coordinator.RedeemReward(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRedeemResponse(snap))
}

// =============================================================================
// RECOMMENDATION HANDLERS
// =============================================================================

// GetRecommendation returns the stored suggestion, if any.
// GET /api/recommendation
func (h *Handler) GetRecommendation(w http.ResponseWriter, r *http.Request) {
	coordinator, _, ok := h.components()
	if !ok {
		writeError(w, http.StatusUnauthorized, "No active session", nil)
		return
	}

	current, exists := coordinator.Current()
	if !exists {
		writeError(w, http.StatusNotFound, "No recommendation yet", nil)
		return
	}
	writeJSON(w, http.StatusOK, toRecommendationDTO(current))
}

// FetchRecommendation asks for a fresh suggestion. A request arriving
// while a fetch is pending is coalesced: 202 with the stored
// suggestion if one exists, 202 with an empty body otherwise. The
// fetch runs under the SESSION context so sign-out abandons it.
// POST /api/recommendation
func (h *Handler) FetchRecommendation(w http.ResponseWriter, r *http.Request) {
	coordinator, _, ok := h.components()
	if !ok {
		writeError(w, http.StatusUnauthorized, "No active session", nil)
		return
	}

	s := sessionFrom(r.Context())
	reward, err := coordinator.FetchRecommendation(s.Context())
	switch {
	case errors.Is(err, redeem.ErrFetchInFlight):
		if current, exists := coordinator.Current(); exists {
			writeJSON(w, http.StatusAccepted, toRecommendationDTO(current))
			return
		}
		w.WriteHeader(http.StatusAccepted)
	case err != nil:
		writeDomainError(w, err)
	default:
		writeJSON(w, http.StatusOK, toRecommendationDTO(reward))
	}
}

// RedeemRecommendation debits the stored suggestion.
// POST /api/recommendation/redeem
func (h *Handler) RedeemRecommendation(w http.ResponseWriter, r *http.Request) {
	coordinator, _, ok := h.components()
	if !ok {
		writeError(w, http.StatusUnauthorized, "No active session", nil)
		return
	}

	snap, err := coordinator.RedeemRecommendation(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRedeemResponse(snap))
}

// =============================================================================
// NOTICE HANDLERS
// =============================================================================

// ListNotices returns the active notices, oldest first.
// GET /api/notices
func (h *Handler) ListNotices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toNoticeDTOs(h.Notices.Active()))
}

// DismissNotice removes a notice before its timer fires. The only way to
// clear a persistent notice.
// DELETE /api/notices/{id}
func (h *Handler) DismissNotice(w http.ResponseWriter, r *http.Request) {
	h.Notices.Dismiss(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// CreateReward adds a catalog entry.
// POST /api/admin/rewards
func (h *Handler) CreateReward(w http.ResponseWriter, r *http.Request) {
	var req UpsertRewardRequest
	if !h.decode(w, r, &req) {
		return
	}

	created, err := h.Rewards.Create(r.Context(), catalog.Reward{
		Title:       req.Title,
		Description: req.Description,
		Cost:        ledger.Points(req.Cost),
		Category:    catalog.Category(req.Category),
		Icon:        req.Icon,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create reward", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRewardDTO(created))
}

// UpdateReward replaces a catalog entry.
// PUT /api/admin/rewards/{id}
func (h *Handler) UpdateReward(w http.ResponseWriter, r *http.Request) {
	var req UpsertRewardRequest
	if !h.decode(w, r, &req) {
		return
	}

	reward := catalog.Reward{
		ID:          chi.URLParam(r, "id"),
		Title:       req.Title,
		Description: req.Description,
		Cost:        ledger.Points(req.Cost),
		Category:    catalog.Category(req.Category),
		Icon:        req.Icon,
	}
	if err := h.Rewards.Update(r.Context(), reward); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRewardDTO(reward))
}

// DeleteReward removes a catalog entry.
// DELETE /api/admin/rewards/{id}
func (h *Handler) DeleteReward(w http.ResponseWriter, r *http.Request) {
	if err := h.Rewards.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain sentinels onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrVerificationFailed),
		errors.Is(err, session.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Verification failed", err)
	case errors.Is(err, session.ErrInvalidTransition):
		writeError(w, http.StatusBadRequest, "Invalid session state", err)
	case errors.Is(err, session.ErrInvalidIdentity):
		writeError(w, http.StatusBadRequest, "Invalid identity", err)
	case errors.Is(err, catalog.ErrRewardNotFound):
		writeError(w, http.StatusNotFound, "Reward not found", err)
	case errors.Is(err, redeem.ErrNoRecommendation):
		writeError(w, http.StatusNotFound, "No recommendation to redeem", err)
	case errors.Is(err, ledger.ErrInsufficientBalance):
		writeError(w, http.StatusConflict, "Insufficient balance", err)
	case errors.Is(err, ledger.ErrRedemptionInFlight):
		writeError(w, http.StatusConflict, "Redemption already in progress", err)
	case errors.Is(err, ledger.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
