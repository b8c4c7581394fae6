/*
Package session manages the login lifecycle and the active account.

PURPOSE:
  A state machine over the authentication flow:

    LOGGED_OUT -> ACCOUNT_SELECTION -> (OTP_PENDING | ADD_ACCOUNT) -> LOGGED_IN
    LOGGED_OUT -> ADMIN_LOGIN -> LOGGED_IN

  with every non-logged-in state returning to LOGGED_OUT on back or
  sign-out. Each transition carries the data it needs: the selected
  identity rides the ACCOUNT_SELECTION -> OTP_PENDING transition as the
  machine's pending payload - there is no ambient global.

GUARDS:
  - Consumer path: the one-time passcode must match the configured code.
    Mismatch keeps the machine in OTP_PENDING and reveals nothing about
    remaining attempts (there is no lockout; retries are unlimited).
  - Admin path: the configured credential pair must match exactly.

ACCOUNT LIFECYCLE:
  On a successful OTP check the machine atomically constructs a fresh
  member account seeded with the welcome bonus. Sign-out discards the
  account, cancels any in-flight recommendation fetch through the
  session context, and returns to LOGGED_OUT. Accounts never persist
  across sessions.

SEE ALSO:
  - provider.go: Authentication provider (mock identities)
  - token.go: Bearer tokens identifying the session over HTTP
*/
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/binrewards/loyalty-engine/ledger"
	"github.com/binrewards/loyalty-engine/metrics"
)

// =============================================================================
// STATES
// =============================================================================

type State string

const (
	StateLoggedOut        State = "logged-out"
	StateAccountSelection State = "account-selection"
	StateAddAccount       State = "add-account"
	StateOTPPending       State = "otp-pending"
	StateAdminLogin       State = "admin-login"
	StateLoggedIn         State = "logged-in"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrInvalidTransition is returned when an operation is not legal in
	// the current state.
	ErrInvalidTransition = errors.New("invalid session state for this operation")

	// ErrVerificationFailed is returned on a wrong one-time passcode.
	// Deliberately carries no detail about attempts.
	ErrVerificationFailed = errors.New("verification failed")

	// ErrInvalidCredentials is returned on a wrong admin credential pair.
	ErrInvalidCredentials = errors.New("invalid admin credentials")

	// ErrNoSession is returned when no account is logged in.
	ErrNoSession = errors.New("no active session")
)

// =============================================================================
// SESSION - The logged-in account and its lifetime
// =============================================================================

// Session wraps the ledger engine for one logged-in account. Its context
// is cancelled on sign-out so work started on behalf of the session (a
// recommendation fetch in flight) is discarded with it.
type Session struct {
	ID     string
	Engine *ledger.Engine

	ctx    context.Context
	cancel context.CancelFunc
}

// Context is cancelled when the session ends.
func (s *Session) Context() context.Context { return s.ctx }

// =============================================================================
// MANAGER - The state machine
// =============================================================================

// Config holds the fixed verification values and account seeds.
type Config struct {
	OTPCode          string
	AdminUser        string
	AdminPass        string
	WelcomeBonus     ledger.Points
	AdminSeedBalance ledger.Points
}

type Manager struct {
	mu       sync.Mutex
	cfg      Config
	provider Provider

	state   State
	pending *ledger.Identity // payload of the selection -> OTP transition
	session *Session
}

func NewManager(cfg Config, provider Provider) *Manager {
	return &Manager{cfg: cfg, provider: provider, state: StateLoggedOut}
}

// State returns the current machine state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Current returns the active session, if any.
func (m *Manager) Current() (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session, m.session != nil
}

// =============================================================================
// CONSUMER PATH
// =============================================================================

// StartAuth moves LOGGED_OUT -> ACCOUNT_SELECTION and returns the
// identities the provider offers.
func (m *Manager) StartAuth() ([]ledger.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateLoggedOut {
		return nil, ErrInvalidTransition
	}
	m.state = StateAccountSelection
	return m.provider.Accounts(), nil
}

// SelectAccount carries the chosen identity into OTP_PENDING.
func (m *Manager) SelectAccount(identity ledger.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateAccountSelection && m.state != StateAddAccount {
		return ErrInvalidTransition
	}
	m.pending = &identity
	m.state = StateOTPPending
	return nil
}

// AddAccount registers a new name+email pair with the provider and
// carries the resulting identity into OTP_PENDING.
func (m *Manager) AddAccount(name, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateAccountSelection && m.state != StateAddAccount {
		return ErrInvalidTransition
	}
	identity, err := m.provider.Register(name, email)
	if err != nil {
		return err
	}
	m.pending = &identity
	m.state = StateOTPPending
	return nil
}

// VerifyOTP checks the passcode. On a match a fresh member account is
// constructed atomically: welcome bonus seeded, BRONZE tier, one
// "Welcome Bonus" transaction. On a mismatch the machine stays in
// OTP_PENDING for another attempt.
func (m *Manager) VerifyOTP(otp string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateOTPPending || m.pending == nil {
		return nil, ErrInvalidTransition
	}
	if otp != m.cfg.OTPCode {
		return nil, ErrVerificationFailed
	}

	s := m.loginLocked(ledger.NewMember(*m.pending, m.cfg.WelcomeBonus))
	metrics.PointsEarnedTotal.WithLabelValues("bonus").Add(float64(m.cfg.WelcomeBonus))
	m.pending = nil
	return s, nil
}

// =============================================================================
// ADMIN PATH
// =============================================================================

// StartAdmin moves LOGGED_OUT -> ADMIN_LOGIN.
func (m *Manager) StartAdmin() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateLoggedOut {
		return ErrInvalidTransition
	}
	m.state = StateAdminLogin
	return nil
}

// AdminLogin checks the credential pair. On a match an administrator
// account is constructed with the elevated seed balance and no history.
func (m *Manager) AdminLogin(username, password string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateAdminLogin {
		return nil, ErrInvalidTransition
	}
	if username != m.cfg.AdminUser || password != m.cfg.AdminPass {
		return nil, ErrInvalidCredentials
	}

	return m.loginLocked(ledger.NewAdmin(ledger.Identity{
		Name:   "System Admin",
		Email:  "admin@binrewards.com",
		Avatar: "https://api.dicebear.com/7.x/avataaars/svg?seed=Admin",
	}, m.cfg.AdminSeedBalance)), nil
}

// =============================================================================
// EXIT TRANSITIONS
// =============================================================================

// Back returns any pre-login state to LOGGED_OUT, dropping the pending
// identity payload.
func (m *Manager) Back() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateLoggedIn {
		return
	}
	m.pending = nil
	m.state = StateLoggedOut
}

// SignOut discards the account and cancels the session context.
func (m *Manager) SignOut() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		m.session.cancel()
		m.session = nil
	}
	m.pending = nil
	m.state = StateLoggedOut
}

// Resolve returns the active session if its ID matches, for callers
// holding a bearer token.
func (m *Manager) Resolve(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil || m.session.ID != sessionID {
		return nil, ErrNoSession
	}
	return m.session, nil
}

func (m *Manager) loginLocked(engine *ledger.Engine) *Session {
	// A new login replaces any previous session outright.
	if m.session != nil {
		m.session.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.session = &Session{
		ID:     uuid.NewString(),
		Engine: engine,
		ctx:    ctx,
		cancel: cancel,
	}
	m.state = StateLoggedIn
	return m.session
}
