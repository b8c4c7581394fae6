package session_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binrewards/loyalty-engine/ledger"
	"github.com/binrewards/loyalty-engine/session"
)

func testConfig() session.Config {
	return session.Config{
		OTPCode:          "1234",
		AdminUser:        "admin",
		AdminPass:        "password",
		WelcomeBonus:     750,
		AdminSeedBalance: 99999,
	}
}

func newManager() *session.Manager {
	return session.NewManager(testConfig(), session.MockProvider{})
}

// =============================================================================
// CONSUMER PATH
// =============================================================================

func TestConsumerLogin_HappyPath(t *testing.T) {
	// GIVEN: The machine in LOGGED_OUT
	// WHEN: start -> select -> correct OTP
	// THEN: LOGGED_IN with a welcome-bonus account

	m := newManager()
	assert.Equal(t, session.StateLoggedOut, m.State())

	identities, err := m.StartAuth()
	require.NoError(t, err)
	require.Len(t, identities, 2)
	assert.Equal(t, session.StateAccountSelection, m.State())

	require.NoError(t, m.SelectAccount(identities[0]))
	assert.Equal(t, session.StateOTPPending, m.State())

	s, err := m.VerifyOTP("1234")
	require.NoError(t, err)
	assert.Equal(t, session.StateLoggedIn, m.State())

	snap := s.Engine.Snapshot()
	assert.Equal(t, identities[0], snap.Identity)
	assert.Equal(t, ledger.Points(750), snap.Balance)
	assert.Equal(t, ledger.TierBronze, snap.Tier)
	assert.False(t, snap.IsAdmin)
	require.Len(t, snap.History, 1)
	assert.Equal(t, "Welcome Bonus", snap.History[0].Description)
}

func TestConsumerLogin_WrongOTPStaysPending(t *testing.T) {
	// Wrong codes keep the machine in OTP_PENDING; retries are unlimited.
	m := newManager()
	ids, _ := m.StartAuth()
	require.NoError(t, m.SelectAccount(ids[0]))

	for i := 0; i < 3; i++ {
		_, err := m.VerifyOTP("0000")
		assert.ErrorIs(t, err, session.ErrVerificationFailed)
		assert.Equal(t, session.StateOTPPending, m.State())
	}

	_, err := m.VerifyOTP("1234")
	require.NoError(t, err)
	assert.Equal(t, session.StateLoggedIn, m.State())
}

func TestAddAccountFlow(t *testing.T) {
	m := newManager()
	_, err := m.StartAuth()
	require.NoError(t, err)

	require.NoError(t, m.AddAccount("New Member", "new@earth.org"))
	s, err := m.VerifyOTP("1234")
	require.NoError(t, err)

	snap := s.Engine.Snapshot()
	assert.Equal(t, "New Member", snap.Identity.Name)
	assert.Equal(t, "new@earth.org", snap.Identity.Email)
	assert.NotEmpty(t, snap.Identity.Avatar)
}

func TestAddAccount_RequiresNameAndEmail(t *testing.T) {
	m := newManager()
	_, _ = m.StartAuth()
	assert.ErrorIs(t, m.AddAccount("", "x@y.z"), session.ErrInvalidIdentity)
	assert.ErrorIs(t, m.AddAccount("Name", ""), session.ErrInvalidIdentity)
}

// =============================================================================
// ADMIN PATH
// =============================================================================

func TestAdminLogin(t *testing.T) {
	m := newManager()
	require.NoError(t, m.StartAdmin())
	assert.Equal(t, session.StateAdminLogin, m.State())

	_, err := m.AdminLogin("admin", "wrong")
	assert.ErrorIs(t, err, session.ErrInvalidCredentials)
	assert.Equal(t, session.StateAdminLogin, m.State())

	s, err := m.AdminLogin("admin", "password")
	require.NoError(t, err)

	snap := s.Engine.Snapshot()
	assert.True(t, snap.IsAdmin)
	assert.Equal(t, ledger.Points(99999), snap.Balance)
	assert.Equal(t, ledger.TierGold, snap.Tier)
	assert.Empty(t, snap.History)
}

// =============================================================================
// TRANSITION GUARDS AND TEARDOWN
// =============================================================================

func TestInvalidTransitions(t *testing.T) {
	m := newManager()

	// Cannot verify or select before entering the flow.
	_, err := m.VerifyOTP("1234")
	assert.ErrorIs(t, err, session.ErrInvalidTransition)
	assert.ErrorIs(t, m.SelectAccount(ledger.Identity{Name: "x"}), session.ErrInvalidTransition)
	_, err = m.AdminLogin("admin", "password")
	assert.ErrorIs(t, err, session.ErrInvalidTransition)

	// Cannot start the admin path mid consumer flow.
	_, _ = m.StartAuth()
	assert.ErrorIs(t, m.StartAdmin(), session.ErrInvalidTransition)
}

func TestBack_DropsPendingPayload(t *testing.T) {
	m := newManager()
	ids, _ := m.StartAuth()
	require.NoError(t, m.SelectAccount(ids[0]))

	m.Back()
	assert.Equal(t, session.StateLoggedOut, m.State())

	// The dropped payload cannot be verified into a session.
	_, err := m.VerifyOTP("1234")
	assert.ErrorIs(t, err, session.ErrInvalidTransition)
}

func TestSignOut_DiscardsSessionAndCancelsContext(t *testing.T) {
	m := newManager()
	ids, _ := m.StartAuth()
	_ = m.SelectAccount(ids[0])
	s, err := m.VerifyOTP("1234")
	require.NoError(t, err)

	m.SignOut()
	assert.Equal(t, session.StateLoggedOut, m.State())
	_, ok := m.Current()
	assert.False(t, ok)

	select {
	case <-s.Context().Done():
	default:
		t.Fatal("session context should be cancelled on sign-out")
	}

	// The old session ID no longer resolves.
	_, err = m.Resolve(s.ID)
	assert.ErrorIs(t, err, session.ErrNoSession)
}

// =============================================================================
// TOKENS
// =============================================================================

func TestTokens_RoundTrip(t *testing.T) {
	m := newManager()
	require.NoError(t, m.StartAdmin())
	s, err := m.AdminLogin("admin", "password")
	require.NoError(t, err)

	tokens := session.NewTokens("test-secret", time.Hour)
	tok, err := tokens.Issue(s)
	require.NoError(t, err)

	claims, err := tokens.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, s.ID, claims.SessionID)
	assert.True(t, claims.Admin)
}

func TestTokens_RejectsBadSignatureAndExpiry(t *testing.T) {
	m := newManager()
	ids, _ := m.StartAuth()
	_ = m.SelectAccount(ids[0])
	s, err := m.VerifyOTP("1234")
	require.NoError(t, err)

	tok, err := session.NewTokens("secret-a", time.Hour).Issue(s)
	require.NoError(t, err)
	_, err = session.NewTokens("secret-b", time.Hour).Parse(tok)
	assert.ErrorIs(t, err, session.ErrInvalidToken)

	expired, err := session.NewTokens("secret-a", -time.Minute).Issue(s)
	require.NoError(t, err)
	_, err = session.NewTokens("secret-a", time.Hour).Parse(expired)
	assert.ErrorIs(t, err, session.ErrInvalidToken)
}
