package ledger_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binrewards/loyalty-engine/ledger"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func testIdentity() ledger.Identity {
	return ledger.Identity{
		Name:   "Eco Enthusiast",
		Email:  "eco.warrior@gmail.com",
		Avatar: "https://api.dicebear.com/7.x/avataaars/svg?seed=Eco",
	}
}

func newMember(t *testing.T) *ledger.Engine {
	t.Helper()
	return ledger.NewMember(testIdentity(), 750)
}

// =============================================================================
// ACCOUNT CREATION
// =============================================================================

func TestNewMember_WelcomeBonus(t *testing.T) {
	// GIVEN: A fresh member account
	// THEN: balance=750, lifetimeEarned=750, BRONZE, one welcome transaction

	snap := newMember(t).Snapshot()

	assert.Equal(t, ledger.Points(750), snap.Balance)
	assert.Equal(t, ledger.Points(750), snap.LifetimeEarned)
	assert.Equal(t, ledger.TierBronze, snap.Tier)
	assert.False(t, snap.IsAdmin)

	require.Len(t, snap.History, 1)
	assert.Equal(t, ledger.TxEarn, snap.History[0].Kind)
	assert.Equal(t, ledger.Points(750), snap.History[0].Amount)
	assert.Equal(t, "Welcome Bonus", snap.History[0].Description)
}

func TestNewAdmin_ElevatedBalance(t *testing.T) {
	// GIVEN: An admin account with the elevated seed balance
	// THEN: GOLD tier, empty history, admin flag set

	snap := ledger.NewAdmin(ledger.Identity{Name: "System Admin"}, 99999).Snapshot()

	assert.Equal(t, ledger.Points(99999), snap.Balance)
	assert.Equal(t, ledger.TierGold, snap.Tier)
	assert.True(t, snap.IsAdmin)
	assert.Empty(t, snap.History)
}

// =============================================================================
// EARN / REDEEM
// =============================================================================

func TestRedeem_DecreasesBalanceOnly(t *testing.T) {
	// GIVEN: balance=750
	// WHEN: Redeem 500
	// THEN: balance=250, lifetimeEarned unchanged, 2 history entries newest first

	e := newMember(t)
	snap, err := e.Redeem(500, "$5 Eco-Voucher")
	require.NoError(t, err)

	assert.Equal(t, ledger.Points(250), snap.Balance)
	assert.Equal(t, ledger.Points(750), snap.LifetimeEarned)
	assert.Equal(t, ledger.TierBronze, snap.Tier)

	require.Len(t, snap.History, 2)
	assert.Equal(t, ledger.TxRedeem, snap.History[0].Kind)
	assert.Equal(t, "$5 Eco-Voucher", snap.History[0].Description)
	assert.Equal(t, "Welcome Bonus", snap.History[1].Description)
}

func TestEarn_AdvancesTier(t *testing.T) {
	// GIVEN: balance=250 after a 500-point redemption
	// WHEN: Earn 1000
	// THEN: balance=1250, lifetimeEarned=1750, SILVER

	e := newMember(t)
	_, err := e.Redeem(500, "$5 Eco-Voucher")
	require.NoError(t, err)

	snap, err := e.Earn(1000, "QR Bin Scan")
	require.NoError(t, err)

	assert.Equal(t, ledger.Points(1250), snap.Balance)
	assert.Equal(t, ledger.Points(1750), snap.LifetimeEarned)
	assert.Equal(t, ledger.TierSilver, snap.Tier)
}

func TestRedeem_InsufficientBalanceLeavesStateUntouched(t *testing.T) {
	// GIVEN: balance=1250
	// WHEN: Redeem 2000
	// THEN: InsufficientBalance; balance, lifetime, tier, history all unchanged

	e := newMember(t)
	_, _ = e.Redeem(500, "$5 Eco-Voucher")
	_, _ = e.Earn(1000, "QR Bin Scan")
	before := e.Snapshot()

	_, err := e.Redeem(2000, "Tree Planting")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ledger.ErrInsufficientBalance))

	var detail *ledger.InsufficientBalanceError
	require.ErrorAs(t, err, &detail)
	assert.Equal(t, ledger.Points(1250), detail.Available)
	assert.Equal(t, ledger.Points(2000), detail.Requested)

	after := e.Snapshot()
	assert.Equal(t, before.Balance, after.Balance)
	assert.Equal(t, before.LifetimeEarned, after.LifetimeEarned)
	assert.Equal(t, before.Tier, after.Tier)
	assert.Equal(t, len(before.History), len(after.History))
}

func TestInvalidAmounts(t *testing.T) {
	e := newMember(t)

	_, err := e.Earn(0, "nothing")
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	_, err = e.Earn(-5, "negative")
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	_, err = e.Redeem(0, "nothing")
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	// State untouched by invalid input.
	assert.Equal(t, ledger.Points(750), e.Snapshot().Balance)
}

// =============================================================================
// LEDGER INVARIANTS
// =============================================================================

func TestBalanceNeverNegative_MixedSequence(t *testing.T) {
	// GIVEN: An arbitrary mixed sequence of earns and redeems
	// THEN: Balance is non-negative after every operation and lifetime
	//       earned is non-decreasing

	e := newMember(t)
	ops := []struct {
		earn   bool
		amount ledger.Points
	}{
		{false, 700}, {false, 100}, {true, 60}, {false, 200},
		{true, 2500}, {false, 3000}, {false, 2000}, {true, 1},
	}

	lastLifetime := e.Snapshot().LifetimeEarned
	for _, op := range ops {
		if op.earn {
			_, err := e.Earn(op.amount, "QR Bin Scan")
			require.NoError(t, err)
		} else {
			_, _ = e.Redeem(op.amount, "reward") // may legitimately fail
		}
		snap := e.Snapshot()
		assert.GreaterOrEqual(t, snap.Balance, ledger.Points(0))
		assert.GreaterOrEqual(t, snap.LifetimeEarned, lastLifetime)
		lastLifetime = snap.LifetimeEarned
	}
}

func TestHistory_UniqueIDsAndOrderedTimestamps(t *testing.T) {
	// GIVEN: A series of successful mutations
	// THEN: Each prepends exactly one transaction with a unique ID and a
	//       timestamp >= the previous transaction's

	e := newMember(t)
	_, _ = e.Earn(50, "QR Bin Scan")
	_, _ = e.Earn(50, "QR Bin Scan")
	_, _ = e.Redeem(100, "reward")

	snap := e.Snapshot()
	require.Len(t, snap.History, 4)

	seen := map[ledger.TransactionID]bool{}
	for i, tx := range snap.History {
		assert.False(t, seen[tx.ID], "duplicate transaction id %s", tx.ID)
		seen[tx.ID] = true
		if i+1 < len(snap.History) {
			// Newest first: each entry is no older than the one below it.
			assert.False(t, tx.Timestamp.Before(snap.History[i+1].Timestamp))
		}
	}
}

func TestClockInjection(t *testing.T) {
	// The Now hook drives transaction timestamps.
	e := newMember(t)
	fixed := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	e.Now = func() time.Time { return fixed }

	snap, err := e.Earn(50, "QR Bin Scan")
	require.NoError(t, err)
	assert.Equal(t, fixed, snap.History[0].Timestamp)
}

// =============================================================================
// CONCURRENCY - no double-spend
// =============================================================================

func TestConcurrentRedeems_ExactlyOneSucceeds(t *testing.T) {
	// GIVEN: balance=750, two concurrent redeems of 500 and 400
	//        (either alone fits, both together overdraw)
	// THEN: Exactly one succeeds; balance never goes negative

	for i := 0; i < 100; i++ {
		e := newMember(t)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		amounts := []ledger.Points{500, 400}
		for j, amt := range amounts {
			wg.Add(1)
			go func(j int, amt ledger.Points) {
				defer wg.Done()
				_, errs[j] = e.Redeem(amt, "reward")
			}(j, amt)
		}
		wg.Wait()

		failures := 0
		for _, err := range errs {
			if err != nil {
				require.ErrorIs(t, err, ledger.ErrInsufficientBalance)
				failures++
			}
		}
		require.Equal(t, 1, failures, "exactly one redemption must fail")

		snap := e.Snapshot()
		assert.GreaterOrEqual(t, snap.Balance, ledger.Points(0))
		assert.Len(t, snap.History, 2) // welcome + the single successful redeem
	}
}

func TestConcurrentEarnsAndRedeems_StateConsistent(t *testing.T) {
	// Hammer the engine from both producers; totals must reconcile.
	e := newMember(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = e.Earn(50, "QR Bin Scan")
		}()
		go func() {
			defer wg.Done()
			_, _ = e.Redeem(30, "reward")
		}()
	}
	wg.Wait()

	snap := e.Snapshot()
	assert.Equal(t, ledger.Points(750+50*50), snap.LifetimeEarned)

	var redeemed ledger.Points
	for _, tx := range snap.History {
		if tx.Kind == ledger.TxRedeem {
			redeemed += tx.Amount
		}
	}
	assert.Equal(t, snap.LifetimeEarned-redeemed, snap.Balance)
	assert.GreaterOrEqual(t, snap.Balance, ledger.Points(0))
}
