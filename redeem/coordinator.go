/*
Package redeem bridges the reward catalog and the recommendation
service to the ledger engine.

PURPOSE:
  Translates "redeem reward X" into a ledger Redeem call, with two
  guards the ledger itself does not provide:

  1. Affordability gate: if the balance cannot cover the cost, the
     ledger is never invoked - the caller gets a "locked" outcome and
     no state changes anywhere.
  2. Single-flight per selection: a duplicate submission for the same
     reward while the first is still being applied is rejected, never
     double-charged. Modeled as an in-memory idempotency check keyed by
     the selection (the same shape a distributed system would back with
     Redis).

RECOMMENDATION LIFECYCLE:
  The coordinator also owns the session's current suggestion. Only one
  fetch may be in flight at a time; a second request while one is
  pending is coalesced, not queued. A failed fetch yields the fixed
  fallback - redeemable like any reward - but never clobbers a prior
  successful suggestion. The suggestion dies with the session.

The coordinator is per-session, like the engine it wraps.

SEE ALSO:
  - ledger/engine.go: The atomic balance mutation underneath
  - recommend/client.go: The schema-validated service call
*/
package redeem

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/binrewards/loyalty-engine/catalog"
	"github.com/binrewards/loyalty-engine/ledger"
	"github.com/binrewards/loyalty-engine/metrics"
	"github.com/binrewards/loyalty-engine/notice"
	"github.com/binrewards/loyalty-engine/recommend"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNoRecommendation is returned when redeeming a suggestion that
	// does not exist (never fetched, or discarded at sign-out).
	ErrNoRecommendation = errors.New("no recommendation available")

	// ErrFetchInFlight is returned when a recommendation fetch is
	// already pending; the new request is coalesced into it.
	ErrFetchInFlight = errors.New("recommendation fetch already in flight")
)

// Generator produces reward suggestions. Satisfied by recommend.Client.
type Generator interface {
	Generate(ctx context.Context, req recommend.Request) (recommend.Reward, bool, error)
}

// =============================================================================
// COORDINATOR
// =============================================================================

type Coordinator struct {
	engine    *ledger.Engine
	rewards   catalog.Store
	generator Generator
	notices   *notice.Center
	log       zerolog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
	fetching bool
	current  *recommend.Reward
}

func New(engine *ledger.Engine, rewards catalog.Store, generator Generator,
	notices *notice.Center, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		engine:    engine,
		rewards:   rewards,
		generator: generator,
		notices:   notices,
		log:       log,
		inFlight:  make(map[string]struct{}),
	}
}

// =============================================================================
// CATALOG REDEMPTION
// =============================================================================

// RedeemReward redeems a catalog entry. The selection is single-flight:
// a concurrent duplicate for the same reward returns
// ledger.ErrRedemptionInFlight without touching the ledger.
func (c *Coordinator) RedeemReward(ctx context.Context, rewardID string) (ledger.Snapshot, error) {
	reward, err := c.rewards.Get(ctx, rewardID)
	if err != nil {
		return ledger.Snapshot{}, err
	}

	key := "reward:" + rewardID
	if !c.begin(key) {
		metrics.RedemptionsBlockedTotal.WithLabelValues("in_flight").Inc()
		return ledger.Snapshot{}, ledger.ErrRedemptionInFlight
	}
	defer c.end(key)

	return c.apply(reward.Cost, reward.Title, string(reward.Category))
}

// RedeemRecommendation redeems the session's current suggestion.
func (c *Coordinator) RedeemRecommendation(ctx context.Context) (ledger.Snapshot, error) {
	c.mu.Lock()
	cur := c.current
	c.mu.Unlock()
	if cur == nil {
		return ledger.Snapshot{}, ErrNoRecommendation
	}

	if !c.begin("recommendation") {
		metrics.RedemptionsBlockedTotal.WithLabelValues("in_flight").Inc()
		return ledger.Snapshot{}, ledger.ErrRedemptionInFlight
	}
	defer c.end("recommendation")

	return c.apply(cur.Points(), cur.Title, string(catalog.CategoryAISpecial))
}

// apply runs the affordability gate and, only if it passes, the ledger
// mutation. The engine re-checks atomically, so a concurrent earn or
// redeem between our check and the call can only flip the outcome in
// one direction - towards a safe failure.
func (c *Coordinator) apply(cost ledger.Points, title, category string) (ledger.Snapshot, error) {
	if snap := c.engine.Snapshot(); snap.Balance < cost {
		metrics.RedemptionsBlockedTotal.WithLabelValues("insufficient_balance").Inc()
		c.notices.Publish(notice.KindError, "Insufficient balance!")
		return ledger.Snapshot{}, &ledger.InsufficientBalanceError{
			Available: snap.Balance,
			Requested: cost,
		}
	}

	snap, err := c.engine.Redeem(cost, title)
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientBalance) {
			metrics.RedemptionsBlockedTotal.WithLabelValues("insufficient_balance").Inc()
			c.notices.Publish(notice.KindError, "Insufficient balance!")
		}
		return ledger.Snapshot{}, err
	}

	metrics.PointsRedeemedTotal.WithLabelValues(category).Add(float64(cost))
	c.notices.Publish(notice.KindSuccess, fmt.Sprintf("Redeemed %d points", cost))
	c.log.Info().Str("reward", title).Int64("cost", int64(cost)).
		Int64("balance", int64(snap.Balance)).Msg("reward redeemed")
	return snap, nil
}

// begin claims the single-flight slot for a selection. Returns false if
// the same selection is already being applied.
func (c *Coordinator) begin(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[key]; busy {
		return false
	}
	c.inFlight[key] = struct{}{}
	return true
}

func (c *Coordinator) end(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, key)
}

// =============================================================================
// RECOMMENDATION FETCHING
// =============================================================================

// Current returns the session's suggestion, if one exists.
func (c *Coordinator) Current() (recommend.Reward, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return recommend.Reward{}, false
	}
	return *c.current, true
}

// FetchRecommendation asks the generator for a fresh suggestion. Only
// one fetch runs at a time; callers arriving while one is pending get
// ErrFetchInFlight (coalesced, not queued). Pass the session context so
// sign-out cancels the fetch and discards its result.
func (c *Coordinator) FetchRecommendation(ctx context.Context) (recommend.Reward, error) {
	c.mu.Lock()
	if c.fetching {
		c.mu.Unlock()
		metrics.RecommendationFetchesTotal.WithLabelValues("coalesced").Inc()
		return recommend.Reward{}, ErrFetchInFlight
	}
	c.fetching = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.fetching = false
		c.mu.Unlock()
	}()

	snap := c.engine.Snapshot()
	reward, live, err := c.generator.Generate(ctx, recommend.Request{
		Name:           snap.Identity.Name,
		Tier:           string(snap.Tier),
		LifetimeEarned: int64(snap.LifetimeEarned),
		Balance:        int64(snap.Balance),
	})
	if err != nil {
		// Cancelled: the session is gone, discard everything.
		return recommend.Reward{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if live {
		metrics.RecommendationFetchesTotal.WithLabelValues("ok").Inc()
		c.current = &reward
	} else {
		metrics.RecommendationFetchesTotal.WithLabelValues("fallback").Inc()
		c.notices.Publish(notice.KindError, "Live recommendation unavailable. Showing a standing offer.")
		// A failed refresh must not clear a prior successful suggestion.
		if c.current == nil {
			c.current = &reward
		}
	}
	return reward, nil
}
