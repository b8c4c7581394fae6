/*
Package recommend calls the external recommendation service for a
personalized reward suggestion.

PURPOSE:
  Given a snapshot of the member (name, tier, lifetime earned, balance),
  the service returns a creative reward suggestion. The wire format is a
  JSON object with exactly four required fields:

    {"title": string, "description": string, "cost": int, "reasoning": string}

  with cost expected in [500, 3000].

SCHEMA VALIDATION:
  The response is validated explicitly (go-playground/validator), not
  duck-typed: any transport error, timeout, malformed JSON, missing
  field, or out-of-range cost degrades to the fixed fallback reward.
  The fallback is itself a valid suggestion, redeemable like any other
  reward - a failed fetch is never an error the ledger sees.

CONCURRENCY:
  The client is stateless and safe for concurrent use. Coalescing of
  concurrent fetches is the redemption coordinator's job, not the
  client's.

SEE ALSO:
  - redeem/: Coalesces fetches and bridges suggestions to the ledger
*/
package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/binrewards/loyalty-engine/ledger"
)

// =============================================================================
// WIRE TYPES
// =============================================================================

// Request is the member snapshot sent to the service.
type Request struct {
	Name           string `json:"name"`
	Tier           string `json:"tier"`
	LifetimeEarned int64  `json:"lifetimeEarned"`
	Balance        int64  `json:"balance"`
}

// Reward is a suggested reward. All four fields are required; cost must
// land in the service's contract range.
type Reward struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	Cost        int64  `json:"cost" validate:"required,min=500,max=3000"`
	Reasoning   string `json:"reasoning" validate:"required"`
}

// Points returns the suggestion's cost as ledger points.
func (r Reward) Points() ledger.Points { return ledger.Points(r.Cost) }

// Fallback is the fixed suggestion used whenever the live service fails.
var Fallback = Reward{
	Title:       "Rare Eco-Seeds Kit",
	Description: "A selection of heirloom seeds delivered to your door to start your urban garden.",
	Cost:        1200,
	Reasoning:   "Your consistent recycling shows you care about growth and sustainability!",
}

// =============================================================================
// CLIENT
// =============================================================================

type Client struct {
	url      string
	apiKey   string
	model    string
	http     *http.Client
	validate *validator.Validate
	log      zerolog.Logger
}

func NewClient(url, apiKey, model string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		url:      url,
		apiKey:   apiKey,
		model:    model,
		http:     &http.Client{Timeout: timeout},
		validate: validator.New(),
		log:      log,
	}
}

// Generate fetches a suggestion for the member. It never returns an
// error to the caller: every failure path yields (Fallback, false). The
// second return reports whether the live service produced the result.
//
// The one exception is context cancellation - a cancelled fetch (member
// signed out) returns ctx.Err() so the caller knows to discard
// everything.
func (c *Client) Generate(ctx context.Context, req Request) (Reward, bool, error) {
	if c.url == "" {
		// No service configured (offline demo); fall back immediately.
		return Fallback, false, nil
	}

	reward, err := c.fetch(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return Reward{}, false, ctx.Err()
		}
		c.log.Warn().Err(err).Str("member", req.Name).
			Msg("recommendation service failed, using fallback")
		return Fallback, false, nil
	}
	return reward, true, nil
}

func (c *Client) fetch(ctx context.Context, req Request) (Reward, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Reward{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Reward{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if c.model != "" {
		httpReq.Header.Set("X-Model", c.model)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Reward{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Reward{}, fmt.Errorf("recommendation service returned %d", resp.StatusCode)
	}

	var reward Reward
	dec := json.NewDecoder(resp.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&reward); err != nil {
		return Reward{}, fmt.Errorf("malformed response: %w", err)
	}
	if err := c.validate.Struct(reward); err != nil {
		return Reward{}, fmt.Errorf("response failed schema validation: %w", err)
	}
	return reward, nil
}
