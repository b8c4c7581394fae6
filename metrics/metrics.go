// Package metrics defines and registers all custom Prometheus metrics for
// the loyalty engine. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics use promauto and register with the default registry at package
// load; expose them by mounting promhttp.Handler().
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "loyalty"

// PointsEarnedTotal counts points credited to accounts.
// Label:
//   - source: "scan" or "bonus"
var PointsEarnedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "points_earned_total",
		Help:      "Total points earned, by source.",
	},
	[]string{"source"},
)

// PointsRedeemedTotal counts points spent on rewards.
// Label:
//   - category: reward category ("voucher", "product", "experience", "ai-special")
var PointsRedeemedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "points_redeemed_total",
		Help:      "Total points redeemed, by reward category.",
	},
	[]string{"category"},
)

// RedemptionsBlockedTotal counts redemptions that never reached the ledger.
// Label:
//   - reason: "insufficient_balance" or "in_flight"
var RedemptionsBlockedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "redemptions_blocked_total",
		Help:      "Redemption attempts rejected before the ledger, by reason.",
	},
	[]string{"reason"},
)

// ScansTotal counts bin-scan decode outcomes.
// Label:
//   - result: "accepted", "rejected", or "latched"
var ScansTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scans_total",
		Help:      "Bin-scan decode outcomes.",
	},
	[]string{"result"},
)

// RecommendationFetchesTotal counts recommendation fetches.
// Label:
//   - result: "ok", "fallback", or "coalesced"
var RecommendationFetchesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "recommendation_fetches_total",
		Help:      "Recommendation service fetches, by result.",
	},
	[]string{"result"},
)
