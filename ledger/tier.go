/*
tier.go - Tier thresholds and progress calculation

PURPOSE:
  Pure, total functions mapping lifetime earned points to a membership
  tier, and computing display progress toward the next tier.

THRESHOLDS (fixed policy):
  lifetimeEarned <= 1000          BRONZE
  1000 < lifetimeEarned <= 5000   SILVER
  lifetimeEarned > 5000           GOLD

GOLD is a ceiling: there is no tier above it no matter how far earnings
grow. The "ECO WARRIOR" next-goal label shown to GOLD members is display
copy only, pinned at 100% against GOLD's own 5000-point goal.

SEE ALSO:
  - engine.go: Invokes TierFor inside every mutation
*/
package ledger

import "github.com/shopspring/decimal"

// Tier thresholds and display goals.
const (
	silverThreshold Points = 1000
	goldThreshold   Points = 5000
)

// NextGoalEcoWarrior is the display-only milestone label for GOLD members.
const NextGoalEcoWarrior = "ECO WARRIOR"

// TierFor maps lifetime earned points to a membership tier.
// Total: any lifetimeEarned >= 0 maps to exactly one tier.
func TierFor(lifetimeEarned Points) Tier {
	switch {
	case lifetimeEarned > goldThreshold:
		return TierGold
	case lifetimeEarned > silverThreshold:
		return TierSilver
	default:
		return TierBronze
	}
}

// Progress reports the next-tier goal label and percent complete for
// display. Percent is min(100, 100 * lifetimeEarned / goal), computed in
// decimal so the ratio is exact before rounding.
func Progress(tier Tier, lifetimeEarned Points) (nextGoal string, percent int) {
	var goal Points
	switch tier {
	case TierBronze:
		nextGoal, goal = string(TierSilver), silverThreshold
	case TierSilver:
		nextGoal, goal = string(TierGold), goldThreshold
	default:
		// GOLD has no real next tier; pinned against its own ceiling.
		nextGoal, goal = NextGoalEcoWarrior, goldThreshold
	}

	ratio := decimal.NewFromInt(int64(lifetimeEarned)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(goal)))
	p := int(ratio.Round(0).IntPart())
	if p > 100 {
		p = 100
	}
	return nextGoal, p
}
