// Package aggregation combines independent evidence judgments into a
// single verdict. It implements the four aggregation strategies of the
// verification engine as pure, stateless computations that are safe for
// concurrent callers.
package aggregation

import (
	"github.com/go-playground/validator/v10"

	"github.com/veridict/veridict/internal/domain"
)

// Strategy selects how evidence judgments are combined into a verdict.
type Strategy string

// Supported aggregation strategies.
const (
	// StrategyWeightedVote sums each judgment's confidence into its
	// verdict bucket and normalizes. This is the default strategy.
	StrategyWeightedVote Strategy = "weighted_vote"

	// StrategyMajorityVote counts one vote per judgment regardless of
	// confidence and normalizes by the filtered count.
	StrategyMajorityVote Strategy = "majority_vote"

	// StrategyConfidenceThreshold restricts weighted voting to
	// high-confidence judgments (>= HighConfidenceThreshold), falling
	// back to weighted voting over the full list when none qualify.
	StrategyConfidenceThreshold Strategy = "confidence_threshold"

	// StrategyStrictConsensus requires every filtered judgment to agree
	// on one label; any disagreement yields an uncertain verdict.
	StrategyStrictConsensus Strategy = "strict_consensus"
)

// Valid returns true if the strategy is one of the recognized values.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyWeightedVote, StrategyMajorityVote,
		StrategyConfidenceThreshold, StrategyStrictConsensus:
		return true
	}
	return false
}

// Fixed aggregation thresholds shared by all strategies.
const (
	// DefaultMinConfidence is the inclusive confidence floor applied
	// when the caller does not supply one.
	DefaultMinConfidence = 0.5

	// HighConfidenceThreshold is the fixed floor used by the
	// confidence-threshold strategy and by the high-confidence remark
	// in explanations.
	HighConfidenceThreshold = 0.75

	// ConflictThreshold is the normalized score both the support and
	// refute buckets must reach for a result to be flagged as
	// conflicting.
	ConflictThreshold = 0.3
)

// scoreFor returns the normalized score recorded for the given verdict.
func scoreFor(r *domain.VerdictResult, v domain.Verdict) float64 {
	switch v {
	case domain.VerdictSupported:
		return r.SupportScore
	case domain.VerdictRefuted:
		return r.RefuteScore
	default:
		return r.NeutralScore
	}
}

// Package-level validator instance for configuration validation.
// Uses go-playground/validator v10 for struct tag-based validation.
var validate = validator.New()
