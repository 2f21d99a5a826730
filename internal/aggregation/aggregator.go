package aggregation

import (
	"fmt"

	"github.com/veridict/veridict/internal/domain"
)

// Aggregator combines evidence judgments into verdicts.
//
// The aggregator performs no I/O and holds no mutable state; a single
// instance may be shared freely across goroutines. Each call makes one
// linear pass over its input, so aggregation stays well under the
// latency budget even for hundreds of judgments.
type Aggregator struct {
	config Config
}

// Config controls the aggregator's defaults. Configuration is immutable
// after construction and validated for consistency.
type Config struct {
	// DefaultStrategy is applied when a call does not name a strategy.
	DefaultStrategy Strategy `yaml:"default_strategy" json:"default_strategy" validate:"required,oneof=weighted_vote majority_vote confidence_threshold strict_consensus"`

	// MinConfidence is the inclusive confidence floor applied when a
	// call does not supply one. Judgments with confidence exactly equal
	// to the floor are included.
	MinConfidence float64 `yaml:"min_confidence" json:"min_confidence" validate:"min=0.0,max=1.0"`
}

// DefaultConfig returns a Config with the engine defaults: weighted
// voting with a 0.5 confidence floor.
func DefaultConfig() Config {
	return Config{
		DefaultStrategy: StrategyWeightedVote,
		MinConfidence:   DefaultMinConfidence,
	}
}

// New creates an Aggregator with a validated configuration.
func New(config Config) (*Aggregator, error) {
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &Aggregator{config: config}, nil
}

// Aggregate combines the judgments into a single verdict using the
// given strategy and inclusive confidence floor.
//
// Preconditions:
//   - judgments must be non-empty
//   - every judgment's confidence must lie in [0.0, 1.0]
//   - strategy must be a recognized Strategy value
//
// Violations return a domain validation error identifying the problem
// (including the offending judgment index for confidence failures).
// These errors indicate caller bugs and are never retried.
//
// Aggregate is deterministic: identical inputs produce identical
// results, including the explanation text. Ties between verdict scores
// are broken by domain.VerdictOrder, never by map iteration.
func (a *Aggregator) Aggregate(
	judgments []domain.EvidenceJudgment,
	strategy Strategy,
	minConfidence float64,
) (domain.VerdictResult, error) {
	if len(judgments) == 0 {
		return domain.VerdictResult{}, domain.ErrNoJudgments
	}
	for i, j := range judgments {
		if j.Confidence < 0.0 || j.Confidence > 1.0 {
			return domain.VerdictResult{}, domain.NewJudgmentError(i,
				fmt.Errorf("%w: %f", domain.ErrConfidenceRange, j.Confidence))
		}
	}
	if !strategy.Valid() {
		return domain.VerdictResult{}, fmt.Errorf("%w: %q", domain.ErrUnknownStrategy, strategy)
	}

	var result domain.VerdictResult
	switch strategy {
	case StrategyWeightedVote:
		result = weightedVote(judgments, minConfidence)
	case StrategyMajorityVote:
		result = majorityVote(judgments, minConfidence)
	case StrategyConfidenceThreshold:
		result = confidenceThreshold(judgments, minConfidence)
	case StrategyStrictConsensus:
		result = strictConsensus(judgments, minConfidence)
	}

	result.StrategyUsed = string(strategy)
	return result, nil
}

// AggregateDefault combines the judgments using the configured default
// strategy and confidence floor.
func (a *Aggregator) AggregateDefault(judgments []domain.EvidenceJudgment) (domain.VerdictResult, error) {
	return a.Aggregate(judgments, a.config.DefaultStrategy, a.config.MinConfidence)
}
