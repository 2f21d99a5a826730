// Package verification orchestrates the end-to-end check of a single
// claim: retrieve evidence, drop near-duplicate snippets, run natural
// language inference against each remaining snippet, and aggregate the
// judgments into a verdict.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/veridict/veridict/internal/aggregation"
	"github.com/veridict/veridict/internal/domain"
	"github.com/veridict/veridict/internal/ports"
	"github.com/veridict/veridict/internal/queue"
	"github.com/veridict/veridict/internal/retry"
)

// Pipeline defaults.
const (
	// DefaultMaxEvidence caps how many snippets are requested per claim.
	DefaultMaxEvidence = 10

	// DefaultMaxConcurrency bounds parallel inference calls per claim.
	DefaultMaxConcurrency = 4

	// DefaultDedupSimilarity is the normalized Levenshtein similarity at
	// or above which two snippets count as duplicates.
	DefaultDedupSimilarity = 0.9
)

// Progress checkpoints reported into the TaskRecord. Inference progress
// is interpolated between progressRetrieved and progressInferred.
const (
	progressRetrieved = 30
	progressInferred  = 85
	progressAggregate = 90
)

// Config controls one Verifier. Configuration is immutable after
// construction and validated for consistency.
type Config struct {
	// MaxEvidence is the retrieval limit per claim.
	MaxEvidence int `yaml:"max_evidence" json:"max_evidence" validate:"min=1,max=100"`

	// MaxConcurrency bounds how many inference calls run at once for a
	// single claim.
	MaxConcurrency int `yaml:"max_concurrency" json:"max_concurrency" validate:"min=1,max=32"`

	// Strategy selects the aggregation strategy for this pipeline.
	Strategy aggregation.Strategy `yaml:"strategy" json:"strategy" validate:"required,oneof=weighted_vote majority_vote confidence_threshold strict_consensus"`

	// MinConfidence is the inclusive confidence floor passed to the
	// aggregator.
	MinConfidence float64 `yaml:"min_confidence" json:"min_confidence" validate:"min=0.0,max=1.0"`

	// DedupSimilarity is the similarity at or above which a snippet is
	// discarded as a near-duplicate of one already kept. Zero disables
	// deduplication.
	DedupSimilarity float64 `yaml:"dedup_similarity" json:"dedup_similarity" validate:"min=0.0,max=1.0"`
}

// DefaultConfig returns the production defaults: up to ten snippets,
// four concurrent inference calls, weighted voting with a 0.5 floor,
// and a 0.9 duplicate threshold.
func DefaultConfig() Config {
	return Config{
		MaxEvidence:     DefaultMaxEvidence,
		MaxConcurrency:  DefaultMaxConcurrency,
		Strategy:        aggregation.StrategyWeightedVote,
		MinConfidence:   aggregation.DefaultMinConfidence,
		DedupSimilarity: DefaultDedupSimilarity,
	}
}

var validate = validator.New()

// Verifier runs the verification pipeline for one claim at a time. A
// single instance is safe for concurrent use; each Verify call keeps
// its state on the stack.
type Verifier struct {
	config     Config
	retriever  ports.EvidenceRetriever
	nli        ports.NLIClient
	aggregator *aggregation.Aggregator
	logger     *slog.Logger
}

// New creates a Verifier with a validated configuration.
func New(
	config Config,
	retriever ports.EvidenceRetriever,
	nli ports.NLIClient,
	aggregator *aggregation.Aggregator,
	logger *slog.Logger,
) (*Verifier, error) {
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	if retriever == nil {
		return nil, errors.New("evidence retriever is required")
	}
	if nli == nil {
		return nil, errors.New("nli client is required")
	}
	if aggregator == nil {
		return nil, errors.New("aggregator is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Verifier{
		config:     config,
		retriever:  retriever,
		nli:        nli,
		aggregator: aggregator,
		logger:     logger.With("component", "verifier"),
	}, nil
}

// Verify runs the full pipeline for the claim and returns its
// verification result.
//
// record may be nil; when present, Verify reports progress into it as
// each phase completes. Validation failures (empty claim, no evidence,
// malformed judgments, aggregation input errors) and inference errors
// the NLI provider marks non-retryable are wrapped as permanent so a
// retry executor will not re-run them; transient failures from
// retrieval or inference are returned as-is.
func (v *Verifier) Verify(
	ctx context.Context,
	claimID, claimText string,
	record *domain.TaskRecord,
) (domain.VerificationResult, error) {
	if strings.TrimSpace(claimText) == "" {
		return domain.VerificationResult{}, retry.Permanent(domain.ErrEmptyClaim)
	}

	evidence, err := v.retriever.Retrieve(ctx, claimText, v.config.MaxEvidence)
	if err != nil {
		return domain.VerificationResult{}, ports.NewRetrievalError(claimText, err)
	}
	evidence = v.dedupe(evidence)
	v.setProgress(record, progressRetrieved)

	if len(evidence) == 0 {
		return domain.VerificationResult{}, retry.Permanent(
			fmt.Errorf("%w: claim %q", ports.ErrNoEvidence, claimID))
	}

	judgments, err := v.inferAll(ctx, claimText, evidence, record)
	if err != nil {
		var nliErr *ports.NLIError
		if errors.As(err, &nliErr) && !nliErr.IsRetryable() {
			// Authentication and parse failures will not heal on retry.
			return domain.VerificationResult{}, retry.Permanent(err)
		}
		return domain.VerificationResult{}, err
	}

	verdict, err := v.aggregator.Aggregate(judgments, v.config.Strategy, v.config.MinConfidence)
	if err != nil {
		// Aggregation rejects only malformed inputs, which a retry
		// cannot fix.
		return domain.VerificationResult{}, retry.Permanent(fmt.Errorf("aggregation: %w", err))
	}
	v.setProgress(record, progressAggregate)

	v.logger.Debug("claim verified",
		"claim_id", claimID,
		"verdict", verdict.Verdict,
		"confidence", verdict.Confidence,
		"evidence_used", len(judgments))

	return domain.VerificationResult{
		ClaimID:      claimID,
		ClaimText:    claimText,
		Verdict:      verdict,
		EvidenceUsed: len(judgments),
		CompletedAt:  time.Now().UTC(),
	}, nil
}

// Job adapts this verifier into a queue job. The returned JobFunc runs
// Verify under exec, taking the claim from the TaskRecord itself, and
// mirrors each retry attempt into the record's retry counter.
func (v *Verifier) Job(exec *retry.Executor) queue.JobFunc {
	return func(ctx context.Context, record *domain.TaskRecord) (any, error) {
		snap := record.Snapshot()
		run := exec.WithOptions(retry.WithOnRetry(func(attempt int, err error) {
			record.IncrementRetry()
			v.logger.Warn("verification attempt failed",
				"claim_id", snap.ClaimID, "attempt", attempt, "error", err)
		}))
		return retry.DoWithResult(ctx, run, func(ctx context.Context) (domain.VerificationResult, error) {
			return v.Verify(ctx, snap.ClaimID, snap.ClaimText, record)
		})
	}
}

// inferAll fans the evidence out over at most MaxConcurrency inference
// calls. Judgment order matches evidence order regardless of completion
// order. The first inference error cancels the remaining calls.
func (v *Verifier) inferAll(
	ctx context.Context,
	claimText string,
	evidence []domain.Evidence,
	record *domain.TaskRecord,
) ([]domain.EvidenceJudgment, error) {
	judgments := make([]domain.EvidenceJudgment, len(evidence))
	total := int64(len(evidence))

	var completed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.config.MaxConcurrency)
	for i, ev := range evidence {
		g.Go(func() error {
			judgment, err := v.nli.Infer(gctx, ev.Text, claimText)
			if err != nil {
				return fmt.Errorf("inference for evidence %q: %w", ev.ID, err)
			}
			if verr := judgment.Validate(); verr != nil {
				// A malformed judgment is a client bug, not a transient
				// fault.
				return retry.Permanent(fmt.Errorf("judgment for evidence %q: %w", ev.ID, verr))
			}
			judgments[i] = judgment

			done := completed.Add(1)
			span := int64(progressInferred - progressRetrieved)
			v.setProgress(record, progressRetrieved+int(span*done/total))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return judgments, nil
}

// dedupe keeps the first occurrence of each snippet and drops later
// ones whose normalized Levenshtein similarity to a kept snippet meets
// the configured threshold. Input order is preserved.
func (v *Verifier) dedupe(evidence []domain.Evidence) []domain.Evidence {
	if v.config.DedupSimilarity <= 0 || len(evidence) < 2 {
		return evidence
	}

	kept := make([]domain.Evidence, 0, len(evidence))
	for _, candidate := range evidence {
		duplicate := false
		for _, existing := range kept {
			if similarity(candidate.Text, existing.Text) >= v.config.DedupSimilarity {
				duplicate = true
				v.logger.Debug("dropping near-duplicate evidence",
					"evidence_id", candidate.ID, "duplicate_of", existing.ID)
				break
			}
		}
		if !duplicate {
			kept = append(kept, candidate)
		}
	}
	return kept
}

// similarity returns the normalized Levenshtein similarity of two
// strings: 1.0 for identical, 0.0 for maximally different. Comparison
// is case-insensitive and ignores surrounding whitespace.
func similarity(s1, s2 string) float64 {
	s1 = strings.ToLower(strings.TrimSpace(s1))
	s2 = strings.ToLower(strings.TrimSpace(s2))
	if s1 == s2 {
		return 1.0
	}

	// The distance operates on runes, so normalize by rune count.
	distance := levenshtein.ComputeDistance(s1, s2)
	maxLen := utf8.RuneCountInString(s1)
	if n := utf8.RuneCountInString(s2); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1.0
	}

	sim := 1.0 - float64(distance)/float64(maxLen)
	if sim < 0 {
		sim = 0
	}
	return sim
}

func (v *Verifier) setProgress(record *domain.TaskRecord, progress int) {
	if record != nil {
		record.UpdateProgress(progress)
	}
}
