package domain

import "time"

// Verdict is the final determination for a claim after aggregating all
// evidence judgments.
type Verdict string

// Verdict values. VerdictOrder below defines their precedence for
// tie-breaking.
const (
	// VerdictSupported indicates the evidence overall backs the claim.
	VerdictSupported Verdict = "supported"

	// VerdictRefuted indicates the evidence overall contradicts the claim.
	VerdictRefuted Verdict = "refuted"

	// VerdictUncertain indicates the evidence is insufficient or mixed.
	VerdictUncertain Verdict = "uncertain"
)

// VerdictOrder is the explicit precedence used wherever aggregation must
// break an exact tie between verdict scores: the first verdict in this
// list with the maximum score wins. Supported beats Refuted, Refuted
// beats Uncertain.
var VerdictOrder = []Verdict{VerdictSupported, VerdictRefuted, VerdictUncertain}

// VerdictResult is the immutable output of one aggregation call.
// Score fields are normalized so SupportScore + RefuteScore +
// NeutralScore sums to 1.0, except in the strict-consensus
// "no evidence met the threshold" branch where NeutralScore is 1.0 by
// convention and the others are 0.
type VerdictResult struct {
	// Verdict is the chosen outcome for the claim.
	Verdict Verdict `json:"verdict"`

	// Confidence is the normalized confidence in Verdict (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	// SupportScore, RefuteScore, and NeutralScore are the normalized
	// per-bucket scores produced by the strategy.
	SupportScore float64 `json:"support_score"`
	RefuteScore  float64 `json:"refute_score"`
	NeutralScore float64 `json:"neutral_score"`

	// EvidenceCount is the total number of judgments considered before
	// any confidence filtering.
	EvidenceCount int `json:"evidence_count"`

	// SupportingCount, RefutingCount, and NeutralCount are per-label
	// counts after confidence filtering.
	SupportingCount int `json:"supporting_count"`
	RefutingCount   int `json:"refuting_count"`
	NeutralCount    int `json:"neutral_count"`

	// HasConflict is true when both the support and refute normalized
	// scores exceed the conflict threshold, meaning the evidence
	// meaningfully disagrees with itself.
	HasConflict bool `json:"has_conflict"`

	// Explanation is a deterministic human-readable summary of the
	// fields above.
	Explanation string `json:"explanation"`

	// StrategyUsed names the aggregation strategy that produced this
	// result.
	StrategyUsed string `json:"strategy_used"`
}

// VerificationResult packages a verdict with the claim it applies to.
// It is what the queue persists into the result store and what callers
// read back by claim ID.
type VerificationResult struct {
	// ClaimID is the caller-supplied logical key for the claim.
	ClaimID string `json:"claim_id"`

	// ClaimText is the text that was verified.
	ClaimText string `json:"claim_text"`

	// Verdict is the aggregated outcome.
	Verdict VerdictResult `json:"verdict"`

	// EvidenceUsed is the number of evidence items that produced
	// judgments for this claim.
	EvidenceUsed int `json:"evidence_used"`

	// CompletedAt records when verification finished.
	CompletedAt time.Time `json:"completed_at"`
}
