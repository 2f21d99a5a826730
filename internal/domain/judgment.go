package domain

import "fmt"

// NLILabel classifies the relationship between a piece of evidence
// (premise) and a claim (hypothesis) as determined by natural language
// inference.
type NLILabel string

// The three NLI outcome labels.
const (
	// LabelEntailment indicates the evidence supports the claim.
	LabelEntailment NLILabel = "entailment"

	// LabelContradiction indicates the evidence refutes the claim.
	LabelContradiction NLILabel = "contradiction"

	// LabelNeutral indicates the evidence neither supports nor refutes
	// the claim.
	LabelNeutral NLILabel = "neutral"
)

// Valid returns true if the label is one of the three recognized NLI
// outcomes.
func (l NLILabel) Valid() bool {
	switch l {
	case LabelEntailment, LabelContradiction, LabelNeutral:
		return true
	}
	return false
}

// Verdict maps an NLI label to the verdict bucket it votes for.
// Entailment supports, contradiction refutes, neutral is uncertain.
func (l NLILabel) Verdict() Verdict {
	switch l {
	case LabelEntailment:
		return VerdictSupported
	case LabelContradiction:
		return VerdictRefuted
	default:
		return VerdictUncertain
	}
}

// EvidenceJudgment is one NLI comparison result for a single
// (claim, evidence item) pair. Judgments are produced by an NLI client,
// consumed once by the aggregator, and never persisted.
// The value is immutable after creation.
type EvidenceJudgment struct {
	// Label is the NLI outcome for this evidence item.
	Label NLILabel `json:"label"`

	// Confidence is the model's confidence in Label (0.0 to 1.0).
	// Values outside that range cause aggregation to fail fast.
	Confidence float64 `json:"confidence"`

	// Scores holds the full probability distribution over all three
	// labels. It should sum to roughly 1.0 but only Confidence is
	// validated by the aggregator.
	Scores map[NLILabel]float64 `json:"scores,omitempty"`
}

// Validate checks the judgment for values an NLI client should never
// produce: an unrecognized label, a confidence outside [0, 1], or a
// score outside [0, 1]. It returns a *ValidationError listing every
// problem found, or nil for a well-formed judgment.
func (j EvidenceJudgment) Validate() error {
	verr := NewValidationError("evidence judgment")
	if !j.Label.Valid() {
		verr.AddError(fmt.Sprintf("unknown label %q", j.Label))
	}
	if j.Confidence < 0.0 || j.Confidence > 1.0 {
		verr.AddError(fmt.Sprintf("confidence %f out of range", j.Confidence))
	}
	// Checked in a fixed order so the message is deterministic.
	for _, label := range []NLILabel{LabelEntailment, LabelContradiction, LabelNeutral} {
		if score, ok := j.Scores[label]; ok && (score < 0.0 || score > 1.0) {
			verr.AddError(fmt.Sprintf("score %f for label %q out of range", score, label))
		}
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

// Evidence is a retrieved text snippet compared against a claim.
type Evidence struct {
	// ID uniquely identifies this evidence item within a retrieval batch.
	ID string `json:"id"`

	// Text is the snippet content used as the NLI premise.
	Text string `json:"text"`

	// Source names where the snippet came from, when known.
	Source string `json:"source,omitempty"`
}
