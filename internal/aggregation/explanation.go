package aggregation

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/veridict/veridict/internal/domain"
)

// titleCaser renders verdict labels for display ("supported" ->
// "Supported"). Construction is cheap but not free, so one caser is
// shared; cases.Caser is safe for concurrent use.
var titleCaser = cases.Title(language.English)

// buildExplanation produces the deterministic human-readable summary for
// the vote-based strategies. Sentences are emitted in a fixed order:
// verdict and confidence, evidence counts, low-confidence exclusions,
// conflict warning, and a confidence remark.
func buildExplanation(r *domain.VerdictResult, minConfidence float64) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Verdict: %s (confidence %.0f%%).",
		titleCaser.String(string(r.Verdict)), r.Confidence*100)

	fmt.Fprintf(&b, " Based on %d evidence items: %d supporting, %d refuting, %d neutral.",
		r.EvidenceCount, r.SupportingCount, r.RefutingCount, r.NeutralCount)

	considered := r.SupportingCount + r.RefutingCount + r.NeutralCount
	if excluded := r.EvidenceCount - considered; excluded > 0 {
		fmt.Fprintf(&b, " %d %s excluded for low confidence.",
			excluded, pluralJudgment(excluded))
	}

	if r.HasConflict {
		b.WriteString(" WARNING: evidence is conflicting; strong signals exist both for and against this claim.")
	}

	if r.Confidence < minConfidence {
		b.WriteString(" Confidence is below the requested minimum; treat this verdict as advisory.")
	} else if r.Confidence >= HighConfidenceThreshold {
		b.WriteString(" This verdict is supported with high confidence.")
	}

	return b.String()
}

// consensusInsufficientExplanation is the strict-consensus wording when
// no judgment met the confidence floor.
func consensusInsufficientExplanation(minConfidence float64) string {
	return fmt.Sprintf(
		"Verdict: Uncertain. No evidence met the confidence threshold of %.2f; consensus could not be evaluated.",
		minConfidence)
}

// consensusDisagreementExplanation is the strict-consensus wording when
// the filtered judgments disagree.
func consensusDisagreementExplanation(r *domain.VerdictResult) string {
	return fmt.Sprintf(
		"Verdict: Uncertain. Evidence disagrees under strict consensus: %d supporting, %d refuting, %d neutral.",
		r.SupportingCount, r.RefutingCount, r.NeutralCount)
}

// consensusUnanimousExplanation is the strict-consensus wording when all
// filtered judgments agree.
func consensusUnanimousExplanation(r *domain.VerdictResult, agreeing int) string {
	return fmt.Sprintf(
		"Verdict: %s (confidence %.0f%%). All %d confident evidence %s agree under strict consensus.",
		titleCaser.String(string(r.Verdict)), r.Confidence*100, agreeing, pluralItem(agreeing))
}

func pluralJudgment(n int) string {
	if n == 1 {
		return "judgment was"
	}
	return "judgments were"
}

func pluralItem(n int) string {
	if n == 1 {
		return "item"
	}
	return "items"
}
