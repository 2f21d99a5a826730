package aggregation

import (
	"github.com/veridict/veridict/internal/domain"
)

// tally accumulates one pass over a judgment list: confidence-weighted
// sums and plain counts per verdict bucket, restricted to judgments at
// or above the floor.
type tally struct {
	sums   map[domain.Verdict]float64
	counts map[domain.Verdict]int

	// filtered is the number of judgments that passed the floor;
	// excluded is the remainder.
	filtered int
	excluded int

	// confidenceSum is the sum of confidences over the filtered set,
	// used by strict consensus for its arithmetic mean.
	confidenceSum float64
}

// newTally filters judgments by the inclusive floor and accumulates
// per-bucket sums and counts in a single linear pass.
func newTally(judgments []domain.EvidenceJudgment, floor float64) tally {
	t := tally{
		sums:   make(map[domain.Verdict]float64, 3),
		counts: make(map[domain.Verdict]int, 3),
	}
	for _, j := range judgments {
		if j.Confidence < floor {
			t.excluded++
			continue
		}
		bucket := j.Label.Verdict()
		t.sums[bucket] += j.Confidence
		t.counts[bucket]++
		t.filtered++
		t.confidenceSum += j.Confidence
	}
	return t
}

// scoredResult builds a VerdictResult from per-bucket weights:
// normalizes the weights, picks the winner by explicit precedence,
// and applies the conflict predicate. An all-zero weight total falls
// back to a full neutral score by convention.
func scoredResult(
	judgments []domain.EvidenceJudgment,
	t tally,
	weights map[domain.Verdict]float64,
	minConfidence float64,
) domain.VerdictResult {
	var total float64
	for _, v := range domain.VerdictOrder {
		total += weights[v]
	}

	var support, refute, neutral float64
	if total > 0 {
		support = weights[domain.VerdictSupported] / total
		refute = weights[domain.VerdictRefuted] / total
		neutral = weights[domain.VerdictUncertain] / total
	} else {
		// Nothing passed the filter; the only defensible verdict is
		// uncertain with full neutral mass.
		neutral = 1.0
	}

	result := domain.VerdictResult{
		SupportScore:    support,
		RefuteScore:     refute,
		NeutralScore:    neutral,
		EvidenceCount:   len(judgments),
		SupportingCount: t.counts[domain.VerdictSupported],
		RefutingCount:   t.counts[domain.VerdictRefuted],
		NeutralCount:    t.counts[domain.VerdictUncertain],
		HasConflict:     support >= ConflictThreshold && refute >= ConflictThreshold,
	}

	// First max in declared precedence order wins ties: supported
	// beats refuted, refuted beats uncertain.
	winner := domain.VerdictOrder[0]
	best := scoreFor(&result, winner)
	for _, v := range domain.VerdictOrder[1:] {
		if s := scoreFor(&result, v); s > best {
			winner, best = v, s
		}
	}
	result.Verdict = winner
	result.Confidence = best
	result.Explanation = buildExplanation(&result, minConfidence)
	return result
}

// weightedVote sums each filtered judgment's confidence into its verdict
// bucket and normalizes by the grand total.
func weightedVote(judgments []domain.EvidenceJudgment, minConfidence float64) domain.VerdictResult {
	t := newTally(judgments, minConfidence)
	return scoredResult(judgments, t, t.sums, minConfidence)
}

// majorityVote counts one vote per filtered judgment; the normalized
// score of each bucket is its share of the filtered count. Confidence
// affects only the filtering, not the vote weight.
func majorityVote(judgments []domain.EvidenceJudgment, minConfidence float64) domain.VerdictResult {
	t := newTally(judgments, minConfidence)
	votes := make(map[domain.Verdict]float64, 3)
	for bucket, n := range t.counts {
		votes[bucket] = float64(n)
	}
	return scoredResult(judgments, t, votes, minConfidence)
}

// confidenceThreshold behaves like weightedVote restricted to judgments
// at or above HighConfidenceThreshold. When no judgment qualifies, it
// falls back to weighted voting over the full list with the caller's
// original floor.
func confidenceThreshold(judgments []domain.EvidenceJudgment, minConfidence float64) domain.VerdictResult {
	t := newTally(judgments, HighConfidenceThreshold)
	if t.filtered == 0 {
		return weightedVote(judgments, minConfidence)
	}
	return scoredResult(judgments, t, t.sums, minConfidence)
}

// strictConsensus requires unanimity among the filtered judgments.
// An empty filtered set or any disagreement yields an uncertain verdict
// with zero confidence; unanimity yields the mapped verdict with the
// arithmetic mean of the filtered confidences and one-hot scores.
func strictConsensus(judgments []domain.EvidenceJudgment, minConfidence float64) domain.VerdictResult {
	t := newTally(judgments, minConfidence)

	result := domain.VerdictResult{
		Verdict:         domain.VerdictUncertain,
		EvidenceCount:   len(judgments),
		SupportingCount: t.counts[domain.VerdictSupported],
		RefutingCount:   t.counts[domain.VerdictRefuted],
		NeutralCount:    t.counts[domain.VerdictUncertain],
	}

	if t.filtered == 0 {
		result.NeutralScore = 1.0
		result.Explanation = consensusInsufficientExplanation(minConfidence)
		return result
	}

	distinct := 0
	var unanimous domain.Verdict
	for _, v := range domain.VerdictOrder {
		if t.counts[v] > 0 {
			distinct++
			unanimous = v
		}
	}

	if distinct > 1 {
		result.NeutralScore = 1.0
		result.HasConflict = true
		result.Explanation = consensusDisagreementExplanation(&result)
		return result
	}

	result.Verdict = unanimous
	result.Confidence = t.confidenceSum / float64(t.filtered)
	switch unanimous {
	case domain.VerdictSupported:
		result.SupportScore = 1.0
	case domain.VerdictRefuted:
		result.RefuteScore = 1.0
	default:
		result.NeutralScore = 1.0
	}
	result.Explanation = consensusUnanimousExplanation(&result, t.filtered)
	return result
}
