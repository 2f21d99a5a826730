// Package retrieval provides a file-backed EvidenceRetriever for
// deployments that verify claims against a fixed snippet corpus. It is
// the reference implementation of the retrieval port; production
// systems typically swap in a search index behind the same interface.
package retrieval

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/veridict/veridict/internal/domain"
	"github.com/veridict/veridict/internal/ports"
)

// corpusEntry is one snippet in the corpus file.
type corpusEntry struct {
	ID     string `yaml:"id" json:"id"`
	Text   string `yaml:"text" json:"text"`
	Source string `yaml:"source" json:"source"`
}

// CorpusRetriever ranks a fixed in-memory corpus against each claim by
// term overlap. It is safe for concurrent use; the corpus is immutable
// after construction.
type CorpusRetriever struct {
	evidence []domain.Evidence
}

// Compile-time verification that CorpusRetriever implements the port.
var _ ports.EvidenceRetriever = (*CorpusRetriever)(nil)

// NewFromFile loads a YAML corpus file: a list of {id, text, source}
// entries. Entries with empty text are skipped; missing IDs are
// assigned positionally.
func NewFromFile(path string) (*CorpusRetriever, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus file: %w", err)
	}

	var entries []corpusEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing corpus file %s: %w", path, err)
	}

	evidence := make([]domain.Evidence, 0, len(entries))
	for i, entry := range entries {
		if strings.TrimSpace(entry.Text) == "" {
			continue
		}
		if entry.ID == "" {
			entry.ID = fmt.Sprintf("corpus-%d", i)
		}
		evidence = append(evidence, domain.Evidence{
			ID:     entry.ID,
			Text:   entry.Text,
			Source: entry.Source,
		})
	}
	return &CorpusRetriever{evidence: evidence}, nil
}

// New builds a retriever over the given evidence set.
func New(evidence []domain.Evidence) *CorpusRetriever {
	return &CorpusRetriever{evidence: evidence}
}

// Retrieve returns up to limit snippets that share at least one term
// with the claim, most relevant first. Ties keep corpus order so
// results stay deterministic.
func (r *CorpusRetriever) Retrieve(ctx context.Context, claim string, limit int) ([]domain.Evidence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	claimTerms := termSet(claim)
	if len(claimTerms) == 0 {
		return nil, nil
	}

	type scored struct {
		evidence domain.Evidence
		score    float64
		index    int
	}
	matches := make([]scored, 0, len(r.evidence))
	for i, ev := range r.evidence {
		score := overlap(claimTerms, termSet(ev.Text))
		if score > 0 {
			matches = append(matches, scored{evidence: ev, score: score, index: i})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].index < matches[j].index
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	result := make([]domain.Evidence, len(matches))
	for i, m := range matches {
		result[i] = m.evidence
	}
	return result, nil
}

// termSet lowercases and tokenizes text into a set of terms, dropping
// single-character tokens.
func termSet(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if len(f) > 1 {
			set[f] = struct{}{}
		}
	}
	return set
}

// overlap returns the fraction of claim terms present in the evidence
// terms.
func overlap(claim, evidence map[string]struct{}) float64 {
	if len(claim) == 0 {
		return 0
	}
	var shared int
	for term := range claim {
		if _, ok := evidence[term]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(claim))
}
