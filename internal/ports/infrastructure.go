// Package ports defines the interfaces that form the contract between
// the verification core and its external collaborators.
// These interfaces enable dependency inversion and make the system
// testable without real model backends or retrieval stores.
package ports

import (
	"context"
	"time"

	"github.com/veridict/veridict/internal/domain"
)

// NLIClient performs natural language inference between a premise
// (evidence text) and a hypothesis (claim text).
// Implementations handle provider-specific details like authentication,
// request formatting, and response parsing. The verification core treats
// inference as a black box producing one EvidenceJudgment per call.
type NLIClient interface {
	// Infer classifies the premise/hypothesis relationship and returns
	// a judgment with label, confidence, and the full score
	// distribution.
	//
	// The context parameter allows for cancellation and deadline
	// propagation. Implementations should respect context cancellation
	// and return promptly.
	Infer(ctx context.Context, premise, hypothesis string) (domain.EvidenceJudgment, error)

	// Provider returns the backend identifier for logging and metrics.
	Provider() string
}

// EvidenceRetriever fetches evidence snippets relevant to a claim.
// Implementations could use a vector index, a search API, or a fixture
// set in tests. Retrieval is external to the core; the core only
// consumes the returned snippets.
type EvidenceRetriever interface {
	// Retrieve returns up to limit evidence items for the claim,
	// ordered by relevance. An empty slice with a nil error means the
	// claim has no retrievable evidence.
	Retrieve(ctx context.Context, claim string, limit int) ([]domain.Evidence, error)
}

// MetricsCollector defines the interface for collecting operational
// metrics. Implementations should integrate with observability
// platforms like Prometheus or OpenTelemetry.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	// This is useful for tracking events like completed jobs or errors.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	// This is useful for tracking values like queue depth or active
	// workers.
	RecordGauge(metric string, value float64, labels map[string]string)
}
