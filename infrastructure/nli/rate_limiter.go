package nli

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/veridict/veridict/internal/domain"
	"github.com/veridict/veridict/internal/ports"
)

// rateLimitedClient enforces a token-bucket rate limit in front of any
// NLIClient, keeping request pacing below provider quotas.
type rateLimitedClient struct {
	next    ports.NLIClient
	limiter *rate.Limiter
}

// RateLimited wraps next with a token-bucket limiter. limit is the
// sustained requests-per-second rate; burst allows short spikes above
// it.
func RateLimited(next ports.NLIClient, limit rate.Limit, burst int) ports.NLIClient {
	return &rateLimitedClient{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Infer blocks until a token is available, then forwards the call.
// Context cancellation while waiting aborts with the context's error.
func (r *rateLimitedClient) Infer(ctx context.Context, premise, hypothesis string) (domain.EvidenceJudgment, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return domain.EvidenceJudgment{}, ports.NewNLIError(r.next.Provider(), "rate_limit", err)
	}
	return r.next.Infer(ctx, premise, hypothesis)
}

// Provider returns the wrapped client's backend identifier.
func (r *rateLimitedClient) Provider() string { return r.next.Provider() }
