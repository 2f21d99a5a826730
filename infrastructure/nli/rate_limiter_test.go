package nli

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/veridict/veridict/internal/domain"
)

type countingClient struct {
	calls int
}

func (c *countingClient) Infer(context.Context, string, string) (domain.EvidenceJudgment, error) {
	c.calls++
	return domain.EvidenceJudgment{Label: domain.LabelNeutral, Confidence: 0.5}, nil
}

func (c *countingClient) Provider() string { return "counting" }

func TestRateLimited_ForwardsCalls(t *testing.T) {
	inner := &countingClient{}
	client := RateLimited(inner, rate.Inf, 1)

	judgment, err := client.Infer(context.Background(), "premise", "hypothesis")
	require.NoError(t, err)
	assert.Equal(t, domain.LabelNeutral, judgment.Label)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, "counting", client.Provider())
}

func TestRateLimited_PacesRequests(t *testing.T) {
	inner := &countingClient{}
	// 20 requests/second with no burst headroom beyond the first token.
	client := RateLimited(inner, rate.Limit(20), 1)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.Infer(context.Background(), "premise", "hypothesis")
		require.NoError(t, err)
	}

	// The second and third calls must each wait ~50ms for a token.
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
	assert.Equal(t, 3, inner.calls)
}

func TestRateLimited_ContextCancellationAbortsWait(t *testing.T) {
	inner := &countingClient{}
	client := RateLimited(inner, rate.Limit(1), 1)

	// Consume the only available token.
	_, err := client.Infer(context.Background(), "premise", "hypothesis")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = client.Infer(ctx, "premise", "hypothesis")
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls, "inner client must not be reached")
}
