package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridict/veridict/internal/domain"
)

func TestTracedJob_PassesResultThrough(t *testing.T) {
	record := domain.NewTaskRecord("task-1", "claim-1", "some claim")

	job := TracedJob(func(ctx context.Context, r *domain.TaskRecord) (any, error) {
		assert.NotNil(t, ctx)
		assert.Same(t, record, r)
		return "verified", nil
	})

	result, err := job(context.Background(), record)
	require.NoError(t, err)
	assert.Equal(t, "verified", result)
}

func TestTracedJob_PropagatesErrors(t *testing.T) {
	record := domain.NewTaskRecord("task-1", "claim-1", "some claim")
	wantErr := errors.New("inference backend down")

	job := TracedJob(func(context.Context, *domain.TaskRecord) (any, error) {
		return nil, wantErr
	})

	_, err := job(context.Background(), record)
	require.ErrorIs(t, err, wantErr)
}
