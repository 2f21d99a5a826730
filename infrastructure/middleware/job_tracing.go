package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/veridict/veridict/internal/domain"
	"github.com/veridict/veridict/internal/queue"
)

// tracerName identifies spans produced by this package.
const tracerName = "verification-queue"

// TracedJob wraps a queue job so each execution runs inside an
// OpenTelemetry span carrying the task and claim identifiers. Errors
// are recorded on the span; the job's result passes through untouched.
func TracedJob(job queue.JobFunc) queue.JobFunc {
	tracer := otel.Tracer(tracerName)

	return func(ctx context.Context, record *domain.TaskRecord) (any, error) {
		snap := record.Snapshot()
		ctx, span := tracer.Start(ctx, "queue.job",
			trace.WithAttributes(
				attribute.String("task.id", snap.TaskID),
				attribute.String("claim.id", snap.ClaimID),
			),
		)
		defer span.End()

		result, err := job(ctx, record)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return result, err
		}

		span.SetAttributes(attribute.Int("task.retries", record.Snapshot().RetryCount))
		span.SetStatus(codes.Ok, "")
		return result, nil
	}
}
