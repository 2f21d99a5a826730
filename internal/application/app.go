package application

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/veridict/veridict/infrastructure/middleware"
	"github.com/veridict/veridict/infrastructure/nli"
	"github.com/veridict/veridict/infrastructure/retrieval"
	"github.com/veridict/veridict/internal/aggregation"
	"github.com/veridict/veridict/internal/domain"
	"github.com/veridict/veridict/internal/ports"
	"github.com/veridict/veridict/internal/queue"
	"github.com/veridict/veridict/internal/retry"
	"github.com/veridict/veridict/internal/storage"
	"github.com/veridict/veridict/internal/verification"
)

// App is the assembled verification service. Construction happens once
// in Build; the command layer drives Start/Stop and submits claims.
type App struct {
	config   Config
	logger   *slog.Logger
	store    *storage.ResultStore
	queue    *queue.TaskQueue
	verifier *verification.Verifier
	executor *retry.Executor
	job      queue.JobFunc
}

// Build constructs every component from the configuration with explicit
// dependency injection. reg receives the Prometheus collectors; nil
// uses the default registry.
func Build(cfg Config, logger *slog.Logger, reg prometheus.Registerer) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	metrics := middleware.NewQueueMetrics(reg)

	store := storage.New(cfg.Storage, logger)

	taskQueue, err := queue.New(cfg.Queue, store, logger, queue.WithMetrics(metrics))
	if err != nil {
		return nil, fmt.Errorf("building task queue: %w", err)
	}

	aggregator, err := aggregation.New(cfg.Aggregation)
	if err != nil {
		return nil, fmt.Errorf("building aggregator: %w", err)
	}

	nliClient, err := buildNLIClient(cfg.NLI)
	if err != nil {
		return nil, fmt.Errorf("building nli client: %w", err)
	}

	retriever, err := retrieval.NewFromFile(cfg.Retrieval.CorpusPath)
	if err != nil {
		return nil, fmt.Errorf("building retriever: %w", err)
	}

	verifier, err := verification.New(cfg.Verification, retriever, nliClient, aggregator, logger)
	if err != nil {
		return nil, fmt.Errorf("building verifier: %w", err)
	}

	executor, err := retry.New(cfg.Retry, retry.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("building retry executor: %w", err)
	}

	return &App{
		config:   cfg,
		logger:   logger,
		store:    store,
		queue:    taskQueue,
		verifier: verifier,
		executor: executor,
		job:      middleware.TracedJob(verifier.Job(executor)),
	}, nil
}

// buildNLIClient constructs the provider client and, when pacing is
// configured, wraps it with the token-bucket rate limiter.
func buildNLIClient(cfg NLIConfig) (ports.NLIClient, error) {
	client, err := nli.New(cfg.Config)
	if err != nil {
		return nil, err
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		client = nli.RateLimited(client, rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return client, nil
}

// SubmitClaim queues the claim for asynchronous verification and
// returns its task record immediately.
func (a *App) SubmitClaim(claimID, claimText string) (*domain.TaskRecord, error) {
	return a.queue.QueueTask(claimID, claimText, a.job)
}

// TaskStatus returns the live record for a task ID.
func (a *App) TaskStatus(taskID string) (*domain.TaskRecord, bool) {
	return a.queue.GetTaskStatus(taskID)
}

// Result returns the stored verification result for a claim ID.
func (a *App) Result(claimID string) (any, bool) {
	return a.queue.GetResult(claimID)
}

// Stats returns a point-in-time view of the queue and store.
func (a *App) Stats() queue.Stats { return a.queue.GetStats() }

// Start launches the worker pool and background cleanup.
func (a *App) Start() { a.queue.StartWorkers() }

// Stop shuts the worker pool down within the configured budget and
// closes the store.
func (a *App) Stop() {
	timeout := a.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	a.queue.StopWorkers(timeout)
}
