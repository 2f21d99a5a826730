// Package storage provides the TTL-keyed result store for completed
// verification jobs. Results are kept in memory for the life of the
// process, expire after a configurable window, and are reclaimed both
// lazily on read and actively by a periodic sweep.
package storage

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Default TTL and sweep settings.
const (
	// DefaultResultTTL is how long a stored result stays readable.
	DefaultResultTTL = time.Hour

	// DefaultCleanupInterval is how often the background sweep removes
	// expired entries.
	DefaultCleanupInterval = 5 * time.Minute
)

// Config controls the store's expiration behavior.
type Config struct {
	// ResultTTL is the time-to-live applied to every stored result.
	// Overwriting a key resets its window from the overwrite time.
	ResultTTL time.Duration `yaml:"result_ttl" json:"result_ttl"`

	// CleanupInterval is the period between background sweeps.
	CleanupInterval time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`
}

// DefaultConfig returns the production defaults: one hour TTL with a
// five minute sweep.
func DefaultConfig() Config {
	return Config{
		ResultTTL:       DefaultResultTTL,
		CleanupInterval: DefaultCleanupInterval,
	}
}

// Stats describes the store's current occupancy.
type Stats struct {
	// Entries is the number of stored items, including entries that
	// have expired but not yet been swept.
	Entries int `json:"entries"`

	// ResultTTL is the configured time-to-live.
	ResultTTL time.Duration `json:"result_ttl"`

	// CleanupRunning reports whether the background sweep is active.
	CleanupRunning bool `json:"cleanup_running"`
}

// ResultStore maps claim IDs to verification results with TTL
// expiration. Both the lazy read path and the active sweep agree on the
// same expiration predicate, enforced by the backing cache.
//
// ResultStore is safe for concurrent use.
type ResultStore struct {
	cache           *gocache.Cache
	ttl             time.Duration
	cleanupInterval time.Duration
	logger          *slog.Logger

	mu      sync.Mutex
	stopCh  chan struct{}
	done    chan struct{}
	running bool
}

// New creates a ResultStore. The backing cache's own janitor is
// disabled; sweeping is handled by StartCleanupLoop so that sweep
// cadence and logging stay under the store's control.
func New(cfg Config, logger *slog.Logger) *ResultStore {
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = DefaultResultTTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultStore{
		// Cleanup interval 0 disables the library janitor.
		cache:           gocache.New(cfg.ResultTTL, 0),
		ttl:             cfg.ResultTTL,
		cleanupInterval: cfg.CleanupInterval,
		logger:          logger.With("component", "result_store"),
	}
}

// StoreResult stores or overwrites the result for a claim. Overwrites
// reset the TTL window from now.
func (s *ResultStore) StoreResult(claimID string, result any) {
	s.cache.Set(claimID, result, gocache.DefaultExpiration)
}

// GetResult returns the stored result for a claim, or false if the
// claim has no entry or the entry has expired. An expired entry is
// indistinguishable from one that was never stored, and the read
// removes it without waiting for the next sweep.
func (s *ResultStore) GetResult(claimID string) (any, bool) {
	if result, found := s.cache.Get(claimID); found {
		return result, true
	}
	// The backing cache reports an expired entry as absent but leaves it
	// in the map until a sweep runs; reclaim it on the read itself.
	s.cache.Delete(claimID)
	return nil, false
}

// DeleteResult removes a claim's entry and reports whether a live entry
// existed.
func (s *ResultStore) DeleteResult(claimID string) bool {
	_, found := s.cache.Get(claimID)
	s.cache.Delete(claimID)
	return found
}

// CleanupExpired removes all expired entries and returns how many were
// reclaimed. The count is computed from the occupancy delta, so
// concurrent stores can make it an undercount; it is a monitoring
// figure, not an exact ledger.
func (s *ResultStore) CleanupExpired() int {
	before := s.cache.ItemCount()
	s.cache.DeleteExpired()
	removed := before - s.cache.ItemCount()
	if removed < 0 {
		removed = 0
	}
	return removed
}

// Clear removes every entry, expired or not.
func (s *ResultStore) Clear() {
	s.cache.Flush()
}

// Stats returns the store's current occupancy and configuration.
func (s *ResultStore) Stats() Stats {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	return Stats{
		Entries:        s.cache.ItemCount(),
		ResultTTL:      s.ttl,
		CleanupRunning: running,
	}
}

// StartCleanupLoop launches the background sweep at the given interval.
// A non-positive interval falls back to the configured one. Starting an
// already-running loop is a logged no-op.
func (s *ResultStore) StartCleanupLoop(interval time.Duration) {
	if interval <= 0 {
		interval = s.cleanupInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.logger.Warn("cleanup loop already running")
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})

	go s.cleanupLoop(interval, s.stopCh, s.done)
	s.logger.Info("cleanup loop started", "interval", interval)
}

// StopCleanupLoop signals the sweep to stop and waits for it to exit.
// Stopping a stopped loop is a no-op.
func (s *ResultStore) StopCleanupLoop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	done := s.done
	s.mu.Unlock()

	<-done
	s.logger.Info("cleanup loop stopped")
}

// cleanupLoop sweeps expired entries until the stop channel closes.
func (s *ResultStore) cleanupLoop(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if removed := s.CleanupExpired(); removed > 0 {
				s.logger.Info("swept expired results", "removed", removed)
			}
		}
	}
}

// String implements fmt.Stringer for diagnostic logging.
func (s *ResultStore) String() string {
	return fmt.Sprintf("ResultStore(entries=%d, ttl=%s)", s.cache.ItemCount(), s.ttl)
}
