package application

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const DefaultRefreshInterval = 10 * time.Minute

// RefreshFunc performs one refresh of every account.
type RefreshFunc func(ctx context.Context) ([]Status, error)

type RefreshResult struct {
	RunID      string
	Statuses   []Status
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Refresher runs RefreshFunc right after Start and then on every tick. Runs
// never overlap: a trigger that arrives while a run is in flight is dropped.
type Refresher struct {
	refresh  RefreshFunc
	interval time.Duration
	onResult func(RefreshResult)
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	trigger chan struct{}
	wg      sync.WaitGroup
	busy    atomic.Bool
}

type RefresherConfig struct {
	Interval time.Duration
	OnResult func(RefreshResult)
	Logger   *slog.Logger
	Clock    func() time.Time
}

func NewRefresher(refresh RefreshFunc, cfg RefresherConfig) *Refresher {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultRefreshInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.OnResult == nil {
		cfg.OnResult = func(RefreshResult) {}
	}

	return &Refresher{
		refresh:  refresh,
		interval: cfg.Interval,
		onResult: cfg.OnResult,
		logger:   cfg.Logger,
		now:      cfg.Clock,
	}
}

// Start launches the refresh loop. Calling Start on a running refresher is a no-op.
func (r *Refresher) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	r.running = true
	r.cancel = cancel
	r.trigger = make(chan struct{}, 1)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.loop(loopCtx, r.trigger)
	}()

	r.logger.Debug("refresher started", "interval", r.interval)
}

// Stop cancels the loop and waits for an in-flight run to finish. It is safe to call more than once.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.cancel()
	r.mu.Unlock()

	r.wg.Wait()
	r.logger.Debug("refresher stopped")
}

func (r *Refresher) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Trigger asks for an immediate run. It reports false when the request was
// dropped because the refresher is stopped or a run is in flight or pending.
func (r *Refresher) Trigger() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running || r.busy.Load() {
		return false
	}

	select {
	case r.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

func (r *Refresher) loop(ctx context.Context, trigger chan struct{}) {
	r.runOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runOnce(ctx)
		case <-trigger:
			r.runOnce(ctx)
			ticker.Reset(r.interval)
		}
	}
}

func (r *Refresher) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	r.busy.Store(true)
	result := RefreshResult{RunID: uuid.NewString(), StartedAt: r.now()}
	logger := r.logger.With("run_id", result.RunID)

	result.Statuses, result.Err = r.refresh(ctx)
	result.FinishedAt = r.now()
	r.busy.Store(false)

	duration := result.FinishedAt.Sub(result.StartedAt)
	if result.Err != nil {
		logger.Warn("refresh failed", "duration", duration, "error", result.Err)
	} else {
		logger.Info("refresh finished", "duration", duration, "accounts", len(result.Statuses))
	}

	if ctx.Err() != nil {
		return
	}
	r.onResult(result)
}
