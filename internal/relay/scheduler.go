package relay

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultMaintenanceInterval is the sweep period when none is configured.
// It is deliberately much shorter than the session TTL and the liveness
// interval.
const DefaultMaintenanceInterval = 90 * time.Second

// Scheduler drives the engine's periodic maintenance.
type Scheduler struct {
	engine   *Engine
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler ticking at the given interval.
func NewScheduler(engine *Engine, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultMaintenanceInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{engine: engine, interval: interval, logger: logger}
}

// Start begins the maintenance loop. It runs one sweep immediately, then on
// each tick.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop cancels the loop and waits for the in-flight sweep, if any.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	s.engine.RunMaintenance(ctx, time.Now())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.engine.RunMaintenance(ctx, time.Now())
		}
	}
}
