package sweep

import (
	"context"
	"sync/atomic"
	"time"

	"stockwatch-service/internal/model"
	"stockwatch-service/prometheus"

	"go.uber.org/zap"
)

// CycleRunner runs one tenant's scan cycle. Satisfied by *Pipeline.
type CycleRunner interface {
	Run(ctx context.Context, tenant *model.ShopSettings, kind string) (*ScanResult, error)
}

// Scheduler is the always-on loop that evaluates every automation-enabled
// shop on a fixed tick and runs a scan cycle for the ones that are due.
// Tenants are processed sequentially and a single in-flight guard skips
// ticks that arrive while a previous tick's cycles are still running, so at
// most one scheduled cycle is in flight per process. Manual scans and the
// reactivation path run independently of this guard.
//
// The clock and tick source are injectable so tests can drive the loop with
// virtual time; production wiring uses a time.Ticker.
type Scheduler struct {
	store        SettingsStore
	runner       CycleRunner
	tickInterval time.Duration
	now          func() time.Time
	ticks        <-chan time.Time
	busy         atomic.Bool
	log          *zap.Logger
}

// NewScheduler creates the process-wide scheduler. It does not start
// ticking until Start is called.
func NewScheduler(store SettingsStore, runner CycleRunner, tickInterval time.Duration, log *zap.Logger) *Scheduler {
	return &Scheduler{
		store:        store,
		runner:       runner,
		tickInterval: tickInterval,
		now:          time.Now,
		log:          log,
	}
}

// Start launches the scheduling loop in a background goroutine. The loop
// runs until the context is canceled; under normal operation that is process
// exit.
func (s *Scheduler) Start(ctx context.Context) {
	go s.loop(ctx)
}

func (s *Scheduler) loop(ctx context.Context) {
	ticks := s.ticks
	if ticks == nil {
		ticker := time.NewTicker(s.tickInterval)
		defer ticker.Stop()
		ticks = ticker.C
	}

	s.log.Info("Scheduler started", zap.Duration("tick_interval", s.tickInterval))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("Scheduler stopped")
			return
		case <-ticks:
			s.runTick(ctx)
		}
	}
}

// runTick processes one timer tick: skip if a previous tick is still
// running, otherwise run a cycle for every due tenant, sequentially.
func (s *Scheduler) runTick(ctx context.Context) {
	if !s.busy.CompareAndSwap(false, true) {
		prometheus.SchedulerTicksSkippedTotal.Inc()
		return
	}
	defer s.busy.Store(false)

	tenants, err := s.store.ListAutomationEnabled()
	if err != nil {
		s.log.Error("Failed to list automation-enabled shops", zap.Error(err))
		return
	}

	now := s.now()
	due := make([]model.ShopSettings, 0, len(tenants))
	for _, tenant := range tenants {
		if isDue(&tenant, now) {
			due = append(due, tenant)
		}
	}
	prometheus.DueTenantsGauge.Set(float64(len(due)))

	for i := range due {
		s.runTenant(ctx, &due[i])
	}
}

// runTenant runs one tenant's cycle behind a panic and error boundary: a
// failing tenant is skipped for this tick only, with its run state forced
// back to IDLE so it is never stuck in-progress.
func (s *Scheduler) runTenant(ctx context.Context, tenant *model.ShopSettings) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Scan cycle panicked",
				zap.String("shop", tenant.Shop),
				zap.Any("panic", r))
			s.forceIdle(tenant.Shop)
		}
	}()

	if _, err := s.runner.Run(ctx, tenant, model.RunKindAuto); err != nil {
		s.log.Error("Scheduled scan cycle failed",
			zap.String("shop", tenant.Shop),
			zap.Error(err))
		s.forceIdle(tenant.Shop)
	}
}

func (s *Scheduler) forceIdle(shop string) {
	if err := s.store.UpsertSettings(shop, map[string]interface{}{"current_run_state": model.RunStateIdle}); err != nil {
		s.log.Error("Failed to force run state back to IDLE",
			zap.String("shop", shop),
			zap.Error(err))
	}
}

// isDue reports whether a tenant's next scheduled run time has arrived. A
// tenant that has never run is immediately due. Minutes intervals are exact
// wall-clock arithmetic; days intervals advance the calendar date.
func isDue(tenant *model.ShopSettings, now time.Time) bool {
	if !tenant.AutomationEnabled {
		return false
	}
	if tenant.LastRunAt == nil {
		return true
	}
	return !now.Before(tenant.NextDueAfter(*tenant.LastRunAt))
}
