package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const cycleLockKey = "reminder-cycle"

// SchedulerConfig tunes the polling loop.
type SchedulerConfig struct {
	Interval time.Duration
	LockTTL  time.Duration
	// StaleClaimAge is how long an in_flight claim may live before it is handed back.
	StaleClaimAge time.Duration
}

// TenantRun is the outcome of one barbershop in a cycle or a manual run.
type TenantRun struct {
	BarbershopID uuid.UUID   `json:"barbershopId"`
	Sync         *SyncReport `json:"sync,omitempty"`
	Processed    int         `json:"processed"`
	Skipped      int         `json:"skipped"`
	Failed       int         `json:"failed"`
	Error        string      `json:"error,omitempty"`
}

// CycleReport summarizes one poller cycle.
type CycleReport struct {
	Locked   bool        `json:"locked"`
	Released int64       `json:"released"`
	Tenants  []TenantRun `json:"tenants"`
}

// Scheduler drives synchronization and dispatch for every barbershop on a fixed interval.
// The zero value is not usable; build one with NewScheduler.
type Scheduler struct {
	shops      ShopStore
	queue      QueueRepository
	syncer     *Synchronizer
	dispatcher *Dispatcher
	locker     Locker
	cfg        SchedulerConfig
	now        Clock
	log        *zap.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	initial sync.WaitGroup
}

func NewScheduler(shops ShopStore, queue QueueRepository, syncer *Synchronizer, dispatcher *Dispatcher, locker Locker, cfg SchedulerConfig, now Clock, log *zap.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = cfg.Interval
	}
	if cfg.StaleClaimAge <= 0 {
		cfg.StaleClaimAge = 10 * time.Minute
	}
	if locker == nil {
		locker = NewLocalLocker()
	}
	if now == nil {
		now = systemClock
	}
	return &Scheduler{
		shops:      shops,
		queue:      queue,
		syncer:     syncer,
		dispatcher: dispatcher,
		locker:     locker,
		cfg:        cfg,
		now:        now,
		log:        log,
	}
}

// Start runs one cycle right away and then one per interval. Calling Start on a running
// scheduler does nothing.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	cronLog := cron.PrintfLogger(zap.NewStdLog(s.log.Named("cron")))
	job := cron.NewChain(cron.SkipIfStillRunning(cronLog)).Then(cron.FuncJob(func() {
		s.runLogged(runCtx)
	}))

	c := cron.New(cron.WithLogger(cronLog))
	c.Schedule(cron.Every(s.cfg.Interval), job)

	s.initial.Add(1)
	go func() {
		defer s.initial.Done()
		job.Run()
	}()
	c.Start()

	s.cron = c
	s.cancel = cancel
	s.log.Info("reminder scheduler started", zap.Duration("interval", s.cfg.Interval))
}

// Stop halts the timer and waits for a running cycle to return. It is safe to call more
// than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron, s.cancel = nil, nil
	s.mu.Unlock()
	if c == nil {
		return
	}

	cancel()
	<-c.Stop().Done()
	s.initial.Wait()
	s.log.Info("reminder scheduler stopped")
}

// Running reports whether Start was called without a matching Stop.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cron != nil
}

func (s *Scheduler) runLogged(ctx context.Context) {
	report, err := s.RunCycle(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.log.Warn("reminder cycle failed", zap.Error(err))
		}
		return
	}
	if !report.Locked {
		return
	}
	s.log.Debug("reminder cycle finished",
		zap.Int("tenants", len(report.Tenants)),
		zap.Int64("released", report.Released))
}

// RunCycle hands back stale claims, synchronizes every active barbershop and then
// dispatches every active barbershop. A barbershop that fails is recorded in the report
// and does not stop the others. When another process holds the cycle lock the cycle is
// skipped and the report has Locked false.
func (s *Scheduler) RunCycle(ctx context.Context) (CycleReport, error) {
	var report CycleReport

	unlock, ok, err := s.locker.TryLock(ctx, cycleLockKey, s.cfg.LockTTL)
	if err != nil {
		return report, err
	}
	if !ok {
		s.log.Debug("reminder cycle skipped, lock held elsewhere")
		return report, nil
	}
	report.Locked = true
	defer func() {
		if err := unlock(context.Background()); err != nil {
			s.log.Warn("release reminder cycle lock", zap.Error(err))
		}
	}()

	released, err := s.queue.ReleaseStale(ctx, s.now().Add(-s.cfg.StaleClaimAge))
	if err != nil {
		s.log.Warn("release stale claims", zap.Error(err))
	} else if released > 0 {
		s.log.Warn("released stale reminder claims", zap.Int64("count", released))
	}
	report.Released = released

	ids, err := s.shops.ActiveBarbershopIDs(ctx)
	if err != nil {
		return report, err
	}

	report.Tenants = make([]TenantRun, len(ids))
	for i, id := range ids {
		report.Tenants[i].BarbershopID = id
		sr, err := s.syncer.SyncBarbershop(ctx, id)
		if err != nil {
			report.Tenants[i].Error = err.Error()
			s.log.Warn("barbershop sync failed", zap.String("barbershop_id", id.String()), zap.Error(err))
			continue
		}
		report.Tenants[i].Sync = &sr
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	for i, id := range ids {
		run := s.dispatchOne(ctx, id)
		report.Tenants[i].Processed = run.Processed
		report.Tenants[i].Skipped = run.Skipped
		report.Tenants[i].Failed = run.Failed
		if run.Error != "" {
			report.Tenants[i].Error = joinErrors(report.Tenants[i].Error, run.Error)
		}
	}
	return report, ctx.Err()
}

// DispatchAll sends due entries of every active barbershop on demand. It does not take
// the cycle lock; entry claims keep it from double sending alongside the poller.
func (s *Scheduler) DispatchAll(ctx context.Context) ([]TenantRun, error) {
	ids, err := s.shops.ActiveBarbershopIDs(ctx)
	if err != nil {
		return nil, err
	}
	runs := make([]TenantRun, 0, len(ids))
	for _, id := range ids {
		runs = append(runs, s.dispatchOne(ctx, id))
	}
	return runs, nil
}

func (s *Scheduler) dispatchOne(ctx context.Context, id uuid.UUID) TenantRun {
	run := TenantRun{BarbershopID: id}
	res, err := s.dispatcher.ProcessBarbershop(ctx, id)
	run.Processed, run.Skipped, run.Failed = res.Processed, res.Skipped, res.Failed
	if err != nil {
		run.Error = err.Error()
		s.log.Warn("barbershop dispatch failed", zap.String("barbershop_id", id.String()), zap.Error(err))
	}
	return run
}

func joinErrors(a, b string) string {
	if a == "" {
		return b
	}
	return a + "; " + b
}
