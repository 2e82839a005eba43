package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/weather-monitor/internal/weather"
)

const (
	IngestTag = "ingest"
	RetainTag = "retain"

	DefaultInterval      = 10 * time.Second
	DefaultRetentionAt   = "03:00"
	DefaultRetentionDays = 30
)

var ErrStopped = errors.New("scheduler: already stopped")

// Ingester is the job driven by the ingest trigger.
type Ingester interface {
	Run(ctx context.Context) (weather.WeatherRecord, error)
}

// Retainer is the job driven by the daily retain trigger.
type Retainer interface {
	Run(ctx context.Context, retentionDays int) (int64, error)
}

// Config controls the two triggers.
type Config struct {
	Interval      time.Duration
	RetentionAt   string // "HH:MM", server local time
	RetentionDays int
	Location      *time.Location
}

type state int

const (
	stateIdle state = iota
	stateRunning
	stateStopped
)

// Scheduler owns the ingest and retain triggers. Each trigger runs at most
// one invocation at a time; a tick that fires while the previous one is
// still in flight is skipped.
type Scheduler struct {
	scheduler *gocron.Scheduler
	cfg       Config
	ingest    Ingester
	retain    Retainer
	log       *zap.Logger

	mu    sync.Mutex
	state state

	ingestBusy atomic.Bool
	retainBusy atomic.Bool

	// runMu orders inflight.Add against the Wait in Stop.
	runMu    sync.RWMutex
	stopping bool
	inflight sync.WaitGroup

	// ctx is handed to job invocations; it is not cancelled on Stop so
	// in-flight writes can finish.
	ctx context.Context
}

// New creates a stopped Scheduler.
func New(cfg Config, ingest Ingester, retain Retainer, log *zap.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.RetentionAt == "" {
		cfg.RetentionAt = DefaultRetentionAt
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = DefaultRetentionDays
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Scheduler{
		scheduler: gocron.NewScheduler(cfg.Location),
		cfg:       cfg,
		ingest:    ingest,
		retain:    retain,
		log:       log.Named("scheduler"),
		ctx:       context.Background(),
	}
}

// Start registers both triggers and starts the underlying scheduler.
// Starting a running scheduler is a no-op.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateRunning:
		return nil
	case stateStopped:
		return ErrStopped
	}

	_, err := s.scheduler.Every(s.cfg.Interval).
		Tag(IngestTag).
		WaitForSchedule().
		Do(s.guard(IngestTag, &s.ingestBusy, s.runIngest))
	if err != nil {
		s.scheduler.Clear()
		return fmt.Errorf("schedule %s: %w", IngestTag, err)
	}

	_, err = s.scheduler.Every(1).Day().At(s.cfg.RetentionAt).
		Tag(RetainTag).
		Do(s.guard(RetainTag, &s.retainBusy, s.runRetain))
	if err != nil {
		s.scheduler.Clear()
		return fmt.Errorf("schedule %s: %w", RetainTag, err)
	}

	s.scheduler.StartAsync()
	s.state = stateRunning

	s.log.Info("scheduler started",
		zap.Duration("interval", s.cfg.Interval),
		zap.String("retention_at", s.cfg.RetentionAt),
		zap.Int("retention_days", s.cfg.RetentionDays),
	)
	return nil
}

// Stop cancels both triggers and waits for in-flight invocations to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == stateStopped {
		return
	}
	s.runMu.Lock()
	s.stopping = true
	s.runMu.Unlock()

	if s.state == stateRunning {
		s.scheduler.Stop()
	}
	s.state = stateStopped

	s.inflight.Wait()
	s.log.Info("scheduler stopped")
}

// IsRunning reports whether the triggers are active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateRunning
}

// guard wraps fn so that only one invocation per trigger runs at a time and
// none start once Stop has begun.
func (s *Scheduler) guard(name string, busy *atomic.Bool, fn func()) func() {
	return func() {
		if !busy.CompareAndSwap(false, true) {
			s.log.Debug("previous run still in flight, skipping tick", zap.String("job", name))
			return
		}
		defer busy.Store(false)

		if !s.acquire() {
			return
		}
		defer s.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("job panicked", zap.String("job", name), zap.Any("panic", r))
			}
		}()

		fn()
	}
}

func (s *Scheduler) acquire() bool {
	s.runMu.RLock()
	defer s.runMu.RUnlock()
	if s.stopping {
		return false
	}
	s.inflight.Add(1)
	return true
}

func (s *Scheduler) runIngest() {
	rec, err := s.ingest.Run(s.ctx)
	if err != nil {
		s.log.Error("scheduled ingest failed",
			zap.String("job", IngestTag),
			zap.String("kind", weather.ErrorKind(err)),
			zap.Error(err),
		)
		return
	}
	s.log.Debug("scheduled ingest completed",
		zap.String("job", IngestTag),
		zap.String("id", rec.ID),
	)
}

func (s *Scheduler) runRetain() {
	deleted, err := s.retain.Run(s.ctx, s.cfg.RetentionDays)
	if err != nil {
		s.log.Error("scheduled retention failed",
			zap.String("job", RetainTag),
			zap.String("kind", weather.ErrorKind(err)),
			zap.Error(err),
		)
		return
	}
	s.log.Info("scheduled retention completed",
		zap.String("job", RetainTag),
		zap.Int64("deleted", deleted),
	)
}
