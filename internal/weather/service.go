package weather

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 1000
	defaultHistorySpan  = 24 * time.Hour
)

// Service is the read/refresh surface used by the HTTP API. Scheduled work
// goes straight to the jobs.
type Service struct {
	store    Store
	ingest   *IngestJob
	location string
	log      *zap.Logger
	now      func() time.Time
}

// NewService creates a new Service for the configured location.
func NewService(store Store, ingest *IngestJob, location string, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:    store,
		ingest:   ingest,
		location: location,
		log:      log,
		now:      time.Now,
	}
}

// Location returns the configured location label.
func (s *Service) Location() string {
	return s.location
}

// Current returns the newest stored record, ingesting one synchronously
// when the store has none yet.
func (s *Service) Current(ctx context.Context) (WeatherRecord, error) {
	rec, err := s.store.GetLatest(ctx, s.location)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return WeatherRecord{}, err
	}

	s.log.Info("no stored weather yet, fetching", zap.String("location", s.location))
	return s.ingest.Run(ctx)
}

// Refresh runs the ingestion job on demand. Errors keep their kind.
func (s *Service) Refresh(ctx context.Context) (WeatherRecord, error) {
	return s.ingest.Run(ctx)
}

// History returns a page of records plus the total count for the location.
// With neither bound set it covers the last 24 hours.
func (s *Service) History(ctx context.Context, start, end *time.Time, limit, skip int) ([]WeatherRecord, int64, error) {
	if start == nil && end == nil {
		e := s.now().UTC()
		b := e.Add(-defaultHistorySpan)
		start, end = &b, &e
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	if skip < 0 {
		skip = 0
	}

	records, err := s.store.GetHistory(ctx, HistoryQuery{
		Location: s.location,
		Start:    start,
		End:      end,
		Limit:    limit,
		Skip:     skip,
	})
	if err != nil {
		return nil, 0, err
	}

	total, err := s.store.CountRecords(ctx, s.location)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// Ping checks that the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
