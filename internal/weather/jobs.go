package weather

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/i474232898/weather-monitor/internal/weather")

// IngestJob fetches, normalizes and stores one record per run.
type IngestJob struct {
	fetcher    Fetcher
	normalizer *Normalizer
	store      Store
	log        *zap.Logger
}

// NewIngestJob creates an IngestJob.
func NewIngestJob(fetcher Fetcher, normalizer *Normalizer, store Store, log *zap.Logger) *IngestJob {
	if log == nil {
		log = zap.NewNop()
	}
	return &IngestJob{
		fetcher:    fetcher,
		normalizer: normalizer,
		store:      store,
		log:        log,
	}
}

// Run returns the stored record with its assigned ID. Fetcher and normalizer
// errors are returned as-is so callers can tell upstream and payload
// failures apart.
func (j *IngestJob) Run(ctx context.Context) (WeatherRecord, error) {
	ctx, span := tracer.Start(ctx, "weather.ingest")
	defer span.End()
	span.SetAttributes(attribute.String("weather.location", j.normalizer.Location))

	rec, err := j.run(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, ErrorKind(err))
		return WeatherRecord{}, err
	}
	span.SetAttributes(attribute.String("weather.record_id", rec.ID))
	return rec, nil
}

func (j *IngestJob) run(ctx context.Context) (WeatherRecord, error) {
	payload, err := j.fetcher.Fetch(ctx)
	if err != nil {
		return WeatherRecord{}, err
	}

	rec, err := j.normalizer.Normalize(payload)
	if err != nil {
		return WeatherRecord{}, err
	}

	id, err := j.store.Create(ctx, rec)
	if err != nil {
		var se *StorageError
		if !errors.As(err, &se) {
			err = NewStorageError("create", err)
		}
		return WeatherRecord{}, err
	}
	rec.ID = id

	j.log.Info("weather record stored",
		zap.String("location", rec.Location),
		zap.String("id", rec.ID),
		zap.Float64("temp_c", rec.Current.TempC),
		zap.String("condition", rec.Current.Condition.Text),
	)
	return rec, nil
}

// RetentionJob deletes records older than a window of days.
type RetentionJob struct {
	store    Store
	location string
	now      func() time.Time
	log      *zap.Logger
}

// NewRetentionJob creates a RetentionJob for location.
func NewRetentionJob(store Store, location string, log *zap.Logger) *RetentionJob {
	if log == nil {
		log = zap.NewNop()
	}
	return &RetentionJob{
		store:    store,
		location: location,
		now:      time.Now,
		log:      log,
	}
}

// WithClock overrides the job's time source.
func (j *RetentionJob) WithClock(now func() time.Time) *RetentionJob {
	j.now = now
	return j
}

// Run deletes records strictly older than now minus retentionDays and
// returns how many were removed.
func (j *RetentionJob) Run(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays < 1 {
		return 0, errors.New("retention days must be at least 1")
	}

	ctx, span := tracer.Start(ctx, "weather.retain")
	defer span.End()

	cutoff := j.now().UTC().Add(-time.Duration(retentionDays) * 24 * time.Hour)
	deleted, err := j.store.DeleteOlderThan(ctx, j.location, cutoff)
	if err != nil {
		var se *StorageError
		if !errors.As(err, &se) {
			err = NewStorageError("delete older than", err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, ErrorKind(err))
		return 0, err
	}

	span.SetAttributes(attribute.Int64("weather.deleted", deleted))
	j.log.Info("retention completed",
		zap.String("location", j.location),
		zap.Time("cutoff", cutoff),
		zap.Int64("deleted", deleted),
	)
	return deleted, nil
}
