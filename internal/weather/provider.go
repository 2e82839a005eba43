package weather

import (
	"context"
	"time"
)

// Fetcher retrieves the raw current-weather payload from the upstream provider.
// Failures are *UpstreamError values.
type Fetcher interface {
	Fetch(ctx context.Context) (*RawPayload, error)
}

// Store is the persistence contract shared by the in-memory, MongoDB and
// Postgres adapters. Write and query failures are *StorageError values;
// GetLatest reports an empty location with ErrNotFound.
type Store interface {
	EnsureIndexes(ctx context.Context) error
	Create(ctx context.Context, rec WeatherRecord) (string, error)
	GetLatest(ctx context.Context, location string) (WeatherRecord, error)
	GetHistory(ctx context.Context, q HistoryQuery) ([]WeatherRecord, error)
	CountRecords(ctx context.Context, location string) (int64, error)
	DeleteOlderThan(ctx context.Context, location string, cutoff time.Time) (int64, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
