package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/weather-monitor/internal/weather"
)

// recordHistory holds the records of one location ordered by timestamp ascending.
type recordHistory struct {
	records []weather.WeatherRecord
}

// MemoryStore is a concurrency-safe in-memory implementation of weather.Store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: location, value: history
	data map[string]*recordHistory
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]*recordHistory),
	}
}

// EnsureIndexes is a no-op; records are kept sorted on insert.
func (s *MemoryStore) EnsureIndexes(context.Context) error { return nil }

// Create inserts rec in timestamp order and assigns it a UUID.
func (s *MemoryStore) Create(_ context.Context, rec weather.WeatherRecord) (string, error) {
	rec.ID = uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[rec.Location]
	if !ok {
		history = &recordHistory{}
		s.data[rec.Location] = history
	}

	// Equal timestamps keep insertion order.
	i := sort.Search(len(history.records), func(i int) bool {
		return history.records[i].Timestamp.After(rec.Timestamp)
	})
	history.records = append(history.records, weather.WeatherRecord{})
	copy(history.records[i+1:], history.records[i:])
	history.records[i] = rec

	return rec.ID, nil
}

// GetLatest returns the most recent record for a location.
func (s *MemoryStore) GetLatest(_ context.Context, location string) (weather.WeatherRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[location]
	if !ok || len(history.records) == 0 {
		return weather.WeatherRecord{}, weather.ErrNotFound
	}
	return history.records[len(history.records)-1], nil
}

// GetHistory returns records between Start and End (inclusive), newest first.
func (s *MemoryStore) GetHistory(_ context.Context, q weather.HistoryQuery) ([]weather.WeatherRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[q.Location]
	if !ok {
		return []weather.WeatherRecord{}, nil
	}

	result := make([]weather.WeatherRecord, 0)
	skipped := 0
	for i := len(history.records) - 1; i >= 0; i-- {
		rec := history.records[i]
		if q.Start != nil && rec.Timestamp.Before(*q.Start) {
			continue
		}
		if q.End != nil && rec.Timestamp.After(*q.End) {
			continue
		}
		if skipped < q.Skip {
			skipped++
			continue
		}
		if q.Limit > 0 && len(result) >= q.Limit {
			break
		}
		result = append(result, rec)
	}
	return result, nil
}

// CountRecords returns how many records are held for a location.
func (s *MemoryStore) CountRecords(_ context.Context, location string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[location]
	if !ok {
		return 0, nil
	}
	return int64(len(history.records)), nil
}

// DeleteOlderThan removes records with a timestamp strictly before cutoff.
func (s *MemoryStore) DeleteOlderThan(_ context.Context, location string, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[location]
	if !ok {
		return 0, nil
	}

	i := sort.Search(len(history.records), func(i int) bool {
		return !history.records[i].Timestamp.Before(cutoff)
	})
	if i == 0 {
		return 0, nil
	}
	history.records = append([]weather.WeatherRecord(nil), history.records[i:]...)
	return int64(i), nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close(context.Context) error { return nil }
