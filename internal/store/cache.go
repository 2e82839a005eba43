package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/i474232898/weather-monitor/internal/weather"
)

const (
	latestKeyPrefix     = "weather:latest:"
	generationKeyPrefix = "weather:gen:"
)

var errStaleFill = errors.New("cache generation changed during load")

// CachedStore serves GetLatest from Redis in front of another Store.
// Writes and deletions invalidate the cached entry and bump a per-location
// generation; a fill whose load raced a write is dropped. Cache failures
// are logged and fall through to the underlying store.
type CachedStore struct {
	weather.Store

	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// RedisConfig locates the Redis server backing the cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewCachedStore wraps inner with a Redis cache.
func NewCachedStore(inner weather.Store, client *redis.Client, ttl time.Duration, log *zap.Logger) *CachedStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedStore{
		Store:  inner,
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

// NewRedisClient opens a client and checks the connection.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func latestKey(location string) string {
	return latestKeyPrefix + location
}

func generationKey(location string) string {
	return generationKeyPrefix + location
}

func (s *CachedStore) GetLatest(ctx context.Context, location string) (weather.WeatherRecord, error) {
	raw, err := s.client.Get(ctx, latestKey(location)).Bytes()
	switch {
	case err == nil:
		var rec weather.WeatherRecord
		if jsonErr := json.Unmarshal(raw, &rec); jsonErr == nil {
			return rec, nil
		}
		s.log.Warn("discarding unreadable cached record", zap.String("location", location))
	case !errors.Is(err, redis.Nil):
		s.log.Warn("redis get failed", zap.String("location", location), zap.Error(err))
	}

	// The generation is read before the inner load so a write that lands
	// in between prevents the stale record from being cached.
	gen, genErr := s.client.Get(ctx, generationKey(location)).Int64()
	if genErr != nil && !errors.Is(genErr, redis.Nil) {
		s.log.Warn("redis get generation failed", zap.String("location", location), zap.Error(genErr))
	}

	rec, err := s.Store.GetLatest(ctx, location)
	if err != nil {
		return rec, err
	}

	if genErr == nil || errors.Is(genErr, redis.Nil) {
		s.fill(ctx, location, gen, rec)
	}
	return rec, nil
}

// fill caches rec unless the location's generation moved past gen.
func (s *CachedStore) fill(ctx context.Context, location string, gen int64, rec weather.WeatherRecord) {
	b, err := json.Marshal(rec)
	if err != nil {
		return
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, generationKey(location)).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, latestKey(location), b, s.ttl)
			return nil
		})
		return err
	}, generationKey(location))

	switch {
	case err == nil:
	case errors.Is(err, errStaleFill), errors.Is(err, redis.TxFailedErr):
		s.log.Debug("skipping stale cache fill", zap.String("location", location))
	default:
		s.log.Warn("redis set failed", zap.String("location", location), zap.Error(err))
	}
}

func (s *CachedStore) Create(ctx context.Context, rec weather.WeatherRecord) (string, error) {
	id, err := s.Store.Create(ctx, rec)
	if err != nil {
		return "", err
	}
	s.invalidate(ctx, rec.Location)
	return id, nil
}

func (s *CachedStore) DeleteOlderThan(ctx context.Context, location string, cutoff time.Time) (int64, error) {
	n, err := s.Store.DeleteOlderThan(ctx, location, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.invalidate(ctx, location)
	}
	return n, nil
}

func (s *CachedStore) Ping(ctx context.Context) error {
	if err := s.Store.Ping(ctx); err != nil {
		return err
	}
	return weather.NewStorageError("ping cache", s.client.Ping(ctx).Err())
}

func (s *CachedStore) Close(ctx context.Context) error {
	return errors.Join(s.Store.Close(ctx), s.client.Close())
}

func (s *CachedStore) invalidate(ctx context.Context, location string) {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(location))
		pipe.Del(ctx, latestKey(location))
		return nil
	})
	if err != nil {
		s.log.Warn("redis invalidate failed", zap.String("location", location), zap.Error(err))
	}
}
