package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/i474232898/weather-monitor/internal/weather"
)

// recordRow is the flattened relational form of a WeatherRecord.
type recordRow struct {
	ID        uint64    `gorm:"primaryKey"`
	Location  string    `gorm:"type:varchar(128);not null;index:idx_weather_records_location"`
	Timestamp time.Time `gorm:"not null;index:idx_weather_records_timestamp,sort:desc"`

	Name      string  `gorm:"type:varchar(128)"`
	Region    string  `gorm:"type:varchar(64)"`
	Country   string  `gorm:"type:varchar(64)"`
	Lat       float64 `gorm:"not null"`
	Lon       float64 `gorm:"not null"`
	TzID      string  `gorm:"column:tz_id;type:varchar(16)"`
	LocalTime string  `gorm:"column:local_time;type:varchar(16)"`

	TempC         float64
	TempF         float64
	FeelsLikeC    float64
	FeelsLikeF    float64
	Humidity      int
	WindKph       float64
	WindMph       float64
	WindDir       string `gorm:"type:varchar(3)"`
	PressureMb    float64
	PrecipMm      float64
	Cloud         int
	UV            float64 `gorm:"column:uv"`
	ConditionText string  `gorm:"type:varchar(128)"`
	ConditionCode int
	ConditionIcon string `gorm:"type:varchar(256)"`
}

func (recordRow) TableName() string { return "weather_records" }

func rowFromRecord(rec weather.WeatherRecord) recordRow {
	return recordRow{
		Location:      rec.Location,
		Timestamp:     rec.Timestamp.UTC(),
		Name:          rec.Meta.Name,
		Region:        rec.Meta.Region,
		Country:       rec.Meta.Country,
		Lat:           rec.Meta.Lat,
		Lon:           rec.Meta.Lon,
		TzID:          rec.Meta.TzID,
		LocalTime:     rec.Meta.LocalTime,
		TempC:         rec.Current.TempC,
		TempF:         rec.Current.TempF,
		FeelsLikeC:    rec.Current.FeelsLikeC,
		FeelsLikeF:    rec.Current.FeelsLikeF,
		Humidity:      rec.Current.Humidity,
		WindKph:       rec.Current.WindKph,
		WindMph:       rec.Current.WindMph,
		WindDir:       rec.Current.WindDir,
		PressureMb:    rec.Current.PressureMb,
		PrecipMm:      rec.Current.PrecipMm,
		Cloud:         rec.Current.Cloud,
		UV:            rec.Current.UV,
		ConditionText: rec.Current.Condition.Text,
		ConditionCode: rec.Current.Condition.Code,
		ConditionIcon: rec.Current.Condition.Icon,
	}
}

func (r recordRow) toRecord() weather.WeatherRecord {
	return weather.WeatherRecord{
		ID:        strconv.FormatUint(r.ID, 10),
		Location:  r.Location,
		Timestamp: r.Timestamp.UTC(),
		Meta: weather.LocationMeta{
			Name:      r.Name,
			Region:    r.Region,
			Country:   r.Country,
			Lat:       r.Lat,
			Lon:       r.Lon,
			TzID:      r.TzID,
			LocalTime: r.LocalTime,
		},
		Current: weather.Current{
			TempC:      r.TempC,
			TempF:      r.TempF,
			FeelsLikeC: r.FeelsLikeC,
			FeelsLikeF: r.FeelsLikeF,
			Humidity:   r.Humidity,
			WindKph:    r.WindKph,
			WindMph:    r.WindMph,
			WindDir:    r.WindDir,
			PressureMb: r.PressureMb,
			PrecipMm:   r.PrecipMm,
			Cloud:      r.Cloud,
			UV:         r.UV,
			Condition: weather.Condition{
				Text: r.ConditionText,
				Code: r.ConditionCode,
				Icon: r.ConditionIcon,
			},
		},
	}
}

// PostgresStore persists records in a Postgres table through gorm.
type PostgresStore struct {
	db *gorm.DB
}

// NewPostgresStore wraps an open gorm handle.
func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// ConnectPostgresWithRetry opens a Postgres connection, retrying while the
// database comes up.
func ConnectPostgresWithRetry(ctx context.Context, dsn string, attempts int, delay time.Duration) (*PostgresStore, error) {
	var lastErr error
	for i := 1; i <= attempts; i++ {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err == nil {
			return NewPostgresStore(db), nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("postgres connect failed after %d attempts: %w", attempts, lastErr)
}

// EnsureIndexes migrates the table and its location/timestamp indexes.
func (s *PostgresStore) EnsureIndexes(ctx context.Context) error {
	return weather.NewStorageError("ensure indexes", s.db.WithContext(ctx).AutoMigrate(&recordRow{}))
}

func (s *PostgresStore) Create(ctx context.Context, rec weather.WeatherRecord) (string, error) {
	row := rowFromRecord(rec)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", weather.NewStorageError("create", err)
	}
	return strconv.FormatUint(row.ID, 10), nil
}

func (s *PostgresStore) GetLatest(ctx context.Context, location string) (weather.WeatherRecord, error) {
	var row recordRow
	err := s.db.WithContext(ctx).
		Where("location = ?", location).
		Order("timestamp DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return weather.WeatherRecord{}, weather.ErrNotFound
	}
	if err != nil {
		return weather.WeatherRecord{}, weather.NewStorageError("get latest", err)
	}
	return row.toRecord(), nil
}

func (s *PostgresStore) GetHistory(ctx context.Context, q weather.HistoryQuery) ([]weather.WeatherRecord, error) {
	tx := s.db.WithContext(ctx).Where("location = ?", q.Location)
	if q.Start != nil {
		tx = tx.Where("timestamp >= ?", q.Start.UTC())
	}
	if q.End != nil {
		tx = tx.Where("timestamp <= ?", q.End.UTC())
	}
	tx = tx.Order("timestamp DESC").Offset(q.Skip)
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var rows []recordRow
	if err := tx.Find(&rows).Error; err != nil {
		return nil, weather.NewStorageError("get history", err)
	}

	records := make([]weather.WeatherRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.toRecord())
	}
	return records, nil
}

func (s *PostgresStore) CountRecords(ctx context.Context, location string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&recordRow{}).Where("location = ?", location).Count(&n).Error
	if err != nil {
		return 0, weather.NewStorageError("count records", err)
	}
	return n, nil
}

func (s *PostgresStore) DeleteOlderThan(ctx context.Context, location string, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("location = ? AND timestamp < ?", location, cutoff.UTC()).
		Delete(&recordRow{})
	if res.Error != nil {
		return 0, weather.NewStorageError("delete older than", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return weather.NewStorageError("ping", err)
	}
	return weather.NewStorageError("ping", sqlDB.PingContext(ctx))
}

func (s *PostgresStore) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
