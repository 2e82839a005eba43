package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Name        string `yaml:"name" envconfig:"APP_NAME" validate:"required"`
	Version     string `yaml:"version" envconfig:"APP_VERSION" validate:"required"`
	Port        string `yaml:"port" envconfig:"PORT" validate:"required,numeric"`
	CORSOrigins string `yaml:"cors_origins" envconfig:"CORS_ORIGINS"`
}

type LogConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT" validate:"oneof=json console"`
}

type WeatherConfig struct {
	APIKey   string  `yaml:"api_key" envconfig:"WEATHER_API_KEY" validate:"required"`
	APIURL   string  `yaml:"api_url" envconfig:"WEATHER_API_URL" validate:"required,url"`
	Units    string  `yaml:"units" envconfig:"WEATHER_UNITS" validate:"oneof=metric standard"`
	Location string  `yaml:"location" envconfig:"WEATHER_LOCATION" validate:"required"`
	Lat      float64 `yaml:"lat" envconfig:"WEATHER_LATITUDE" validate:"gte=-90,lte=90"`
	Lon      float64 `yaml:"lon" envconfig:"WEATHER_LONGITUDE" validate:"gte=-180,lte=180"`

	// UpdateIntervalSeconds drives the ingest trigger.
	UpdateIntervalSeconds int `yaml:"update_interval_seconds" envconfig:"WEATHER_UPDATE_INTERVAL_SECONDS" validate:"min=1"`
}

type ScheduleConfig struct {
	RetentionDays int    `yaml:"retention_days" envconfig:"RETENTION_DAYS" validate:"min=1"`
	RetentionAt   string `yaml:"retention_at" envconfig:"RETENTION_AT" validate:"required"`
}

type StoreConfig struct {
	Driver string `yaml:"driver" envconfig:"STORE_DRIVER" validate:"oneof=memory mongo postgres"`

	MongoURI        string `yaml:"mongodb_uri" envconfig:"MONGODB_URI" validate:"required_if=Driver mongo"`
	MongoDB         string `yaml:"mongodb_db_name" envconfig:"MONGODB_DB_NAME" validate:"required_if=Driver mongo"`
	MongoCollection string `yaml:"mongodb_weather_collection" envconfig:"MONGODB_WEATHER_COLLECTION" validate:"required_if=Driver mongo"`

	PostgresDSN string `yaml:"postgres_dsn" envconfig:"POSTGRES_DSN" validate:"required_if=Driver postgres"`

	// RedisAddr enables the latest-record cache when set.
	RedisAddr            string `yaml:"redis_addr" envconfig:"REDIS_ADDR"`
	RedisPassword        string `yaml:"redis_password" envconfig:"REDIS_PASSWORD"`
	RedisDB              int    `yaml:"redis_db" envconfig:"REDIS_DB" validate:"gte=0"`
	RedisCacheTTLSeconds int    `yaml:"redis_cache_ttl_seconds" envconfig:"REDIS_CACHE_TTL_SECONDS" validate:"min=1"`
}

// Config is the full process configuration.
type Config struct {
	App      AppConfig      `yaml:"app"`
	Log      LogConfig      `yaml:"log"`
	Weather  WeatherConfig  `yaml:"weather"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Store    StoreConfig    `yaml:"store"`
}

// UpdateInterval is the ingest trigger period.
func (c *Config) UpdateInterval() time.Duration {
	return time.Duration(c.Weather.UpdateIntervalSeconds) * time.Second
}

// RedisCacheTTL is the lifetime of a cached latest record.
func (c *Config) RedisCacheTTL() time.Duration {
	return time.Duration(c.Store.RedisCacheTTLSeconds) * time.Second
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		App: AppConfig{
			Name:        "Weather Monitoring Service",
			Version:     "1.0.0",
			Port:        "8000",
			CORSOrigins: "*",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Weather: WeatherConfig{
			APIURL:                "https://api.openweathermap.org/data/2.5/weather",
			Units:                 "metric",
			Location:              "Austin,TX",
			Lat:                   30.2672,
			Lon:                   -97.7431,
			UpdateIntervalSeconds: 10,
		},
		Schedule: ScheduleConfig{
			RetentionDays: 30,
			RetentionAt:   "03:00",
		},
		Store: StoreConfig{
			Driver:               "memory",
			MongoURI:             "mongodb://localhost:27017/",
			MongoDB:              "weather_db",
			MongoCollection:      "weather_data",
			RedisCacheTTLSeconds: 30,
		},
	}
}

var validate = validator.New()

// Load reads configuration from defaults, an optional YAML file named by
// CONFIG_FILE, and the environment (including a .env file), in that order.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	return LoadFrom(os.Getenv("CONFIG_FILE"))
}

// LoadFrom is Load without the .env step. An empty path skips the YAML layer.
func LoadFrom(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	if cfg.Log.Level == "warning" {
		cfg.Log.Level = "warn"
	}
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	cfg.Store.Driver = strings.ToLower(cfg.Store.Driver)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := time.Parse("15:04", c.Schedule.RetentionAt); err != nil {
		return fmt.Errorf("invalid config: RETENTION_AT %q is not HH:MM", c.Schedule.RetentionAt)
	}
	return nil
}
