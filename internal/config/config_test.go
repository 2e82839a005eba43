package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetenv clears key for the duration of the test.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("WEATHER_API_KEY", "secret")

	cfg, err := LoadFrom("")
	require.NoError(t, err)

	assert.Equal(t, "Weather Monitoring Service", cfg.App.Name)
	assert.Equal(t, "8000", cfg.App.Port)
	assert.Equal(t, "secret", cfg.Weather.APIKey)
	assert.Equal(t, "https://api.openweathermap.org/data/2.5/weather", cfg.Weather.APIURL)
	assert.Equal(t, "Austin,TX", cfg.Weather.Location)
	assert.Equal(t, 30.2672, cfg.Weather.Lat)
	assert.Equal(t, -97.7431, cfg.Weather.Lon)
	assert.Equal(t, 10*time.Second, cfg.UpdateInterval())
	assert.Equal(t, 30, cfg.Schedule.RetentionDays)
	assert.Equal(t, "03:00", cfg.Schedule.RetentionAt)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "weather_db", cfg.Store.MongoDB)
	assert.Equal(t, "weather_data", cfg.Store.MongoCollection)
	assert.Equal(t, 30*time.Second, cfg.RedisCacheTTL())
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("WEATHER_API_KEY", "")

	_, err := LoadFrom("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APIKey")
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("WEATHER_API_KEY", "secret")
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("WEATHER_LOCATION", "Oslo,NO")
	t.Setenv("WEATHER_LATITUDE", "59.9139")
	t.Setenv("WEATHER_LONGITUDE", "10.7522")
	t.Setenv("WEATHER_UPDATE_INTERVAL_SECONDS", "60")
	t.Setenv("STORE_DRIVER", "Mongo")

	cfg, err := LoadFrom("")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "Oslo,NO", cfg.Weather.Location)
	assert.Equal(t, 59.9139, cfg.Weather.Lat)
	assert.Equal(t, 10.7522, cfg.Weather.Lon)
	assert.Equal(t, time.Minute, cfg.UpdateInterval())
	assert.Equal(t, "mongo", cfg.Store.Driver)
}

func TestLoadRejectsImperialUnits(t *testing.T) {
	t.Setenv("WEATHER_API_KEY", "secret")
	t.Setenv("WEATHER_UNITS", "imperial")

	_, err := LoadFrom("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Units")

	t.Setenv("WEATHER_UNITS", "standard")
	cfg, err := LoadFrom("")
	require.NoError(t, err)
	assert.Equal(t, "standard", cfg.Weather.Units)
}

func TestLoadYAMLThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  name: yaml-app
weather:
  api_key: from-yaml
  location: Denver,CO
  update_interval_seconds: 30
schedule:
  retention_days: 7
  retention_at: "04:30"
store:
  driver: postgres
  postgres_dsn: postgres://weather@localhost/weather
`), 0o600))

	unsetenv(t, "WEATHER_API_KEY")
	t.Setenv("RETENTION_DAYS", "14")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "yaml-app", cfg.App.Name)
	assert.Equal(t, "from-yaml", cfg.Weather.APIKey)
	assert.Equal(t, "Denver,CO", cfg.Weather.Location)
	assert.Equal(t, 30*time.Second, cfg.UpdateInterval())
	assert.Equal(t, "04:30", cfg.Schedule.RetentionAt)
	assert.Equal(t, 14, cfg.Schedule.RetentionDays, "environment wins over the file")
	assert.Equal(t, "postgres", cfg.Store.Driver)
	// Untouched fields keep their defaults.
	assert.Equal(t, "1.0.0", cfg.App.Version)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := Defaults()
		c.Weather.APIKey = "k"
		return c
	}
	require.NoError(t, valid().Validate())

	cases := map[string]func(c *Config){
		"interval":         func(c *Config) { c.Weather.UpdateIntervalSeconds = 0 },
		"retention days":   func(c *Config) { c.Schedule.RetentionDays = 0 },
		"retention at":     func(c *Config) { c.Schedule.RetentionAt = "3am" },
		"driver":           func(c *Config) { c.Store.Driver = "sqlite" },
		"postgres dsn":     func(c *Config) { c.Store.Driver = "postgres" },
		"latitude":         func(c *Config) { c.Weather.Lat = 91 },
		"units":            func(c *Config) { c.Weather.Units = "kelvin" },
		"imperial units":   func(c *Config) { c.Weather.Units = "imperial" },
		"log format":       func(c *Config) { c.Log.Format = "xml" },
		"port":             func(c *Config) { c.App.Port = "http" },
		"api url":          func(c *Config) { c.Weather.APIURL = "not a url" },
		"mongo collection": func(c *Config) { c.Store.Driver = "mongo"; c.Store.MongoCollection = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
