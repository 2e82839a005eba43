package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/i474232898/weather-monitor/internal/weather"
)

const (
	DefaultOpenWeatherURL = "https://api.openweathermap.org/data/2.5/weather"
	DefaultUnits          = "metric"
)

var errNoAPIKey = errors.New("openweather api key is not configured")

// OpenWeatherConfig locates the provider endpoint and the tracked location.
type OpenWeatherConfig struct {
	BaseURL string
	APIKey  string
	// Units is "metric" or "standard"; the normalizer expects Celsius or
	// Kelvin with wind in m/s.
	Units   string
	Target  weather.Location
	// Timeout bounds one call; zero means DefaultTimeout.
	Timeout time.Duration
}

// OpenWeatherProvider fetches current conditions from OpenWeatherMap.
// It implements weather.Fetcher.
type OpenWeatherProvider struct {
	cfg     OpenWeatherConfig
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
	log     *zap.Logger
}

// NewOpenWeatherProvider creates a provider. A nil client gets NewHTTPClient.
func NewOpenWeatherProvider(client *http.Client, cfg OpenWeatherConfig, log *zap.Logger) *OpenWeatherProvider {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenWeatherURL
	}
	if cfg.Units == "" {
		cfg.Units = DefaultUnits
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if client == nil {
		client = NewHTTPClient(cfg.Timeout)
	}

	p := &OpenWeatherProvider{
		cfg:    cfg,
		client: client,
		log:    log,
	}
	p.circuit = newBreaker("openweather", func(name string, from, to gobreaker.State) {
		p.log.Warn("circuit breaker state changed",
			zap.String("breaker", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	})
	return p
}

// Fetch performs a single GET against the provider.
func (p *OpenWeatherProvider) Fetch(ctx context.Context) (*weather.RawPayload, error) {
	if p.cfg.APIKey == "" {
		return nil, &weather.UpstreamError{Kind: weather.ErrUpstreamUnexpected, Err: errNoAPIKey}
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	values := url.Values{}
	values.Set("appid", p.cfg.APIKey)
	values.Set("lat", strconv.FormatFloat(p.cfg.Target.Lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(p.cfg.Target.Lon, 'f', -1, 64))
	values.Set("units", p.cfg.Units)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s?%s", p.cfg.BaseURL, values.Encode()), nil)
	if err != nil {
		return nil, &weather.UpstreamError{Kind: weather.ErrUpstreamUnexpected, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	body, err := doRequest(ctx, p.client, p.circuit, req)
	if err != nil {
		p.log.Debug("openweather request failed",
			zap.String("location", p.cfg.Target.Key()),
			zap.String("kind", weather.ErrorKind(err)),
			zap.Error(err),
		)
		return nil, err
	}

	var payload weather.RawPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &weather.UpstreamError{
			Kind: weather.ErrUpstreamUnexpected,
			Err:  fmt.Errorf("decode response: %w", err),
		}
	}
	return &payload, nil
}
