package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/i474232898/weather-monitor/internal/common"
	"github.com/i474232898/weather-monitor/internal/weather"
)

const (
	// DefaultTimeout bounds a single provider call.
	DefaultTimeout = 10 * time.Second

	maxBodyBytes       = 1 << 20
	maxDiagnosticBytes = 4 << 10
	breakerTripAfter   = 5
)

var (
	errNoHTTPClient = errors.New("http client not configured")
	errCircuitOpen  = errors.New("circuit breaker open")
)

// NewHTTPClient returns the shared outbound client, traced with otelhttp.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

func newBreaker(name string, onChange func(name string, from, to gobreaker.State)) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    1 * time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerTripAfter
		},
		OnStateChange: onChange,
	})
}

// doRequest performs one request through the circuit breaker and returns the
// response body of a 2xx reply. There are no retries; every failure comes
// back as a *weather.UpstreamError.
func doRequest(
	ctx context.Context,
	client *http.Client,
	cb *gobreaker.CircuitBreaker,
	req *http.Request,
) ([]byte, error) {
	if client == nil {
		return nil, &weather.UpstreamError{Kind: weather.ErrUpstreamUnexpected, Err: errNoHTTPClient}
	}

	req = req.WithContext(ctx)

	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := client.Do(req)
		if execErr != nil {
			return nil, classifyCallError(ctx, execErr)
		}
		defer resp.Body.Close()

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if readErr != nil {
			return nil, classifyCallError(ctx, readErr)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &weather.UpstreamError{
				Kind:       weather.ErrUpstreamUnavailable,
				StatusCode: resp.StatusCode,
				Body:       diagnosticBody(resp.Header.Get("Content-Type"), body),
			}
		}
		return body, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &weather.UpstreamError{
				Kind: weather.ErrUpstreamUnexpected,
				Err:  fmt.Errorf("%w: %v", errCircuitOpen, err),
			}
		}
		return nil, err
	}

	body, ok := result.([]byte)
	if !ok {
		return nil, &weather.UpstreamError{
			Kind: weather.ErrUpstreamUnexpected,
			Err:  fmt.Errorf("unexpected result type %T from circuit breaker", result),
		}
	}
	return body, nil
}

func classifyCallError(ctx context.Context, err error) error {
	var (
		netErr net.Error
		opErr  *net.OpError
		dnsErr *net.DNSError
	)

	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(ctx.Err(), context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return &weather.UpstreamError{Kind: weather.ErrUpstreamTimeout, Err: err}
	case errors.As(err, &dnsErr),
		errors.As(err, &opErr),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF):
		return &weather.UpstreamError{Kind: weather.ErrUpstreamTransport, Err: err}
	default:
		return &weather.UpstreamError{Kind: weather.ErrUpstreamUnexpected, Err: err}
	}
}

// diagnosticBody keeps the provider's error reply readable in logs.
func diagnosticBody(contentType string, body []byte) string {
	if common.HasAny(contentType, "application/json", "+json") {
		var buf bytes.Buffer
		if err := json.Compact(&buf, body); err == nil {
			body = buf.Bytes()
		}
	}
	return common.Truncate(string(bytes.TrimSpace(body)), maxDiagnosticBytes)
}
