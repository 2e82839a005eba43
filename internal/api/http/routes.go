package httpapi

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-monitor/internal/weather"
)

var validate = validator.New()

// WeatherService is what the handlers need from weather.Service.
type WeatherService interface {
	Location() string
	Current(ctx context.Context) (weather.WeatherRecord, error)
	Refresh(ctx context.Context) (weather.WeatherRecord, error)
	History(ctx context.Context, start, end *time.Time, limit, skip int) ([]weather.WeatherRecord, int64, error)
	Ping(ctx context.Context) error
}

// Info describes the running service for the root and health endpoints.
type Info struct {
	Name    string
	Version string
	Driver  string
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service WeatherService, info Info) {
	api := app.Group("/api")

	api.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"name":        info.Name,
			"version":     info.Version,
			"description": fmt.Sprintf("Weather Monitoring Service for %s", service.Location()),
		})
	})

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": info.Name,
			"version": info.Version,
		})
	})

	api.Get("/health/db", func(c *fiber.Ctx) error {
		if err := service.Ping(c.UserContext()); err != nil {
			return c.JSON(fiber.Map{
				"status": "unhealthy",
				"detail": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"status": "healthy",
			"driver": info.Driver,
		})
	})

	w := api.Group("/weather")

	w.Get("/current", func(c *fiber.Ctx) error {
		rec, err := service.Current(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"data":    rec,
			"message": "Current weather data retrieved successfully",
		})
	})

	w.Get("/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		records, total, err := service.History(c.UserContext(), req.Start, req.End, req.Limit, req.Offset)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"data":    records,
			"count":   total,
			"message": fmt.Sprintf("Retrieved %d weather records", len(records)),
		})
	})

	w.Post("/refresh", func(c *fiber.Ctx) error {
		rec, err := service.Refresh(c.UserContext())
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"data":    rec,
			"message": "Weather data refreshed successfully",
		})
	})
}

// ErrorHandler maps error kinds to HTTP status codes.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	kind := weather.ErrorKind(err)

	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
		kind = ""
	case errors.Is(err, weather.ErrNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, weather.ErrUpstreamTimeout):
		code = fiber.StatusGatewayTimeout
	case errors.Is(err, weather.ErrUpstreamUnavailable),
		errors.Is(err, weather.ErrUpstreamTransport),
		errors.Is(err, weather.ErrUpstreamUnexpected),
		errors.Is(err, weather.ErrMalformedPayload):
		code = fiber.StatusBadGateway
	}

	body := fiber.Map{
		"error":   true,
		"message": err.Error(),
	}
	if kind != "" {
		body["kind"] = kind
	}
	return c.Status(code).JSON(body)
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	Start  *time.Time
	End    *time.Time
	Limit  int `validate:"min=1,max=1000"`
	Offset int `validate:"min=0"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	var err error
	if h.Start, err = parseOptionalTime(c.Query("start_date")); err != nil {
		return fmt.Errorf("start_date: %w", err)
	}
	if h.End, err = parseOptionalTime(c.Query("end_date")); err != nil {
		return fmt.Errorf("end_date: %w", err)
	}
	if h.Start != nil && h.End != nil && h.End.Before(*h.Start) {
		return errors.New("end_date must not be before start_date")
	}

	if h.Limit, err = queryInt(c, "limit", weather.DefaultHistoryLimit); err != nil {
		return err
	}
	if h.Offset, err = queryInt(c, "offset", 0); err != nil {
		return err
	}
	return nil
}

func queryInt(c *fiber.Ctx, key string, def int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return n, nil
}

func parseOptionalTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parseTime(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC(), nil
	}
	if ts, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return ts.UTC(), nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
