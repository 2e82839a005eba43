package weather

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullPayload = `{
  "coord": {"lon": -97.7431, "lat": 30.2672},
  "weather": [{"id": 802, "main": "Clouds", "description": "scattered clouds", "icon": "03d"}],
  "main": {"temp": 24.0, "feels_like": 25.5, "pressure": 1015, "humidity": 64},
  "wind": {"speed": 5.0, "deg": 180},
  "clouds": {"all": 40},
  "rain": {"1h": 0.3},
  "dt": 1700000000,
  "sys": {"country": "US"},
  "timezone": -21600,
  "uvi": 6.2,
  "name": "Austin"
}`

var fixedNow = time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

func testNormalizer() *Normalizer {
	return &Normalizer{
		Location: "Austin,TX",
		Now:      func() time.Time { return fixedNow },
	}
}

func decode(t *testing.T, body string) *RawPayload {
	t.Helper()
	var p RawPayload
	require.NoError(t, json.Unmarshal([]byte(body), &p))
	return &p
}

func TestNormalizeFullPayload(t *testing.T) {
	rec, err := testNormalizer().Normalize(decode(t, fullPayload))
	require.NoError(t, err)

	assert.Empty(t, rec.ID)
	assert.Equal(t, "Austin,TX", rec.Location)
	assert.Equal(t, fixedNow, rec.Timestamp)

	assert.Equal(t, LocationMeta{
		Name:      "Austin",
		Region:    "US",
		Country:   "US",
		Lat:       30.2672,
		Lon:       -97.7431,
		TzID:      "UTC-6",
		LocalTime: "2023-11-14 22:13",
	}, rec.Meta)

	c := rec.Current
	assert.Equal(t, 24.0, c.TempC)
	assert.Equal(t, 75.2, c.TempF)
	assert.Equal(t, 25.5, c.FeelsLikeC)
	assert.Equal(t, 25.5*9/5+32, c.FeelsLikeF)
	assert.Equal(t, 64, c.Humidity)
	assert.InDelta(t, 18.0, c.WindKph, 1e-9)
	assert.InDelta(t, 18.0/1.609344, c.WindMph, 1e-9)
	assert.Equal(t, "S", c.WindDir)
	assert.Equal(t, 1015.0, c.PressureMb)
	assert.Equal(t, 0.3, c.PrecipMm)
	assert.Equal(t, 40, c.Cloud)
	assert.Equal(t, 6.2, c.UV)
	assert.Equal(t, Condition{
		Text: "scattered clouds",
		Code: 802,
		Icon: "https://openweathermap.org/img/wn/03d@2x.png",
	}, c.Condition)
}

func TestNormalizeKelvinTemperature(t *testing.T) {
	rec, err := testNormalizer().Normalize(decode(t, `{
		"name": "Austin", "coord": {"lat": 1, "lon": 2},
		"main": {"temp": 280.5, "feels_like": 279.0}
	}`))
	require.NoError(t, err)

	assert.InDelta(t, 7.35, rec.Current.TempC, 1e-9)
	assert.InDelta(t, 45.23, rec.Current.TempF, 1e-9)
	assert.InDelta(t, 5.85, rec.Current.FeelsLikeC, 1e-9)
}

func TestNormalizeDefaultsOptionalFields(t *testing.T) {
	rec, err := testNormalizer().Normalize(decode(t, `{
		"name": "Austin", "coord": {"lat": 30.2672, "lon": -97.7431},
		"main": {"temp": 18.5}
	}`))
	require.NoError(t, err)

	c := rec.Current
	assert.Equal(t, 18.5, c.FeelsLikeC)
	assert.Equal(t, c.TempF, c.FeelsLikeF)
	assert.Zero(t, c.Humidity)
	assert.Zero(t, c.PressureMb)
	assert.Zero(t, c.PrecipMm)
	assert.Zero(t, c.Cloud)
	assert.Zero(t, c.UV)
	assert.Zero(t, c.WindKph)
	assert.Zero(t, c.WindMph)
	assert.Equal(t, "N", c.WindDir)
	assert.Equal(t, Condition{Text: "Unknown"}, c.Condition)

	assert.Equal(t, "Unknown", rec.Meta.Country)
	assert.Equal(t, "Unknown", rec.Meta.Region)
	assert.Equal(t, "UTC+0", rec.Meta.TzID)
	assert.Equal(t, "2024-05-01 12:30", rec.Meta.LocalTime)
}

func TestNormalizeMissingWeatherArray(t *testing.T) {
	for name, body := range map[string]string{
		"absent": `{"name": "Austin", "coord": {"lat": 1, "lon": 2}, "main": {"temp": 20}}`,
		"empty":  `{"name": "Austin", "coord": {"lat": 1, "lon": 2}, "main": {"temp": 20}, "weather": []}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec, err := testNormalizer().Normalize(decode(t, body))
			require.NoError(t, err)
			assert.Equal(t, "Unknown", rec.Current.Condition.Text)
			assert.Zero(t, rec.Current.Condition.Code)
			assert.Empty(t, rec.Current.Condition.Icon)
		})
	}
}

func TestNormalizePartialWeatherEntry(t *testing.T) {
	rec, err := testNormalizer().Normalize(decode(t, `{
		"name": "Austin", "coord": {"lat": 1, "lon": 2}, "main": {"temp": 20},
		"weather": [{"main": "Clear"}]
	}`))
	require.NoError(t, err)
	assert.Equal(t, Condition{
		Text: "Unknown",
		Code: 0,
		Icon: "https://openweathermap.org/img/wn/01d@2x.png",
	}, rec.Current.Condition)
}

func TestNormalizeMissingRequiredFields(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		field string
	}{
		{"no name", `{"coord": {"lat": 1, "lon": 2}, "main": {"temp": 20}}`, "name"},
		{"empty name", `{"name": "", "coord": {"lat": 1, "lon": 2}, "main": {"temp": 20}}`, "name"},
		{"no coord", `{"name": "Austin", "main": {"temp": 20}}`, "coord"},
		{"no lat", `{"name": "Austin", "coord": {"lon": 2}, "main": {"temp": 20}}`, "coord.lat"},
		{"no lon", `{"name": "Austin", "coord": {"lat": 1}, "main": {"temp": 20}}`, "coord.lon"},
		{"no main", `{"name": "Austin", "coord": {"lat": 1, "lon": 2}}`, "main.temp"},
		{"no temp", `{"name": "Austin", "coord": {"lat": 1, "lon": 2}, "main": {"humidity": 3}}`, "main.temp"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := testNormalizer().Normalize(decode(t, tc.body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedPayload))

			var mp *MalformedPayloadError
			require.True(t, errors.As(err, &mp))
			assert.Equal(t, tc.field, mp.Field)
			assert.Equal(t, "MalformedPayload", ErrorKind(err))
		})
	}
}

func TestNormalizeNilPayload(t *testing.T) {
	_, err := testNormalizer().Normalize(nil)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestNormalizeZeroCoordinatesAreValid(t *testing.T) {
	rec, err := testNormalizer().Normalize(decode(t, `{
		"name": "Null Island", "coord": {"lat": 0, "lon": 0}, "main": {"temp": 0}
	}`))
	require.NoError(t, err)
	assert.Zero(t, rec.Meta.Lat)
	assert.Zero(t, rec.Meta.Lon)
	assert.Equal(t, 32.0, rec.Current.TempF)
}
