package weather

import (
	"fmt"
	"math"
	"time"

	"github.com/i474232898/weather-monitor/internal/common"
)

const (
	localTimeLayout = "2006-01-02 15:04"
	unknownLabel    = "Unknown"
	defaultIcon     = "01d"
	iconURLFormat   = "https://openweathermap.org/img/wn/%s@2x.png"
)

// Normalizer turns a provider payload into a WeatherRecord for one location.
// It does no I/O; Now is only consulted for the capture time.
type Normalizer struct {
	Location string
	Now      func() time.Time
}

// NewNormalizer creates a Normalizer stamping records with location.
func NewNormalizer(location string) *Normalizer {
	return &Normalizer{Location: location, Now: time.Now}
}

// Normalize maps p onto a WeatherRecord. Missing measurements fall back to
// defaults; a missing name, coordinate or temperature yields a
// *MalformedPayloadError.
func (n *Normalizer) Normalize(p *RawPayload) (WeatherRecord, error) {
	if p == nil {
		return WeatherRecord{}, &MalformedPayloadError{Field: "payload"}
	}
	if p.Name == nil || *p.Name == "" {
		return WeatherRecord{}, &MalformedPayloadError{Field: "name"}
	}
	if p.Coord == nil {
		return WeatherRecord{}, &MalformedPayloadError{Field: "coord"}
	}
	if p.Coord.Lat == nil {
		return WeatherRecord{}, &MalformedPayloadError{Field: "coord.lat"}
	}
	if p.Coord.Lon == nil {
		return WeatherRecord{}, &MalformedPayloadError{Field: "coord.lon"}
	}
	if p.Main == nil || p.Main.Temp == nil {
		return WeatherRecord{}, &MalformedPayloadError{Field: "main.temp"}
	}

	captured := n.now()

	tempC := toCelsius(*p.Main.Temp)
	feelsC := tempC
	if p.Main.FeelsLike != nil {
		feelsC = toCelsius(*p.Main.FeelsLike)
	}

	var windSpeed, windDeg float64
	if p.Wind != nil {
		windSpeed = common.ValueOr(p.Wind.Speed, 0)
		windDeg = common.ValueOr(p.Wind.Deg, 0)
	}
	windKph := windSpeed * msToKph

	var precip float64
	if p.Rain != nil {
		precip = common.ValueOr(p.Rain.OneH, 0)
	}

	var cloud float64
	if p.Clouds != nil {
		cloud = common.ValueOr(p.Clouds.All, 0)
	}

	country := unknownLabel
	if p.Sys != nil && p.Sys.Country != nil && *p.Sys.Country != "" {
		country = *p.Sys.Country
	}

	localTime := captured
	if p.Dt != nil {
		localTime = time.Unix(*p.Dt, 0)
	}

	return WeatherRecord{
		Location:  n.Location,
		Timestamp: captured,
		Meta: LocationMeta{
			Name:      *p.Name,
			Region:    country,
			Country:   country,
			Lat:       *p.Coord.Lat,
			Lon:       *p.Coord.Lon,
			TzID:      TimezoneLabel(common.ValueOr(p.Timezone, 0)),
			LocalTime: localTime.UTC().Format(localTimeLayout),
		},
		Current: Current{
			TempC:      tempC,
			TempF:      CelsiusToFahrenheit(tempC),
			FeelsLikeC: feelsC,
			FeelsLikeF: CelsiusToFahrenheit(feelsC),
			Humidity:   int(math.Round(common.ValueOr(p.Main.Humidity, 0))),
			WindKph:    windKph,
			WindMph:    windKph / kphToMph,
			WindDir:    WindDirection(windDeg),
			PressureMb: common.ValueOr(p.Main.Pressure, 0),
			PrecipMm:   precip,
			Cloud:      int(math.Round(cloud)),
			UV:         common.ValueOr(p.UVI, 0),
			Condition:  condition(p.Weather),
		},
	}, nil
}

func (n *Normalizer) now() time.Time {
	if n.Now == nil {
		return time.Now().UTC()
	}
	return n.Now().UTC()
}

func condition(items []PayloadWeather) Condition {
	if len(items) == 0 {
		return Condition{Text: unknownLabel}
	}
	w := items[0]
	return Condition{
		Text: common.ValueOr(w.Description, unknownLabel),
		Code: common.ValueOr(w.ID, 0),
		Icon: fmt.Sprintf(iconURLFormat, common.ValueOr(w.Icon, defaultIcon)),
	}
}
