package weather

import (
	"fmt"
	"math"
)

const (
	kelvinOffset = 273.15
	// kelvinThreshold marks readings that can only be Kelvin for a
	// metric-configured endpoint.
	kelvinThreshold = 100.0

	msToKph  = 3.6
	kphToMph = 1.609344
)

var compassPoints = [16]string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// CelsiusToFahrenheit converts c to Fahrenheit.
func CelsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}

func toCelsius(v float64) float64 {
	if v > kelvinThreshold {
		return v - kelvinOffset
	}
	return v
}

// WindDirection maps degrees to one of 16 compass labels using
// round(deg/22.5) mod 16 with ties to even.
func WindDirection(deg float64) string {
	i := int(math.RoundToEven(deg/22.5)) % len(compassPoints)
	if i < 0 {
		i += len(compassPoints)
	}
	return compassPoints[i]
}

// TimezoneLabel renders an offset in seconds as "UTC+H"/"UTC-H".
// Sub-hour offsets are truncated toward zero.
func TimezoneLabel(offsetSeconds int64) string {
	return fmt.Sprintf("UTC%+d", offsetSeconds/3600)
}
