package weather

import (
	"time"
)

// Location is the single configured target the service tracks.
// Label is the opaque identifier stored on every record (e.g. "Austin,TX").
type Location struct {
	Label string  `json:"label"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
}

// Key returns the identifier used to index records for this location in stores.
func (l Location) Key() string {
	return l.Label
}

// Condition is the provider's free-text description of the current weather.
type Condition struct {
	Text string `json:"text" bson:"text"`
	Code int    `json:"code" bson:"code"`
	Icon string `json:"icon" bson:"icon"`
}

// LocationMeta describes where and when a reading was taken.
type LocationMeta struct {
	Name      string  `json:"name" bson:"name"`
	Region    string  `json:"region" bson:"region"`
	Country   string  `json:"country" bson:"country"`
	Lat       float64 `json:"lat" bson:"lat"`
	Lon       float64 `json:"lon" bson:"lon"`
	TzID      string  `json:"tz_id" bson:"tz_id"`
	LocalTime string  `json:"localtime" bson:"localtime"`
}

// Current holds the unit-consistent measurements of a record.
type Current struct {
	TempC      float64   `json:"temp_c" bson:"temp_c"`
	TempF      float64   `json:"temp_f" bson:"temp_f"`
	FeelsLikeC float64   `json:"feelslike_c" bson:"feelslike_c"`
	FeelsLikeF float64   `json:"feelslike_f" bson:"feelslike_f"`
	Humidity   int       `json:"humidity" bson:"humidity"`
	WindKph    float64   `json:"wind_kph" bson:"wind_kph"`
	WindMph    float64   `json:"wind_mph" bson:"wind_mph"`
	WindDir    string    `json:"wind_dir" bson:"wind_dir"`
	PressureMb float64   `json:"pressure_mb" bson:"pressure_mb"`
	PrecipMm   float64   `json:"precip_mm" bson:"precip_mm"`
	Cloud      int       `json:"cloud" bson:"cloud"`
	UV         float64   `json:"uv" bson:"uv"`
	Condition  Condition `json:"condition" bson:"condition"`
}

// WeatherRecord is the canonical persisted entity. ID is empty until a Store
// assigns one on create.
type WeatherRecord struct {
	ID        string       `json:"id,omitempty" bson:"-"`
	Location  string       `json:"location" bson:"location"`
	Timestamp time.Time    `json:"timestamp" bson:"timestamp"` // always UTC
	Meta      LocationMeta `json:"location_data" bson:"location_data"`
	Current   Current      `json:"current" bson:"current"`
}

// HistoryQuery selects records of one location, newest first.
// Start and End are inclusive when set.
type HistoryQuery struct {
	Location string
	Start    *time.Time
	End      *time.Time
	Limit    int
	Skip     int
}
