package weather

// RawPayload is the partially-optional body returned by the provider's
// current-weather endpoint. Every field may be absent.
type RawPayload struct {
	Name     *string          `json:"name"`
	Coord    *PayloadCoord    `json:"coord"`
	Main     *PayloadMain     `json:"main"`
	Wind     *PayloadWind     `json:"wind"`
	Clouds   *PayloadClouds   `json:"clouds"`
	Rain     *PayloadRain     `json:"rain"`
	Sys      *PayloadSys      `json:"sys"`
	Weather  []PayloadWeather `json:"weather"`
	Timezone *int64           `json:"timezone"`
	Dt       *int64           `json:"dt"`
	UVI      *float64         `json:"uvi"`
}

type PayloadCoord struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

type PayloadMain struct {
	Temp      *float64 `json:"temp"`
	FeelsLike *float64 `json:"feels_like"`
	Humidity  *float64 `json:"humidity"`
	Pressure  *float64 `json:"pressure"`
}

type PayloadWind struct {
	Speed *float64 `json:"speed"`
	Deg   *float64 `json:"deg"`
}

type PayloadClouds struct {
	All *float64 `json:"all"`
}

type PayloadRain struct {
	OneH *float64 `json:"1h"`
}

type PayloadSys struct {
	Country *string `json:"country"`
}

type PayloadWeather struct {
	ID          *int    `json:"id"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
}
