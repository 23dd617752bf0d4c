package weather

import (
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// Branch names used in ViewModel.Missing.
const (
	BranchObservation = "observation"
	BranchForecast    = "forecast"
)

// Observation is a single real-time reading from a station.
type Observation struct {
	ObservationTime time.Time `json:"observationTime"`
	LocationName    string    `json:"locationName"`
	Temperature     float64   `json:"temperature"`
	WindSpeed       float64   `json:"windSpeed"`
	Humidity        float64   `json:"humidity"`
}

// Forecast is the first time bucket of a short-term forecast.
type Forecast struct {
	Description     string  `json:"description"`
	WeatherCode     string  `json:"weatherCode"`
	RainPossibility float64 `json:"rainPossibility"`
	Comfortability  string  `json:"comfortability"`
}

// ViewModel is the merged view the dashboard renders.
// Values are passed through as reported; rounding is left to the renderer.
type ViewModel struct {
	ObservationTime time.Time `json:"observationTime"`
	LocationName    string    `json:"locationName"`
	Description     string    `json:"description"`
	Comfortability  string    `json:"comfortability"`
	Temperature     float64   `json:"temperature"`
	WindSpeed       float64   `json:"windSpeed"`
	Humidity        float64   `json:"humidity"`
	WeatherCode     string    `json:"weatherCode"`
	RainPossibility float64   `json:"rainPossibility"`
	Condition       Condition `json:"condition"`

	// Missing lists the branches whose fields are absent after the last merge.
	Missing []string `json:"missing,omitempty"`

	IsLoading bool `json:"isLoading"`
}

// Placeholder returns the initial view model shown before any fetch settles.
func Placeholder(now time.Time) ViewModel {
	return ViewModel{
		ObservationTime: now,
		Condition:       ConditionUnknown,
	}
}

// Result carries either a fetched value or the reason it is absent.
type Result[T any] struct {
	Value T
	Err   error
}

// OK reports whether the result holds a value.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Outcome classifies how a refresh settled.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomePartial Outcome = "partial"
	OutcomeFailed  Outcome = "failed"
	OutcomeStale   Outcome = "stale"
)

// RefreshPolicy decides which settled refreshes are applied to the state.
type RefreshPolicy string

const (
	// PolicyLatest applies only the most recently requested refresh.
	PolicyLatest RefreshPolicy = "latest"
	// PolicySettled applies every refresh in completion order.
	PolicySettled RefreshPolicy = "settled"
)

// RefreshRecord describes one settled refresh.
type RefreshRecord struct {
	ID          string    `json:"id"`
	Seq         uint64    `json:"seq"`
	RequestedAt time.Time `json:"requestedAt"`
	SettledAt   time.Time `json:"settledAt"`
	Outcome     Outcome   `json:"outcome"`
	Errors      []string  `json:"errors,omitempty"`
}
