package weather

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/weather-dashboard/internal/moment"
)

// Fetcher abstracts the weather data source (e.g. the CWB open-data API).
// Each call is independent and issues a single read.
type Fetcher interface {
	FetchObservation(ctx context.Context, locationName string) (Observation, error)
	FetchForecast(ctx context.Context, cityName string) (Forecast, error)
}

// SettleFunc computes the next view model from the current one.
type SettleFunc func(prev ViewModel) (ViewModel, Outcome, []error)

// Store is the contract the in-memory state store must satisfy.
type Store interface {
	// BeginRefresh marks the state as loading and returns the sequence token
	// issued to this refresh.
	BeginRefresh(id uuid.UUID, at time.Time) uint64
	// Settle applies fn unless the refresh policy discards seq. It reports
	// whether the state was updated.
	Settle(seq uint64, at time.Time, fn SettleFunc) bool
	State() ViewModel
	History() []RefreshRecord
}

// MomentResolver classifies an instant as day or night for a location.
type MomentResolver interface {
	Resolve(locationName string, now time.Time) (moment.Moment, error)
}
