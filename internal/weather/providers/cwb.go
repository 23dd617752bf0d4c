package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// DefaultCWBBaseURL is the Central Weather Bureau open-data REST root.
const DefaultCWBBaseURL = "https://opendata.cwb.gov.tw/api/v1/rest/datastore"

const (
	observationDataset = "O-A0003-001"
	forecastDataset    = "F-C0032-001"
)

var (
	// ErrNoLocation is returned when a response carries no location records.
	ErrNoLocation = errors.New("response has no location records")
	// ErrMissingElement is returned when an allow-listed element is absent.
	ErrMissingElement = errors.New("weather element missing")
	// ErrInvalidValue is returned when an element value is not numeric.
	ErrInvalidValue = errors.New("invalid weather element value")
	// ErrNoTimeBucket is returned when a forecast element has no time entries.
	ErrNoTimeBucket = errors.New("forecast element has no time bucket")
	// ErrAPIFailure is returned when the API reports success=false.
	ErrAPIFailure = errors.New("api reported failure")
)

var (
	observationElements = []string{"WDSD", "TEMP", "HUMD"}
	forecastElements    = []string{"Wx", "PoP", "CI"}
)

// CWBConfig configures the CWB provider.
type CWBConfig struct {
	Client  *http.Client
	APIKey  string
	BaseURL string

	// TimeZone is used for the zone-less obsTime field. Defaults to time.Local.
	TimeZone *time.Location

	MaxRetries int
	// RateLimit is the allowed requests per second; zero means unlimited.
	RateLimit float64
}

// CWBProvider implements weather.Fetcher for the CWB open-data API.
type CWBProvider struct {
	name        string
	apiKey      string
	baseURL     string
	tz          *time.Location
	httpCfg     HTTPClientConfig
	obsCircuit  *gobreaker.CircuitBreaker
	fcstCircuit *gobreaker.CircuitBreaker
}

var _ weather.Fetcher = (*CWBProvider)(nil)

func NewCWBProvider(cfg CWBConfig) *CWBProvider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultCWBBaseURL
	}
	tz := cfg.TimeZone
	if tz == nil {
		tz = time.Local
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 2 {
			burst = 2
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &CWBProvider{
		name:    "cwb",
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		tz:      tz,
		httpCfg: HTTPClientConfig{
			Client: cfg.Client,
			Backoff: BackoffConfig{
				MaxRetries:      cfg.MaxRetries,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
			Limiter: limiter,
		},
		obsCircuit:  newCircuit("cwb-observation"),
		fcstCircuit: newCircuit("cwb-forecast"),
	}
}

func newCircuit(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

func (p *CWBProvider) Name() string {
	return p.name
}

// flexString accepts both JSON strings and numbers.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type observationPayload struct {
	Success string `json:"success"`
	Records struct {
		Location []struct {
			LocationName string `json:"locationName"`
			Time         struct {
				ObsTime string `json:"obsTime"`
			} `json:"time"`
			WeatherElement []struct {
				ElementName  string     `json:"elementName"`
				ElementValue flexString `json:"elementValue"`
			} `json:"weatherElement"`
		} `json:"location"`
	} `json:"records"`
}

type forecastParameter struct {
	ParameterName  flexString `json:"parameterName"`
	ParameterValue flexString `json:"parameterValue"`
}

type forecastPayload struct {
	Success string `json:"success"`
	Records struct {
		Location []struct {
			LocationName   string `json:"locationName"`
			WeatherElement []struct {
				ElementName string `json:"elementName"`
				Time        []struct {
					Parameter forecastParameter `json:"parameter"`
				} `json:"time"`
			} `json:"weatherElement"`
		} `json:"location"`
	} `json:"records"`
}

// FetchObservation reads the current observation for a station and keeps
// only wind speed, temperature and humidity.
func (p *CWBProvider) FetchObservation(ctx context.Context, locationName string) (weather.Observation, error) {
	var payload observationPayload
	if err := p.get(ctx, p.obsCircuit, observationDataset, locationName, &payload); err != nil {
		return weather.Observation{}, err
	}
	if payload.Success == "false" {
		return weather.Observation{}, fmt.Errorf("%s: %w", observationDataset, ErrAPIFailure)
	}
	if len(payload.Records.Location) == 0 {
		return weather.Observation{}, fmt.Errorf("%s %q: %w", observationDataset, locationName, ErrNoLocation)
	}

	loc := payload.Records.Location[0]

	values := make(map[string]string, len(observationElements))
	for _, el := range loc.WeatherElement {
		if isAllowed(el.ElementName, observationElements) {
			values[el.ElementName] = string(el.ElementValue)
		}
	}

	nums, err := parseElements(values, observationElements)
	if err != nil {
		return weather.Observation{}, fmt.Errorf("%s: %w", observationDataset, err)
	}

	obsTime, err := p.parseObsTime(loc.Time.ObsTime)
	if err != nil {
		return weather.Observation{}, fmt.Errorf("%s: obsTime %q: %w", observationDataset, loc.Time.ObsTime, ErrInvalidValue)
	}

	return weather.Observation{
		ObservationTime: obsTime,
		LocationName:    loc.LocationName,
		Temperature:     nums["TEMP"],
		WindSpeed:       nums["WDSD"],
		Humidity:        nums["HUMD"],
	}, nil
}

// FetchForecast reads the 36-hour forecast for a city and keeps the first
// time bucket of Wx, PoP and CI.
func (p *CWBProvider) FetchForecast(ctx context.Context, cityName string) (weather.Forecast, error) {
	var payload forecastPayload
	if err := p.get(ctx, p.fcstCircuit, forecastDataset, cityName, &payload); err != nil {
		return weather.Forecast{}, err
	}
	if payload.Success == "false" {
		return weather.Forecast{}, fmt.Errorf("%s: %w", forecastDataset, ErrAPIFailure)
	}
	if len(payload.Records.Location) == 0 {
		return weather.Forecast{}, fmt.Errorf("%s %q: %w", forecastDataset, cityName, ErrNoLocation)
	}

	params := make(map[string]forecastParameter, len(forecastElements))
	for _, el := range payload.Records.Location[0].WeatherElement {
		if !isAllowed(el.ElementName, forecastElements) {
			continue
		}
		if len(el.Time) == 0 {
			return weather.Forecast{}, fmt.Errorf("%s %s: %w", forecastDataset, el.ElementName, ErrNoTimeBucket)
		}
		params[el.ElementName] = el.Time[0].Parameter
	}

	for _, name := range forecastElements {
		if _, ok := params[name]; !ok {
			return weather.Forecast{}, fmt.Errorf("%s: %w: %s", forecastDataset, ErrMissingElement, name)
		}
	}

	pop, err := strconv.ParseFloat(strings.TrimSpace(string(params["PoP"].ParameterName)), 64)
	if err != nil {
		return weather.Forecast{}, fmt.Errorf("%s: %w: PoP=%q", forecastDataset, ErrInvalidValue, params["PoP"].ParameterName)
	}

	return weather.Forecast{
		Description:     string(params["Wx"].ParameterName),
		WeatherCode:     string(params["Wx"].ParameterValue),
		RainPossibility: pop,
		Comfortability:  string(params["CI"].ParameterName),
	}, nil
}

func (p *CWBProvider) get(ctx context.Context, cb *gobreaker.CircuitBreaker, dataset, locationName string, out interface{}) error {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("Authorization", p.apiKey)
		values.Set("locationName", locationName)

		u := fmt.Sprintf("%s/%s?%s", p.baseURL, dataset, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, cb, buildRequest)
	if err != nil {
		return fmt.Errorf("%s: %w", dataset, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode: %w", dataset, err)
	}
	return nil
}

func (p *CWBProvider) parseObsTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if ts, err := time.ParseInLocation("2006-01-02 15:04:05", s, p.tz); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339, s)
}

func parseElements(values map[string]string, names []string) (map[string]float64, error) {
	out := make(map[string]float64, len(names))
	for _, name := range names {
		raw, ok := values[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingElement, name)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q", ErrInvalidValue, name, raw)
		}
		out[name] = v
	}
	return out, nil
}

func isAllowed(name string, allow []string) bool {
	for _, a := range allow {
		if a == name {
			return true
		}
	}
	return false
}
