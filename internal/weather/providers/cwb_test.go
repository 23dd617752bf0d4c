package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const observationBody = `{
  "success": "true",
  "records": {
    "location": [{
      "lat": "25.039410",
      "lon": "121.506779",
      "locationName": "臺北",
      "stationId": "466920",
      "time": {"obsTime": "2026-10-19 13:00:00"},
      "weatherElement": [
        {"elementName": "ELEV", "elementValue": "6.2600"},
        {"elementName": "WDIR", "elementValue": "130"},
        {"elementName": "WDSD", "elementValue": "2.60"},
        {"elementName": "TEMP", "elementValue": "28.40"},
        {"elementName": "HUMD", "elementValue": 0.62}
      ]
    }]
  }
}`

const forecastBody = `{
  "success": "true",
  "records": {
    "datasetDescription": "三十六小時天氣預報",
    "location": [{
      "locationName": "臺北市",
      "weatherElement": [
        {"elementName": "Wx", "time": [
          {"startTime": "2026-10-19 12:00:00", "endTime": "2026-10-19 18:00:00", "parameter": {"parameterName": "多雲時晴", "parameterValue": "3"}},
          {"startTime": "2026-10-19 18:00:00", "endTime": "2026-10-20 06:00:00", "parameter": {"parameterName": "多雲短暫雨", "parameterValue": "8"}}
        ]},
        {"elementName": "PoP", "time": [
          {"parameter": {"parameterName": "20", "parameterUnit": "百分比"}},
          {"parameter": {"parameterName": "70", "parameterUnit": "百分比"}}
        ]},
        {"elementName": "MinT", "time": [{"parameter": {"parameterName": "24", "parameterUnit": "C"}}]},
        {"elementName": "CI", "time": [{"parameter": {"parameterName": "舒適至悶熱"}}]},
        {"elementName": "MaxT", "time": [{"parameter": {"parameterName": "30", "parameterUnit": "C"}}]}
      ]
    }]
  }
}`

func newTestProvider(t *testing.T, handler http.HandlerFunc, maxRetries int) *CWBProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tz, err := time.LoadLocation("Asia/Taipei")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	return NewCWBProvider(CWBConfig{
		Client:     srv.Client(),
		APIKey:     "test-key",
		BaseURL:    srv.URL + "/",
		TimeZone:   tz,
		MaxRetries: maxRetries,
	})
}

func TestFetchObservation(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/O-A0003-001") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("Authorization"); got != "test-key" {
			t.Errorf("unexpected Authorization %q", got)
		}
		if got := r.URL.Query().Get("locationName"); got != "臺北" {
			t.Errorf("unexpected locationName %q", got)
		}
		w.Write([]byte(observationBody))
	}, 0)

	obs, err := p.FetchObservation(context.Background(), "臺北")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if obs.LocationName != "臺北" {
		t.Fatalf("unexpected location %q", obs.LocationName)
	}
	if obs.Temperature != 28.4 || obs.WindSpeed != 2.6 || obs.Humidity != 0.62 {
		t.Fatalf("unexpected values: %+v", obs)
	}
	want := time.Date(2026, 10, 19, 5, 0, 0, 0, time.UTC)
	if !obs.ObservationTime.Equal(want) {
		t.Fatalf("expected observation time %s, got %s", want, obs.ObservationTime.UTC())
	}
}

func TestFetchForecastUsesFirstBucket(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/F-C0032-001") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("locationName"); got != "臺北市" {
			t.Errorf("unexpected locationName %q", got)
		}
		w.Write([]byte(forecastBody))
	}, 0)

	fc, err := p.FetchForecast(context.Background(), "臺北市")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fc.Description != "多雲時晴" || fc.WeatherCode != "3" {
		t.Fatalf("unexpected Wx: %+v", fc)
	}
	if fc.RainPossibility != 20 {
		t.Fatalf("expected PoP 20, got %v", fc.RainPossibility)
	}
	if fc.Comfortability != "舒適至悶熱" {
		t.Fatalf("unexpected CI %q", fc.Comfortability)
	}
}

func TestFetchObservationMissingElement(t *testing.T) {
	body := strings.Replace(observationBody, `"elementName": "TEMP"`, `"elementName": "TEMP_X"`, 1)
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}, 0)

	_, err := p.FetchObservation(context.Background(), "臺北")
	if !errors.Is(err, ErrMissingElement) {
		t.Fatalf("expected ErrMissingElement, got %v", err)
	}
}

func TestFetchForecastMissingElement(t *testing.T) {
	body := strings.Replace(forecastBody, `"elementName": "CI"`, `"elementName": "Comfort"`, 1)
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}, 0)

	_, err := p.FetchForecast(context.Background(), "臺北市")
	if !errors.Is(err, ErrMissingElement) {
		t.Fatalf("expected ErrMissingElement, got %v", err)
	}
}

func TestFetchErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
		want error
	}{
		{"no location", `{"success":"true","records":{"location":[]}}`, ErrNoLocation},
		{"api failure", `{"success":"false","result":{"message":"unauthorized"}}`, ErrAPIFailure},
		{"bad value", strings.Replace(observationBody, `"28.40"`, `"n/a"`, 1), ErrInvalidValue},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			}, 0)

			_, err := p.FetchObservation(context.Background(), "臺北")
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestFetchMalformedJSON(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>gateway</html>`))
	}, 0)

	if _, err := p.FetchForecast(context.Background(), "臺北市"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestFetchDoesNotRetryByDefault(t *testing.T) {
	var calls int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}, 0)

	_, err := p.FetchObservation(context.Background(), "臺北")
	if !errors.Is(err, errServerError) {
		t.Fatalf("expected server error, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected a single attempt, got %d", n)
	}
}

func TestFetchRetriesWhenConfigured(t *testing.T) {
	var calls int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(observationBody))
	}, 1)

	if _, err := p.FetchObservation(context.Background(), "臺北"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("expected 2 attempts, got %d", n)
	}
}

func TestFetchUnexpectedStatus(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, 0)

	_, err := p.FetchForecast(context.Background(), "臺北市")
	if !errors.Is(err, errUnexpected) {
		t.Fatalf("expected unexpected status error, got %v", err)
	}
}

func TestRateLimitedProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(forecastBody))
	}))
	defer srv.Close()

	p := NewCWBProvider(CWBConfig{
		Client:    srv.Client(),
		APIKey:    "test-key",
		BaseURL:   srv.URL,
		RateLimit: 100,
	})
	if p.httpCfg.Limiter == nil {
		t.Fatal("expected limiter to be configured")
	}

	for i := 0; i < 3; i++ {
		if _, err := p.FetchForecast(context.Background(), "臺北市"); err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.FetchForecast(ctx, "臺北市"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
