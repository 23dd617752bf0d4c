package config

import (
	"strings"
	"testing"
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CWB_API_KEY", "CWB-TEST")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.LocationName != "臺北" || cfg.CityName != "臺北市" {
		t.Fatalf("unexpected locations: %s / %s", cfg.LocationName, cfg.CityName)
	}
	if cfg.TimeZone.String() != "Asia/Taipei" {
		t.Fatalf("unexpected time zone %s", cfg.TimeZone)
	}
	if cfg.HTTPTimeout != 10*time.Second || cfg.FetchInterval != 0 || cfg.FetchMaxRetries != 0 {
		t.Fatalf("unexpected fetch settings: %+v", cfg)
	}
	if cfg.RefreshPolicy != weather.PolicyLatest {
		t.Fatalf("unexpected policy %s", cfg.RefreshPolicy)
	}
	if cfg.RefreshHistory != 50 || cfg.RefreshHistoryMaxAge != 24*time.Hour {
		t.Fatalf("unexpected history retention: %d / %s", cfg.RefreshHistory, cfg.RefreshHistoryMaxAge)
	}
	if cfg.Port != "8080" {
		t.Fatalf("unexpected port %s", cfg.Port)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CWB_API_KEY", "CWB-TEST")
	t.Setenv("WEATHER_LOCATION_NAME", "高雄")
	t.Setenv("WEATHER_CITY_NAME", "高雄市")
	t.Setenv("FETCH_INTERVAL", "15m")
	t.Setenv("FETCH_RATE_LIMIT", "0.5")
	t.Setenv("REFRESH_POLICY", "settled")
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LocationName != "高雄" || cfg.CityName != "高雄市" {
		t.Fatalf("unexpected locations: %s / %s", cfg.LocationName, cfg.CityName)
	}
	if cfg.FetchInterval != 15*time.Minute || cfg.FetchRateLimit != 0.5 {
		t.Fatalf("unexpected fetch settings: %+v", cfg)
	}
	if cfg.RefreshPolicy != weather.PolicySettled {
		t.Fatalf("unexpected policy %s", cfg.RefreshPolicy)
	}
	if cfg.TimeZone != time.UTC {
		t.Fatalf("unexpected time zone %s", cfg.TimeZone)
	}
}

func TestLoadErrors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing key", map[string]string{"CWB_API_KEY": ""}, "CWBAPIKey"},
		{"bad policy", map[string]string{"REFRESH_POLICY": "random"}, "RefreshPolicy"},
		{"bad interval", map[string]string{"FETCH_INTERVAL": "soon"}, "FETCH_INTERVAL"},
		{"bad timezone", map[string]string{"TIMEZONE": "Mars/Olympus"}, "TIMEZONE"},
		{"bad rate", map[string]string{"FETCH_RATE_LIMIT": "fast"}, "FETCH_RATE_LIMIT"},
		{"negative timeout", map[string]string{"HTTP_TIMEOUT": "-1s"}, "HTTPTimeout"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("CWB_API_KEY", "CWB-TEST")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %s, got %v", tc.want, err)
			}
		})
	}
}
