package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

var validate = validator.New()

type AppConfig struct {
	CWBAPIKey  string `validate:"required"`
	CWBBaseURL string `validate:"required,url"`

	// Observation station and forecast city, named as the CWB API names them.
	LocationName string `validate:"required"`
	CityName     string `validate:"required"`

	// SunriseLocationName overrides the name used for day/night resolution.
	SunriseLocationName string
	// SunriseTablePath replaces the embedded sunrise/sunset table.
	SunriseTablePath string

	TimeZone *time.Location `validate:"required"`

	HTTPTimeout     time.Duration `validate:"gte=0"`
	FetchMaxRetries int           `validate:"gte=0,lte=10"`
	FetchRateLimit  float64       `validate:"gte=0"`

	// FetchInterval controls automatic refreshes; zero means manual only.
	FetchInterval time.Duration `validate:"gte=0"`

	RefreshPolicy weather.RefreshPolicy `validate:"oneof=latest settled"`

	// Refresh history retention.
	RefreshHistory       int           `validate:"gte=0"` // 0 = unlimited
	RefreshHistoryMaxAge time.Duration `validate:"gte=0"` // 0 = unlimited

	Port string `validate:"required,numeric"`
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.CWBAPIKey = os.Getenv("CWB_API_KEY")
	cfg.CWBBaseURL = getenvDefault("CWB_BASE_URL", "https://opendata.cwb.gov.tw/api/v1/rest/datastore")
	cfg.LocationName = getenvDefault("WEATHER_LOCATION_NAME", "臺北")
	cfg.CityName = getenvDefault("WEATHER_CITY_NAME", "臺北市")
	cfg.SunriseLocationName = os.Getenv("SUNRISE_LOCATION_NAME")
	cfg.SunriseTablePath = os.Getenv("SUNRISE_TABLE_PATH")

	tzName := getenvDefault("TIMEZONE", "Asia/Taipei")
	tz, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	cfg.TimeZone = tz

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.FetchInterval, err = getenvDuration("FETCH_INTERVAL", "0"); err != nil {
		return nil, err
	}
	if cfg.RefreshHistoryMaxAge, err = getenvDuration("REFRESH_HISTORY_MAX_AGE", "24h"); err != nil {
		return nil, err
	}

	cfg.FetchMaxRetries = getenvInt("FETCH_MAX_RETRIES", 0)
	cfg.RefreshHistory = getenvInt("REFRESH_HISTORY", 50)

	rateStr := getenvDefault("FETCH_RATE_LIMIT", "0")
	cfg.FetchRateLimit, err = strconv.ParseFloat(rateStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_RATE_LIMIT: %w", err)
	}

	cfg.RefreshPolicy = weather.RefreshPolicy(getenvDefault("REFRESH_POLICY", string(weather.PolicyLatest)))
	cfg.Port = getenvDefault("PORT", "8080")

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
