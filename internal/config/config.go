// Package config loads the application configuration from the environment,
// with an optional .env file for local runs.
package config

import (
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type AppConfig struct {
	// WeatherAPI.com credentials and the free-form location query
	// (city name, postcode or "lat,lon").
	WeatherAPIKey     string `envconfig:"WEATHERAPI_API_KEY" validate:"required"`
	Location          string `envconfig:"WEATHER_LOCATION" validate:"required"`
	WeatherAPIBaseURL string `envconfig:"WEATHERAPI_BASE_URL"`

	// AccuWeather credentials. The location key is the numeric identifier
	// from the AccuWeather location search, not a city name.
	AccuWeatherAPIKey      string `envconfig:"ACCUWEATHER_API_KEY" validate:"required"`
	AccuWeatherLocationKey string `envconfig:"ACCUWEATHER_LOCATION_KEY" validate:"required"`
	AccuWeatherBaseURL     string `envconfig:"ACCUWEATHER_BASE_URL"`

	// OutputFile is the workbook the merged dataset is persisted to.
	OutputFile string `envconfig:"OUTPUT_FILE" default:"precipitation_data.xlsx"`

	// FetchInterval controls how often a collection cycle runs in the
	// recurring modes.
	FetchInterval time.Duration `envconfig:"FETCH_INTERVAL" default:"1h"`

	ForecastDays int `envconfig:"FORECAST_DAYS" default:"7" validate:"min=1,max=10"`
	HistoryDays  int `envconfig:"HISTORY_DAYS" default:"7" validate:"min=0,max=30"`

	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"15s"`

	// Port of the status HTTP server started in the recurring modes.
	Port string `envconfig:"PORT" default:"8080"`
}

// Load reads configuration from the environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.FetchInterval <= 0 {
		return nil, fmt.Errorf("FETCH_INTERVAL must be positive, got %s", cfg.FetchInterval)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
