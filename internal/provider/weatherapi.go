package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sony/gobreaker"

	"github.com/desastrosos/precipwatch/internal/logger"
)

// DefaultWeatherAPIBaseURL is the production WeatherAPI.com endpoint root.
const DefaultWeatherAPIBaseURL = "https://api.weatherapi.com/v1"

// maxForecastDays is the WeatherAPI.com plan limit for forecast.json.
const maxForecastDays = 10

// Condition is the nested condition block shared by all WeatherAPI payloads.
type Condition struct {
	Text string `json:"text"`
}

// CurrentBlock is the "current" object of current.json.
type CurrentBlock struct {
	PrecipMM  float64   `json:"precip_mm"`
	PrecipIn  float64   `json:"precip_in"`
	Humidity  float64   `json:"humidity"`
	Cloud     float64   `json:"cloud"`
	Condition Condition `json:"condition"`
}

// DayBlock is the per-day aggregate of forecast.json and history.json.
type DayBlock struct {
	TotalPrecipMM     float64   `json:"totalprecip_mm"`
	TotalPrecipIn     float64   `json:"totalprecip_in"`
	AvgHumidity       float64   `json:"avghumidity"`
	DailyChanceOfRain float64   `json:"daily_chance_of_rain"`
	Condition         Condition `json:"condition"`
}

// HourBlock is one hourly entry of a forecast day.
type HourBlock struct {
	Time         string    `json:"time"` // "2006-01-02 15:04"
	PrecipMM     float64   `json:"precip_mm"`
	Humidity     float64   `json:"humidity"`
	Cloud        float64   `json:"cloud"`
	ChanceOfRain float64   `json:"chance_of_rain"`
	Condition    Condition `json:"condition"`
}

// ForecastDay is one day of forecast.json or the single day of history.json.
type ForecastDay struct {
	Date string      `json:"date"`
	Day  DayBlock    `json:"day"`
	Hour []HourBlock `json:"hour"`
}

// WeatherAPIPayload is the parsed response shape shared by the current,
// forecast and history endpoints; absent sections stay zero-valued.
type WeatherAPIPayload struct {
	Location struct {
		Name string `json:"name"`
	} `json:"location"`
	Current  *CurrentBlock `json:"current"`
	Forecast struct {
		ForecastDay []ForecastDay `json:"forecastday"`
	} `json:"forecast"`
}

// WeatherAPIClient issues one HTTP request per logical query against
// WeatherAPI.com for a fixed location.
type WeatherAPIClient struct {
	apiKey   string
	location string
	baseURL  string
	httpCfg  HTTPClientConfig
	circuit  *gobreaker.CircuitBreaker
	l        *logger.Logger
}

// NewWeatherAPIClient creates a client for the given key and location query
// string. baseURL may be empty to use the production endpoint.
func NewWeatherAPIClient(client *http.Client, apiKey, location, baseURL string, l *logger.Logger) *WeatherAPIClient {
	if baseURL == "" {
		baseURL = DefaultWeatherAPIBaseURL
	}
	return &WeatherAPIClient{
		apiKey:   apiKey,
		location: location,
		baseURL:  baseURL,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: defaultBackoff(),
		},
		circuit: newBreaker("weatherapi"),
		l:       l,
	}
}

// Name identifies the provider in logs.
func (c *WeatherAPIClient) Name() string {
	return "weatherapi"
}

// Current fetches current conditions for the configured location.
func (c *WeatherAPIClient) Current(ctx context.Context) (*WeatherAPIPayload, error) {
	return c.get(ctx, "current.json", nil)
}

// Forecast fetches an up-to-days daily forecast. days is clamped to the
// WeatherAPI plan limit.
func (c *WeatherAPIClient) Forecast(ctx context.Context, days int) (*WeatherAPIPayload, error) {
	if days > maxForecastDays {
		days = maxForecastDays
	}
	return c.get(ctx, "forecast.json", url.Values{"days": {strconv.Itoa(days)}})
}

// History fetches one historical day (YYYY-MM-DD), including its hourly
// breakdown.
func (c *WeatherAPIClient) History(ctx context.Context, date string) (*WeatherAPIPayload, error) {
	return c.get(ctx, "history.json", url.Values{"dt": {date}})
}

func (c *WeatherAPIClient) get(ctx context.Context, endpoint string, extra url.Values) (*WeatherAPIPayload, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("weatherapi api key is not configured")
	}

	values := url.Values{}
	values.Set("key", c.apiKey)
	values.Set("q", c.location)
	for k, vs := range extra {
		for _, v := range vs {
			values.Add(k, v)
		}
	}

	u := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, values.Encode())

	var payload WeatherAPIPayload
	if err := getJSON(ctx, c.httpCfg, c.circuit, u, &payload); err != nil {
		return nil, fmt.Errorf("weatherapi %s: %w", endpoint, err)
	}

	c.l.Debug("weatherapi query succeeded", map[string]any{
		"endpoint": endpoint,
		"location": c.location,
	})

	return &payload, nil
}
