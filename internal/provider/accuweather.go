package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"

	"github.com/desastrosos/precipwatch/internal/logger"
)

// DefaultAccuWeatherBaseURL is the production AccuWeather data service root.
const DefaultAccuWeatherBaseURL = "http://dataservice.accuweather.com"

// AccuHour is one entry of the AccuWeather hourly forecast response.
type AccuHour struct {
	DateTime                 string  `json:"DateTime"` // ISO 8601
	IconPhrase               string  `json:"IconPhrase"`
	HasPrecipitation         bool    `json:"HasPrecipitation"`
	PrecipitationProbability float64 `json:"PrecipitationProbability"`
	RelativeHumidity         float64 `json:"RelativeHumidity"`
	CloudCover               float64 `json:"CloudCover"`
	TotalLiquid              struct {
		Value float64 `json:"Value"`
	} `json:"TotalLiquid"`
}

// AccuWeatherClient fetches the one-hour hourly forecast for a fixed
// AccuWeather location key.
type AccuWeatherClient struct {
	apiKey      string
	locationKey string
	baseURL     string
	httpCfg     HTTPClientConfig
	circuit     *gobreaker.CircuitBreaker
	l           *logger.Logger
}

// NewAccuWeatherClient creates a client for the given key and location key.
// baseURL may be empty to use the production endpoint.
func NewAccuWeatherClient(client *http.Client, apiKey, locationKey, baseURL string, l *logger.Logger) *AccuWeatherClient {
	if baseURL == "" {
		baseURL = DefaultAccuWeatherBaseURL
	}
	return &AccuWeatherClient{
		apiKey:      apiKey,
		locationKey: locationKey,
		baseURL:     baseURL,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: defaultBackoff(),
		},
		circuit: newBreaker("accuweather"),
		l:       l,
	}
}

// Name identifies the provider in logs.
func (c *AccuWeatherClient) Name() string {
	return "accuweather"
}

// HourlyForecast fetches the next-hour forecast entries with full details in
// metric units.
func (c *AccuWeatherClient) HourlyForecast(ctx context.Context) ([]AccuHour, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("accuweather api key is not configured")
	}
	if c.locationKey == "" {
		return nil, fmt.Errorf("accuweather location key is not configured")
	}

	values := url.Values{}
	values.Set("apikey", c.apiKey)
	values.Set("language", "en-us")
	values.Set("details", "true")
	values.Set("metric", "true")

	u := fmt.Sprintf("%s/forecasts/v1/hourly/1hour/%s?%s", c.baseURL, c.locationKey, values.Encode())

	var hours []AccuHour
	if err := getJSON(ctx, c.httpCfg, c.circuit, u, &hours); err != nil {
		return nil, fmt.Errorf("accuweather hourly forecast: %w", err)
	}

	c.l.Debug("accuweather query succeeded", map[string]any{
		"locationKey": c.locationKey,
		"hours":       len(hours),
	})

	return hours, nil
}
