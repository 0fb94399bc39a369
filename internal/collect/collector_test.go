package collect

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/desastrosos/precipwatch/internal/dataset"
	"github.com/desastrosos/precipwatch/internal/logger"
	"github.com/desastrosos/precipwatch/internal/provider"
	"github.com/desastrosos/precipwatch/internal/store"
)

type fakeWeather struct {
	current     *provider.WeatherAPIPayload
	currentErr  error
	forecast    *provider.WeatherAPIPayload
	forecastErr error
	history     map[string]*provider.WeatherAPIPayload
	historyErr  error

	historyDates []string
}

func (f *fakeWeather) Name() string { return "weatherapi" }

func (f *fakeWeather) Current(context.Context) (*provider.WeatherAPIPayload, error) {
	return f.current, f.currentErr
}

func (f *fakeWeather) Forecast(context.Context, int) (*provider.WeatherAPIPayload, error) {
	return f.forecast, f.forecastErr
}

func (f *fakeWeather) History(_ context.Context, date string) (*provider.WeatherAPIPayload, error) {
	f.historyDates = append(f.historyDates, date)
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.history[date], nil
}

type fakeHourly struct {
	hours []provider.AccuHour
	err   error
}

func (f *fakeHourly) Name() string { return "accuweather" }

func (f *fakeHourly) HourlyForecast(context.Context) ([]provider.AccuHour, error) {
	return f.hours, f.err
}

func currentPayload(precip float64) *provider.WeatherAPIPayload {
	p := &provider.WeatherAPIPayload{Current: &provider.CurrentBlock{
		PrecipMM:  precip,
		Humidity:  80,
		Condition: provider.Condition{Text: "Rain"},
	}}
	p.Location.Name = "Sao Paulo"
	return p
}

func dayPayload(date string, precip float64) *provider.WeatherAPIPayload {
	p := &provider.WeatherAPIPayload{}
	p.Location.Name = "Sao Paulo"
	p.Forecast.ForecastDay = []provider.ForecastDay{{
		Date: date,
		Day:  provider.DayBlock{TotalPrecipMM: precip},
		Hour: []provider.HourBlock{{Time: date + " 06:00", PrecipMM: precip / 2}},
	}}
	return p
}

func newTestCollector(t *testing.T, weather *fakeWeather, hourly *fakeHourly) *Collector {
	t.Helper()
	l := logger.New("collect-test", io.Discard)
	c := New(weather, hourly, store.New(l), Config{
		OutputFile:   filepath.Join(t.TempDir(), "precip.xlsx"),
		ForecastDays: 3,
		HistoryDays:  2,
	}, l)
	c.now = func() time.Time {
		return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	}
	return c
}

func TestRunOnceCollectsAllSources(t *testing.T) {
	weather := &fakeWeather{
		current:  currentPayload(1.5),
		forecast: dayPayload("2024-03-11", 4),
		history: map[string]*provider.WeatherAPIPayload{
			"2024-03-09": dayPayload("2024-03-09", 7),
			"2024-03-08": dayPayload("2024-03-08", 0),
		},
	}
	hourly := &fakeHourly{hours: []provider.AccuHour{{
		DateTime:   "2024-03-10T13:00:00Z",
		IconPhrase: "Showers",
	}}}
	c := newTestCollector(t, weather, hourly)

	require.NoError(t, c.RunOnce(context.Background()))

	assert.Equal(t, []string{"2024-03-09", "2024-03-08"}, weather.historyDates)

	ds, err := store.New(logger.New("t", io.Discard)).Load(c.cfg.OutputFile)
	require.NoError(t, err)

	daily, ok := ds.Table(dataset.TableDaily)
	require.True(t, ok)
	require.Len(t, daily.Rows, 4)
	// Chronological across kinds: two history days, current, forecast.
	assert.Equal(t, "2024-03-08", daily.Rows[0].Date)
	assert.Equal(t, dataset.KindCurrent, daily.Rows[2].DataKind)
	assert.Equal(t, dataset.KindForecast, daily.Rows[3].DataKind)

	hourlyTbl, ok := ds.Table(dataset.TableHourly)
	require.True(t, ok)
	assert.Len(t, hourlyTbl.Rows, 2)

	accu, ok := ds.Table(dataset.TableAccuHourly)
	require.True(t, ok)
	assert.Len(t, accu.Rows, 1)

	status, ok := c.LastCycle()
	require.True(t, ok)
	assert.Empty(t, status.Errors)
	assert.Equal(t, c.cfg.OutputFile, status.SavedTo)
	assert.Equal(t, 4, status.FreshRows[dataset.TableDaily])
	assert.NotEmpty(t, status.Summary)
}

func TestRunOncePartialFailureKeepsOtherSources(t *testing.T) {
	weather := &fakeWeather{
		currentErr: errors.New("boom"),
		forecast:   dayPayload("2024-03-11", 4),
		historyErr: errors.New("quota exceeded"),
	}
	hourly := &fakeHourly{err: errors.New("unauthorized")}
	c := newTestCollector(t, weather, hourly)

	require.NoError(t, c.RunOnce(context.Background()))

	ds, err := store.New(logger.New("t", io.Discard)).Load(c.cfg.OutputFile)
	require.NoError(t, err)

	daily, ok := ds.Table(dataset.TableDaily)
	require.True(t, ok)
	require.Len(t, daily.Rows, 1)
	assert.Equal(t, dataset.KindForecast, daily.Rows[0].DataKind)

	_, ok = ds.Table(dataset.TableAccuHourly)
	assert.False(t, ok)

	status, ok := c.LastCycle()
	require.True(t, ok)
	// current, two history days and the hourly source all failed.
	assert.Len(t, status.Errors, 4)
}

func TestRunOnceOverwritesRefetchedDays(t *testing.T) {
	weather := &fakeWeather{
		history: map[string]*provider.WeatherAPIPayload{
			"2024-03-09": dayPayload("2024-03-09", 7),
		},
	}
	c := newTestCollector(t, weather, &fakeHourly{})
	c.cfg.HistoryDays = 1

	require.NoError(t, c.RunOnce(context.Background()))

	// The same day refetched with a corrected figure replaces the old row.
	weather.history["2024-03-09"] = dayPayload("2024-03-09", 9.5)
	require.NoError(t, c.RunOnce(context.Background()))

	ds, err := store.New(logger.New("t", io.Discard)).Load(c.cfg.OutputFile)
	require.NoError(t, err)

	daily, ok := ds.Table(dataset.TableDaily)
	require.True(t, ok)
	require.Len(t, daily.Rows, 1)
	assert.Equal(t, 9.5, daily.Rows[0].PrecipMM)
}

func TestRunOnceRecomputesSummary(t *testing.T) {
	weather := &fakeWeather{
		history: map[string]*provider.WeatherAPIPayload{
			"2024-03-09": dayPayload("2024-03-09", 8),
		},
	}
	c := newTestCollector(t, weather, &fakeHourly{})
	c.cfg.HistoryDays = 1

	require.NoError(t, c.RunOnce(context.Background()))

	weather.history["2024-03-09"] = dayPayload("2024-03-09", 3)
	require.NoError(t, c.RunOnce(context.Background()))

	f, err := excelize.OpenFile(c.cfg.OutputFile)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(dataset.TableSummary)
	require.NoError(t, err)

	totals := map[string]string{}
	for _, row := range rows[1:] {
		if len(row) == 2 {
			totals[row[0]] = row[1]
		}
	}
	// The summary reflects the corrected figure, not the sum of both runs.
	assert.Equal(t, "3", totals["precipitation_total_mm"])
}

func TestLastCycleBeforeAnyRun(t *testing.T) {
	c := newTestCollector(t, &fakeWeather{}, &fakeHourly{})

	_, ok := c.LastCycle()

	assert.False(t, ok)
}
