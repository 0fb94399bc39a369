// Package collect runs the precipitation collection cycle: query every
// configured source, normalize the payloads, merge them into the persisted
// dataset and write it back.
package collect

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/desastrosos/precipwatch/internal/dataset"
	"github.com/desastrosos/precipwatch/internal/logger"
	"github.com/desastrosos/precipwatch/internal/normalize"
	"github.com/desastrosos/precipwatch/internal/provider"
	"github.com/desastrosos/precipwatch/internal/store"
)

type weatherSource interface {
	Name() string
	Current(ctx context.Context) (*provider.WeatherAPIPayload, error)
	Forecast(ctx context.Context, days int) (*provider.WeatherAPIPayload, error)
	History(ctx context.Context, date string) (*provider.WeatherAPIPayload, error)
}

type hourlySource interface {
	Name() string
	HourlyForecast(ctx context.Context) ([]provider.AccuHour, error)
}

// Config carries the per-cycle collection settings.
type Config struct {
	OutputFile   string
	ForecastDays int
	HistoryDays  int
	// HistoryPause spaces consecutive history requests to stay friendly to
	// the per-minute API quota.
	HistoryPause time.Duration
}

// CycleStatus summarizes the most recent collection cycle.
type CycleStatus struct {
	StartedAt  time.Time               `json:"started_at"`
	FinishedAt time.Time               `json:"finished_at"`
	SavedTo    string                  `json:"saved_to,omitempty"`
	FreshRows  map[string]int          `json:"fresh_rows"`
	Summary    []dataset.SummaryMetric `json:"summary,omitempty"`
	Errors     []string                `json:"errors,omitempty"`
}

// Collector owns one collection pipeline for a single location.
type Collector struct {
	weather weatherSource
	hourly  hourlySource
	store   *store.Store
	cfg     Config
	l       *logger.Logger

	now func() time.Time

	mu   sync.Mutex
	last *CycleStatus
}

func New(weather weatherSource, hourly hourlySource, st *store.Store, cfg Config, l *logger.Logger) *Collector {
	return &Collector{
		weather: weather,
		hourly:  hourly,
		store:   st,
		cfg:     cfg,
		l:       l,
		now:     time.Now,
	}
}

// RunOnce executes one full collection cycle. A failing source is logged and
// contributes an empty table, so the other sources' data still lands in the
// dataset. Only a failure to persist the merged dataset is returned as an
// error.
func (c *Collector) RunOnce(ctx context.Context) error {
	started := c.now()
	status := CycleStatus{StartedAt: started, FreshRows: map[string]int{}}

	c.l.Info("collection cycle started", map[string]any{"output": c.cfg.OutputFile})

	current, err := c.weather.Current(ctx)
	if err != nil {
		status.Errors = append(status.Errors, c.sourceError("current", c.weather.Name(), err))
	}

	forecast, err := c.weather.Forecast(ctx, c.cfg.ForecastDays)
	if err != nil {
		status.Errors = append(status.Errors, c.sourceError("forecast", c.weather.Name(), err))
	}

	history := c.fetchHistory(ctx, started, &status)

	accuHours, err := c.hourly.HourlyForecast(ctx)
	if err != nil {
		status.Errors = append(status.Errors, c.sourceError("hourly forecast", c.hourly.Name(), err))
	}

	currentTbl := normalize.Current(current, started)
	forecastTbl := normalize.Forecast(forecast)
	historyTbl := normalize.History(history)
	hourlyTbl := normalize.Hours(history)
	accuTbl := normalize.AccuHours(accuHours)
	dailyTbl := normalize.Daily(historyTbl, currentTbl, forecastTbl)

	fresh := dataset.Dataset{Tables: []dataset.Table{
		dailyTbl, currentTbl, forecastTbl, historyTbl, hourlyTbl, accuTbl,
	}}
	for _, t := range fresh.Tables {
		status.FreshRows[t.Name] = len(t.Rows)
	}

	existing, err := c.store.Load(c.cfg.OutputFile)
	if err != nil {
		// Load never loses data silently; a hard error here still must not
		// clobber the file with a fresh-only dataset.
		status.Errors = append(status.Errors, fmt.Sprintf("load existing dataset: %v", err))
		c.finish(status)
		return fmt.Errorf("load existing dataset: %w", err)
	}

	merged := dataset.Merge(existing, fresh)
	if daily, ok := merged.Table(dataset.TableDaily); ok {
		merged.Summary = dataset.Summarize(daily)
	}
	status.Summary = merged.Summary

	savedTo, err := c.store.Save(merged, c.cfg.OutputFile)
	if err != nil {
		status.Errors = append(status.Errors, fmt.Sprintf("save dataset: %v", err))
		c.finish(status)
		return fmt.Errorf("save dataset: %w", err)
	}
	status.SavedTo = savedTo

	c.finish(status)
	c.l.Info("collection cycle finished", map[string]any{
		"saved_to": savedTo,
		"errors":   len(status.Errors),
	})
	return nil
}

// LastCycle returns the status of the most recent completed cycle.
func (c *Collector) LastCycle() (CycleStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return CycleStatus{}, false
	}
	return *c.last, true
}

// fetchHistory queries one history day per configured day back from started,
// pacing requests with HistoryPause. Failed days stay nil and are skipped by
// normalization.
func (c *Collector) fetchHistory(ctx context.Context, started time.Time, status *CycleStatus) []*provider.WeatherAPIPayload {
	days := make([]*provider.WeatherAPIPayload, 0, c.cfg.HistoryDays)

	for i := 1; i <= c.cfg.HistoryDays; i++ {
		if i > 1 && c.cfg.HistoryPause > 0 {
			timer := time.NewTimer(c.cfg.HistoryPause)
			select {
			case <-ctx.Done():
				timer.Stop()
				return days
			case <-timer.C:
			}
		}

		date := started.AddDate(0, 0, -i).Format("2006-01-02")
		p, err := c.weather.History(ctx, date)
		if err != nil {
			status.Errors = append(status.Errors, c.sourceError("history "+date, c.weather.Name(), err))
			days = append(days, nil)
			continue
		}
		days = append(days, p)
	}
	return days
}

func (c *Collector) sourceError(op, source string, err error) string {
	c.l.Error(err, map[string]any{"source": source, "operation": op})
	return fmt.Sprintf("%s %s: %v", source, op, err)
}

func (c *Collector) finish(status CycleStatus) {
	status.FinishedAt = c.now()
	c.mu.Lock()
	c.last = &status
	c.mu.Unlock()
}
