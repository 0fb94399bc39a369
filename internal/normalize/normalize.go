// Package normalize maps raw provider payloads into the canonical flat table
// shapes. Normalizers never fail: a nil or malformed payload yields an empty
// table, and one bad record never drops the rest of the batch.
package normalize

import (
	"strings"
	"time"

	"github.com/desastrosos/precipwatch/internal/dataset"
	"github.com/desastrosos/precipwatch/internal/provider"
)

// Current maps a current.json payload into a one-row table. Rain chance is
// not supplied for current conditions and becomes the N/A sentinel. now is
// the collection time used as the record's observation date.
func Current(p *provider.WeatherAPIPayload, now time.Time) dataset.Table {
	t := dataset.Table{Name: dataset.TableCurrent, Columns: dataset.DailyColumns}
	if p == nil || p.Current == nil {
		return t
	}

	t.Rows = []dataset.Record{{
		Date:       now.Format("2006-01-02"),
		City:       p.Location.Name,
		PrecipMM:   p.Current.PrecipMM,
		PrecipIn:   dataset.Num(p.Current.PrecipIn),
		Humidity:   dataset.Num(p.Current.Humidity),
		Cloud:      dataset.Num(p.Current.Cloud),
		Condition:  p.Current.Condition.Text,
		RainChance: dataset.NotApplicable(),
		DataKind:   dataset.KindCurrent,
	}}
	return t
}

// Forecast maps a forecast.json payload into one row per forecast day. Cloud
// cover is not part of the daily forecast aggregate and becomes N/A.
func Forecast(p *provider.WeatherAPIPayload) dataset.Table {
	t := dataset.Table{Name: dataset.TableForecast, Columns: dataset.DailyColumns}
	if p == nil {
		return t
	}

	for _, day := range p.Forecast.ForecastDay {
		t.Rows = append(t.Rows, dataset.Record{
			Date:       day.Date,
			City:       p.Location.Name,
			PrecipMM:   day.Day.TotalPrecipMM,
			PrecipIn:   dataset.Num(day.Day.TotalPrecipIn),
			Humidity:   dataset.Num(day.Day.AvgHumidity),
			Cloud:      dataset.NotApplicable(),
			Condition:  day.Day.Condition.Text,
			RainChance: dataset.Num(day.Day.DailyChanceOfRain),
			DataKind:   dataset.KindForecast,
		})
	}
	return t
}

// History maps a batch of history.json payloads (one per fetched day) into a
// daily table. Humidity and rain chance are not supplied for historical days
// and become N/A.
func History(days []*provider.WeatherAPIPayload) dataset.Table {
	t := dataset.Table{Name: dataset.TableHistorical, Columns: dataset.DailyColumns}

	for _, p := range days {
		if p == nil || len(p.Forecast.ForecastDay) == 0 {
			continue
		}
		day := p.Forecast.ForecastDay[0]
		t.Rows = append(t.Rows, dataset.Record{
			Date:       day.Date,
			City:       p.Location.Name,
			PrecipMM:   day.Day.TotalPrecipMM,
			PrecipIn:   dataset.Num(day.Day.TotalPrecipIn),
			Humidity:   dataset.NotApplicable(),
			Cloud:      dataset.NotApplicable(),
			Condition:  day.Day.Condition.Text,
			RainChance: dataset.NotApplicable(),
			DataKind:   dataset.KindHistorical,
		})
	}
	return t
}

// Hours maps the hourly breakdowns of a batch of history.json payloads into
// the hourly table, ordered by the synthetic timestamp each row carries.
func Hours(days []*provider.WeatherAPIPayload) dataset.Table {
	t := dataset.Table{Name: dataset.TableHourly, Columns: dataset.HourlyColumns}

	for _, p := range days {
		if p == nil || len(p.Forecast.ForecastDay) == 0 {
			continue
		}
		day := p.Forecast.ForecastDay[0]
		for _, h := range day.Hour {
			date, tod := splitHourTime(h.Time)
			t.Rows = append(t.Rows, dataset.Record{
				Date:       date,
				TimeOfDay:  tod,
				PrecipMM:   h.PrecipMM,
				Humidity:   dataset.Num(h.Humidity),
				Cloud:      dataset.Num(h.Cloud),
				Condition:  h.Condition.Text,
				RainChance: dataset.Num(h.ChanceOfRain),
			}.WithSortTS(h.Time))
		}
	}
	return t.Sorted()
}

// AccuHours maps AccuWeather hourly forecast entries into their table.
func AccuHours(hours []provider.AccuHour) dataset.Table {
	t := dataset.Table{Name: dataset.TableAccuHourly, Columns: dataset.AccuHourlyColumns}

	for _, h := range hours {
		date, tod := splitISOTime(h.DateTime)
		hasPrecip := h.HasPrecipitation
		t.Rows = append(t.Rows, dataset.Record{
			Date:       date,
			TimeOfDay:  tod,
			PrecipMM:   h.TotalLiquid.Value,
			Humidity:   dataset.Num(h.RelativeHumidity),
			Cloud:      dataset.Num(h.CloudCover),
			Condition:  h.IconPhrase,
			RainChance: dataset.Num(h.PrecipitationProbability),
			HasPrecip:  &hasPrecip,
		})
	}
	return t.Sorted()
}

// Daily builds the combined daily table from the historical, current and
// forecast tables of one cycle, in ascending date order.
func Daily(historical, current, forecast dataset.Table) dataset.Table {
	t := dataset.Table{Name: dataset.TableDaily, Columns: dataset.DailyColumns}
	t.Rows = append(t.Rows, historical.Rows...)
	t.Rows = append(t.Rows, current.Rows...)
	t.Rows = append(t.Rows, forecast.Rows...)
	return t.Sorted()
}

// splitHourTime splits a WeatherAPI hour stamp ("2006-01-02 15:04") into a
// date and an HH:MM:SS time of day. A malformed stamp coerces to empty
// strings rather than failing the batch.
func splitHourTime(s string) (date, tod string) {
	parts := strings.SplitN(s, " ", 2)
	if len(parts) != 2 {
		return "", ""
	}
	if _, err := time.Parse("2006-01-02 15:04", s); err != nil {
		return "", ""
	}
	return parts[0], parts[1] + ":00"
}

// splitISOTime splits an ISO 8601 stamp into date and HH:MM:SS, keeping the
// local clock reading of the stamp's own offset.
func splitISOTime(s string) (date, tod string) {
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return "", ""
	}
	return ts.Format("2006-01-02"), ts.Format("15:04:05")
}
