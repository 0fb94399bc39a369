package dataset

import "math"

// Summary metric names as persisted in the metric/value sheet.
const (
	MetricDaysWithData = "days_with_data"
	MetricRainyDays    = "rainy_days"
	MetricPrecipTotal  = "precipitation_total_mm"
	MetricPrecipMean   = "precipitation_mean_mm"
	MetricPrecipMax    = "precipitation_max_mm"
	MetricPrecipMin    = "precipitation_min_mm"
)

// Summarize derives the statistics table from the current daily table. The
// result replaces any previously stored summary wholesale; it is never merged
// with prior summaries. Precipitation statistics cover only rows that
// recorded rain.
func Summarize(daily Table) []SummaryMetric {
	var (
		rainy int
		total float64
		max   float64
		min   float64
	)

	for _, r := range daily.Rows {
		if r.PrecipMM <= 0 {
			continue
		}
		if rainy == 0 {
			max = r.PrecipMM
			min = r.PrecipMM
		} else {
			if r.PrecipMM > max {
				max = r.PrecipMM
			}
			if r.PrecipMM < min {
				min = r.PrecipMM
			}
		}
		rainy++
		total += r.PrecipMM
	}

	mean := 0.0
	if rainy > 0 {
		mean = total / float64(rainy)
	}

	return []SummaryMetric{
		{Name: MetricDaysWithData, Value: float64(len(daily.Rows))},
		{Name: MetricRainyDays, Value: float64(rainy)},
		{Name: MetricPrecipTotal, Value: round2(total)},
		{Name: MetricPrecipMean, Value: round2(mean)},
		{Name: MetricPrecipMax, Value: round2(max)},
		{Name: MetricPrecipMin, Value: round2(min)},
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
