package dataset

import (
	"sort"
	"strconv"
)

// Column identifies one field of the flat record vocabulary. Column presence
// on a table drives both merge-key selection and the persisted header row.
type Column string

const (
	ColDate       Column = "date"
	ColTime       Column = "time"
	ColCity       Column = "city"
	ColPrecipMM   Column = "precipitation_mm"
	ColPrecipIn   Column = "precipitation_in"
	ColHumidity   Column = "humidity_percent"
	ColCloud      Column = "cloud_percent"
	ColCondition  Column = "condition"
	ColRainChance Column = "rain_chance_percent"
	ColHasPrecip  Column = "has_precipitation"
	ColDataKind   Column = "data_kind"
)

// Persisted table names, one sheet each.
const (
	TableSummary    = "Summary"
	TableDaily      = "Daily_Data"
	TableCurrent    = "Current_Data"
	TableForecast   = "Forecast_Data"
	TableHistorical = "Historical_Data"
	TableHourly     = "Hourly_Data"
	TableAccuHourly = "AccuWeather_Hourly"
)

// NA marks fields a query kind fundamentally cannot supply, e.g. rain chance
// for historical data or cloud cover for the daily forecast.
const NA = "N/A"

// DataKind values for daily records.
const (
	KindCurrent    = "current"
	KindForecast   = "forecast"
	KindHistorical = "historical"
)

// Canonical column sets per table kind.
var (
	DailyColumns = []Column{
		ColDate, ColCity, ColPrecipMM, ColPrecipIn, ColHumidity,
		ColCloud, ColCondition, ColRainChance, ColDataKind,
	}
	HourlyColumns = []Column{
		ColDate, ColTime, ColPrecipMM, ColHumidity, ColCloud,
		ColCondition, ColRainChance,
	}
	AccuHourlyColumns = []Column{
		ColDate, ColTime, ColPrecipMM, ColHumidity, ColCloud,
		ColCondition, ColRainChance, ColHasPrecip,
	}
)

// Metric is a numeric observation that may be not-applicable for a given
// query kind. The zero value is a present 0.
type Metric struct {
	Value float64
	NA    bool
}

// Num returns a present metric value.
func Num(v float64) Metric {
	return Metric{Value: v}
}

// NotApplicable returns the N/A sentinel metric.
func NotApplicable() Metric {
	return Metric{NA: true}
}

// String renders the metric the way it is persisted: a plain number, or N/A.
func (m Metric) String() string {
	if m.NA {
		return NA
	}
	return strconv.FormatFloat(m.Value, 'f', -1, 64)
}

// Record is one observation. Which fields are meaningful is decided by the
// owning table's column set; the struct itself is shared across table kinds.
type Record struct {
	Date       string // YYYY-MM-DD, empty if the source timestamp was malformed
	TimeOfDay  string // HH:MM:SS, empty for daily records
	City       string
	PrecipMM   float64
	PrecipIn   Metric
	Humidity   Metric
	Cloud      Metric
	Condition  string
	RainChance Metric
	HasPrecip  *bool
	DataKind   string

	// sortTS is the synthetic "date time" ordering key carried by hourly
	// records between normalization and sorting. Never persisted.
	sortTS string
}

// WithSortTS attaches the synthetic ordering timestamp to the record.
func (r Record) WithSortTS(ts string) Record {
	r.sortTS = ts
	return r
}

// SortKey returns the chronological ordering key: the synthetic timestamp if
// set, else date plus time-of-day, else the date alone. ISO-formatted strings
// compare correctly as plain strings.
func (r Record) SortKey() string {
	if r.sortTS != "" {
		return r.sortTS
	}
	if r.TimeOfDay != "" {
		return r.Date + " " + r.TimeOfDay
	}
	return r.Date
}

// Key returns the dedup key for the record.
func (r Record) Key(withTime bool) string {
	if withTime {
		return r.Date + " " + r.TimeOfDay
	}
	return r.Date
}

// Table is a named, schema-homogeneous ordered sequence of records.
type Table struct {
	Name    string
	Columns []Column
	Rows    []Record
}

// Empty reports whether the table has no rows.
func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

// HasColumn reports whether the table's schema includes the column.
func (t Table) HasColumn(c Column) bool {
	for _, col := range t.Columns {
		if col == c {
			return true
		}
	}
	return false
}

// Sorted returns a copy of the table with rows in ascending chronological
// order. Tables without a date column are returned unchanged.
func (t Table) Sorted() Table {
	if !t.HasColumn(ColDate) {
		return t
	}
	rows := make([]Record, len(t.Rows))
	copy(rows, t.Rows)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].SortKey() < rows[j].SortKey()
	})
	t.Rows = rows
	return t
}

// SummaryMetric is one row of the derived statistics table.
type SummaryMetric struct {
	Name  string
	Value float64
}

// Dataset is the complete named-table set persisted to one file. Tables keeps
// a stable order so the written workbook is deterministic.
type Dataset struct {
	Tables  []Table
	Summary []SummaryMetric
}

// Table returns the named table and whether it exists.
func (d Dataset) Table(name string) (Table, bool) {
	for _, t := range d.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// SetTable replaces the named table in place, or appends it.
func (d *Dataset) SetTable(t Table) {
	for i := range d.Tables {
		if d.Tables[i].Name == t.Name {
			d.Tables[i] = t
			return
		}
	}
	d.Tables = append(d.Tables, t)
}
