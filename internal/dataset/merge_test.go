package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dailyRow(date string, precip float64) Record {
	return Record{
		Date:       date,
		City:       "Sao Paulo",
		PrecipMM:   precip,
		PrecipIn:   Num(precip / 25.4),
		Humidity:   Num(80),
		Cloud:      NotApplicable(),
		Condition:  "Light rain",
		RainChance: NotApplicable(),
		DataKind:   KindHistorical,
	}
}

func hourlyRow(date, tod string, precip float64) Record {
	return Record{
		Date:       date,
		TimeOfDay:  tod,
		PrecipMM:   precip,
		Humidity:   Num(75),
		Cloud:      Num(50),
		Condition:  "Cloudy",
		RainChance: Num(20),
	}
}

func dailyTable(rows ...Record) Table {
	return Table{Name: TableDaily, Columns: DailyColumns, Rows: rows}
}

func hourlyTable(rows ...Record) Table {
	return Table{Name: TableHourly, Columns: HourlyColumns, Rows: rows}
}

func TestMergeIntoEmptyDatasetSortsRows(t *testing.T) {
	fresh := Dataset{Tables: []Table{
		dailyTable(dailyRow("2024-01-03", 1), dailyRow("2024-01-01", 2), dailyRow("2024-01-02", 3)),
	}}

	merged := Merge(Dataset{}, fresh)

	got, ok := merged.Table(TableDaily)
	require.True(t, ok)
	require.Len(t, got.Rows, 3)
	assert.Equal(t, "2024-01-01", got.Rows[0].Date)
	assert.Equal(t, "2024-01-02", got.Rows[1].Date)
	assert.Equal(t, "2024-01-03", got.Rows[2].Date)
}

func TestMergeIdempotence(t *testing.T) {
	existing := Merge(Dataset{}, Dataset{Tables: []Table{
		dailyTable(dailyRow("2024-01-01", 1), dailyRow("2024-01-02", 2)),
		hourlyTable(hourlyRow("2024-01-01", "10:00:00", 0.4), hourlyRow("2024-01-01", "11:00:00", 0)),
	}})

	// Refetching a subset with identical keys and values must leave the
	// dataset observably unchanged: same rows, same order.
	again := Merge(existing, Dataset{Tables: []Table{
		dailyTable(dailyRow("2024-01-01", 1)),
		hourlyTable(hourlyRow("2024-01-01", "10:00:00", 0.4)),
	}})

	assert.Equal(t, existing.Tables, again.Tables)
}

func TestMergeOverwriteOnRefetch(t *testing.T) {
	existing := Dataset{Tables: []Table{dailyTable(dailyRow("2024-01-01", 1.0))}}
	fresh := Dataset{Tables: []Table{dailyTable(dailyRow("2024-01-01", 2.5))}}

	merged := Merge(existing, fresh)

	got, ok := merged.Table(TableDaily)
	require.True(t, ok)
	require.Len(t, got.Rows, 1)
	assert.Equal(t, "2024-01-01", got.Rows[0].Date)
	assert.Equal(t, 2.5, got.Rows[0].PrecipMM)
}

func TestMergeHourlyKeyIncludesTimeOfDay(t *testing.T) {
	existing := Dataset{Tables: []Table{hourlyTable(
		hourlyRow("2024-01-01", "10:00:00", 0.4),
		hourlyRow("2024-01-01", "11:00:00", 0.5),
	)}}
	fresh := Dataset{Tables: []Table{hourlyTable(
		hourlyRow("2024-01-01", "11:00:00", 1.5), // refetched hour, new value
		hourlyRow("2024-01-01", "09:00:00", 0.1), // earlier hour arriving late
	)}}

	merged := Merge(existing, fresh)

	got, ok := merged.Table(TableHourly)
	require.True(t, ok)
	require.Len(t, got.Rows, 3)
	assert.Equal(t, "09:00:00", got.Rows[0].TimeOfDay)
	assert.Equal(t, "10:00:00", got.Rows[1].TimeOfDay)
	assert.Equal(t, "11:00:00", got.Rows[2].TimeOfDay)
	assert.Equal(t, 1.5, got.Rows[2].PrecipMM)
}

func TestMergePartialFetchFailureKeepsPersistedTables(t *testing.T) {
	existing := Dataset{Tables: []Table{
		{Name: TableForecast, Columns: DailyColumns, Rows: []Record{dailyRow("2024-01-05", 3)}},
		{Name: TableHistorical, Columns: DailyColumns, Rows: []Record{dailyRow("2024-01-01", 1)}},
	}}

	// Forecast query failed this cycle: it is simply absent from fresh.
	fresh := Dataset{Tables: []Table{
		{Name: TableHistorical, Columns: DailyColumns, Rows: []Record{dailyRow("2024-01-02", 2)}},
	}}

	merged := Merge(existing, fresh)

	forecast, ok := merged.Table(TableForecast)
	require.True(t, ok)
	assert.Equal(t, existing.Tables[0].Rows, forecast.Rows)

	hist, ok := merged.Table(TableHistorical)
	require.True(t, ok)
	require.Len(t, hist.Rows, 2)
	assert.Equal(t, "2024-01-01", hist.Rows[0].Date)
	assert.Equal(t, "2024-01-02", hist.Rows[1].Date)
}

func TestMergeEmptyFreshTableIsNoOp(t *testing.T) {
	existing := Dataset{Tables: []Table{hourlyTable(
		hourlyRow("2024-01-01", "10:00:00", 0.4),
	)}}
	fresh := Dataset{Tables: []Table{hourlyTable()}}

	merged := Merge(existing, fresh)

	got, ok := merged.Table(TableHourly)
	require.True(t, ok)
	assert.Equal(t, existing.Tables[0].Rows, got.Rows)
}

func TestMergeChronologicalOrderingInvariant(t *testing.T) {
	existing := Dataset{Tables: []Table{hourlyTable(
		hourlyRow("2024-01-02", "01:00:00", 0),
		hourlyRow("2024-01-01", "23:00:00", 0),
	)}}
	fresh := Dataset{Tables: []Table{hourlyTable(
		hourlyRow("2024-01-01", "05:00:00", 0),
		hourlyRow("2024-01-03", "00:00:00", 0),
		hourlyRow("2024-01-02", "12:00:00", 0),
	)}}

	merged := Merge(existing, fresh)

	got, ok := merged.Table(TableHourly)
	require.True(t, ok)
	for i := 1; i < len(got.Rows); i++ {
		assert.LessOrEqual(t, got.Rows[i-1].SortKey(), got.Rows[i].SortKey())
	}
}

func TestMergeSummaryAlwaysReplaced(t *testing.T) {
	first := Merge(Dataset{}, Dataset{
		Tables:  []Table{dailyTable(dailyRow("2024-01-01", 10))},
		Summary: Summarize(dailyTable(dailyRow("2024-01-01", 10))),
	})

	secondDaily := dailyTable(dailyRow("2024-01-01", 10), dailyRow("2024-01-02", 5))
	second := Merge(first, Dataset{
		Tables:  []Table{secondDaily},
		Summary: Summarize(secondDaily),
	})

	var total float64
	for _, m := range second.Summary {
		if m.Name == MetricPrecipTotal {
			total = m.Value
		}
	}
	// 10 + 5 from the second cycle's daily table alone, never 10 + 15.
	assert.Equal(t, 15.0, total)
}

func TestMergeNoSharedKeyAccumulates(t *testing.T) {
	noKey := func(rows ...Record) Table {
		return Table{Name: "Notes", Columns: []Column{ColCondition}, Rows: rows}
	}
	existing := Dataset{Tables: []Table{noKey(Record{Condition: "a"})}}
	fresh := Dataset{Tables: []Table{noKey(Record{Condition: "a"}, Record{Condition: "b"})}}

	merged := Merge(existing, fresh)

	got, ok := merged.Table("Notes")
	require.True(t, ok)
	// Accumulate-only fallback: no dedup, input order preserved.
	require.Len(t, got.Rows, 3)
	assert.Equal(t, "a", got.Rows[0].Condition)
	assert.Equal(t, "a", got.Rows[1].Condition)
	assert.Equal(t, "b", got.Rows[2].Condition)
}
