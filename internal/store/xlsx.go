// Package store persists precipitation datasets as xlsx workbooks, one named
// sheet per table.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/desastrosos/precipwatch/internal/dataset"
	"github.com/desastrosos/precipwatch/internal/logger"
)

// defaultSheet is the sheet excelize creates in a new workbook.
const defaultSheet = "Sheet1"

// knownTables is the load order for observation sheets. The summary sheet is
// never loaded: it is recomputed from scratch every cycle.
var knownTables = []string{
	dataset.TableDaily,
	dataset.TableCurrent,
	dataset.TableForecast,
	dataset.TableHistorical,
	dataset.TableHourly,
	dataset.TableAccuHourly,
}

// Store reads and writes one dataset per workbook file.
type Store struct {
	l *logger.Logger
}

func New(l *logger.Logger) *Store {
	return &Store{l: l}
}

// Load reads every known table sheet from the workbook at path. A missing
// file is not a failure: it yields an empty dataset. A sheet that cannot be
// parsed is logged and treated as absent rather than aborting the load.
func (s *Store) Load(path string) (dataset.Dataset, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return dataset.Dataset{}, nil
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		s.l.Warning("existing dataset unreadable, starting from empty", map[string]any{
			"path": path,
			"err":  err.Error(),
		})
		return dataset.Dataset{}, nil
	}
	defer f.Close()

	var ds dataset.Dataset
	for _, name := range knownTables {
		rows, err := f.GetRows(name)
		if err != nil || len(rows) < 2 {
			continue // sheet absent or header-only
		}
		tbl, err := parseTable(name, rows)
		if err != nil {
			s.l.Warning("skipping unparseable sheet", map[string]any{
				"path":  path,
				"sheet": name,
				"err":   err.Error(),
			})
			continue
		}
		ds.Tables = append(ds.Tables, tbl)
	}

	return ds, nil
}

// Save writes every non-empty table of the dataset into the workbook at
// path, creating missing parent directories. On failure it falls back to a
// timestamped backup beside the target instead of losing the cycle's data.
// The path actually written is returned; an error only if the backup failed
// too.
func (s *Store) Save(ds dataset.Dataset, path string) (string, error) {
	if err := s.write(ds, path); err != nil {
		backup := BackupPath(path, time.Now())
		s.l.Warning("dataset save failed, writing backup", map[string]any{
			"path":   path,
			"backup": backup,
			"err":    err.Error(),
		})
		if berr := s.write(ds, backup); berr != nil {
			return "", fmt.Errorf("save %s failed (%v); backup %s failed: %w", path, err, backup, berr)
		}
		return backup, nil
	}
	return path, nil
}

// BackupPath returns the fallback location used when saving to target fails.
func BackupPath(target string, now time.Time) string {
	return filepath.Join(filepath.Dir(target),
		fmt.Sprintf("precipitation_backup_%s.xlsx", now.Format("20060102_150405")))
}

func (s *Store) write(ds dataset.Dataset, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	sheets := 0

	if len(ds.Summary) > 0 {
		if err := writeSummarySheet(f, ds.Summary); err != nil {
			return err
		}
		sheets++
	}

	for _, t := range ds.Tables {
		if t.Empty() {
			continue // never write a zero-row section
		}
		if err := writeTableSheet(f, t); err != nil {
			return err
		}
		sheets++
	}

	if sheets > 0 {
		if err := f.DeleteSheet(defaultSheet); err != nil {
			return fmt.Errorf("drop default sheet: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("write workbook %s: %w", path, err)
	}

	s.l.Info("dataset saved", map[string]any{"path": path, "sheets": sheets})
	return nil
}

func writeTableSheet(f *excelize.File, t dataset.Table) error {
	if _, err := f.NewSheet(t.Name); err != nil {
		return fmt.Errorf("create sheet %s: %w", t.Name, err)
	}

	header := make([]interface{}, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = string(c)
	}
	if err := f.SetSheetRow(t.Name, "A1", &header); err != nil {
		return fmt.Errorf("write header of %s: %w", t.Name, err)
	}

	for i, r := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := recordCells(t.Columns, r)
		if err := f.SetSheetRow(t.Name, cell, &row); err != nil {
			return fmt.Errorf("write row %d of %s: %w", i+2, t.Name, err)
		}
	}
	return nil
}

func writeSummarySheet(f *excelize.File, metrics []dataset.SummaryMetric) error {
	name := dataset.TableSummary
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}

	header := []interface{}{"metric", "value"}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("write header of %s: %w", name, err)
	}
	for i, m := range metrics {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{m.Name, m.Value}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("write row %d of %s: %w", i+2, name, err)
		}
	}
	return nil
}

func recordCells(cols []dataset.Column, r dataset.Record) []interface{} {
	out := make([]interface{}, len(cols))
	for i, c := range cols {
		switch c {
		case dataset.ColDate:
			out[i] = r.Date
		case dataset.ColTime:
			out[i] = r.TimeOfDay
		case dataset.ColCity:
			out[i] = r.City
		case dataset.ColPrecipMM:
			out[i] = r.PrecipMM
		case dataset.ColPrecipIn:
			out[i] = metricCell(r.PrecipIn)
		case dataset.ColHumidity:
			out[i] = metricCell(r.Humidity)
		case dataset.ColCloud:
			out[i] = metricCell(r.Cloud)
		case dataset.ColCondition:
			out[i] = r.Condition
		case dataset.ColRainChance:
			out[i] = metricCell(r.RainChance)
		case dataset.ColHasPrecip:
			out[i] = r.HasPrecip != nil && *r.HasPrecip
		case dataset.ColDataKind:
			out[i] = r.DataKind
		default:
			out[i] = ""
		}
	}
	return out
}

func metricCell(m dataset.Metric) interface{} {
	if m.NA {
		return dataset.NA
	}
	return m.Value
}

func parseTable(name string, rows [][]string) (dataset.Table, error) {
	t := dataset.Table{Name: name}

	for _, h := range rows[0] {
		t.Columns = append(t.Columns, dataset.Column(strings.TrimSpace(h)))
	}
	if !t.HasColumn(dataset.ColDate) && !t.HasColumn(dataset.ColCondition) {
		return t, fmt.Errorf("sheet %s has no recognizable header", name)
	}

	for _, row := range rows[1:] {
		t.Rows = append(t.Rows, parseRecord(t.Columns, row))
	}
	return t, nil
}

// parseRecord coerces one sheet row into a record. Cells are parsed
// leniently: an unparseable number becomes 0, matching the fetch-side
// defaulting policy, so one damaged cell never poisons the merge.
func parseRecord(cols []dataset.Column, row []string) dataset.Record {
	var r dataset.Record
	for i, c := range cols {
		if i >= len(row) {
			break // GetRows trims trailing empty cells
		}
		cell := row[i]
		switch c {
		case dataset.ColDate:
			r.Date = cell
		case dataset.ColTime:
			r.TimeOfDay = cell
		case dataset.ColCity:
			r.City = cell
		case dataset.ColPrecipMM:
			r.PrecipMM = parseFloat(cell)
		case dataset.ColPrecipIn:
			r.PrecipIn = parseMetric(cell)
		case dataset.ColHumidity:
			r.Humidity = parseMetric(cell)
		case dataset.ColCloud:
			r.Cloud = parseMetric(cell)
		case dataset.ColCondition:
			r.Condition = cell
		case dataset.ColRainChance:
			r.RainChance = parseMetric(cell)
		case dataset.ColHasPrecip:
			b := parseBool(cell)
			r.HasPrecip = &b
		case dataset.ColDataKind:
			r.DataKind = cell
		}
	}
	return r
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseMetric(s string) dataset.Metric {
	if strings.EqualFold(strings.TrimSpace(s), dataset.NA) {
		return dataset.NotApplicable()
	}
	return dataset.Num(parseFloat(s))
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1":
		return true
	}
	return false
}
