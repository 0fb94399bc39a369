package dataset

// Merge folds freshly fetched tables into the previously persisted dataset.
//
// Per table name present in fresh:
//   - an empty fresh table is a no-op: it neither erases nor duplicates the
//     persisted table of the same name;
//   - with no (or an empty) persisted counterpart, the fresh table is taken
//     as-is after a chronological sort;
//   - otherwise persisted and fresh rows are concatenated (persisted first),
//     deduplicated on the best key both schemas share — (date,time), then
//     (date), then none — keeping the last occurrence so refetched data
//     overwrites what was stored, and resorted chronologically. Without a
//     shared key the concatenation is kept unchanged.
//
// Tables present only in existing pass through untouched. The summary is
// derived, not cumulative: a fresh summary always replaces the stored one.
func Merge(existing, fresh Dataset) Dataset {
	merged := Dataset{
		Tables:  make([]Table, len(existing.Tables)),
		Summary: existing.Summary,
	}
	copy(merged.Tables, existing.Tables)

	for _, ft := range fresh.Tables {
		if ft.Empty() {
			continue
		}

		prev, ok := merged.Table(ft.Name)
		if !ok || prev.Empty() {
			merged.SetTable(ft.Sorted())
			continue
		}

		merged.SetTable(mergeTable(prev, ft))
	}

	if fresh.Summary != nil {
		merged.Summary = fresh.Summary
	}

	return merged
}

func mergeTable(prev, fresh Table) Table {
	withDate := prev.HasColumn(ColDate) && fresh.HasColumn(ColDate)
	withTime := withDate && prev.HasColumn(ColTime) && fresh.HasColumn(ColTime)

	combined := make([]Record, 0, len(prev.Rows)+len(fresh.Rows))
	combined = append(combined, prev.Rows...)
	combined = append(combined, fresh.Rows...)

	out := Table{
		Name:    fresh.Name,
		Columns: unionColumns(prev.Columns, fresh.Columns),
	}

	if !withDate {
		// No shared key: accumulate without dedup, keep input order.
		out.Rows = combined
		return out
	}

	// Keep-last dedup: a later row with the same key replaces the earlier
	// one in place, so the new data wins while first-seen order survives
	// until the final sort.
	index := make(map[string]int, len(combined))
	rows := make([]Record, 0, len(combined))
	for _, r := range combined {
		k := r.Key(withTime)
		if at, seen := index[k]; seen {
			rows[at] = r
			continue
		}
		index[k] = len(rows)
		rows = append(rows, r)
	}
	out.Rows = rows

	return out.Sorted()
}

func unionColumns(a, b []Column) []Column {
	out := make([]Column, 0, len(a)+len(b))
	seen := make(map[Column]bool, len(a)+len(b))
	for _, cols := range [][]Column{a, b} {
		for _, c := range cols {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}
