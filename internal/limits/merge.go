package limits

// Merge appends a further page of grouped results onto what is already shown.
// Months present on both sides keep the current month's limits and gain the incoming
// date tables; a date already shown wins over the incoming one. Tables are not re-sorted.
func Merge(current, incoming Grouped) Grouped {
	merged := make(Grouped, len(current)+len(incoming))
	for month, data := range current {
		merged[month] = data.clone()
	}
	for month, data := range incoming {
		existing := merged[month]
		if existing != nil && data != nil && existing.MonthTables != nil && data.MonthTables != nil {
			tables := make([]DateTable, 0, len(existing.MonthTables)+len(data.MonthTables))
			tables = append(tables, existing.MonthTables...)
			tables = append(tables, data.MonthTables...)
			existing.MonthTables = uniqueDates(tables)
			continue
		}
		merged[month] = data.clone()
	}
	return merged
}

func uniqueDates(tables []DateTable) []DateTable {
	seen := make(map[string]struct{}, len(tables))
	out := tables[:0]
	for _, table := range tables {
		if _, ok := seen[table.Date]; ok {
			continue
		}
		seen[table.Date] = struct{}{}
		out = append(out, table)
	}
	return out
}

func (m *MonthData) clone() *MonthData {
	if m == nil {
		return nil
	}
	out := *m
	if m.MonthTables != nil {
		out.MonthTables = make([]DateTable, len(m.MonthTables))
		copy(out.MonthTables, m.MonthTables)
	}
	return &out
}
