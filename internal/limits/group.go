package limits

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
)

// Total summarises a date with more than one dispensing row.
type Total struct {
	DocumentID string
	Count      int
	Amount     decimal.Decimal
	Copayment  decimal.Decimal
	Counted    decimal.Decimal
	Remaining  decimal.Decimal
}

// MarshalJSON encodes the total as [docID, count, amount, copayment, counted, remaining].
func (t Total) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{t.DocumentID, t.Count, number(t.Amount), number(t.Copayment), number(t.Counted), number(t.Remaining)})
}

// DateTable holds the rows dispensed on one date.
type DateTable struct {
	Date    string          `json:"date"`
	ERecept string          `json:"eRecept"`
	Limit   decimal.Decimal `json:"limit"`
	Total   *Total          `json:"total"`
	Rows    []Row           `json:"rows"`
}

// MarshalJSON writes the limit as a JSON number.
func (d DateTable) MarshalJSON() ([]byte, error) {
	type alias DateTable
	return json.Marshal(struct {
		alias
		Limit json.Number `json:"limit"`
	}{alias(d), number(d.Limit)})
}

// MonthData holds the date tables of one month, newest date first.
type MonthData struct {
	MonthLimit       decimal.Decimal     `json:"monthLimit"`
	BeforeMonthLimit decimal.NullDecimal `json:"beforeMonthLimit"`
	MonthTables      []DateTable         `json:"monthTables"`
}

// MarshalJSON writes the limits as JSON numbers, null when there is no earlier month.
func (m MonthData) MarshalJSON() ([]byte, error) {
	type alias MonthData
	out := struct {
		alias
		MonthLimit       json.Number  `json:"monthLimit"`
		BeforeMonthLimit *json.Number `json:"beforeMonthLimit"`
	}{alias: alias(m), MonthLimit: number(m.MonthLimit)}
	if m.BeforeMonthLimit.Valid {
		before := number(m.BeforeMonthLimit.Decimal)
		out.BeforeMonthLimit = &before
	}
	return json.Marshal(out)
}

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// Grouped maps a month key ("1".."12") to its data.
type Grouped map[string]*MonthData

// Months returns the month keys in ascending numeric order.
func (g Grouped) Months() []string {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return monthNumber(keys[i]) < monthNumber(keys[j])
	})
	return keys
}

// Group reshapes flat rows into month -> date tables with per-date totals and carried limits.
func Group(rows []Row) Grouped {
	byMonth := make(map[string]map[string][]Row)
	for _, row := range rows {
		month := row.MonthKey()
		dates, ok := byMonth[month]
		if !ok {
			dates = make(map[string][]Row)
			byMonth[month] = dates
		}
		dates[row.Date] = append(dates[row.Date], row)
	}

	grouped := make(Grouped, len(byMonth))
	for month, dates := range byMonth {
		tables := make([]DateTable, 0, len(dates))
		for date, bucket := range dates {
			tables = append(tables, newDateTable(date, bucket))
		}
		sort.Slice(tables, func(i, j int) bool {
			return tables[i].Date > tables[j].Date
		})
		grouped[month] = &MonthData{
			MonthLimit:  tables[0].Limit,
			MonthTables: tables,
		}
	}

	var previous *MonthData
	for _, month := range grouped.Months() {
		data := grouped[month]
		if previous != nil {
			data.BeforeMonthLimit = decimal.NewNullDecimal(previous.MonthLimit)
		}
		previous = data
	}
	return grouped
}

func newDateTable(date string, bucket []Row) DateTable {
	// first row wins ties on the remaining amount
	rep := bucket[0]
	for _, row := range bucket[1:] {
		if row.Remaining.LessThan(rep.Remaining) {
			rep = row
		}
	}

	table := DateTable{
		Date:    date,
		ERecept: bucket[0].ReceiptID,
		Limit:   rep.Limit,
		Rows:    bucket,
	}
	if len(bucket) > 1 {
		total := &Total{DocumentID: rep.DocumentID, Count: len(bucket), Remaining: rep.Remaining}
		for _, row := range bucket {
			total.Amount = total.Amount.Add(row.Amount)
			total.Copayment = total.Copayment.Add(row.Copayment)
			total.Counted = total.Counted.Add(row.Counted)
		}
		table.Total = total
	}
	return table
}

func monthNumber(key string) int {
	n, err := strconv.Atoi(key)
	if err != nil {
		return 0
	}
	return n
}
