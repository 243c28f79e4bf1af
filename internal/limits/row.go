package limits

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Positions of the cells in a KDP result row.
const (
	colRecordID = iota
	colReceiptID
	colDocumentID
	colDrugID
	colAmount
	colCopayment
	colCounted
	colRemaining
	colLimit
	colDate
	colCreatedAt
	colChangedAt
	colPharmacy
	colPharmacyAddress

	rowWidth = colPharmacyAddress + 1
)

const minRowWidth = colDate + 1

// Row is one dispensing event counted against the insured person's copayment limit.
type Row struct {
	RecordID        string
	ReceiptID       string
	DocumentID      string
	DrugID          string
	Amount          decimal.Decimal
	Copayment       decimal.Decimal
	Counted         decimal.Decimal
	Remaining       decimal.Decimal
	Limit           decimal.Decimal
	Date            string
	CreatedAt       string
	ChangedAt       string
	Pharmacy        string
	PharmacyAddress string

	cells []json.RawMessage
}

// MonthKey returns the month of the row date without a leading zero ("1".."12").
func (r Row) MonthKey() string {
	return strings.TrimLeft(r.Date[5:7], "0")
}

// MarshalJSON emits the positional array the row was decoded from. Rows built
// in code are rendered from their typed fields.
func (r Row) MarshalJSON() ([]byte, error) {
	if r.cells != nil {
		return json.Marshal(r.cells)
	}
	cells := [rowWidth]string{
		colRecordID:        r.RecordID,
		colReceiptID:       r.ReceiptID,
		colDocumentID:      r.DocumentID,
		colDrugID:          r.DrugID,
		colAmount:          r.Amount.String(),
		colCopayment:       r.Copayment.String(),
		colCounted:         r.Counted.String(),
		colRemaining:       r.Remaining.String(),
		colLimit:           r.Limit.String(),
		colDate:            r.Date,
		colCreatedAt:       r.CreatedAt,
		colChangedAt:       r.ChangedAt,
		colPharmacy:        r.Pharmacy,
		colPharmacyAddress: r.PharmacyAddress,
	}
	return json.Marshal(cells)
}

// UnmarshalJSON decodes a positional array of strings and numbers.
func (r *Row) UnmarshalJSON(data []byte) error {
	var cells []json.RawMessage
	if err := json.Unmarshal(data, &cells); err != nil {
		return fmt.Errorf("limits: row is not an array: %w", err)
	}
	row, err := DecodeRow(cells)
	if err != nil {
		return err
	}
	*r = row
	return nil
}

// DecodeRows converts raw API rows into typed rows, failing on the first malformed one.
func DecodeRows(raw [][]json.RawMessage) ([]Row, error) {
	rows := make([]Row, 0, len(raw))
	for i, cells := range raw {
		row, err := DecodeRow(cells)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// DecodeRow converts one positional row.
func DecodeRow(cells []json.RawMessage) (Row, error) {
	if len(cells) < minRowWidth {
		return Row{}, fmt.Errorf("limits: row has %d cells, need at least %d", len(cells), minRowWidth)
	}
	var (
		row Row
		err error
	)
	text := func(pos int) string {
		if err != nil || pos >= len(cells) {
			return ""
		}
		var s string
		s, err = cellString(cells[pos])
		if err != nil {
			err = fmt.Errorf("limits: cell %d: %w", pos, err)
		}
		return s
	}
	amount := func(pos int) decimal.Decimal {
		s := text(pos)
		if err != nil || s == "" {
			return decimal.Zero
		}
		d, perr := decimal.NewFromString(s)
		if perr != nil {
			err = fmt.Errorf("limits: cell %d: %w", pos, perr)
		}
		return d
	}

	row.RecordID = text(colRecordID)
	row.ReceiptID = text(colReceiptID)
	row.DocumentID = text(colDocumentID)
	row.DrugID = text(colDrugID)
	row.Amount = amount(colAmount)
	row.Copayment = amount(colCopayment)
	row.Counted = amount(colCounted)
	row.Remaining = amount(colRemaining)
	row.Limit = amount(colLimit)
	row.Date = text(colDate)
	row.CreatedAt = text(colCreatedAt)
	row.ChangedAt = text(colChangedAt)
	row.Pharmacy = text(colPharmacy)
	row.PharmacyAddress = text(colPharmacyAddress)
	if err != nil {
		return Row{}, err
	}

	if len(row.Date) < len(time.DateOnly) {
		return Row{}, fmt.Errorf("limits: invalid date %q", row.Date)
	}
	if _, perr := time.Parse(time.DateOnly, row.Date[:len(time.DateOnly)]); perr != nil {
		return Row{}, fmt.Errorf("limits: invalid date %q: %w", row.Date, perr)
	}
	row.cells = make([]json.RawMessage, len(cells))
	for i, cell := range cells {
		row.cells[i] = append(json.RawMessage(nil), cell...)
	}
	return row, nil
}

func cellString(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) == 0, bytes.Equal(trimmed, []byte("null")):
		return "", nil
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	default:
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return "", fmt.Errorf("unsupported cell %s", trimmed)
		}
		if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
			return "", err
		}
		return n.String(), nil
	}
}
