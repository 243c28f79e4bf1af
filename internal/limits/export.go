package limits

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var exportHeader = []any{
	"Date", "eRecept", "Document", "Drug", "Amount", "Copayment", "Counted to limit", "Remaining to limit", "Limit", "Pharmacy",
}

// SheetName returns the workbook sheet used for a month key.
func SheetName(month string) string {
	return "Month " + month
}

// WriteWorkbook renders grouped results as an XLSX workbook with one sheet per month.
func WriteWorkbook(w io.Writer, grouped Grouped) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	for i, month := range grouped.Months() {
		sheet := SheetName(month)
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
				return fmt.Errorf("limits: export: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("limits: export: %w", err)
		}
		if err := writeMonth(f, sheet, grouped[month]); err != nil {
			return fmt.Errorf("limits: export month %s: %w", month, err)
		}
	}

	return f.Write(w)
}

func writeMonth(f *excelize.File, sheet string, data *MonthData) error {
	line := 1
	put := func(values []any) error {
		cell, err := excelize.CoordinatesToCellName(1, line)
		if err != nil {
			return err
		}
		line++
		return f.SetSheetRow(sheet, cell, &values)
	}

	if err := put(exportHeader); err != nil {
		return err
	}
	if data == nil {
		return nil
	}
	for _, table := range data.MonthTables {
		for _, row := range table.Rows {
			if err := put([]any{
				row.Date, row.ReceiptID, row.DocumentID, row.DrugID,
				cellNumber(row.Amount), cellNumber(row.Copayment), cellNumber(row.Counted), cellNumber(row.Remaining), cellNumber(row.Limit),
				row.Pharmacy,
			}); err != nil {
				return err
			}
		}
		if table.Total != nil {
			t := table.Total
			if err := put([]any{
				table.Date, fmt.Sprintf("Total (%d)", t.Count), t.DocumentID, "",
				cellNumber(t.Amount), cellNumber(t.Copayment), cellNumber(t.Counted), cellNumber(t.Remaining), cellNumber(table.Limit),
				"",
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

func cellNumber(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
