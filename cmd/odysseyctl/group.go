package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-admin/internal/limits"
)

func newGroupCmd() *cobra.Command {
	var (
		xlsxPath string
		month    string
	)
	cmd := &cobra.Command{
		Use:   "group <rows.json>",
		Short: "Group raw limit rows into month and date tables",
		Long: `Reads a file holding either a JSON array of positional rows or a page
object ({"rows": [...]}) and prints the grouped months as JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := readRows(args[0])
			if err != nil {
				return err
			}
			grouped := limits.Group(rows)
			if xlsxPath != "" {
				f, err := os.Create(xlsxPath)
				if err != nil {
					return err
				}
				if err := limits.WriteWorkbook(f, grouped); err != nil {
					_ = f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %d month(s) to %s\n", len(grouped), xlsxPath)
				return nil
			}
			var out any = grouped
			if month != "" {
				data, ok := grouped[month]
				if !ok {
					return fmt.Errorf("month %s has no rows", month)
				}
				out = data
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "write an XLSX workbook instead of JSON")
	cmd.Flags().StringVar(&month, "month", "", "print a single month key (1..12)")
	return cmd
}

func readRows(path string) ([]limits.Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var page limits.Page
		if err := json.Unmarshal(data, &page); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return page.Rows, nil
	}
	var raw [][]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	rows, err := limits.DecodeRows(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}
