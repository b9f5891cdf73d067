package refcheck

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// ExportSheets writes one CSV file per sheet of the workbook at path into
// outDir, creating the directory as needed. Formula cells are exported as
// their formula text with a leading "=" so the CSVs diff meaningfully across
// revisions; plain cells export their value. Sheets with no content produce
// an empty file.
func ExportSheets(path, outDir string) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create export dir %s: %w", outDir, err)
	}

	for _, sheet := range f.GetSheetList() {
		if err := exportSheet(f, sheet, filepath.Join(outDir, sheet+".csv")); err != nil {
			return err
		}
	}

	return nil
}

func exportSheet(f *excelize.File, sheet, csvPath string) error {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	records, err := sheetRecords(f, sheet, rows)
	if err != nil {
		return err
	}

	out, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", csvPath, err)
	}

	w := csv.NewWriter(out)

	if err := w.WriteAll(records); err != nil {
		_ = out.Close()

		return fmt.Errorf("write %s: %w", csvPath, err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", csvPath, err)
	}

	return nil
}

// sheetRecords converts a sheet's rows to CSV records, swapping in formula
// text where a cell has one. Row positions are preserved so exports stay
// line-comparable across revisions; a sheet holding nothing but blanks
// exports as an empty file.
func sheetRecords(f *excelize.File, sheet string, rows [][]string) ([][]string, error) {
	records := make([][]string, 0, len(rows))
	anyContent := false

	for r, row := range rows {
		record := make([]string, len(row))

		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, fmt.Errorf("cell name (%d,%d): %w", c+1, r+1, err)
			}

			formula, err := f.GetCellFormula(sheet, cell)
			if err != nil {
				return nil, fmt.Errorf("read formula %s!%s: %w", sheet, cell, err)
			}

			if formula != "" {
				record[c] = "=" + formula
			} else {
				record[c] = value
			}

			if record[c] != "" {
				anyContent = true
			}
		}

		records = append(records, record)
	}

	if !anyContent {
		return nil, nil
	}

	return records, nil
}
