// Package refcheck scans workbooks for broken cell references and exports
// sheet contents to CSV for diffing. Broken references surface as the
// literal "#REF!" marker inside a formula or a cached cell value, so the
// scan is a containment check over every cell of every sheet.
package refcheck

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedExtension is returned for files outside the workbook formats
// handled by the publishing workflow.
var ErrUnsupportedExtension = errors.New("unsupported workbook extension")

// supportedExtensions lists the workbook container formats accepted by the
// broader CI workflow.
var supportedExtensions = map[string]bool{
	".xlsx": true,
	".xltm": true,
	".xlsm": true,
	".xltx": true,
	".xlsb": true,
}

// SupportedExtension reports whether path carries a workbook extension the
// workflow accepts.
func SupportedExtension(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// RefError is one cell containing a broken reference.
type RefError struct {
	Sheet   string `json:"sheet"`
	Cell    string `json:"cell"`
	Formula string `json:"formula"`
}

func (e RefError) String() string {
	return fmt.Sprintf("Sheet %q, Cell %s: %s", e.Sheet, e.Cell, e.Formula)
}

// Scan opens the workbook at path and returns every cell whose formula or
// value contains "#REF!", in sheet order. A clean workbook yields an empty
// slice and nil error.
func Scan(path string) ([]RefError, error) {
	if !SupportedExtension(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedExtension, filepath.Ext(path))
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	var found []RefError

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}

		for r, row := range rows {
			for c, value := range row {
				cell, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					return nil, fmt.Errorf("cell name (%d,%d): %w", c+1, r+1, err)
				}

				formula, err := f.GetCellFormula(sheet, cell)
				if err != nil {
					return nil, fmt.Errorf("read formula %s!%s: %w", sheet, cell, err)
				}

				switch {
				case strings.Contains(formula, "#REF!"):
					found = append(found, RefError{Sheet: sheet, Cell: cell, Formula: "=" + formula})
				case strings.Contains(value, "#REF!"):
					found = append(found, RefError{Sheet: sheet, Cell: cell, Formula: value})
				}
			}
		}
	}

	return found, nil
}
