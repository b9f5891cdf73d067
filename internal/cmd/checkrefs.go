package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Johnson-Gage-Inspection-Inc/ci-scripts/internal/outfmt"
	"github.com/Johnson-Gage-Inspection-Inc/ci-scripts/internal/refcheck"
)

// CheckRefsCmd scans a workbook for broken cell references and optionally
// exports every sheet to CSV with formulas preserved, for diffing in review.
type CheckRefsCmd struct {
	File      string `arg:"" optional:"" env:"EXCEL_FILE" help:"Workbook to scan"`
	Export    bool   `env:"EXPORT_SHEETS" help:"Export sheets with formulas to CSV after a clean scan"`
	ExportDir string `name:"export-dir" default:"exploded" help:"Root directory for exported sheets"`
}

var errBrokenReferences = errors.New("broken references found")

// Run executes the check-refs command.
func (c *CheckRefsCmd) Run(ctx context.Context) error {
	if c.File == "" {
		return usagef("no workbook specified: pass a file argument or set EXCEL_FILE")
	}

	if _, err := os.Stat(c.File); err != nil {
		return usagef("workbook not found: %s", c.File)
	}

	if !refcheck.SupportedExtension(c.File) {
		return usagef("unsupported file type: %s", filepath.Ext(c.File))
	}

	found, err := refcheck.Scan(c.File)
	if err != nil {
		return fmt.Errorf("scan workbook: %w", err)
	}

	if outfmt.IsJSON(ctx) {
		if err := outfmt.WriteJSON(os.Stdout, map[string]any{
			"file":   c.File,
			"count":  len(found),
			"errors": found,
		}); err != nil {
			return err
		}
	} else {
		printScanResult(c.File, found)
	}

	if len(found) > 0 {
		return &ExitError{Code: 1, Err: errBrokenReferences}
	}

	if c.Export {
		c.exportSheets()
	}

	return nil
}

func printScanResult(file string, found []refcheck.RefError) {
	if len(found) == 0 {
		fmt.Printf("No #REF! errors found in %s\n", filepath.Base(file))

		return
	}

	fmt.Printf("Found %d #REF! errors in %s:\n", len(found), filepath.Base(file))

	for _, re := range found {
		fmt.Printf("  - %s\n", re)
	}

	fmt.Println("Fix broken references before merging.")
}

// exportSheets replaces any previous export tree for this workbook and
// writes fresh per-sheet CSVs. Export failure is a warning, not a scan
// failure — the reference check already passed.
func (c *CheckRefsCmd) exportSheets() {
	stem := strings.TrimSuffix(filepath.Base(c.File), filepath.Ext(c.File))
	sheetsDir := filepath.Join(c.ExportDir, stem, "sheets")

	if err := os.RemoveAll(c.ExportDir); err != nil {
		slog.Warn("could not clear previous export", "dir", c.ExportDir, "error", err)
	}

	if err := refcheck.ExportSheets(c.File, sheetsDir); err != nil {
		slog.Warn("sheet export failed", "error", err)

		return
	}

	fmt.Printf("Sheets exported to %s\n", sheetsDir)
}
