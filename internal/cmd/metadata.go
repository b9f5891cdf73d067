package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Johnson-Gage-Inspection-Inc/ci-scripts/internal/opc"
	"github.com/Johnson-Gage-Inspection-Inc/ci-scripts/internal/outfmt"
)

// MetadataCmd stamps release metadata into a workbook package in place:
// the release tag into cp:version and the commit hash into cp:keywords.
type MetadataCmd struct {
	File   string `arg:"" optional:"" env:"EXCEL_FILE" help:"Workbook package to stamp (.xlsx, .xlsm, ...)"`
	Commit string `env:"COMMIT_HASH" help:"Commit identifier written to the keywords property"`
	Tag    string `env:"RELEASE_TAG" help:"Release tag written to the version property"`
}

// Run executes the metadata command.
func (c *MetadataCmd) Run(ctx context.Context) error {
	if c.File == "" {
		return usagef("no workbook specified: pass a file argument or set EXCEL_FILE")
	}

	if _, err := os.Stat(c.File); err != nil {
		return usagef("workbook not found: %s", c.File)
	}

	slog.Debug("stamping release metadata", "file", c.File, "tag", c.Tag, "commit", c.Commit)

	if err := opc.AssignMetadata(c.File, c.Commit, c.Tag); err != nil {
		return fmt.Errorf("assign metadata: %w", err)
	}

	if outfmt.IsJSON(ctx) {
		return outfmt.WriteJSON(os.Stdout, map[string]string{
			"file":    c.File,
			"version": c.Tag,
			"commit":  c.Commit,
		})
	}

	fmt.Printf("Updated %s: version=%s keywords=%s\n", c.File, c.Tag, c.Commit)

	return nil
}
