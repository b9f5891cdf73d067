package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Johnson-Gage-Inspection-Inc/ci-scripts/internal/outfmt"
)

// Overridden at build time via -ldflags.
var (
	version = "0.3.0-dev"
	commit  = ""
	date    = ""
)

func VersionString() string {
	v := strings.TrimSpace(version)

	metadata := make([]string, 0, 2)
	if c := strings.TrimSpace(commit); c != "" {
		metadata = append(metadata, c)
	}

	if d := strings.TrimSpace(date); d != "" {
		metadata = append(metadata, d)
	}

	if len(metadata) == 0 {
		return "xlci " + v
	}

	return fmt.Sprintf("xlci %s (%s)", v, strings.Join(metadata, " "))
}

type VersionCmd struct{}

func (c *VersionCmd) Run(ctx context.Context) error {
	if outfmt.IsJSON(ctx) {
		return outfmt.WriteJSON(os.Stdout, map[string]string{
			"version": strings.TrimSpace(version),
			"commit":  strings.TrimSpace(commit),
			"date":    strings.TrimSpace(date),
		})
	}

	fmt.Fprintln(os.Stdout, VersionString())

	return nil
}
