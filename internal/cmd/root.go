// Package cmd wires the xlci command line: workbook reference checking,
// release-metadata stamping, and SOP upload for the spreadsheet publishing
// workflow.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/Johnson-Gage-Inspection-Inc/ci-scripts/internal/config"
	"github.com/Johnson-Gage-Inspection-Inc/ci-scripts/internal/outfmt"
)

// RootFlags are global flags shared by every subcommand.
type RootFlags struct {
	JSON    bool `help:"Output JSON to stdout (best for scripting)" short:"j"`
	Verbose bool `help:"Enable verbose logging" short:"v"`
}

// CLI is the top-level kong grammar.
type CLI struct {
	RootFlags `embed:""`

	Version kong.VersionFlag `help:"Print version and exit"`

	Metadata   MetadataCmd  `cmd:"" help:"Stamp commit hash and release tag into a workbook's core properties"`
	CheckRefs  CheckRefsCmd `cmd:"" name:"check-refs" help:"Scan a workbook for #REF! errors, optionally exporting sheets to CSV"`
	UploadSop  UploadSopCmd `cmd:"" name:"upload-sop" help:"Upload a workbook to a Qualer SOP"`
	VersionCmd VersionCmd   `cmd:"" name:"version" help:"Print version"`
}

// ExitError carries a process exit code alongside the underlying error.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps an error from Execute to a process exit code: 0 for nil,
// the carried code for ExitError, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}

	return 1
}

// usagef builds an exit-code-2 error for invalid invocations.
func usagef(format string, args ...any) error {
	return &ExitError{Code: 2, Err: fmt.Errorf(format, args...)}
}

// Execute parses args and runs the selected command.
func Execute(args []string) error {
	// Credentials and CI knobs may come from a local .env; load it before
	// kong resolves env-bound flags.
	if err := config.LoadDotEnv(); err != nil {
		slog.Warn("ignoring unreadable .env", "error", err)
	}

	cli := &CLI{}

	parser, err := kong.New(cli,
		kong.Name("xlci"),
		kong.Description("CI tooling for the JGI spreadsheet publishing workflow"),
		kong.UsageOnError(),
		kong.Vars{"version": VersionString()},
	)
	if err != nil {
		return err
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}

	setupLogging(cli.Verbose)

	ctx := context.Background()
	if cli.JSON {
		ctx = outfmt.WithMode(ctx, outfmt.ModeJSON)
	}

	kctx.BindTo(ctx, (*context.Context)(nil))

	return kctx.Run()
}

func setupLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
