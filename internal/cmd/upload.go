package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/Johnson-Gage-Inspection-Inc/ci-scripts/internal/config"
	"github.com/Johnson-Gage-Inspection-Inc/ci-scripts/internal/outfmt"
	"github.com/Johnson-Gage-Inspection-Inc/ci-scripts/internal/qualer"
)

// UploadSopCmd uploads a workbook to a Qualer SOP using the web session
// flow. Credentials come from QUALER_EMAIL / QUALER_PASSWORD (a local .env
// is honored); the password is prompted for interactively when absent and
// stdin is a terminal.
type UploadSopCmd struct {
	File     string `arg:"" help:"Workbook to attach to the SOP"`
	SopID    int    `name:"sop-id" help:"Target SOP id (defaults from settings)"`
	BaseURL  string `name:"base-url" help:"Qualer instance URL (defaults from settings)"`
	Email    string `env:"QUALER_EMAIL" help:"Qualer account email"`
	Password string `env:"QUALER_PASSWORD" help:"Qualer account password"`
}

// Run executes the upload-sop command.
func (c *UploadSopCmd) Run(ctx context.Context) error {
	if _, err := os.Stat(c.File); err != nil {
		return usagef("file not found: %s", c.File)
	}

	if c.Email == "" {
		return usagef("missing credentials: set QUALER_EMAIL (and QUALER_PASSWORD) or provide a .env file")
	}

	password, err := c.resolvePassword()
	if err != nil {
		return err
	}

	settings, err := config.Load()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	baseURL := c.BaseURL
	if baseURL == "" {
		baseURL = settings.Qualer.BaseURL
	}

	sopID := c.SopID
	if sopID == 0 {
		sopID = settings.Qualer.SOPID
	}

	client, err := qualer.New(baseURL)
	if err != nil {
		return err
	}

	slog.Debug("logging in to Qualer", "email", c.Email, "base_url", client.BaseURL)

	if err := client.Login(ctx, c.Email, password); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	slog.Debug("uploading SOP file", "sop_id", sopID, "file", c.File)

	result, err := client.UploadSOP(ctx, sopID, c.File)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}

	if outfmt.IsJSON(ctx) {
		return outfmt.WriteJSON(os.Stdout, map[string]any{
			"file":    c.File,
			"sopId":   sopID,
			"success": result.Success,
		})
	}

	fmt.Printf("Uploaded %s to SOP %d\n", c.File, sopID)

	return nil
}

// resolvePassword falls back to an interactive prompt when the environment
// does not provide a password and stdin is a terminal.
func (c *UploadSopCmd) resolvePassword() (string, error) {
	if c.Password != "" {
		return c.Password, nil
	}

	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", usagef("missing credentials: set QUALER_PASSWORD or provide a .env file")
	}

	fmt.Fprintf(os.Stderr, "Qualer password for %s: ", c.Email)

	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)

	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	password := strings.TrimSpace(string(raw))
	if password == "" {
		return "", usagef("empty password")
	}

	return password, nil
}
