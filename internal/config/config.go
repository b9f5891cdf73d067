// Package config resolves settings for the CI scripts: an optional YAML
// settings file under the user config directory plus environment variables,
// with .env support for local runs.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const AppName = "xlci"

// DefaultSOPID is the SOP the publishing workflow attaches workbooks to
// unless overridden by settings or flags.
const DefaultSOPID = 2351

// Settings is the YAML settings file shape.
type Settings struct {
	Qualer QualerSettings `yaml:"qualer"`
}

// QualerSettings configures the upload target.
type QualerSettings struct {
	BaseURL string `yaml:"base_url"`
	SOPID   int    `yaml:"sop_id"`
}

// Dir returns the per-user config directory for xlci.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(base, AppName), nil
}

// SettingsPath returns the YAML settings file path.
func SettingsPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the settings file if present and fills defaults. A missing file
// is not an error; CI environments usually configure everything through
// flags and environment variables.
func Load() (*Settings, error) {
	path, err := SettingsPath()
	if err != nil {
		return nil, err
	}

	return loadFrom(path)
}

func loadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if s.Qualer.SOPID == 0 {
		s.Qualer.SOPID = DefaultSOPID
	}

	return s, nil
}

// LoadDotEnv loads a .env file from the working directory into the process
// environment when one exists. Variables already set in the environment win.
func LoadDotEnv() error {
	if _, err := os.Stat(".env"); os.IsNotExist(err) {
		return nil
	}

	if err := godotenv.Load(); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}

	return nil
}
