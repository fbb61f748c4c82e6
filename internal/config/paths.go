package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths holds the resolved directories the application writes to
type Paths struct {
	DataDir    string
	ReportsDir string
	LogsDir    string
}

// ResolvePaths turns the configured directories into absolute paths rooted at base.
// An empty base resolves against the working directory.
func ResolvePaths(cfg PathsConfig, base string) (*Paths, error) {
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		base = wd
	}

	abs := func(p string) string {
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Join(base, p)
	}

	return &Paths{
		DataDir:    abs(cfg.DataDir),
		ReportsDir: abs(cfg.ReportsDir),
		LogsDir:    abs(cfg.LogsDir),
	}, nil
}

// EnsureDirectories creates every directory that does not exist yet
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.DataDir, p.ReportsDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// GetReportPath returns the full path for an exported report file
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// GetLogPath returns the full path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}
