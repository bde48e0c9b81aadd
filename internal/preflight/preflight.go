// Package preflight validates the environment before a session starts, so
// misconfiguration surfaces as one readable report instead of a mid-run
// failure.
package preflight

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/davenull4x/applyforge/internal/config"
)

// maxResumeSize is the upload ceiling most platforms enforce.
const maxResumeSize = 5 << 20

// Check is one named validation.
type Check struct {
	Name string
	Run  func() error
}

// Report collects the failures from a full preflight pass.
type Report struct {
	Failures []string
}

// OK reports whether every check passed.
func (r *Report) OK() bool { return len(r.Failures) == 0 }

// Error renders the report as one error, nil when all checks passed.
func (r *Report) Error() error {
	if r.OK() {
		return nil
	}
	return fmt.Errorf("preflight failed: %s", strings.Join(r.Failures, "; "))
}

// Checks builds the standard validation list for cfg.
func Checks(cfg *config.Config) []Check {
	return []Check{
		{"resume", func() error { return checkResume(cfg.Session.ResumePath) }},
		{"profile", func() error { return checkFile(cfg.Profile.Path, "profile") }},
		{"search terms", func() error { return checkSearchTerms(cfg.Session.SearchTerms) }},
		{"ai credentials", func() error { return checkAI(cfg.AI) }},
		{"data directory", func() error { return checkDataDir(cfg.Storage.DataDir) }},
	}
}

// RunAll executes every check and returns the combined report.
func RunAll(cfg *config.Config, logger *zap.Logger) *Report {
	log := logger.Named("preflight")
	report := &Report{}
	for _, c := range Checks(cfg) {
		if err := c.Run(); err != nil {
			log.Warn("Preflight check failed", zap.String("check", c.Name), zap.Error(err))
			report.Failures = append(report.Failures, fmt.Sprintf("%s: %v", c.Name, err))
			continue
		}
		log.Debug("Preflight check passed", zap.String("check", c.Name))
	}
	return report
}

func checkResume(path string) error {
	if path == "" {
		return fmt.Errorf("no resume path configured")
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("resume not found at %s", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("resume file is empty")
	}
	if info.Size() > maxResumeSize {
		return fmt.Errorf("resume is %d bytes, over the %d byte upload limit", info.Size(), maxResumeSize)
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".pdf" && ext != ".docx" {
		return fmt.Errorf("resume must be .pdf or .docx, got %q", ext)
	}
	return nil
}

func checkFile(path, what string) error {
	if path == "" {
		return fmt.Errorf("no %s path configured", what)
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%s not found at %s", what, path)
	}
	return nil
}

func checkSearchTerms(terms []string) error {
	for _, t := range terms {
		if strings.TrimSpace(t) != "" {
			return nil
		}
	}
	return fmt.Errorf("no search terms configured")
}

func checkAI(cfg config.AIConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("ai enabled but no api key set")
	}
	if cfg.Model == "" {
		return fmt.Errorf("ai enabled but no model configured")
	}
	return nil
}

func checkDataDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("no data directory configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("data directory not writable: %w", err)
	}
	probe := filepath.Join(dir, ".write_probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return fmt.Errorf("data directory not writable: %w", err)
	}
	return os.Remove(probe)
}
