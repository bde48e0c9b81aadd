package preflight

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davenull4x/applyforge/internal/config"
)

func validConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	resume := filepath.Join(dir, "resume.pdf")
	require.NoError(t, os.WriteFile(resume, []byte("%PDF-1.4 test"), 0o644))
	profilePath := filepath.Join(dir, "profile.json")
	require.NoError(t, os.WriteFile(profilePath, []byte("{}"), 0o644))

	return &config.Config{
		Session: config.SessionConfig{
			ResumePath:  resume,
			SearchTerms: []string{"backend engineer"},
		},
		Profile: config.ProfileConfig{Path: profilePath},
		Storage: config.StorageConfig{DataDir: filepath.Join(dir, "data")},
		AI:      config.AIConfig{Enabled: false},
	}
}

func TestRunAllPasses(t *testing.T) {
	report := RunAll(validConfig(t), zap.NewNop())
	assert.True(t, report.OK())
	assert.NoError(t, report.Error())
}

func TestMissingResume(t *testing.T) {
	cfg := validConfig(t)
	cfg.Session.ResumePath = filepath.Join(t.TempDir(), "absent.pdf")

	report := RunAll(cfg, zap.NewNop())
	require.False(t, report.OK())
	assert.Contains(t, report.Error().Error(), "resume not found")
}

func TestEmptyResume(t *testing.T) {
	cfg := validConfig(t)
	empty := filepath.Join(t.TempDir(), "resume.pdf")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	cfg.Session.ResumePath = empty

	report := RunAll(cfg, zap.NewNop())
	assert.Contains(t, report.Error().Error(), "empty")
}

func TestWrongResumeExtension(t *testing.T) {
	cfg := validConfig(t)
	txt := filepath.Join(t.TempDir(), "resume.txt")
	require.NoError(t, os.WriteFile(txt, []byte("plain text"), 0o644))
	cfg.Session.ResumePath = txt

	report := RunAll(cfg, zap.NewNop())
	assert.Contains(t, report.Error().Error(), ".pdf or .docx")
}

func TestNoSearchTerms(t *testing.T) {
	cfg := validConfig(t)
	cfg.Session.SearchTerms = []string{"  "}

	report := RunAll(cfg, zap.NewNop())
	assert.Contains(t, report.Error().Error(), "no search terms")
}

func TestAIEnabledWithoutKey(t *testing.T) {
	cfg := validConfig(t)
	cfg.AI = config.AIConfig{Enabled: true, Model: "gemini-2.5-flash"}

	report := RunAll(cfg, zap.NewNop())
	assert.Contains(t, report.Error().Error(), "no api key")
}

func TestAIDisabledSkipsCredentialCheck(t *testing.T) {
	cfg := validConfig(t)
	cfg.AI = config.AIConfig{Enabled: false}
	assert.True(t, RunAll(cfg, zap.NewNop()).OK())
}

func TestReportCollectsAllFailures(t *testing.T) {
	cfg := validConfig(t)
	cfg.Session.ResumePath = ""
	cfg.Session.SearchTerms = nil

	report := RunAll(cfg, zap.NewNop())
	assert.Len(t, report.Failures, 2)
}
