package filter

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davenull4x/applyforge/internal/config"
)

func newTestFilter(t *testing.T, cfg config.FilterConfig) *SmartFilter {
	t.Helper()
	dir := t.TempDir()
	return NewSmartFilter(cfg,
		filepath.Join(dir, "viewed.json"),
		filepath.Join(dir, "rejected.json"),
		zap.NewNop())
}

func defaultCfg() config.FilterConfig {
	return config.FilterConfig{
		RejectionThreshold:  2,
		MaxApplicants:       200,
		ViewedRetentionDays: 30,
	}
}

func TestAdmitFreshJob(t *testing.T) {
	f := newTestFilter(t, defaultCfg())
	ok, reason := f.Admit(Job{ID: "j1", Company: "Acme", ApplicantCount: 5})
	assert.True(t, ok)
	assert.Empty(t, reason)
}

func TestAdmitBlocksViewed(t *testing.T) {
	f := newTestFilter(t, defaultCfg())
	f.MarkViewed("j1")
	ok, reason := f.Admit(Job{ID: "j1"})
	assert.False(t, ok)
	assert.Equal(t, "already viewed", reason)
}

func TestAdmitRejectionThreshold(t *testing.T) {
	f := newTestFilter(t, defaultCfg())
	f.RecordRejection("Acme", "position filled")

	// One rejection is under the threshold of two.
	ok, _ := f.Admit(Job{ID: "j1", Company: "Acme"})
	assert.True(t, ok)

	f.RecordRejection("Acme", "")
	ok, reason := f.Admit(Job{ID: "j2", Company: "Acme"})
	assert.False(t, ok)
	assert.Contains(t, reason, "rejected 2 times")
}

func TestAdmitCompanyMatchIsCaseInsensitive(t *testing.T) {
	f := newTestFilter(t, defaultCfg())
	f.RecordRejection("ACME", "")
	f.RecordRejection("acme ", "")
	ok, _ := f.Admit(Job{ID: "j1", Company: "Acme"})
	assert.False(t, ok)
}

func TestAdmitApplicantCap(t *testing.T) {
	f := newTestFilter(t, defaultCfg())
	ok, reason := f.Admit(Job{ID: "j1", ApplicantCount: 201})
	assert.False(t, ok)
	assert.Contains(t, reason, "exceeds cap")

	// Exactly at the cap is allowed, and unknown counts pass.
	ok, _ = f.Admit(Job{ID: "j2", ApplicantCount: 200})
	assert.True(t, ok)
	ok, _ = f.Admit(Job{ID: "j3", ApplicantCount: -1})
	assert.True(t, ok)
}

func TestPriorityScoring(t *testing.T) {
	f := newTestFilter(t, defaultCfg())

	// 50 base, +20 few applicants, +15 posted today, +10 easy apply.
	got := f.Priority(Job{ApplicantCount: 5, DaysPosted: 0, EasyApply: true})
	assert.Equal(t, 95, got)

	// Unknowns contribute nothing.
	assert.Equal(t, 50, f.Priority(Job{ApplicantCount: -1, DaysPosted: -1}))

	// Crowded and stale postings sink.
	assert.Equal(t, 20, f.Priority(Job{ApplicantCount: 500, DaysPosted: 45}))
}

func TestPriorityRejectionPenaltyAndClamp(t *testing.T) {
	f := newTestFilter(t, config.FilterConfig{RejectionThreshold: 100})
	for i := 0; i < 30; i++ {
		f.RecordRejection("Acme", "")
	}
	// 50 base minus 150 penalty clamps at zero.
	assert.Equal(t, 0, f.Priority(Job{Company: "Acme", ApplicantCount: -1, DaysPosted: -1}))

	// Upper clamp.
	g := newTestFilter(t, defaultCfg())
	assert.LessOrEqual(t, g.Priority(Job{ApplicantCount: 1, DaysPosted: 0, EasyApply: true}), 100)
}

func TestStatePersistsAcrossReload(t *testing.T) {
	dir := t.TempDir()
	viewed := filepath.Join(dir, "viewed.json")
	rejected := filepath.Join(dir, "rejected.json")

	first := NewSmartFilter(defaultCfg(), viewed, rejected, zap.NewNop())
	first.MarkViewed("j1")
	first.RecordRejection("Acme", "ghosted")

	second := NewSmartFilter(defaultCfg(), viewed, rejected, zap.NewNop())
	ok, _ := second.Admit(Job{ID: "j1"})
	assert.False(t, ok)
	assert.Equal(t, 1, second.RejectionCount("Acme"))
}

func TestCleanupViewed(t *testing.T) {
	f := newTestFilter(t, defaultCfg())

	old := time.Now().AddDate(0, 0, -40)
	f.now = func() time.Time { return old }
	f.MarkViewed("stale")

	f.now = time.Now
	f.MarkViewed("fresh")

	require.Equal(t, 1, f.CleanupViewed())
	ok, _ := f.Admit(Job{ID: "stale"})
	assert.True(t, ok)
	ok, _ = f.Admit(Job{ID: "fresh"})
	assert.False(t, ok)
}

func TestExtractApplicantCount(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"37 applicants", 37},
		{"1 applicant", 1},
		{"Over 100 applicants", 100},
		{"Be among the first 50 applicants", 25},
		// "over" and "first" must match as whole words.
		{"Discover 20 jobs", -1},
		{"recover 5 drafts", -1},
		{"posted 3 days ago", -1},
		{"", -1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ExtractApplicantCount(tc.text), tc.text)
	}
}
