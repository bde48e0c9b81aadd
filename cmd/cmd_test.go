package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadJobs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	body := `[
		{"id": "j1", "title": "Backend Engineer", "company": "Acme",
		 "url": "https://example.com/1", "applicant_count": 12, "days_posted": 0, "easy_apply": true},
		{"id": "j2", "title": "SRE", "company": "Beta", "url": "https://example.com/2"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	jobs, err := loadJobs(path)
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	assert.Equal(t, 12, jobs[0].ApplicantCount)
	assert.True(t, jobs[0].EasyApply)

	// Absent numeric fields read as unknown, not zero.
	assert.Equal(t, -1, jobs[1].ApplicantCount)
	assert.Equal(t, -1, jobs[1].DaysPosted)
}

func TestLoadJobsMissingFile(t *testing.T) {
	_, err := loadJobs(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}

func TestLoadJobsRejectsBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	require.NoError(t, os.WriteFile(path, []byte("{not an array"), 0o644))
	_, err := loadJobs(path)
	require.Error(t, err)
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["run"])
	assert.True(t, names["stats"])
}
