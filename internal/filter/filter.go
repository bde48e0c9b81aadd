// Package filter decides which job postings are worth a session's time and
// orders them by expected value.
package filter

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/davenull4x/applyforge/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Job is one posting under consideration. ApplicantCount and DaysPosted use
// -1 when the listing did not expose the value.
type Job struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Company        string `json:"company"`
	URL            string `json:"url"`
	ApplicantCount int    `json:"applicant_count"`
	DaysPosted     int    `json:"days_posted"`
	EasyApply      bool   `json:"easy_apply"`
}

// rejectionRecord tracks a company's history of turning the applicant down.
type rejectionRecord struct {
	Count   int       `json:"rejection_count"`
	Reasons []string  `json:"reasons,omitempty"`
	First   time.Time `json:"first_rejection"`
	Last    time.Time `json:"last_rejection"`
}

type viewedRecord struct {
	SeenAt time.Time `json:"seen_at"`
}

// SmartFilter admits, scores, and deduplicates postings. All state persists
// across sessions in two JSON files.
type SmartFilter struct {
	mu           sync.Mutex
	cfg          config.FilterConfig
	viewedPath   string
	rejectedPath string
	viewed       map[string]viewedRecord
	rejected     map[string]rejectionRecord
	log          *zap.Logger
	now          func() time.Time
}

// NewSmartFilter loads persisted state, starting from empty for any file
// that is missing or corrupt.
func NewSmartFilter(cfg config.FilterConfig, viewedPath, rejectedPath string, logger *zap.Logger) *SmartFilter {
	f := &SmartFilter{
		cfg:          cfg,
		viewedPath:   viewedPath,
		rejectedPath: rejectedPath,
		viewed:       map[string]viewedRecord{},
		rejected:     map[string]rejectionRecord{},
		log:          logger.Named("filter"),
		now:          time.Now,
	}
	loadJSON(viewedPath, &f.viewed, f.log)
	loadJSON(rejectedPath, &f.rejected, f.log)
	return f
}

func loadJSON[T any](path string, into *T, log *zap.Logger) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("State file unreadable, starting empty", zap.String("path", path), zap.Error(err))
		}
		return
	}
	if err := json.Unmarshal(raw, into); err != nil {
		log.Warn("State file corrupt, starting empty", zap.String("path", path), zap.Error(err))
	}
}

// Admit reports whether the job clears every gate: not previously viewed,
// company rejections under the threshold, applicant count within bounds.
// A blocked job gets a short reason for the session log.
func (f *SmartFilter) Admit(job Job) (bool, string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, seen := f.viewed[job.ID]; seen {
		return false, "already viewed"
	}
	if rec, ok := f.rejected[normalizeCompany(job.Company)]; ok && rec.Count >= f.cfg.RejectionThreshold {
		return false, fmt.Sprintf("company rejected %d times", rec.Count)
	}
	if f.cfg.MaxApplicants > 0 && job.ApplicantCount > f.cfg.MaxApplicants {
		return false, fmt.Sprintf("%d applicants exceeds cap", job.ApplicantCount)
	}
	return true, ""
}

// Priority scores a job on a 0 to 100 scale. Higher is applied to first.
func (f *SmartFilter) Priority(job Job) int {
	score := 50

	switch {
	case job.ApplicantCount < 0:
		// Unknown count contributes nothing.
	case job.ApplicantCount < 10:
		score += 20
	case job.ApplicantCount < 50:
		score += 10
	case job.ApplicantCount > 200:
		score -= 20
	}

	switch {
	case job.DaysPosted < 0:
		// Unknown age contributes nothing.
	case job.DaysPosted == 0:
		score += 15
	case job.DaysPosted <= 2:
		score += 10
	case job.DaysPosted <= 7:
		score += 5
	case job.DaysPosted > 30:
		score -= 10
	}

	if job.EasyApply {
		score += 10
	}

	f.mu.Lock()
	if rec, ok := f.rejected[normalizeCompany(job.Company)]; ok {
		score -= 5 * rec.Count
	}
	f.mu.Unlock()

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// MarkViewed records that the job was visited, persisting immediately.
func (f *SmartFilter) MarkViewed(jobID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.viewed[jobID] = viewedRecord{SeenAt: f.now()}
	f.flushViewedLocked()
}

// RecordRejection notes one more rejection from company, with an optional
// free-text reason.
func (f *SmartFilter) RecordRejection(company, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := normalizeCompany(company)
	rec := f.rejected[key]
	if rec.Count == 0 {
		rec.First = f.now()
	}
	rec.Count++
	rec.Last = f.now()
	if reason != "" {
		rec.Reasons = append(rec.Reasons, reason)
	}
	f.rejected[key] = rec

	if err := writeJSON(f.rejectedPath, f.rejected); err != nil {
		f.log.Warn("Could not persist rejection table", zap.Error(err))
	}
}

// RejectionCount returns how many times company has rejected the applicant.
func (f *SmartFilter) RejectionCount(company string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rejected[normalizeCompany(company)].Count
}

// CleanupViewed drops viewed records older than the retention window and
// returns how many were removed.
func (f *SmartFilter) CleanupViewed() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cfg.ViewedRetentionDays <= 0 {
		return 0
	}
	cutoff := f.now().AddDate(0, 0, -f.cfg.ViewedRetentionDays)
	dropped := 0
	for id, rec := range f.viewed {
		if rec.SeenAt.Before(cutoff) {
			delete(f.viewed, id)
			dropped++
		}
	}
	if dropped > 0 {
		f.flushViewedLocked()
	}
	return dropped
}

func (f *SmartFilter) flushViewedLocked() {
	if err := writeJSON(f.viewedPath, f.viewed); err != nil {
		f.log.Warn("Could not persist viewed set", zap.Error(err))
	}
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

func normalizeCompany(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

var (
	applicantsRe = regexp.MustCompile(`(?i)(\d+)\s+applicants?`)
	overRe       = regexp.MustCompile(`(?i)\bover\s+(\d+)`)
	firstRe      = regexp.MustCompile(`(?i)\bfirst\s+(\d+)`)
)

// ExtractApplicantCount parses the applicant figure out of a listing's
// competition text. Returns -1 when nothing recognizable is present.
// "Be among the first N" means fewer than N have applied, so it reads as
// N/2 rather than N.
func ExtractApplicantCount(text string) int {
	if m := overRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	if m := firstRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n / 2
		}
	}
	if m := applicantsRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return -1
}
