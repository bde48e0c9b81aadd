// Package outcome records what happened to every application attempt and
// aggregates the history into actionable summaries.
package outcome

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/davenull4x/applyforge/internal/ats"
	"github.com/davenull4x/applyforge/internal/fill"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Application is one attempt's permanent record.
type Application struct {
	JobID      string       `json:"job_id"`
	Title      string       `json:"title"`
	Company    string       `json:"company"`
	URL        string       `json:"url"`
	Platform   ats.Platform `json:"platform"`
	State      fill.State   `json:"state"`
	Verified   bool         `json:"verified"`
	TimeFilter string       `json:"time_filter,omitempty"`
	Timestamp  time.Time    `json:"timestamp"`
}

// Submitted reports whether the attempt reached submission.
func (a Application) Submitted() bool {
	return a.State == fill.StateSubmitted
}

// Summary is the aggregate view over a window of history.
type Summary struct {
	Total       int                  `json:"total"`
	Submitted   int                  `json:"submitted"`
	Verified    int                  `json:"verified"`
	Manual      int                  `json:"manual_required"`
	Failed      int                  `json:"failed"`
	SuccessRate float64              `json:"success_rate"`
	ByDay       map[string]int       `json:"by_day"`
	ByPlatform  map[ats.Platform]int `json:"by_platform"`
	ByCompany   map[string]int       `json:"by_company"`
}

// Analytics is the append-only application log with aggregate queries.
// State persists as one JSON array.
type Analytics struct {
	mu      sync.Mutex
	path    string
	records []Application
	log     *zap.Logger
	now     func() time.Time
}

// NewAnalytics loads the history at path, starting empty when the file is
// missing or corrupt.
func NewAnalytics(path string, logger *zap.Logger) *Analytics {
	a := &Analytics{path: path, log: logger.Named("analytics"), now: time.Now}
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			a.log.Warn("History unreadable, starting empty", zap.String("path", path), zap.Error(err))
		}
		return a
	}
	if err := json.Unmarshal(raw, &a.records); err != nil {
		a.log.Warn("History corrupt, starting empty", zap.String("path", path), zap.Error(err))
		a.records = nil
	}
	return a
}

// Record appends one attempt and flushes to disk. A zero Timestamp is
// stamped with the current time.
func (a *Analytics) Record(app Application) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if app.Timestamp.IsZero() {
		app.Timestamp = a.now()
	}
	a.records = append(a.records, app)
	if err := a.flushLocked(); err != nil {
		a.log.Warn("Could not persist application history", zap.Error(err))
	}
}

// SuccessRate is the fraction of all recorded attempts that submitted.
func (a *Analytics) SuccessRate() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.records) == 0 {
		return 0
	}
	submitted := 0
	for _, r := range a.records {
		if r.Submitted() {
			submitted++
		}
	}
	return float64(submitted) / float64(len(a.records))
}

// Summarize aggregates the last days of history. days <= 0 means all time.
func (a *Analytics) Summarize(days int) Summary {
	a.mu.Lock()
	defer a.mu.Unlock()

	var cutoff time.Time
	if days > 0 {
		cutoff = a.now().AddDate(0, 0, -days)
	}

	s := Summary{
		ByDay:      map[string]int{},
		ByPlatform: map[ats.Platform]int{},
		ByCompany:  map[string]int{},
	}
	for _, r := range a.records {
		if !cutoff.IsZero() && r.Timestamp.Before(cutoff) {
			continue
		}
		s.Total++
		s.ByDay[r.Timestamp.Format("2006-01-02")]++
		s.ByPlatform[r.Platform]++
		s.ByCompany[r.Company]++
		switch r.State {
		case fill.StateSubmitted:
			s.Submitted++
			if r.Verified {
				s.Verified++
			}
		case fill.StateManualRequired:
			s.Manual++
		case fill.StateFailed:
			s.Failed++
		}
	}
	if s.Total > 0 {
		s.SuccessRate = float64(s.Submitted) / float64(s.Total)
	}
	return s
}

// BestTimeFilter returns the search time filter with the highest submission
// rate, for tuning future searches. Empty when no attempt carried one.
func (a *Analytics) BestTimeFilter() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	totals := map[string]int{}
	wins := map[string]int{}
	for _, r := range a.records {
		if r.TimeFilter == "" {
			continue
		}
		totals[r.TimeFilter]++
		if r.Submitted() {
			wins[r.TimeFilter]++
		}
	}

	best, bestRate := "", -1.0
	keys := make([]string, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rate := float64(wins[k]) / float64(totals[k])
		if rate > bestRate {
			best, bestRate = k, rate
		}
	}
	return best
}

// TopCompanies lists the n companies with the most attempts, most first.
func (a *Analytics) TopCompanies(n int) []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	counts := map[string]int{}
	for _, r := range a.records {
		if r.Company != "" {
			counts[r.Company]++
		}
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	if n < len(names) {
		names = names[:n]
	}
	return names
}

// Prune drops records older than the retention window and returns how many
// were removed.
func (a *Analytics) Prune(retention time.Duration) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	cutoff := a.now().Add(-retention)
	kept := a.records[:0]
	dropped := 0
	for _, r := range a.records {
		if r.Timestamp.Before(cutoff) {
			dropped++
			continue
		}
		kept = append(kept, r)
	}
	a.records = kept
	if dropped > 0 {
		if err := a.flushLocked(); err != nil {
			a.log.Warn("Could not persist application history", zap.Error(err))
		}
	}
	return dropped
}

func (a *Analytics) flushLocked() error {
	if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	raw, err := json.MarshalIndent(a.records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	return os.WriteFile(a.path, raw, 0o644)
}
