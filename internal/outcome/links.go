package outcome

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ExternalLink is a posting that redirected off-platform and needs a manual
// visit later.
type ExternalLink struct {
	JobID     string
	Title     string
	Company   string
	URL       string
	Platform  string
	Reason    string
	Timestamp time.Time
}

var linksHeader = []string{"job_id", "title", "company", "url", "platform", "reason", "timestamp"}

// LinkSink appends external application links to a CSV for later manual
// follow-up.
type LinkSink struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewLinkSink creates a sink writing to path.
func NewLinkSink(path string) *LinkSink {
	return &LinkSink{path: path, now: time.Now}
}

// Add appends one link, writing the header first when the file is new.
func (s *LinkSink) Add(link ExternalLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create links dir: %w", err)
	}
	info, err := os.Stat(s.path)
	needHeader := err != nil || info.Size() == 0

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open links file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if needHeader {
		if err := w.Write(linksHeader); err != nil {
			return fmt.Errorf("write links header: %w", err)
		}
	}
	ts := link.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}
	row := []string{link.JobID, link.Title, link.Company, link.URL,
		link.Platform, link.Reason, ts.Format(time.RFC3339)}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write link row: %w", err)
	}
	w.Flush()
	return w.Error()
}
