package outcome

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// SessionMetrics are the counters one run accumulates.
type SessionMetrics struct {
	SessionID    string
	Started      time.Time
	Ended        time.Time
	Attempted    int
	Submitted    int
	Manual       int
	Skipped      int
	Failed       int
	CaptchaSkips int
}

var metricsHeader = []string{
	"session_id", "started", "ended",
	"attempted", "submitted", "manual", "skipped", "failed", "captcha_skips",
}

// AppendSessionMetrics adds one row to the session CSV at path, writing the
// header first when the file is new or empty.
func AppendSessionMetrics(path string, m SessionMetrics) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}

	info, err := os.Stat(path)
	needHeader := err != nil || info.Size() == 0

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open metrics file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if needHeader {
		if err := w.Write(metricsHeader); err != nil {
			return fmt.Errorf("write metrics header: %w", err)
		}
	}
	row := []string{
		m.SessionID,
		m.Started.Format(time.RFC3339),
		m.Ended.Format(time.RFC3339),
		strconv.Itoa(m.Attempted),
		strconv.Itoa(m.Submitted),
		strconv.Itoa(m.Manual),
		strconv.Itoa(m.Skipped),
		strconv.Itoa(m.Failed),
		strconv.Itoa(m.CaptchaSkips),
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write metrics row: %w", err)
	}
	w.Flush()
	return w.Error()
}
