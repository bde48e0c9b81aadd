package outcome

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type connectionState struct {
	Requests          []time.Time `json:"requests"`
	ConnectedProfiles []string    `json:"connected_profiles"`
}

// ConnectionTracker enforces a daily cap and a pacing limiter on outreach
// connection requests, remembering who was already contacted.
type ConnectionTracker struct {
	mu       sync.Mutex
	path     string
	dailyCap int
	state    connectionState
	limiter  *rate.Limiter
	profiles map[string]struct{}
	log      *zap.Logger
	now      func() time.Time
}

// NewConnectionTracker loads persisted outreach state. minInterval is the
// minimum spacing between requests.
func NewConnectionTracker(path string, dailyCap int, minInterval time.Duration, logger *zap.Logger) *ConnectionTracker {
	t := &ConnectionTracker{
		path:     path,
		dailyCap: dailyCap,
		limiter:  rate.NewLimiter(rate.Every(minInterval), 1),
		profiles: map[string]struct{}{},
		log:      logger.Named("connections"),
		now:      time.Now,
	}
	raw, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(raw, &t.state); err != nil {
			t.log.Warn("Connection state corrupt, starting empty", zap.Error(err))
			t.state = connectionState{}
		}
	}
	for _, p := range t.state.ConnectedProfiles {
		t.profiles[p] = struct{}{}
	}
	return t
}

// Allow reports whether another request may be sent today. It does not
// consume capacity.
func (t *ConnectionTracker) Allow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sentTodayLocked() < t.dailyCap
}

// AlreadyConnected reports whether profileURL was contacted before.
func (t *ConnectionTracker) AlreadyConnected(profileURL string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.profiles[profileURL]
	return ok
}

// Record waits for the pacing limiter, then logs a sent request to
// profileURL. It fails when the daily cap is already spent.
func (t *ConnectionTracker) Record(ctx context.Context, profileURL string) error {
	if !t.Allow() {
		return fmt.Errorf("daily connection cap of %d reached", t.dailyCap)
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Requests = append(t.state.Requests, t.now())
	if _, ok := t.profiles[profileURL]; !ok {
		t.profiles[profileURL] = struct{}{}
		t.state.ConnectedProfiles = append(t.state.ConnectedProfiles, profileURL)
	}
	if err := t.flushLocked(); err != nil {
		t.log.Warn("Could not persist connection state", zap.Error(err))
	}
	return nil
}

// SentToday counts requests made since local midnight.
func (t *ConnectionTracker) SentToday() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sentTodayLocked()
}

func (t *ConnectionTracker) sentTodayLocked() int {
	now := t.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	n := 0
	for _, ts := range t.state.Requests {
		if !ts.Before(midnight) {
			n++
		}
	}
	return n
}

func (t *ConnectionTracker) flushLocked() error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(t.state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(t.path, raw, 0o644)
}
