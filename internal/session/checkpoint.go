// Package session drives one application run end to end and lets an
// interrupted run pick up where it stopped.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var jsonx = jsoniter.ConfigCompatibleWithStandardLibrary

// Checkpoint is the single saved slot. Data is opaque to the store.
type Checkpoint struct {
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// CheckpointStore persists one checkpoint at a fixed path. A newer save
// overwrites the old slot.
type CheckpointStore struct {
	path   string
	maxAge time.Duration
	log    *zap.Logger
	now    func() time.Time
}

// NewCheckpointStore creates a store. maxAge bounds how old a checkpoint can
// be and still be offered for resume.
func NewCheckpointStore(path string, maxAge time.Duration, logger *zap.Logger) *CheckpointStore {
	return &CheckpointStore{
		path:   path,
		maxAge: maxAge,
		log:    logger.Named("checkpoint"),
		now:    time.Now,
	}
}

// Save overwrites the slot with data.
func (s *CheckpointStore) Save(data any) error {
	raw, err := jsonx.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode checkpoint data: %w", err)
	}
	cp := Checkpoint{Timestamp: s.now(), Data: raw}
	out, err := jsonx.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}
	if err := os.WriteFile(s.path, out, 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	s.log.Debug("Checkpoint saved", zap.String("path", s.path))
	return nil
}

// Load reads the slot, unmarshaling its data into into. It returns false
// with no error when no checkpoint exists.
func (s *CheckpointStore) Load(into any) (bool, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read checkpoint: %w", err)
	}
	var cp Checkpoint
	if err := jsonx.Unmarshal(raw, &cp); err != nil {
		return false, fmt.Errorf("parse checkpoint: %w", err)
	}
	if err := jsonx.Unmarshal(cp.Data, into); err != nil {
		return false, fmt.Errorf("parse checkpoint data: %w", err)
	}
	return true, nil
}

// ShouldResume reports whether a fresh-enough checkpoint exists.
func (s *CheckpointStore) ShouldResume() bool {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return false
	}
	var cp Checkpoint
	if err := jsonx.Unmarshal(raw, &cp); err != nil {
		s.log.Warn("Checkpoint unreadable, ignoring", zap.Error(err))
		return false
	}
	age := s.now().Sub(cp.Timestamp)
	if age > s.maxAge {
		s.log.Info("Checkpoint too old to resume", zap.Duration("age", age))
		return false
	}
	return true
}

// Clear removes the slot. Clearing an empty slot is not an error.
func (s *CheckpointStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear checkpoint: %w", err)
	}
	return nil
}
