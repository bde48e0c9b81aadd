// Package fill turns an enumerated application form into a filled one, one
// platform strategy at a time.
package fill

import (
	"github.com/davenull4x/applyforge/internal/ats"
	"github.com/davenull4x/applyforge/internal/fields"
)

// State is the stage a fill attempt has reached. Transitions are strictly
// forward; a Result carries the furthest state reached.
type State string

const (
	StateDetected         State = "detected"
	StateFieldsEnumerated State = "fields_enumerated"
	StateFieldsFilled     State = "fields_filled"
	StateFileUploaded     State = "file_uploaded"
	StateSubmitLocated    State = "submit_located"
	StateSubmitted        State = "submitted"
	StateManualRequired   State = "manual_required"
	StateFailed           State = "failed"
)

// Terminal reports whether the state is an endpoint of the attempt.
func (s State) Terminal() bool {
	switch s {
	case StateSubmitted, StateManualRequired, StateFailed:
		return true
	}
	return false
}

// Result is the full account of one fill attempt.
type Result struct {
	Platform       ats.Platform  `json:"platform"`
	State          State         `json:"state"`
	FilledTypes    []fields.Type `json:"filled_types,omitempty"`
	FilledCount    int           `json:"filled_count"`
	SkippedCount   int           `json:"skipped_count"`
	ResumeUploaded bool          `json:"resume_uploaded"`
	SubmitSelector string        `json:"submit_selector,omitempty"`
	SubmitClicked  bool          `json:"submit_clicked"`
	Verified       bool          `json:"verified"`
}

// Success reports whether the attempt left the page ready for (or past)
// submission.
func (r *Result) Success() bool {
	return r.State != StateFailed
}
