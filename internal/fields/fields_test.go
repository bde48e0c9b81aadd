package fields

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davenull4x/applyforge/internal/ats"
)

func newTestKB(t *testing.T) *KnowledgeBase {
	t.Helper()
	return NewKnowledgeBase(filepath.Join(t.TempDir(), "kb.json"), zap.NewNop())
}

func TestIdentifierNormalization(t *testing.T) {
	m := Meta{Name: "First_Name", ID: "applicant-fn", Placeholder: " Your first name ", Label: "First Name"}
	assert.Equal(t, "first_name applicant-fn your first name first name", m.Identifier())

	assert.Empty(t, Meta{}.Identifier())
}

func TestMatchPatternsPriorityOrder(t *testing.T) {
	tests := []struct {
		identifier string
		want       Type
	}{
		// "first name" also contains "name"; the specific type must win.
		{"first_name", TypeFirstName},
		{"applicant first name", TypeFirstName},
		{"surname family_name", TypeLastName},
		{"your_name", TypeFullName},
		{"contact_email email address", TypeEmail},
		{"phone_number mobile", TypePhone},
		{"linkedin_url", TypeLinkedIn},
		{"github_username", TypeGitHub},
		{"linkedin_username", TypeLinkedIn},
		{"portfolio homepage", TypeWebsite},
		// The bare "name" substring resolves only when nothing else does.
		{"name", TypeFullName},
		{"candidate name field", TypeFullName},
		{"postal code", TypeZip},
		{"upload your resume", TypeResume},
		{"cover_letter", TypeCoverLetter},
		{"favorite color", TypeUnknown},
		{"", TypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.identifier, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchPatterns(tt.identifier))
		})
	}
}

func TestMatchPatternsDeterministic(t *testing.T) {
	// Same input, same output, many runs.
	for i := 0; i < 100; i++ {
		assert.Equal(t, TypeEmail, MatchPatterns("work email or phone"))
	}
}

func TestParseTypeAllowList(t *testing.T) {
	assert.Equal(t, TypeEmail, ParseType(" Email \n"))
	assert.Equal(t, TypeFirstName, ParseType("FIRST_NAME"))
	assert.Equal(t, TypeUnknown, ParseType("unknown"))
	assert.Equal(t, TypeUnknown, ParseType("ssn"))
	assert.Equal(t, TypeUnknown, ParseType(""))
}

func TestKnowledgeBaseRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kb.json")

	kb := NewKnowledgeBase(path, zap.NewNop())
	kb.Learn("first_name fname", TypeFirstName, ats.Greenhouse)

	got, ok := kb.Lookup("first_name fname", ats.Greenhouse)
	require.True(t, ok)
	assert.Equal(t, TypeFirstName, got)

	// A fresh instance reads the flushed state back from disk.
	kb2 := NewKnowledgeBase(path, zap.NewNop())
	got, ok = kb2.Lookup("first_name fname", ats.Greenhouse)
	require.True(t, ok)
	assert.Equal(t, TypeFirstName, got)
}

func TestKnowledgeBaseMajorityVoteSwitches(t *testing.T) {
	kb := newTestKB(t)

	kb.Learn("name", TypeFullName, ats.Unknown)
	kb.Learn("name", TypeFullName, ats.Unknown)
	kb.Learn("name", TypeFirstName, ats.Unknown)

	got, ok := kb.Lookup("name", ats.Unknown)
	require.True(t, ok)
	assert.Equal(t, TypeFullName, got)

	// Two more observations push first_name past the prior leader.
	kb.Learn("name", TypeFirstName, ats.Unknown)
	kb.Learn("name", TypeFirstName, ats.Unknown)

	got, _ = kb.Lookup("name", ats.Unknown)
	assert.Equal(t, TypeFirstName, got)
}

func TestKnowledgeBasePlatformEntryWinsOverGeneral(t *testing.T) {
	kb := newTestKB(t)

	// The general majority says full_name, but greenhouse pinned email first.
	kb.Learn("field_42", TypeEmail, ats.Greenhouse)
	kb.Learn("field_42", TypeFullName, ats.Unknown)
	kb.Learn("field_42", TypeFullName, ats.Unknown)

	got, ok := kb.Lookup("field_42", ats.Greenhouse)
	require.True(t, ok)
	assert.Equal(t, TypeEmail, got)

	got, _ = kb.Lookup("field_42", ats.Unknown)
	assert.Equal(t, TypeFullName, got)
}

func TestKnowledgeBaseTieBreakDeterministic(t *testing.T) {
	kb := newTestKB(t)
	kb.Learn("ambiguous", TypePhone, ats.Unknown)
	kb.Learn("ambiguous", TypeEmail, ats.Unknown)

	// Equal counts resolve lexicographically, so email beats phone, always.
	for i := 0; i < 20; i++ {
		got, ok := kb.Lookup("ambiguous", ats.Unknown)
		require.True(t, ok)
		assert.Equal(t, TypeEmail, got)
	}
}

func TestKnowledgeBaseIgnoresUnknownAndEmpty(t *testing.T) {
	kb := newTestKB(t)
	kb.Learn("", TypeEmail, ats.Unknown)
	kb.Learn("some_field", TypeUnknown, ats.Unknown)

	_, ok := kb.Lookup("some_field", ats.Unknown)
	assert.False(t, ok)

	mappings, _, _ := kb.Stats()
	assert.Zero(t, mappings)
}

func TestKnowledgeBaseCorruptFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kb.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	kb := NewKnowledgeBase(path, zap.NewNop())
	_, ok := kb.Lookup("anything", ats.Unknown)
	assert.False(t, ok)
}

// stubAI returns a fixed answer or error.
type stubAI struct {
	t     Type
	err   error
	calls int
}

func (s *stubAI) ClassifyField(ctx context.Context, meta Meta) (Type, error) {
	s.calls++
	return s.t, s.err
}

func TestClassifierResolutionOrder(t *testing.T) {
	kb := newTestKB(t)
	ai := &stubAI{t: TypeCity}
	c := NewClassifier(kb, ai, zap.NewNop())
	ctx := context.Background()

	// 1. Pattern table resolves known names without touching the AI.
	got := c.Classify(ctx, Meta{Name: "email"}, ats.Unknown)
	assert.Equal(t, TypeEmail, got)
	assert.Zero(t, ai.calls)

	// 2. Knowledge base beats patterns once the mapping is learned.
	meta := Meta{Name: "email"}
	kb.Learn(meta.Identifier(), TypePhone, ats.Unknown)
	assert.Equal(t, TypePhone, c.Classify(ctx, meta, ats.Unknown))

	// 3. Unrecognized identifiers fall through to the AI.
	got = c.Classify(ctx, Meta{Name: "feld_73"}, ats.Unknown)
	assert.Equal(t, TypeCity, got)
	assert.Equal(t, 1, ai.calls)
}

func TestClassifierAIFailureDegradesToUnknown(t *testing.T) {
	c := NewClassifier(newTestKB(t), &stubAI{err: errors.New("quota exceeded")}, zap.NewNop())
	got := c.Classify(context.Background(), Meta{Name: "feld_73"}, ats.Unknown)
	assert.Equal(t, TypeUnknown, got)
}

func TestClassifierWithoutAI(t *testing.T) {
	c := NewClassifier(newTestKB(t), nil, zap.NewNop())
	got := c.Classify(context.Background(), Meta{Name: "feld_73"}, ats.Unknown)
	assert.Equal(t, TypeUnknown, got)
}
