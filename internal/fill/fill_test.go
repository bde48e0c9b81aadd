package fill

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davenull4x/applyforge/internal/ats"
	"github.com/davenull4x/applyforge/internal/behavior"
	"github.com/davenull4x/applyforge/internal/browser"
	"github.com/davenull4x/applyforge/internal/config"
	"github.com/davenull4x/applyforge/internal/fields"
	"github.com/davenull4x/applyforge/internal/profile"
	"github.com/davenull4x/applyforge/internal/retry"
)

// fakeDriver scripts the browser surface for strategy tests.
type fakeDriver struct {
	fields      []browser.Field
	fieldsErr   error
	existing    map[string]bool
	pageSource  string
	typed       map[string]string
	cleared     []string
	clicked     []string
	clickErr    map[string]error
	setFilesErr error
	files       []string
	evalOK      bool
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		existing: map[string]bool{},
		typed:    map[string]string{},
		clickErr: map[string]error{},
	}
}

func (d *fakeDriver) Navigate(ctx context.Context, url string) error { return nil }
func (d *fakeDriver) CurrentURL(ctx context.Context) (string, error) { return "", nil }
func (d *fakeDriver) PageSource(ctx context.Context) (string, error) { return d.pageSource, nil }

func (d *fakeDriver) Fields(ctx context.Context, selector string) ([]browser.Field, error) {
	return d.fields, d.fieldsErr
}

func (d *fakeDriver) Exists(ctx context.Context, selector string) (bool, error) {
	return d.existing[selector], nil
}

func (d *fakeDriver) Click(ctx context.Context, selector string) error {
	d.clicked = append(d.clicked, selector)
	return d.clickErr[selector]
}

func (d *fakeDriver) Clear(ctx context.Context, selector string) error {
	d.cleared = append(d.cleared, selector)
	return nil
}

func (d *fakeDriver) SendKeys(ctx context.Context, selector, text string) error {
	d.typed[selector] += text
	return nil
}

func (d *fakeDriver) SetFiles(ctx context.Context, selector string, paths []string) error {
	if d.setFilesErr != nil {
		return d.setFilesErr
	}
	d.files = paths
	return nil
}

func (d *fakeDriver) Evaluate(ctx context.Context, script string, out any) error {
	if b, ok := out.(*bool); ok {
		*b = d.evalOK
	}
	return nil
}

func newTestGeneric(t *testing.T, prof profile.Profile, resumePath string) (*Generic, *fields.KnowledgeBase) {
	t.Helper()
	log := zap.NewNop()
	kb := fields.NewKnowledgeBase(filepath.Join(t.TempDir(), "kb.json"), log)
	classifier := fields.NewClassifier(kb, nil, log)
	sim := behavior.New(config.BehaviorConfig{Enabled: false}, nil, log)
	opts := retry.Options{MaxRetries: 1, BaseDelay: time.Millisecond}
	return NewGeneric(classifier, kb, prof, sim, resumePath, opts, 0, log), kb
}

func emailField() browser.Field {
	return browser.Field{
		Selector: "#email",
		Meta:     fields.Meta{ID: "email", InputType: "email"},
	}
}

func TestFillPopulatesKnownFields(t *testing.T) {
	drv := newFakeDriver()
	drv.fields = []browser.Field{
		emailField(),
		{Selector: "#fn", Meta: fields.Meta{Name: "first_name"}},
		{Selector: "#x1", Meta: fields.Meta{Name: "favorite_dinosaur"}},
	}
	drv.existing[`button[type="submit"]`] = true

	g, kb := newTestGeneric(t, profile.Profile{
		fields.TypeEmail:     "dana@example.com",
		fields.TypeFirstName: "Dana",
	}, "")

	res, err := g.Fill(context.Background(), drv, ats.Greenhouse)
	require.NoError(t, err)

	assert.Equal(t, StateSubmitLocated, res.State)
	assert.Equal(t, 2, res.FilledCount)
	assert.Equal(t, 1, res.SkippedCount)
	assert.Equal(t, "dana@example.com", drv.typed["#email"])
	assert.Equal(t, "Dana", drv.typed["#fn"])
	assert.Equal(t, `button[type="submit"]`, res.SubmitSelector)
	assert.Empty(t, drv.clicked, "fill must never click submit")

	// Successful fills are learned for the platform.
	got, ok := kb.Lookup("email", ats.Greenhouse)
	assert.True(t, ok)
	assert.Equal(t, fields.TypeEmail, got)
}

func TestFillSkipsFieldWithoutProfileData(t *testing.T) {
	drv := newFakeDriver()
	drv.fields = []browser.Field{emailField()}
	drv.existing[`button[type="submit"]`] = true

	g, _ := newTestGeneric(t, profile.Profile{}, "")
	res, err := g.Fill(context.Background(), drv, ats.Unknown)
	require.NoError(t, err)

	assert.Equal(t, 0, res.FilledCount)
	assert.Equal(t, 1, res.SkippedCount)
	assert.Equal(t, StateSubmitLocated, res.State)
	assert.True(t, res.Success())
}

func TestFillFailsOnlyWhenNothingFilledAndNoSubmit(t *testing.T) {
	drv := newFakeDriver()
	g, _ := newTestGeneric(t, profile.Profile{}, "")

	res, err := g.Fill(context.Background(), drv, ats.Unknown)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, res.State)
	assert.False(t, res.Success())
}

func TestFillManualRequiredWhenNoSubmitControl(t *testing.T) {
	drv := newFakeDriver()
	drv.fields = []browser.Field{emailField()}

	g, _ := newTestGeneric(t, profile.Profile{fields.TypeEmail: "a@b.com"}, "")
	res, err := g.Fill(context.Background(), drv, ats.Unknown)
	require.NoError(t, err)

	assert.Equal(t, 1, res.FilledCount)
	assert.Equal(t, StateManualRequired, res.State)
	assert.True(t, res.Success())
}

func TestFillUploadsResume(t *testing.T) {
	drv := newFakeDriver()
	drv.existing[fileInputSelector] = true
	drv.existing[`button[type="submit"]`] = true

	g, _ := newTestGeneric(t, profile.Profile{}, "/tmp/resume.pdf")
	res, err := g.Fill(context.Background(), drv, ats.Lever)
	require.NoError(t, err)

	assert.True(t, res.ResumeUploaded)
	assert.Equal(t, []string{"/tmp/resume.pdf"}, drv.files)
	assert.Equal(t, StateSubmitLocated, res.State)
}

func TestFillResumeDropFallback(t *testing.T) {
	drv := newFakeDriver()
	drv.existing[fileInputSelector] = true
	drv.setFilesErr = errors.New("element not interactable")
	drv.evalOK = true

	g, _ := newTestGeneric(t, profile.Profile{}, "/tmp/resume.pdf")
	res, err := g.Fill(context.Background(), drv, ats.Lever)
	require.NoError(t, err)
	assert.True(t, res.ResumeUploaded)
}

func TestSubmitVerifiesConfirmation(t *testing.T) {
	drv := newFakeDriver()
	drv.pageSource = `<html><body><h1>Thank you for applying!</h1></body></html>`

	g, _ := newTestGeneric(t, profile.Profile{}, "")
	res := &Result{State: StateSubmitLocated, SubmitSelector: `button[type="submit"]`}

	require.NoError(t, g.Submit(context.Background(), drv, res))
	assert.Equal(t, StateSubmitted, res.State)
	assert.True(t, res.SubmitClicked)
	assert.True(t, res.Verified)
	assert.Equal(t, []string{`button[type="submit"]`}, drv.clicked)
}

func TestSubmitUnverifiedWithoutConfirmation(t *testing.T) {
	drv := newFakeDriver()
	drv.pageSource = `<html><body>Review your application</body></html>`

	g, _ := newTestGeneric(t, profile.Profile{}, "")
	res := &Result{State: StateSubmitLocated, SubmitSelector: `button[type="submit"]`}

	require.NoError(t, g.Submit(context.Background(), drv, res))
	assert.Equal(t, StateSubmitted, res.State)
	assert.False(t, res.Verified)
}

func TestSubmitFallsBackThroughSelectors(t *testing.T) {
	drv := newFakeDriver()
	drv.clickErr[`button[type="submit"]`] = errors.New("not clickable")
	drv.pageSource = "application received"

	g, _ := newTestGeneric(t, profile.Profile{}, "")
	res := &Result{State: StateSubmitLocated, SubmitSelector: `button[type="submit"]`}

	require.NoError(t, g.Submit(context.Background(), drv, res))
	assert.True(t, res.SubmitClicked)
	assert.Equal(t, `input[type="submit"]`, res.SubmitSelector)
}

func TestSubmitHonorsSettleDelay(t *testing.T) {
	drv := newFakeDriver()
	drv.pageSource = "application received"

	g, _ := newTestGeneric(t, profile.Profile{}, "")
	g.settleDelay = 0
	res := &Result{State: StateSubmitLocated, SubmitSelector: `button[type="submit"]`}

	start := time.Now()
	require.NoError(t, g.Submit(context.Background(), drv, res))
	assert.Less(t, time.Since(start), time.Second, "zero settle delay must not block")

	g.settleDelay = time.Millisecond
	require.NoError(t, g.Submit(context.Background(), drv, res))
	assert.True(t, res.Verified)
}

func TestSubmitWithoutLocatedControl(t *testing.T) {
	g, _ := newTestGeneric(t, profile.Profile{}, "")
	err := g.Submit(context.Background(), newFakeDriver(), &Result{State: StateManualRequired})
	require.Error(t, err)
}

func TestRegistryFallback(t *testing.T) {
	g, _ := newTestGeneric(t, profile.Profile{}, "")
	reg := NewRegistry(g)
	assert.Same(t, Strategy(g), reg.For(ats.Workday))
}

func TestContainsSuccessPhrase(t *testing.T) {
	assert.True(t, ContainsSuccessPhrase("Your APPLICATION SUBMITTED successfully"))
	assert.False(t, ContainsSuccessPhrase("please complete all required fields"))
}

func TestStateTerminal(t *testing.T) {
	assert.True(t, StateSubmitted.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.True(t, StateManualRequired.Terminal())
	assert.False(t, StateSubmitLocated.Terminal())
}
