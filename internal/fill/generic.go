package fill

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/davenull4x/applyforge/internal/ats"
	"github.com/davenull4x/applyforge/internal/behavior"
	"github.com/davenull4x/applyforge/internal/browser"
	"github.com/davenull4x/applyforge/internal/fields"
	"github.com/davenull4x/applyforge/internal/profile"
	"github.com/davenull4x/applyforge/internal/retry"
)

// textFieldSelector enumerates the free-text controls worth classifying.
const textFieldSelector = `input[type="text"], input[type="email"], input[type="tel"], textarea`

// fileInputSelector matches resume upload controls.
const fileInputSelector = `input[type="file"]`

// submitSelectors is the probe order for locating the submit control.
// Concrete attribute matches come before text-based heuristics.
var submitSelectors = []string{
	`button[type="submit"]`,
	`input[type="submit"]`,
	`button[aria-label*="submit" i]`,
	`button[id*="submit" i]`,
	`button[class*="submit" i]`,
	`a[class*="submit" i]`,
}

// successPhrases confirm a submission landed. Checked case-insensitively
// against the post-click page text.
var successPhrases = []string{
	"thank you",
	"application submitted",
	"application received",
	"we'll be in touch",
}

// dropUploadScript dispatches a synthetic drop with the file already staged
// on the input, for widgets that ignore programmatic value changes.
const dropUploadScript = `(() => {
	const input = document.querySelector(%q);
	if (!input) return false;
	const dt = new DataTransfer();
	for (const f of input.files) dt.items.add(f);
	const target = input.closest('[class*="drop"], [class*="upload"]') || input;
	target.dispatchEvent(new DragEvent('drop', {bubbles: true, dataTransfer: dt}));
	input.dispatchEvent(new Event('change', {bubbles: true}));
	return true;
})()`

// Generic fills any platform's form using classified fields and profile
// data. Dedicated strategies can embed it and override single steps.
type Generic struct {
	classifier *fields.Classifier
	kb         *fields.KnowledgeBase
	profile    profile.Profile
	sim        *behavior.Simulator
	resumePath  string
	retryOpts   retry.Options
	settleDelay time.Duration
	log         *zap.Logger
}

// NewGeneric builds the fallback strategy. resumePath may be empty when no
// document upload is wanted. settleDelay is how long Submit waits for the
// page to transition before reading confirmation text.
func NewGeneric(classifier *fields.Classifier, kb *fields.KnowledgeBase, prof profile.Profile, sim *behavior.Simulator, resumePath string, retryOpts retry.Options, settleDelay time.Duration, logger *zap.Logger) *Generic {
	return &Generic{
		classifier:  classifier,
		kb:          kb,
		profile:     prof,
		sim:         sim,
		resumePath:  resumePath,
		retryOpts:   retryOpts,
		settleDelay: settleDelay,
		log:         logger.Named("fill"),
	}
}

// Platform identifies the strategy as the catch-all.
func (g *Generic) Platform() ats.Platform { return ats.Unknown }

// Fill classifies and populates every recognized text field, uploads the
// resume, and locates (but never clicks) the submit control.
func (g *Generic) Fill(ctx context.Context, drv browser.Driver, platform ats.Platform) (*Result, error) {
	res := &Result{Platform: platform, State: StateDetected}

	formFields, err := drv.Fields(ctx, textFieldSelector)
	if err != nil {
		return res, fmt.Errorf("enumerate fields: %w", err)
	}
	res.State = StateFieldsEnumerated
	g.log.Info("Enumerated form fields",
		zap.String("platform", string(platform)), zap.Int("count", len(formFields)))

	for _, f := range formFields {
		fieldType := g.classifier.Classify(ctx, f.Meta, platform)
		if fieldType == fields.TypeUnknown {
			res.SkippedCount++
			continue
		}
		value, ok := g.profile.Value(fieldType)
		if !ok {
			g.log.Debug("No profile data for field, skipping",
				zap.String("type", string(fieldType)))
			res.SkippedCount++
			continue
		}

		if err := g.fillOne(ctx, drv, f.Selector, value); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			g.log.Warn("Field could not be filled",
				zap.String("selector", f.Selector),
				zap.String("type", string(fieldType)), zap.Error(err))
			res.SkippedCount++
			continue
		}
		g.kb.Learn(f.Meta.Identifier(), fieldType, platform)
		res.FilledCount++
		res.FilledTypes = append(res.FilledTypes, fieldType)
	}
	if res.FilledCount > 0 {
		res.State = StateFieldsFilled
	}

	if g.resumePath != "" {
		uploaded, err := g.uploadResume(ctx, drv)
		if err != nil && ctx.Err() != nil {
			return res, ctx.Err()
		}
		if uploaded {
			res.ResumeUploaded = true
			res.State = StateFileUploaded
		}
	}

	selector, found := g.locateSubmit(ctx, drv)
	if found {
		res.SubmitSelector = selector
		res.State = StateSubmitLocated
		return res, nil
	}

	// No submit control. With nothing filled either, the page defeated us.
	if res.FilledCount == 0 {
		res.State = StateFailed
		return res, nil
	}
	res.State = StateManualRequired
	return res, nil
}

// fillOne clears the field and types the value with humanized pacing, inside
// the retry budget.
func (g *Generic) fillOne(ctx context.Context, drv browser.Driver, selector, value string) error {
	return retry.Do(ctx, func(ctx context.Context) error {
		if err := drv.Clear(ctx, selector); err != nil {
			return err
		}
		return g.sim.Type(ctx, func(chunk string) error {
			return drv.SendKeys(ctx, selector, chunk)
		}, value)
	}, g.retryOpts)
}

// uploadResume pushes the resume into the first file input, falling back to
// a synthetic drop event when direct assignment does not take.
func (g *Generic) uploadResume(ctx context.Context, drv browser.Driver) (bool, error) {
	present, err := drv.Exists(ctx, fileInputSelector)
	if err != nil || !present {
		return false, err
	}

	err = retry.Do(ctx, func(ctx context.Context) error {
		return drv.SetFiles(ctx, fileInputSelector, []string{g.resumePath})
	}, g.retryOpts)
	if err != nil {
		g.log.Warn("Direct file assignment failed, trying drop event", zap.Error(err))
		script := fmt.Sprintf(dropUploadScript, fileInputSelector)
		var ok bool
		if evalErr := drv.Evaluate(ctx, script, &ok); evalErr != nil || !ok {
			return false, err
		}
	}
	g.log.Info("Resume uploaded", zap.String("path", g.resumePath))
	return true, nil
}

// locateSubmit probes the submit selector list in order.
func (g *Generic) locateSubmit(ctx context.Context, drv browser.Driver) (string, bool) {
	for _, sel := range submitSelectors {
		present, err := drv.Exists(ctx, sel)
		if err != nil {
			continue
		}
		if present {
			g.log.Debug("Submit control located", zap.String("selector", sel))
			return sel, true
		}
	}
	return "", false
}

// Submit clicks the control located during Fill, retrying through the
// fallback selector chain, then scans the resulting page for confirmation.
func (g *Generic) Submit(ctx context.Context, drv browser.Driver, res *Result) error {
	if res.SubmitSelector == "" {
		return fmt.Errorf("no submit control located")
	}

	fallbacks := make([]string, 0, len(submitSelectors))
	for _, sel := range submitSelectors {
		if sel != res.SubmitSelector {
			fallbacks = append(fallbacks, sel)
		}
	}

	used, err := retry.ClickWithFallbacks(ctx, drv.Click, res.SubmitSelector, fallbacks, g.retryOpts)
	if err != nil {
		return fmt.Errorf("click submit: %w", err)
	}
	res.SubmitClicked = true
	res.SubmitSelector = used

	// Give the page a moment to transition before reading confirmation.
	if g.settleDelay > 0 {
		select {
		case <-time.After(g.settleDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	html, err := drv.PageSource(ctx)
	if err != nil {
		g.log.Warn("Could not read post-submit page, leaving unverified", zap.Error(err))
		res.State = StateSubmitted
		return nil
	}
	res.Verified = ContainsSuccessPhrase(html)
	res.State = StateSubmitted
	if res.Verified {
		g.log.Info("Submission confirmed")
	} else {
		g.log.Info("Submit clicked, no confirmation text found")
	}
	return nil
}

// ContainsSuccessPhrase reports whether the page text carries any of the
// known confirmation phrases.
func ContainsSuccessPhrase(html string) bool {
	lower := strings.ToLower(html)
	for _, phrase := range successPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
