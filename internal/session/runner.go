package session

import (
	"context"
	"net/url"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davenull4x/applyforge/internal/ats"
	"github.com/davenull4x/applyforge/internal/behavior"
	"github.com/davenull4x/applyforge/internal/browser"
	"github.com/davenull4x/applyforge/internal/captcha"
	"github.com/davenull4x/applyforge/internal/config"
	"github.com/davenull4x/applyforge/internal/fill"
	"github.com/davenull4x/applyforge/internal/filter"
	"github.com/davenull4x/applyforge/internal/outcome"
)

// progress is the runner's checkpointed state: which jobs are done and how
// many submissions the session has made.
type progress struct {
	SessionID string   `json:"session_id"`
	Completed []string `json:"completed"`
	Submitted int      `json:"submitted"`
}

// Runner walks a prioritized job list through filter, fill, and record.
// Jobs are processed strictly serially; stopping is cooperative and only
// happens between attempts.
type Runner struct {
	cfg         config.SessionConfig
	driver      browser.Driver
	detector    *ats.Detector
	registry    *fill.Registry
	smartFilter *filter.SmartFilter
	analytics   *outcome.Analytics
	checkpoints *CheckpointStore
	sim         *behavior.Simulator
	links       *outcome.LinkSink
	metricsPath string
	log         *zap.Logger
	now         func() time.Time
}

// NewRunner wires a session runner from its collaborators.
func NewRunner(
	cfg config.SessionConfig,
	driver browser.Driver,
	detector *ats.Detector,
	registry *fill.Registry,
	smartFilter *filter.SmartFilter,
	analytics *outcome.Analytics,
	checkpoints *CheckpointStore,
	sim *behavior.Simulator,
	links *outcome.LinkSink,
	metricsPath string,
	logger *zap.Logger,
) *Runner {
	return &Runner{
		cfg:         cfg,
		driver:      driver,
		detector:    detector,
		registry:    registry,
		smartFilter: smartFilter,
		analytics:   analytics,
		checkpoints: checkpoints,
		sim:         sim,
		links:       links,
		metricsPath: metricsPath,
		log:         logger.Named("session"),
		now:         time.Now,
	}
}

// Run processes jobs until the list is exhausted or a session bound trips.
// It always writes session metrics, even on early stop.
func (r *Runner) Run(ctx context.Context, jobs []filter.Job) (outcome.SessionMetrics, error) {
	state := progress{SessionID: uuid.NewString()}
	if r.checkpoints.ShouldResume() {
		var saved progress
		if ok, err := r.checkpoints.Load(&saved); err == nil && ok {
			state = saved
			r.log.Info("Resuming interrupted session",
				zap.String("session_id", state.SessionID),
				zap.Int("completed", len(state.Completed)))
		}
	}
	done := make(map[string]struct{}, len(state.Completed))
	for _, id := range state.Completed {
		done[id] = struct{}{}
	}

	// Highest expected value first.
	sort.SliceStable(jobs, func(i, j int) bool {
		return r.smartFilter.Priority(jobs[i]) > r.smartFilter.Priority(jobs[j])
	})

	metrics := outcome.SessionMetrics{SessionID: state.SessionID, Started: r.now()}
	deadline := metrics.Started.Add(r.cfg.MaxRuntime)
	todayCount := r.analytics.Summarize(1).Total
	sinceCheckpoint := 0

	var runErr error
loop:
	for _, job := range jobs {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
			break loop
		default:
		}
		if r.cfg.MaxRuntime > 0 && !r.now().Before(deadline) {
			r.log.Info("Session time budget spent, stopping")
			break
		}
		if metrics.Attempted >= r.cfg.ApplicationsPerSession {
			r.log.Info("Per-session application cap reached, stopping")
			break
		}
		if todayCount+metrics.Attempted >= r.cfg.DailyApplicationLimit {
			r.log.Info("Daily application limit reached, stopping")
			break
		}
		if _, ok := done[job.ID]; ok {
			continue
		}

		if ok, reason := r.smartFilter.Admit(job); !ok {
			r.log.Debug("Job filtered out",
				zap.String("job_id", job.ID), zap.String("reason", reason))
			metrics.Skipped++
			continue
		}
		r.smartFilter.MarkViewed(job.ID)
		metrics.Attempted++

		res := r.apply(ctx, job)
		if ctx.Err() != nil {
			runErr = ctx.Err()
			break
		}

		switch res.State {
		case fill.StateSubmitted:
			metrics.Submitted++
			state.Submitted++
		case fill.StateManualRequired, fill.StateSubmitLocated,
			fill.StateFieldsFilled, fill.StateFileUploaded:
			// Filled but not auto-submitted; the operator finishes it.
			metrics.Manual++
		case fill.StateFailed:
			metrics.Failed++
			r.smartFilter.RecordRejection(job.Company, "form could not be filled")
		}
		if res.captchaSkip {
			metrics.CaptchaSkips++
		}

		state.Completed = append(state.Completed, job.ID)
		sinceCheckpoint++
		if r.cfg.CheckpointInterval > 0 && sinceCheckpoint >= r.cfg.CheckpointInterval {
			if err := r.checkpoints.Save(state); err != nil {
				r.log.Warn("Checkpoint save failed", zap.Error(err))
			}
			sinceCheckpoint = 0
		}

		if err := r.sim.Cooldown(ctx); err != nil {
			runErr = err
			break
		}
	}

	metrics.Ended = r.now()
	if err := outcome.AppendSessionMetrics(r.metricsPath, metrics); err != nil {
		r.log.Warn("Could not write session metrics", zap.Error(err))
	}
	if runErr == nil {
		if err := r.checkpoints.Clear(); err != nil {
			r.log.Warn("Could not clear checkpoint", zap.Error(err))
		}
	} else if err := r.checkpoints.Save(state); err != nil {
		r.log.Warn("Checkpoint save failed", zap.Error(err))
	}
	return metrics, runErr
}

// offPlatform reports whether the browser landed on a different host than
// the job listing pointed at.
func offPlatform(jobURL, currentURL string) bool {
	if currentURL == "" {
		return false
	}
	ju, err := url.Parse(jobURL)
	if err != nil {
		return false
	}
	cu, err := url.Parse(currentURL)
	if err != nil {
		return false
	}
	return ju.Hostname() != "" && cu.Hostname() != "" && ju.Hostname() != cu.Hostname()
}

// park records a posting the operator must finish by hand. The link sink
// is the complete worklist, so every manual-ending attempt lands here, not
// just off-platform redirects.
func (r *Runner) park(job filter.Job, platform ats.Platform, reason string) {
	if r.links == nil {
		return
	}
	if err := r.links.Add(outcome.ExternalLink{
		JobID: job.ID, Title: job.Title, Company: job.Company,
		URL: job.URL, Platform: string(platform), Reason: reason,
	}); err != nil {
		r.log.Warn("Could not record external link", zap.Error(err))
	}
}

// manualReason maps a non-submitted fill state to the worklist note the
// operator sees.
func manualReason(state fill.State) (string, bool) {
	switch state {
	case fill.StateManualRequired:
		return "manual completion required", true
	case fill.StateSubmitLocated:
		return "filled, awaiting submit", true
	case fill.StateFieldsFilled, fill.StateFileUploaded:
		return "partially filled", true
	}
	return "", false
}

// attemptResult is the runner-side view of one application.
type attemptResult struct {
	State       fill.State
	captchaSkip bool
}

// apply takes one admitted job through navigation, detection, and fill.
// Failures never abort the session; they land in the record.
func (r *Runner) apply(ctx context.Context, job filter.Job) attemptResult {
	log := r.log.With(zap.String("job_id", job.ID), zap.String("company", job.Company))

	record := outcome.Application{
		JobID: job.ID, Title: job.Title, Company: job.Company, URL: job.URL,
		Platform: ats.Unknown, State: fill.StateFailed,
	}
	defer func() { r.analytics.Record(record) }()

	if err := r.driver.Navigate(ctx, job.URL); err != nil {
		log.Warn("Navigation failed", zap.Error(err))
		return attemptResult{State: fill.StateFailed}
	}
	if err := r.sim.Read(ctx); err != nil {
		return attemptResult{State: fill.StateFailed}
	}

	// Postings that bounce to another host cannot be auto-filled; park them
	// for a manual visit.
	if current, err := r.driver.CurrentURL(ctx); err == nil && r.links != nil {
		if offPlatform(job.URL, current) {
			log.Info("Posting redirected off-platform", zap.String("url", current))
			if err := r.links.Add(outcome.ExternalLink{
				JobID: job.ID, Title: job.Title, Company: job.Company,
				URL: current, Platform: string(ats.Unknown), Reason: "redirected off-platform",
			}); err != nil {
				log.Warn("Could not record external link", zap.Error(err))
			}
			record.State = fill.StateManualRequired
			return attemptResult{State: fill.StateManualRequired}
		}
	}

	html, err := r.driver.PageSource(ctx)
	if err != nil {
		log.Warn("Could not read page", zap.Error(err))
		return attemptResult{State: fill.StateFailed}
	}
	if r.cfg.SkipCaptchaSites {
		if found, kind := captcha.Detect(html); found {
			log.Info("Verification challenge on page, skipping",
				zap.String("kind", string(kind)))
			r.park(job, ats.Unknown, "verification challenge on page")
			record.State = fill.StateManualRequired
			return attemptResult{State: fill.StateManualRequired, captchaSkip: true}
		}
	}

	platform := r.detector.Detect(job.URL, func() (string, error) { return html, nil })
	record.Platform = platform
	log.Info("Applying", zap.String("platform", string(platform)))

	strategy := r.registry.For(platform)
	res, err := strategy.Fill(ctx, r.driver, platform)
	if err != nil {
		log.Warn("Fill aborted", zap.Error(err))
		if res != nil {
			record.State = res.State
			return attemptResult{State: res.State}
		}
		return attemptResult{State: fill.StateFailed}
	}

	if r.cfg.AutoSubmit && res.State == fill.StateSubmitLocated {
		if err := strategy.Submit(ctx, r.driver, res); err != nil {
			log.Warn("Submit failed", zap.Error(err))
		}
	}

	if reason, ok := manualReason(res.State); ok {
		r.park(job, platform, reason)
	}

	record.State = res.State
	record.Verified = res.Verified
	log.Info("Attempt finished",
		zap.String("state", string(res.State)),
		zap.Int("filled", res.FilledCount),
		zap.Int("skipped", res.SkippedCount))
	return attemptResult{State: res.State}
}
