package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	jsoniter "github.com/json-iterator/go"

	"github.com/davenull4x/applyforge/internal/ai"
	"github.com/davenull4x/applyforge/internal/ats"
	"github.com/davenull4x/applyforge/internal/behavior"
	"github.com/davenull4x/applyforge/internal/browser"
	"github.com/davenull4x/applyforge/internal/config"
	"github.com/davenull4x/applyforge/internal/fields"
	"github.com/davenull4x/applyforge/internal/fill"
	"github.com/davenull4x/applyforge/internal/filter"
	"github.com/davenull4x/applyforge/internal/observability"
	"github.com/davenull4x/applyforge/internal/outcome"
	"github.com/davenull4x/applyforge/internal/preflight"
	"github.com/davenull4x/applyforge/internal/profile"
	"github.com/davenull4x/applyforge/internal/retry"
	"github.com/davenull4x/applyforge/internal/session"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// newRunCmd creates and configures the `run` command.
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Runs one application session over a job list",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("session.auto_submit", cmd.Flags().Lookup("auto-submit")); err != nil {
				return err
			}
			if err := viper.BindPFlag("session.applications_per_session", cmd.Flags().Lookup("limit")); err != nil {
				return err
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.NewFromViper(viper.GetViper())
			if err != nil {
				return err
			}

			if report := preflight.RunAll(cfg, logger); !report.OK() {
				return report.Error()
			}

			jobsPath, _ := cmd.Flags().GetString("jobs")
			jobs, err := loadJobs(jobsPath)
			if err != nil {
				return err
			}
			logger.Info("Loaded job list", zap.Int("count", len(jobs)))

			prof, err := profile.Load(cfg.Profile.Path)
			if err != nil {
				return err
			}

			kb := fields.NewKnowledgeBase(cfg.Storage.KnowledgeBaseFile, logger)

			var aiFallback fields.AIFallback
			if cfg.AI.Enabled {
				var cache *ai.Cache
				if cfg.AI.CacheEnabled {
					cache = ai.NewCache(cfg.AI.CacheFilePath, cfg.AI.CacheMaxAge, logger)
					cache.Sweep()
				}
				classifier, err := ai.NewClassifier(ctx, cfg.AI, cache, logger)
				if err != nil {
					return fmt.Errorf("ai fallback unavailable: %w", err)
				}
				defer classifier.Close()
				aiFallback = classifier
			}
			classifier := fields.NewClassifier(kb, aiFallback, logger)

			drv, err := browser.NewChrome(ctx, cfg.Browser, logger)
			if err != nil {
				return fmt.Errorf("browser startup failed: %w", err)
			}
			defer drv.Close()

			sim := behavior.New(cfg.Behavior, nil, logger)
			retryOpts := retry.Options{
				MaxRetries: cfg.Retry.MaxRetries,
				BaseDelay:  cfg.Retry.BaseDelay,
				Logger:     logger,
			}
			generic := fill.NewGeneric(classifier, kb, prof, sim, cfg.Session.ResumePath, retryOpts, cfg.Session.SubmitSettleDelay, logger)
			registry := fill.NewRegistry(generic)

			smartFilter := filter.NewSmartFilter(cfg.Filter,
				cfg.Storage.ViewedJobsFile, cfg.Storage.RejectedCompaniesFile, logger)
			smartFilter.CleanupViewed()
			analytics := outcome.NewAnalytics(cfg.Storage.AnalyticsFile, logger)
			checkpoints := session.NewCheckpointStore(
				cfg.Storage.CheckpointFile, cfg.Session.CheckpointMaxAge, logger)
			links := outcome.NewLinkSink(cfg.Storage.ExternalLinksFile)

			runner := session.NewRunner(cfg.Session, drv, ats.NewDetector(logger),
				registry, smartFilter, analytics, checkpoints, sim, links,
				cfg.Storage.MetricsFile, logger)

			metrics, err := runner.Run(ctx, jobs)
			logger.Info("Session finished",
				zap.String("session_id", metrics.SessionID),
				zap.Int("attempted", metrics.Attempted),
				zap.Int("submitted", metrics.Submitted),
				zap.Int("manual", metrics.Manual),
				zap.Int("skipped", metrics.Skipped),
				zap.Int("failed", metrics.Failed),
				zap.Int("captcha_skips", metrics.CaptchaSkips))
			return err
		},
	}

	runCmd.Flags().String("jobs", "jobs.json", "path to the job list JSON file")
	runCmd.Flags().Bool("auto-submit", false, "click submit after filling instead of leaving it to the operator")
	runCmd.Flags().Int("limit", 0, "override the per-session application cap")
	return runCmd
}

// loadJobs reads a JSON array of jobs, defaulting unknown counts to -1.
func loadJobs(path string) ([]filter.Job, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job list: %w", err)
	}
	// Distinguish "absent" from "zero" for the optional numeric fields.
	jobs := []filter.Job{}
	var probe []map[string]any
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("parse job list: %w", err)
	}
	if err := json.Unmarshal(raw, &jobs); err != nil {
		return nil, fmt.Errorf("parse job list: %w", err)
	}
	for i := range jobs {
		if _, ok := probe[i]["applicant_count"]; !ok {
			jobs[i].ApplicantCount = -1
		}
		if _, ok := probe[i]["days_posted"]; !ok {
			jobs[i].DaysPosted = -1
		}
	}
	return jobs, nil
}
