// Package mirror orchestrates one run of the EPG mirror pipeline: restore
// the icon pool, fetch every source, refresh or load the icon mapping,
// rewrite channel icons, finalize the data files, regenerate the README, and
// commit whatever changed.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/epgforge/epg-mirror/internal/apperrors"
	"github.com/epgforge/epg-mirror/internal/cache"
	"github.com/epgforge/epg-mirror/internal/client"
	"github.com/epgforge/epg-mirror/internal/config"
	"github.com/epgforge/epg-mirror/internal/gitops"
	"github.com/epgforge/epg-mirror/internal/icons"
	"github.com/epgforge/epg-mirror/internal/metrics"
	"github.com/epgforge/epg-mirror/internal/models"
	"github.com/epgforge/epg-mirror/internal/report"
)

// Runner executes mirror runs against one configuration.
type Runner struct {
	cfg       *config.Config
	client    client.Client
	cache     cache.Cache
	committer *gitops.Committer
}

// NewRunner wires a Runner. cache may be nil to disable pool snapshots and
// committer may be nil to disable the commit stage.
func NewRunner(cfg *config.Config, cl client.Client, c cache.Cache, committer *gitops.Committer) *Runner {
	return &Runner{cfg: cfg, client: cl, cache: c, committer: committer}
}

// Run executes one mirror run in the given mode and records run metrics.
func (r *Runner) Run(ctx context.Context, mode models.RunMode) error {
	logger := config.GetLogger()
	start := time.Now()
	logger.Info().Str("mode", mode.String()).Msg("Mirror run starting")

	err := r.run(ctx, mode)
	duration := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"
		logger.Error().Err(err).Str("mode", mode.String()).Msg("Mirror run failed")
	} else {
		logger.Info().Str("mode", mode.String()).Dur("duration", duration).Msg("Mirror run finished")
	}
	metrics.RunsTotal.WithLabelValues(mode.String(), status).Inc()
	metrics.RunDurationSeconds.WithLabelValues(mode.String()).Set(duration.Seconds())
	metrics.LastRunTimestampSeconds.WithLabelValues(mode.String()).SetToCurrentTime()
	return err
}

func (r *Runner) run(ctx context.Context, mode models.RunMode) error {
	logger := config.GetLogger()
	startedAt := time.Now()

	owner, repo, ok := r.cfg.SplitRepository()
	if !ok {
		return fmt.Errorf("repository %q is not of the owner/name form, set GITHUB_REPOSITORY", r.cfg.Repository)
	}

	sourcesFile, err := loadSources(r.cfg.SourcesFile)
	if err != nil {
		return err
	}
	logger.Info().Int("sources", len(sourcesFile.Sources)).Msg("Sources loaded")

	snapshotKey := r.restorePool()

	if err := clearDirectory(r.cfg.DataDir); err != nil {
		return fmt.Errorf("prepare data dir: %w", err)
	}

	results := r.fetchAll(ctx, sourcesFile.Sources)

	var iconData *models.IconData
	if mode.RefreshIcons() {
		if err := clearDirectory(r.cfg.IconsDir); err != nil {
			return fmt.Errorf("prepare icons dir: %w", err)
		}
		var stats icons.PoolStats
		iconData, stats, err = icons.FullRefresh(ctx, r.client, results, r.cfg.IconsDir, r.cfg.IconsMapFile, r.cfg.Fetch.Workers)
		if err != nil {
			return err
		}
		logger.Info().
			Int("downloaded", stats.Downloaded).
			Int("skipped", stats.Skipped).
			Int("failed", stats.Failed).
			Msg("Icon pool refreshed")
	} else {
		iconData, err = icons.LoadIconData(r.cfg.IconsMapFile)
		if err != nil {
			if errors.Is(err, &apperrors.ErrNotFound{}) {
				logger.Info().Str("file", r.cfg.IconsMapFile).Msg("No icon mapping yet, skipping rewrite")
			} else {
				logger.Warn().Err(err).Msg("Could not load icon mapping, skipping rewrite")
			}
			iconData = nil
		}
	}

	if iconData != nil {
		r.rewriteAll(results, iconData, owner, repo)
	}

	r.finalize(results, owner, repo)

	summary := models.RunReport{Mode: mode, StartedAt: startedAt, Results: results}
	logger.Info().
		Int("succeeded", summary.Succeeded()).
		Int("failed", summary.Failed()).
		Msg("Sources mirrored")

	if err := report.WriteReadme(r.cfg.ReadmeFile, sourcesFile.Notes, results, time.Now()); err != nil {
		return err
	}

	r.savePool(mode, snapshotKey)

	if r.cfg.Git.Enabled && r.committer != nil {
		committed, err := r.committer.CommitIfChanged(ctx, mode.CommitMessage())
		if err != nil {
			return err
		}
		logger.Info().Bool("committed", committed).Msg("Commit stage finished")
	}

	return nil
}

// restorePool brings the icon pool back from the cache. It returns the
// snapshot key for this run's sources file, or "" when caching is
// unavailable.
func (r *Runner) restorePool() string {
	if r.cache == nil {
		return ""
	}
	logger := config.GetLogger()

	key, err := icons.SnapshotKey(r.cfg.SourcesFile)
	if err != nil {
		logger.Warn().Err(err).Msg("Could not derive snapshot key")
		return ""
	}
	if _, err := icons.RestoreSnapshot(r.cache, r.cfg.IconsDir, key); err != nil {
		logger.Warn().Err(err).Msg("Icon pool restore failed")
	}
	return key
}

// savePool snapshots the icon pool after a run. Full runs always snapshot;
// daily runs only when the key has no entry yet, which happens when the
// sources file changed since the last snapshot.
func (r *Runner) savePool(mode models.RunMode, key string) {
	if r.cache == nil || key == "" {
		return
	}
	if _, err := os.Stat(r.cfg.IconsDir); os.IsNotExist(err) {
		return
	}
	if !mode.RefreshIcons() && r.cache.Contains(key) {
		return
	}
	if err := icons.SaveSnapshot(r.cache, r.cfg.IconsDir, key); err != nil {
		logger := config.GetLogger()
		logger.Warn().Err(err).Msg("Icon pool snapshot failed")
	}
}
