package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/epgforge/epg-mirror/internal/cache"
	"github.com/epgforge/epg-mirror/internal/client"
	"github.com/epgforge/epg-mirror/internal/config"
	"github.com/epgforge/epg-mirror/internal/gitops"
	"github.com/epgforge/epg-mirror/internal/metrics"
	"github.com/epgforge/epg-mirror/internal/mirror"
	"github.com/epgforge/epg-mirror/internal/models"
	"github.com/epgforge/epg-mirror/internal/scheduler"
)

func main() {
	fullUpdate := flag.Bool("full-update", false, "rebuild the icon pool and mapping instead of reusing the stored one")
	daemon := flag.Bool("daemon", false, "keep running and execute runs on the built-in schedule")
	dryRun := flag.Bool("dry-run", false, "run every stage but skip the commit and push")
	flag.Parse()

	cfg := config.GetConfig()
	logger := config.GetLogger()

	logger.Info().
		Str("repository", cfg.Repository).
		Str("branch", cfg.Branch).
		Str("sources_file", cfg.SourcesFile).
		Int("workers", cfg.Fetch.Workers).
		Bool("git_enabled", cfg.Git.Enabled).
		Msg("Mirror starting")

	committer := buildCommitter(cfg)
	if *dryRun {
		logger.Info().Msg("Dry run, commits disabled")
		committer = nil
	}
	runner := mirror.NewRunner(cfg, client.NewClient(cfg), buildCache(cfg), committer)

	if *daemon {
		runDaemon(cfg, runner)
		return
	}

	mode := models.RunModeDaily
	if *fullUpdate {
		mode = models.RunModeFull
	}
	if err := runner.Run(context.Background(), mode); err != nil {
		logger.Fatal().Err(err).Msg("Mirror run failed")
	}
}

// cacheLogger surfaces cache errors through the application logger.
type cacheLogger struct{}

func (cacheLogger) Error(msg string, err error) {
	logger := config.GetLogger()
	logger.Error().Err(err).Msg(msg)
}

// buildCache creates the icon pool snapshot cache. A provider that cannot be
// built is not fatal: the mirror runs without snapshots and rebuilds the pool
// on the next full update.
func buildCache(cfg *config.Config) cache.Cache {
	logger := config.GetLogger()

	ttl := 30 * 24 * time.Hour
	if parsed, err := time.ParseDuration(cfg.Cache.TTL); err == nil && parsed > 0 {
		ttl = parsed
	}

	c, err := cache.New(cfg.Cache.Provider, cache.ProviderConfig{
		Size:          cfg.Cache.Size,
		TTL:           ttl,
		Path:          cfg.Cache.Path,
		Logger:        cacheLogger{},
		RedisAddress:  cfg.Cache.Redis.Address,
		RedisPassword: cfg.Cache.Redis.Password,
		RedisDB:       cfg.Cache.Redis.DB,
		Group:         "icon_snapshots",
	})
	if err != nil {
		logger.Warn().Err(err).Str("provider", cfg.Cache.Provider).Msg("Cache unavailable, running without pool snapshots")
		return nil
	}
	return c
}

// buildCommitter wires the git commit stage against the working directory.
func buildCommitter(cfg *config.Config) *gitops.Committer {
	if !cfg.Git.Enabled {
		return nil
	}
	return gitops.NewCommitter(&gitops.ExecRunner{Dir: "."}, cfg, ".")
}

// runDaemon keeps the process alive, executing runs on the built-in schedule
// until SIGINT or SIGTERM arrives.
func runDaemon(cfg *config.Config, runner *mirror.Runner) {
	logger := config.GetLogger()

	sched, err := scheduler.New(func(ctx context.Context, mode models.RunMode) {
		if err := runner.Run(ctx, mode); err != nil {
			logger.Error().Err(err).Str("mode", mode.String()).Msg("Scheduled run failed")
		}
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build schedule")
	}
	sched.Start()

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewHTTPServer("", cfg.Metrics.Port)
		go func() {
			logger.Info().Str("address", metricsServer.Addr).Msg("Starting Prometheus metrics HTTP server")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatal().Err(err).Msg("Failed to serve metrics")
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	// Let any run that is currently executing finish before exiting.
	<-sched.Stop().Done()
	if metricsServer != nil {
		if err := metricsServer.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("Failed to shutdown metrics server")
		}
	}
	logger.Info().Msg("Mirror stopped gracefully")
}
