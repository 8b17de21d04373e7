// Package gitops records a mirror run in git: it stages the tracked artifact
// paths, commits exactly once when any of them changed, and pushes. Git is
// invoked through a small runner interface so the commit decision logic is
// testable without a repository.
package gitops

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/epgforge/epg-mirror/internal/config"
)

// CommandRunner executes one git subcommand and returns its combined output.
type CommandRunner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// ExecRunner runs git through os/exec, rooted at Dir.
type ExecRunner struct {
	Dir string
}

// Run executes git with the given arguments.
func (r *ExecRunner) Run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.Dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("git %s: %w: %s",
			strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

// Committer stages and commits the mirror artifacts.
type Committer struct {
	runner CommandRunner
	dir    string
	push   bool
	remote string
	paths  []string
}

// NewCommitter creates a Committer for the repository at dir. The tracked
// paths are the four artifact locations from the configuration.
func NewCommitter(runner CommandRunner, cfg *config.Config, dir string) *Committer {
	return &Committer{
		runner: runner,
		dir:    dir,
		push:   cfg.Git.Push,
		remote: cfg.Git.Remote,
		paths:  []string{cfg.DataDir, cfg.IconsDir, cfg.ReadmeFile, cfg.IconsMapFile},
	}
}

// CommitIfChanged stages the tracked paths, commits with message when any of
// them differ from HEAD, and pushes when enabled. When nothing differs the
// run still succeeds and no commit is created. It reports whether a commit
// was made.
func (c *Committer) CommitIfChanged(ctx context.Context, message string) (bool, error) {
	logger := config.GetLogger()

	// Paths that a run never produced (e.g. the icon mapping before the
	// first full update) would fail git's pathspec matching.
	present := c.presentPaths()
	if len(present) == 0 {
		logger.Info().Msg("No tracked artifacts present, nothing to commit")
		return false, nil
	}

	addArgs := append([]string{"add", "-A", "--"}, present...)
	if _, err := c.runner.Run(ctx, addArgs...); err != nil {
		return false, err
	}

	statusArgs := append([]string{"status", "--porcelain", "--"}, present...)
	out, err := c.runner.Run(ctx, statusArgs...)
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(out) == "" {
		logger.Info().Msg("No changes to commit")
		return false, nil
	}

	if _, err := c.runner.Run(ctx, "commit", "-m", message); err != nil {
		return false, err
	}
	logger.Info().Str("message", message).Msg("Changes committed")

	if c.push {
		if _, err := c.runner.Run(ctx, "push", c.remote); err != nil {
			return true, err
		}
		logger.Info().Str("remote", c.remote).Msg("Changes pushed")
	}
	return true, nil
}

// presentPaths returns the tracked paths that exist on disk.
func (c *Committer) presentPaths() []string {
	var present []string
	for _, p := range c.paths {
		if _, err := os.Stat(filepath.Join(c.dir, p)); err == nil {
			present = append(present, p)
		}
	}
	return present
}
