package mirror

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/epgforge/epg-mirror/internal/config"
	"github.com/epgforge/epg-mirror/internal/models"
)

// finalize moves every successfully fetched feed to its committed name in
// the data directory and records the public raw URL. Name collisions across
// sources are deduplicated in sources order.
func (r *Runner) finalize(results []*models.FetchResult, owner, repo string) {
	logger := config.GetLogger()
	used := make(map[string]bool)

	for _, res := range results {
		if res.Failed() {
			continue
		}

		name := dedupeName(finalFileName(res.URL, res.TempPath), used)
		used[name] = true

		target := filepath.Join(r.cfg.DataDir, name)
		if err := os.Rename(res.TempPath, target); err != nil {
			res.Err = fmt.Errorf("move file: %w", err)
			logger.Error().Err(res.Err).Str("source", res.Desc).Msg("Could not finalize feed")
			continue
		}

		res.TempPath = target
		res.FinalName = name
		res.RawURL = rawURL(owner, repo, r.cfg.Branch, path.Join(r.cfg.DataDir, name))
		logger.Info().Str("source", res.Desc).Str("file", name).Msg("Feed finalized")
	}
}
