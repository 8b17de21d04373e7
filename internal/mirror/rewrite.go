package mirror

import (
	"os"
	"sync"

	"github.com/epgforge/epg-mirror/internal/config"
	"github.com/epgforge/epg-mirror/internal/metrics"
	"github.com/epgforge/epg-mirror/internal/models"
	"github.com/epgforge/epg-mirror/internal/xmltv"
)

// resolveIconURLs builds, for one source, the channel-to-raw-URL map the
// rewrite uses. A channel is included only when its mapped icon is in the
// pool and the pool file actually exists on disk; everything else keeps its
// upstream reference.
func resolveIconURLs(data *models.IconData, sourceURL, owner, repo, branch string) map[string]string {
	iconMap := data.IconMapFor(sourceURL)
	if len(iconMap) == 0 || len(data.IconPool) == 0 {
		return nil
	}

	resolved := make(map[string]string)
	for channelID, iconURL := range iconMap {
		poolPath, ok := data.IconPool[iconURL]
		if !ok {
			continue
		}
		if _, err := os.Stat(poolPath); err != nil {
			continue
		}
		resolved[channelID] = rawURL(owner, repo, branch, poolPath)
	}
	return resolved
}

// rewriteAll points the fetched feeds' channel icons at the pool, in
// parallel. Rewrite problems are logged but never fail the source: the feed
// is then published as it arrived.
func (r *Runner) rewriteAll(results []*models.FetchResult, data *models.IconData, owner, repo string) {
	logger := config.GetLogger()

	workers := r.cfg.Fetch.Workers
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan *models.FetchResult)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for res := range jobs {
				resolved := resolveIconURLs(data, res.URL, owner, repo, r.cfg.Branch)
				if len(resolved) == 0 {
					logger.Debug().Str("source", res.Desc).Msg("No icon mapping for source")
					continue
				}

				changes, err := xmltv.RewriteFile(res.TempPath, internalMemberName(res.URL), resolved)
				if err != nil {
					logger.Error().Err(err).Str("source", res.Desc).Msg("Icon rewrite failed")
					continue
				}
				if changes > 0 {
					metrics.IconsRewrittenTotal.Add(float64(changes))
					logger.Info().Str("source", res.Desc).Int("changes", changes).Msg("Icons rewritten")
				} else {
					logger.Debug().Str("source", res.Desc).Msg("Icons already up to date")
				}
			}
		}()
	}

	for _, res := range results {
		if res.Failed() {
			continue
		}
		jobs <- res
	}
	close(jobs)
	wg.Wait()
}
