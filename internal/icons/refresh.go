package icons

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/epgforge/epg-mirror/internal/client"
	"github.com/epgforge/epg-mirror/internal/config"
	"github.com/epgforge/epg-mirror/internal/metrics"
	"github.com/epgforge/epg-mirror/internal/models"
)

// PoolStats summarizes one pool refresh.
type PoolStats struct {
	Downloaded int
	Skipped    int
	Failed     int
}

// Total returns the number of icons the refresh handled.
func (s PoolStats) Total() int {
	return s.Downloaded + s.Skipped + s.Failed
}

// FullRefresh rebuilds the icon mapping from the fetched feeds and brings the
// pool up to date: sources are grouped by icon signature, each group's
// representative feed contributes its channel map, every referenced icon is
// downloaded into the pool (bounded by workers), and the resulting mapping is
// persisted to mapPath for the daily runs in between full updates.
func FullRefresh(ctx context.Context, cl client.Client, results []*models.FetchResult, iconsDir, mapPath string, workers int) (*models.IconData, PoolStats, error) {
	groups := groupBySignature(results)
	data := buildIconData(groups, iconsDir)
	stats := refreshPool(ctx, cl, data, workers)

	if err := SaveIconData(mapPath, data); err != nil {
		return nil, stats, err
	}
	return data, stats, nil
}

// refreshPool downloads every pooled icon that is not already on disk, using
// up to workers parallel downloads. Failures are counted, not fatal: a
// channel whose icon never arrives simply keeps its upstream reference.
func refreshPool(ctx context.Context, cl client.Client, data *models.IconData, workers int) PoolStats {
	logger := config.GetLogger()

	total := len(data.IconPool)
	if total == 0 {
		return PoolStats{}
	}
	if workers < 1 {
		workers = 1
	}

	logger.Info().Int("icons", total).Int("workers", workers).Msg("Refreshing icon pool")

	type job struct {
		url  string
		path string
	}
	jobs := make(chan job)

	var downloaded, skipped, failed int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				status := cl.DownloadIcon(ctx, j.url, j.path)
				metrics.IconDownloadsTotal.WithLabelValues(status.String()).Inc()
				switch status {
				case models.IconStatusDownloaded:
					atomic.AddInt64(&downloaded, 1)
				case models.IconStatusSkipped:
					atomic.AddInt64(&skipped, 1)
				default:
					atomic.AddInt64(&failed, 1)
				}
			}
		}()
	}

	for url, path := range data.IconPool {
		if ctx.Err() != nil {
			// Stop feeding; workers drain and report what completed.
			break
		}
		select {
		case jobs <- job{url: url, path: path}:
		case <-ctx.Done():
		}
	}
	close(jobs)
	wg.Wait()

	stats := PoolStats{
		Downloaded: int(atomic.LoadInt64(&downloaded)),
		Skipped:    int(atomic.LoadInt64(&skipped)),
		Failed:     int(atomic.LoadInt64(&failed)),
	}

	logger.Info().
		Int("downloaded", stats.Downloaded).
		Int("skipped", stats.Skipped).
		Int("failed", stats.Failed).
		Msg("Icon pool refresh finished")

	return stats
}
