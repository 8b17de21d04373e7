package mirror

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/epgforge/epg-mirror/internal/apperrors"
	"github.com/epgforge/epg-mirror/internal/config"
	"github.com/epgforge/epg-mirror/internal/metrics"
	"github.com/epgforge/epg-mirror/internal/models"
)

// loadSources reads the sources configuration file.
func loadSources(path string) (*models.SourcesFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources %s: %w", path, err)
	}
	var sf models.SourcesFile
	if err := json.Unmarshal(raw, &sf); err != nil {
		return nil, fmt.Errorf("parse sources %s: %w", path, err)
	}
	return &sf, nil
}

// clearDirectory empties dir without removing it, creating it when missing.
// Entries that cannot be removed are logged and left behind.
func clearDirectory(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return os.MkdirAll(dir, 0o755)
		}
		return err
	}

	logger := config.GetLogger()
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			logger.Warn().Err(err).Str("entry", entry.Name()).Msg("Could not remove directory entry")
		}
	}
	return nil
}

// randomHex returns n random bytes hex-encoded.
func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

// fetchAll downloads every source into the data directory in parallel,
// returning one result per source in sources order.
func (r *Runner) fetchAll(ctx context.Context, sources []models.Source) []*models.FetchResult {
	results := make([]*models.FetchResult, len(sources))

	workers := r.cfg.Fetch.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(sources) {
		workers = len(sources)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = r.fetchOne(ctx, sources[idx])
			}
		}()
	}
	for i := range sources {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

// fetchOne downloads a single source to a temp file. Any failure, including
// an effectively empty payload, records the error and removes the temp file.
func (r *Runner) fetchOne(ctx context.Context, src models.Source) *models.FetchResult {
	logger := config.GetLogger()
	res := &models.FetchResult{Source: src}
	tempPath := filepath.Join(r.cfg.DataDir, "tmp_"+randomHex(4))

	logger.Info().Str("source", src.Desc).Msg("Downloading feed")
	size, err := r.client.DownloadFeed(ctx, src.URL, tempPath)
	if err == nil {
		res.Size = size
		res.TempPath = tempPath
		if res.SizeMB() == 0 {
			err = apperrors.NewEmptyPayloadError(src.URL)
		}
	}
	if err != nil {
		res.Err = fmt.Errorf("download failed: %w", err)
		res.TempPath = ""
		res.Size = 0
		os.Remove(tempPath)
		metrics.SourceFetchesTotal.WithLabelValues("error").Inc()
		logger.Error().Err(res.Err).Str("source", src.Desc).Msg("Feed download failed")
		return res
	}

	metrics.SourceFetchesTotal.WithLabelValues("success").Inc()
	logger.Info().
		Str("source", src.Desc).
		Float64("size_mb", res.SizeMB()).
		Msg("Feed downloaded")
	return res
}
