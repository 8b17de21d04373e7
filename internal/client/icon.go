package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/epgforge/epg-mirror/internal/apperrors"
	"github.com/epgforge/epg-mirror/internal/config"
	"github.com/epgforge/epg-mirror/internal/models"
)

// DownloadIcon fetches a channel icon into destPath.
// An existing non-empty file is kept as-is (the pool survives across runs via
// the snapshot cache, so most icons are already present). All failures are
// logged and reported as IconStatusFailed; a single unreachable icon host
// must not abort the pool refresh.
func (c *client) DownloadIcon(ctx context.Context, srcURL, destPath string) models.IconStatus {
	if info, err := os.Stat(destPath); err == nil && info.Size() > 0 {
		return models.IconStatusSkipped
	}

	logger := config.GetLogger()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		logger.Warn().Err(err).Str("path", destPath).Msg("Failed to create icon pool directory")
		return models.IconStatusFailed
	}

	if err := c.fetchIcon(ctx, srcURL, destPath); err != nil {
		logger.Warn().Err(err).Str("url", srcURL).Msg("Icon download failed")
		// A partial file would be treated as a valid pooled icon on the next
		// run, so remove whatever was written.
		_ = os.Remove(destPath)
		return models.IconStatusFailed
	}
	return models.IconStatusDownloaded
}

func (c *client) fetchIcon(ctx context.Context, srcURL, destPath string) error {
	ctx, cancel := context.WithTimeout(ctx, c.iconTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", srcURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", config.GetUserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperrors.NewUnexpectedStatusError(srcURL, resp.StatusCode)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}

	_, err = io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", destPath, err)
	}
	return nil
}
