package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/epgforge/epg-mirror/internal/apperrors"
	"github.com/epgforge/epg-mirror/internal/config"
)

// DownloadFeed streams the feed at srcURL into destPath.
// Transfer compression (gzip, brotli, zstd) is decoded transparently by the
// transport; payload compression (a source that IS a .gz file) is preserved
// byte-for-byte so the mirrored artifact matches upstream.
func (c *client) DownloadFeed(ctx context.Context, srcURL, destPath string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.feedTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", srcURL, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", config.GetUserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, apperrors.NewUnexpectedStatusError(srcURL, resp.StatusCode)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", destPath, err)
	}

	written, err := io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return written, fmt.Errorf("write %s: %w", destPath, err)
	}
	return written, nil
}
