package client

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/epgforge/epg-mirror/internal/config"
	"github.com/epgforge/epg-mirror/internal/models"
)

// Default request timeouts, used when the configured durations fail to parse.
const (
	defaultFeedTimeout = 60 * time.Second
	defaultIconTimeout = 20 * time.Second
)

// Client defines the interface for downloading upstream EPG feeds and channel icons.
type Client interface {
	// DownloadFeed streams the feed at srcURL into destPath and returns the
	// number of bytes written. The destination file is created (truncated if
	// it exists); on error the caller owns cleanup of destPath.
	DownloadFeed(ctx context.Context, srcURL, destPath string) (int64, error)

	// DownloadIcon fetches a channel icon into destPath, creating parent
	// directories as needed. An existing non-empty destination is left
	// untouched and reported as skipped. Failures are absorbed and reported
	// as failed so one broken icon cannot abort a pool refresh.
	DownloadIcon(ctx context.Context, srcURL, destPath string) models.IconStatus
}

// client implements the Client interface
type client struct {
	httpClient  *http.Client
	feedTimeout time.Duration
	iconTimeout time.Duration
}

// NewClient creates a new client instance with proxy configuration if provided
func NewClient(cfg *config.Config) Client {
	feedTimeout := parseTimeout(cfg.Fetch.Timeout, defaultFeedTimeout)
	iconTimeout := parseTimeout(cfg.Fetch.IconTimeout, defaultIconTimeout)

	// Set up base transport with optional proxy
	// Clone DefaultTransport to preserve all its settings (timeouts, connection pooling, HTTP/2, etc.)
	baseTransport := http.DefaultTransport.(*http.Transport).Clone()

	if cfg.ProxyConnectionString != "" {
		proxyURL, err := url.Parse(cfg.ProxyConnectionString)
		if err != nil {
			// Log error but continue without proxy
			logger := config.GetLogger()
			logger.Warn().Err(err).Str("proxy", cfg.ProxyConnectionString).Msg("Invalid proxy URL, continuing without proxy")
		} else {
			// Override only the Proxy field
			baseTransport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	// Wrap transport with compression support (gzip, brotli, zstd).
	// Per-request timeouts are applied via context deadlines in each download
	// method, so no global client timeout is set here.
	httpClient := &http.Client{
		Transport: newCompressionTransport(baseTransport),
	}

	return &client{
		httpClient:  httpClient,
		feedTimeout: feedTimeout,
		iconTimeout: iconTimeout,
	}
}

// parseTimeout parses a duration string, falling back to def when empty or invalid.
func parseTimeout(value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		logger := config.GetLogger()
		logger.Warn().Err(err).Str("timeout", value).Dur("default", def).Msg("Invalid timeout duration, using default")
		return def
	}
	return parsed
}
