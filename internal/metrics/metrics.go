package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Mirror run metrics
var (
	// SourceFetchesTotal counts upstream feed downloads by outcome ("success" or "error").
	SourceFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "epg_source_fetches_total",
			Help: "Total number of upstream feed downloads.",
		},
		[]string{"status"},
	)

	// IconDownloadsTotal counts icon pool downloads by outcome
	// ("downloaded", "skipped", or "failed").
	IconDownloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "epg_icon_downloads_total",
			Help: "Total number of channel icon downloads.",
		},
		[]string{"status"},
	)

	// IconsRewrittenTotal counts channel icon references rewritten to the local pool.
	IconsRewrittenTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "epg_icons_rewritten_total",
			Help: "Total number of channel icon references rewritten to pooled paths.",
		},
	)

	// RunsTotal counts mirror runs by mode ("daily" or "full") and outcome.
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "epg_runs_total",
			Help: "Total number of mirror runs.",
		},
		[]string{"mode", "status"},
	)

	// RunDurationSeconds reports the wall time of the most recent run per mode.
	RunDurationSeconds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "epg_run_duration_seconds",
			Help: "Duration of the most recent mirror run.",
		},
		[]string{"mode"},
	)

	// LastRunTimestampSeconds reports when the most recent run finished per mode.
	LastRunTimestampSeconds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "epg_last_run_timestamp_seconds",
			Help: "Unix timestamp of the most recent completed mirror run.",
		},
		[]string{"mode"},
	)
)

func init() {
	prometheus.MustRegister(
		SourceFetchesTotal,
		IconDownloadsTotal,
		IconsRewrittenTotal,
		RunsTotal,
		RunDurationSeconds,
		LastRunTimestampSeconds,
	)
}
