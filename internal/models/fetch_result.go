package models

import (
	"math"
	"time"
)

// FetchResult records the outcome of mirroring a single source, from download
// through finalization. Results keep the sources-file order so the README and
// commit reflect the configured listing.
type FetchResult struct {
	Source

	// TempPath is the downloaded payload inside the data directory. It is
	// empty when the download failed and is replaced by the final path once
	// the finalize stage renames the file.
	TempPath string

	// Size is the payload size in bytes.
	Size int64

	// FinalName is the committed filename chosen by the finalize stage.
	FinalName string

	// RawURL is the public raw URL of the committed file.
	RawURL string

	// Err is the first error that stopped this source from being mirrored.
	Err error
}

// Failed reports whether this source could not be mirrored.
func (r *FetchResult) Failed() bool {
	return r.Err != nil
}

// SizeMB returns the payload size in megabytes, rounded to two decimals.
func (r *FetchResult) SizeMB() float64 {
	return math.Round(float64(r.Size)/(1024*1024)*100) / 100
}

// RunReport summarizes one mirror run.
type RunReport struct {
	Mode      RunMode
	StartedAt time.Time

	// Results holds one entry per configured source, in sources-file order.
	Results []*FetchResult
}

// Succeeded returns the number of sources that were mirrored without error.
func (r *RunReport) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if !res.Failed() {
			n++
		}
	}
	return n
}

// Failed returns the number of sources that could not be mirrored.
func (r *RunReport) Failed() int {
	return len(r.Results) - r.Succeeded()
}
