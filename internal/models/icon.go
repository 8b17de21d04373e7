package models

// IconStatus represents the outcome of a single icon pool download.
type IconStatus string

const (
	// IconStatusDownloaded means the icon was fetched and written to the pool.
	IconStatusDownloaded IconStatus = "downloaded"
	// IconStatusSkipped means a non-empty pool file already existed.
	IconStatusSkipped IconStatus = "skipped"
	// IconStatusFailed means the fetch failed; the run continues without the icon.
	IconStatusFailed IconStatus = "failed"
)

// String returns the string representation of the icon status.
func (s IconStatus) String() string {
	return string(s)
}

// IconGroup holds the channel-to-icon mapping for one group of sources that
// share an identical icon signature.
type IconGroup struct {
	// IconMap maps a channel ID to the upstream icon URL the group uses for it.
	IconMap map[string]string `json:"icon_map"`
}

// IconData is the persisted icon mapping written as icons_map.json during a
// full update and read back on daily runs.
type IconData struct {
	// IconPool maps an upstream icon URL to its pooled file path
	// (e.g. "icons/pool/<sha1>.png").
	IconPool map[string]string `json:"icon_pool"`

	// Groups maps an icon signature to the channel mapping shared by all
	// sources with that signature.
	Groups map[string]IconGroup `json:"groups"`

	// SourceToGroup maps a source URL to its icon signature. Sources whose
	// feeds carry no icons map to null.
	SourceToGroup map[string]*string `json:"source_to_group"`
}

// NewIconData returns an IconData with all maps initialized.
func NewIconData() *IconData {
	return &IconData{
		IconPool:      make(map[string]string),
		Groups:        make(map[string]IconGroup),
		SourceToGroup: make(map[string]*string),
	}
}

// IconMapFor resolves the channel-to-icon mapping for the given source URL.
// It returns nil when the source is unknown or belongs to the no-icon group.
func (d *IconData) IconMapFor(sourceURL string) map[string]string {
	if d == nil {
		return nil
	}
	sig, ok := d.SourceToGroup[sourceURL]
	if !ok || sig == nil {
		return nil
	}
	group, ok := d.Groups[*sig]
	if !ok {
		return nil
	}
	return group.IconMap
}
