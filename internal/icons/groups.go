package icons

import (
	"github.com/epgforge/epg-mirror/internal/config"
	"github.com/epgforge/epg-mirror/internal/models"
	"github.com/epgforge/epg-mirror/internal/xmltv"
)

// sourceGroup collects the successfully fetched sources that share one icon
// signature. A nil signature marks the group of feeds without icons.
type sourceGroup struct {
	signature *string
	results   []*models.FetchResult
}

// groupBySignature fingerprints every successfully fetched feed and buckets
// the sources by signature, preserving first-seen order so the first source
// of a group is the group's representative. Feeds that cannot be scanned go
// to the no-icon group, mirroring how an unreadable feed has no usable icons.
func groupBySignature(results []*models.FetchResult) []*sourceGroup {
	logger := config.GetLogger()

	var groups []*sourceGroup
	index := make(map[string]*sourceGroup)
	var nilGroup *sourceGroup

	for _, res := range results {
		if res.Failed() {
			continue
		}

		logger.Info().Str("source", res.Desc).Msg("Scanning feed icons")
		sig, err := xmltv.IconSignature(res.TempPath)
		if err != nil {
			logger.Warn().Err(err).Str("source", res.Desc).Msg("Icon signature scan failed")
			sig = nil
		}

		if sig == nil {
			if nilGroup == nil {
				nilGroup = &sourceGroup{}
				groups = append(groups, nilGroup)
			}
			nilGroup.results = append(nilGroup.results, res)
			continue
		}

		group, ok := index[*sig]
		if !ok {
			group = &sourceGroup{signature: sig}
			index[*sig] = group
			groups = append(groups, group)
		}
		group.results = append(group.results, res)
	}

	return groups
}

// buildIconData turns signature groups into the persisted icon mapping: each
// signed group contributes its representative feed's channel map, every
// referenced icon URL gets a pool path, and each source is linked to its
// group (null for the no-icon group).
func buildIconData(groups []*sourceGroup, iconsDir string) *models.IconData {
	logger := config.GetLogger()
	data := models.NewIconData()

	for _, group := range groups {
		if group.signature == nil {
			for _, res := range group.results {
				data.SourceToGroup[res.URL] = nil
			}
			continue
		}

		representative := group.results[0]
		iconMap, err := xmltv.ChannelIconMap(representative.TempPath)
		if err != nil {
			logger.Warn().Err(err).Str("source", representative.Desc).Msg("Channel icon scan failed")
			continue
		}

		data.Groups[*group.signature] = models.IconGroup{IconMap: iconMap}
		for _, res := range group.results {
			sig := *group.signature
			data.SourceToGroup[res.URL] = &sig
		}

		for _, iconURL := range iconMap {
			if _, ok := data.IconPool[iconURL]; !ok {
				data.IconPool[iconURL] = PoolPath(iconsDir, iconURL)
			}
		}

		logger.Info().
			Str("signature", (*group.signature)[:8]).
			Int("channels", len(iconMap)).
			Int("sources", len(group.results)).
			Msg("Icon group mapped")
	}

	return data
}
