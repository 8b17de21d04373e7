package mirror

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/epgforge/epg-mirror/internal/icons"
	"github.com/epgforge/epg-mirror/internal/xmltv"
)

// urlBasename returns the file name component of a source URL, or "feed"
// when the URL path has none.
func urlBasename(sourceURL string) string {
	base := ""
	if parsed, err := url.Parse(sourceURL); err == nil {
		base = path.Base(parsed.Path)
	}
	if base == "" || base == "." || base == "/" {
		return "feed"
	}
	return base
}

// finalFileName picks the committed name for a source: the URL basename,
// extended with ".xml.gz" or ".xml" per a payload sniff when it carries no
// extension of its own.
func finalFileName(sourceURL, payloadPath string) string {
	base := urlBasename(sourceURL)
	if _, chain := icons.SplitSuffixes(base); chain != "" {
		return base
	}

	if gzipped, err := xmltv.IsGzipped(payloadPath); err == nil && gzipped {
		return base + ".xml.gz"
	}
	return base + ".xml"
}

// internalMemberName is the file name recorded inside a re-gzipped feed: the
// URL basename without its ".gz", or with ".xml" appended when the name does
// not announce gzip.
func internalMemberName(sourceURL string) string {
	base := urlBasename(sourceURL)
	if len(base) > 3 && strings.EqualFold(base[len(base)-3:], ".gz") {
		return base[:len(base)-3]
	}
	return base + ".xml"
}

// dedupeName makes name unique among the already used ones by inserting
// "-1", "-2", ... before the suffix chain.
func dedupeName(name string, used map[string]bool) string {
	if !used[name] {
		return name
	}
	stem, chain := icons.SplitSuffixes(name)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, i, chain)
		if !used[candidate] {
			return candidate
		}
	}
}

// rawURL builds the public raw content URL for a committed file.
func rawURL(owner, repo, branch, filePath string) string {
	return fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s/%s", owner, repo, branch, filePath)
}
