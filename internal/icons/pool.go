// Package icons manages the curated channel icon pool: grouping sources by
// their icon signature, mapping channels to pooled files, refreshing the pool
// from upstream, and snapshotting it through the cache between runs.
package icons

import (
	"crypto/sha1"
	"encoding/hex"
	"net/url"
	"path"
	"strings"
)

// PoolSubdir is the directory under the icons dir that holds pooled files.
const PoolSubdir = "pool"

// SplitSuffixes splits a file name into its stem and its full suffix chain
// ("guide.xml.gz" -> "guide", ".xml.gz"). A leading dot does not start a
// suffix, so ".hidden" has no chain.
func SplitSuffixes(name string) (stem, chain string) {
	if len(name) < 2 {
		return name, ""
	}
	idx := strings.Index(name[1:], ".")
	if idx < 0 {
		return name, ""
	}
	return name[:idx+1], name[idx+1:]
}

// PoolPath derives the pooled file path for an icon URL: the SHA-1 of the URL
// plus the suffix chain of the URL's file name (".png" when it has none),
// under <iconsDir>/pool. The same URL always lands on the same path, so the
// pool deduplicates icons shared across channels and sources.
func PoolPath(iconsDir, iconURL string) string {
	sum := sha1.Sum([]byte(iconURL))
	hash := hex.EncodeToString(sum[:])

	ext := ".png"
	if parsed, err := url.Parse(iconURL); err == nil {
		if _, chain := SplitSuffixes(path.Base(parsed.Path)); chain != "" {
			ext = chain
		}
	}

	return path.Join(iconsDir, PoolSubdir, hash+ext)
}
