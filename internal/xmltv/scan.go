package xmltv

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/net/html/charset"
)

// newTokenDecoder builds an XML token decoder that converts any declared
// document encoding (windows-1251 feeds are common) to UTF-8 on the fly.
func newTokenDecoder(r io.Reader) *xml.Decoder {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charset.NewReaderLabel
	return decoder
}

// attrValue returns the value of the named attribute and whether it is present.
func attrValue(el xml.StartElement, name string) (string, bool) {
	for _, attr := range el.Attr {
		if attr.Name.Local == name {
			return attr.Value, true
		}
	}
	return "", false
}

// IconSignature fingerprints the icon set of the feed at path: the SHA-256 of
// all distinct <icon src> URLs, sorted and concatenated. Feeds that share a
// signature use the same icon universe and can share one channel mapping.
// It returns nil for a feed without any icon references.
func IconSignature(path string) (*string, error) {
	r, _, err := OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	urls := make(map[string]struct{})
	decoder := newTokenDecoder(r)
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", path, err)
		}
		el, ok := token.(xml.StartElement)
		if !ok || el.Name.Local != "icon" {
			continue
		}
		if src, ok := attrValue(el, "src"); ok {
			urls[src] = struct{}{}
		}
	}

	if len(urls) == 0 {
		return nil, nil
	}

	sorted := make([]string, 0, len(urls))
	for u := range urls {
		sorted = append(sorted, u)
	}
	sort.Strings(sorted)

	sum := sha256.Sum256([]byte(strings.Join(sorted, "")))
	sig := hex.EncodeToString(sum[:])
	return &sig, nil
}

// ChannelIconMap extracts the channel-to-icon mapping of the feed at path:
// for every <channel id> whose first direct <icon> child carries a src
// attribute, the channel ID maps to that URL. Later icons of the same channel
// and programme-level icons are ignored.
func ChannelIconMap(path string) (map[string]string, error) {
	r, _, err := OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	iconMap := make(map[string]string)
	decoder := newTokenDecoder(r)

	var (
		channelID    string
		channelDepth int // nesting depth inside the current <channel>, 0 = outside
		sawIcon      bool
	)

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", path, err)
		}

		switch el := token.(type) {
		case xml.StartElement:
			if channelDepth == 0 {
				if el.Name.Local == "channel" {
					channelID, _ = attrValue(el, "id")
					channelDepth = 1
					sawIcon = false
				}
				continue
			}

			// Direct children sit at depth 1.
			if channelDepth == 1 && el.Name.Local == "icon" && !sawIcon {
				sawIcon = true
				if channelID != "" {
					if src, ok := attrValue(el, "src"); ok {
						iconMap[channelID] = src
					}
				}
			}
			channelDepth++

		case xml.EndElement:
			if channelDepth > 0 {
				channelDepth--
			}
		}
	}

	return iconMap, nil
}
