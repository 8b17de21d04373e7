package xmltv

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
)

// xmlDeclaration and doctype head every rewritten document, replacing
// whatever the upstream feed declared.
const (
	xmlDeclaration = `<?xml version="1.0" encoding="UTF-8"?>`
	doctype        = `<!DOCTYPE tv SYSTEM "https://iptvx.one/xmltv.dtd">`
)

// RewriteFile points channel icons of the feed at path to their pooled
// replacements. iconURLs maps channel IDs to the replacement URL for the
// channel's first <icon>; channels without a first icon get one appended.
//
// The document is re-serialized (UTF-8, two-space indent, fixed doctype,
// deterministic gzip when the payload was gzipped with internalName as the
// member name) only when at least one icon reference actually changed;
// otherwise the file keeps its upstream bytes so an unchanged feed produces
// no diff. The number of changed references is returned.
func RewriteFile(path, internalName string, iconURLs map[string]string) (int, error) {
	if len(iconURLs) == 0 {
		return 0, nil
	}

	in, wasGzipped, err := OpenReader(path)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	tmpPath := path + ".rewrite"
	out, err := os.Create(tmpPath)
	if err != nil {
		return 0, err
	}
	// Remove the temp file on every path except the final rename.
	renamed := false
	defer func() {
		out.Close()
		if !renamed {
			os.Remove(tmpPath)
		}
	}()

	buffered := bufio.NewWriter(out)
	var body io.Writer = buffered
	var gz io.WriteCloser
	if wasGzipped {
		gz = newDeterministicGzipWriter(buffered, internalName)
		body = gz
	}

	changes, err := rewriteTokens(in, body, iconURLs)
	if err != nil {
		return 0, fmt.Errorf("rewrite %s: %w", path, err)
	}

	if gz != nil {
		if err := gz.Close(); err != nil {
			return 0, err
		}
	}
	if err := buffered.Flush(); err != nil {
		return 0, err
	}
	if err := out.Close(); err != nil {
		return 0, err
	}

	if changes == 0 {
		return 0, nil
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return 0, err
	}
	renamed = true
	return changes, nil
}

// rewriteTokens streams the document from r to w, swapping icon references
// per iconURLs, and returns how many references changed.
func rewriteTokens(r io.Reader, w io.Writer, iconURLs map[string]string) (int, error) {
	if _, err := io.WriteString(w, xmlDeclaration+"\n"+doctype+"\n"); err != nil {
		return 0, err
	}

	decoder := newTokenDecoder(r)
	// Upstream feeds are not always well-formed; keep going on the kind of
	// damage a strict parser would reject.
	decoder.Strict = false

	encoder := xml.NewEncoder(w)
	encoder.Indent("", "  ")

	changes := 0
	var (
		channelID    string
		channelDepth int
		sawIcon      bool
	)

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}

		switch el := token.(type) {
		case xml.ProcInst:
			// The upstream XML declaration is replaced by our own.
			if el.Target == "xml" {
				continue
			}
			if err := encoder.EncodeToken(token); err != nil {
				return 0, err
			}

		case xml.Directive:
			// The upstream doctype is replaced by our own.
			continue

		case xml.CharData:
			// Drop inter-element whitespace; the encoder re-indents.
			if len(strings.TrimSpace(string(el))) == 0 {
				continue
			}
			if err := encoder.EncodeToken(token); err != nil {
				return 0, err
			}

		case xml.StartElement:
			if channelDepth == 0 && el.Name.Local == "channel" {
				channelID, _ = attrValue(el, "id")
				channelDepth = 1
				sawIcon = false
				if err := encoder.EncodeToken(token); err != nil {
					return 0, err
				}
				continue
			}

			if channelDepth == 1 && el.Name.Local == "icon" && !sawIcon {
				sawIcon = true
				if newURL, ok := iconURLs[channelID]; ok && channelID != "" {
					el, changed := setIconSrc(el, newURL)
					if changed {
						changes++
					}
					channelDepth++
					if err := encoder.EncodeToken(el); err != nil {
						return 0, err
					}
					continue
				}
			}
			if channelDepth > 0 {
				channelDepth++
			}
			if err := encoder.EncodeToken(token); err != nil {
				return 0, err
			}

		case xml.EndElement:
			if channelDepth == 1 {
				// Closing the channel itself: a mapped channel that never had
				// an icon gets one appended as its last child.
				if newURL, ok := iconURLs[channelID]; ok && channelID != "" && !sawIcon {
					icon := xml.StartElement{
						Name: xml.Name{Local: "icon"},
						Attr: []xml.Attr{{Name: xml.Name{Local: "src"}, Value: newURL}},
					}
					if err := encoder.EncodeToken(icon); err != nil {
						return 0, err
					}
					if err := encoder.EncodeToken(icon.End()); err != nil {
						return 0, err
					}
					changes++
				}
				channelID = ""
			}
			if channelDepth > 0 {
				channelDepth--
			}
			if err := encoder.EncodeToken(token); err != nil {
				return 0, err
			}

		default:
			if err := encoder.EncodeToken(token); err != nil {
				return 0, err
			}
		}
	}

	if err := encoder.Flush(); err != nil {
		return 0, err
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return 0, err
	}
	return changes, nil
}

// setIconSrc returns el with its src attribute set to newURL, reporting
// whether that differs from what was there before.
func setIconSrc(el xml.StartElement, newURL string) (xml.StartElement, bool) {
	attrs := make([]xml.Attr, len(el.Attr))
	copy(attrs, el.Attr)
	el.Attr = attrs

	for i, attr := range el.Attr {
		if attr.Name.Local == "src" {
			if attr.Value == newURL {
				return el, false
			}
			el.Attr[i].Value = newURL
			return el, true
		}
	}

	el.Attr = append(el.Attr, xml.Attr{Name: xml.Name{Local: "src"}, Value: newURL})
	return el, true
}
