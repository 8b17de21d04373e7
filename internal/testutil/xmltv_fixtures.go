// Package testutil provides XMLTV fixture builders and file helpers shared by
// tests across the module.
package testutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
)

// ChannelOptions describes one <channel> element in a generated guide.
type ChannelOptions struct {
	ID          string
	DisplayName string
	IconSrc     string   // first icon; empty means no icon element
	ExtraIcons  []string // additional icons after the first
	NoID        bool     // emit the channel without an id attribute
}

// ProgrammeOptions describes one <programme> element in a generated guide.
type ProgrammeOptions struct {
	Channel string
	Title   string
	Start   string // XMLTV timestamp, defaults to a fixed value
	Stop    string
	IconSrc string // programme-level icon, empty for none
}

// GenerateXMLTV builds a guide document in the shape real providers publish:
// XML declaration, tv doctype, channels first, then programmes.
func GenerateXMLTV(channels []ChannelOptions, programmes []ProgrammeOptions) string {
	var sb strings.Builder

	sb.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	sb.WriteString("<!DOCTYPE tv SYSTEM \"https://iptvx.one/xmltv.dtd\">\n")
	sb.WriteString("<tv generator-info-name=\"testutil\">\n")

	for _, ch := range channels {
		if ch.NoID {
			sb.WriteString("  <channel>\n")
		} else {
			fmt.Fprintf(&sb, "  <channel id=\"%s\">\n", ch.ID)
		}

		name := ch.DisplayName
		if name == "" {
			name = ch.ID
		}
		fmt.Fprintf(&sb, "    <display-name>%s</display-name>\n", name)

		if ch.IconSrc != "" {
			fmt.Fprintf(&sb, "    <icon src=\"%s\"/>\n", ch.IconSrc)
		}
		for _, extra := range ch.ExtraIcons {
			fmt.Fprintf(&sb, "    <icon src=\"%s\"/>\n", extra)
		}
		sb.WriteString("  </channel>\n")
	}

	for _, prog := range programmes {
		start := prog.Start
		if start == "" {
			start = "20260101000000 +0000"
		}
		stop := prog.Stop
		if stop == "" {
			stop = "20260101010000 +0000"
		}
		fmt.Fprintf(&sb, "  <programme start=\"%s\" stop=\"%s\" channel=\"%s\">\n", start, stop, prog.Channel)
		fmt.Fprintf(&sb, "    <title>%s</title>\n", prog.Title)
		if prog.IconSrc != "" {
			fmt.Fprintf(&sb, "    <icon src=\"%s\"/>\n", prog.IconSrc)
		}
		sb.WriteString("  </programme>\n")
	}

	sb.WriteString("</tv>\n")
	return sb.String()
}

// GzipBytes compresses data with default settings.
func GzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

// WriteFeedFile writes content into dir under name, gzip-compressing it when
// gzipped is true, and returns the full path.
func WriteFeedFile(t *testing.T, dir, name, content string, gzipped bool) string {
	t.Helper()
	payload := []byte(content)
	if gzipped {
		payload = GzipBytes(t, payload)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write feed file: %v", err)
	}
	return path
}

// ReadMaybeGzipped returns the file's contents, decompressing when the bytes
// carry the gzip magic header.
func ReadMaybeGzipped(t *testing.T, path string) []byte {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if len(raw) < 2 || raw[0] != 0x1f || raw[1] != 0x8b {
		return raw
	}
	gz, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("gzip open %s: %v", path, err)
	}
	defer gz.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(gz); err != nil {
		t.Fatalf("gzip read %s: %v", path, err)
	}
	return buf.Bytes()
}
