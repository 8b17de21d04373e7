package xmltv

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/text/encoding/charmap"

	"github.com/epgforge/epg-mirror/internal/testutil"
)

const pooledURL = "https://raw.githubusercontent.com/owner/repo/main/icons/pool/abc.png"

func TestRewriteFile_ReplacesChannelIcon(t *testing.T) {
	dir := t.TempDir()
	doc := testutil.GenerateXMLTV(
		[]testutil.ChannelOptions{{ID: "one", IconSrc: "http://img.example/one.png"}},
		[]testutil.ProgrammeOptions{{Channel: "one", Title: "Evening News"}},
	)
	path := testutil.WriteFeedFile(t, dir, "feed.xml", doc, false)

	changes, err := RewriteFile(path, "feed.xml", map[string]string{"one": pooledURL})
	if err != nil {
		t.Fatalf("RewriteFile: %v", err)
	}
	if changes != 1 {
		t.Fatalf("Expected 1 change, got %d", changes)
	}

	got := string(testutil.ReadMaybeGzipped(t, path))
	if !strings.Contains(got, pooledURL) {
		t.Error("Expected pooled URL in rewritten feed")
	}
	if strings.Contains(got, "http://img.example/one.png") {
		t.Error("Upstream icon URL must be gone")
	}
	if !strings.HasPrefix(got, xmlDeclaration+"\n"+doctype+"\n") {
		t.Errorf("Expected declaration and doctype head, got:\n%s", got[:120])
	}
	if !strings.Contains(got, "Evening News") {
		t.Error("Programme content must survive the rewrite")
	}
}

func TestRewriteFile_AppendsMissingIcon(t *testing.T) {
	dir := t.TempDir()
	doc := testutil.GenerateXMLTV([]testutil.ChannelOptions{{ID: "bare"}}, nil)
	path := testutil.WriteFeedFile(t, dir, "feed.xml", doc, false)

	changes, err := RewriteFile(path, "feed.xml", map[string]string{"bare": pooledURL})
	if err != nil {
		t.Fatalf("RewriteFile: %v", err)
	}
	if changes != 1 {
		t.Fatalf("Expected 1 change, got %d", changes)
	}

	got := string(testutil.ReadMaybeGzipped(t, path))
	iconIdx := strings.Index(got, pooledURL)
	closeIdx := strings.Index(got, "</channel>")
	if iconIdx < 0 {
		t.Fatal("Expected appended icon with pooled URL")
	}
	if closeIdx < iconIdx {
		t.Error("Appended icon must sit inside the channel element")
	}
}

func TestRewriteFile_IdempotentWhenAlreadyPooled(t *testing.T) {
	dir := t.TempDir()
	doc := testutil.GenerateXMLTV(
		[]testutil.ChannelOptions{{ID: "one", IconSrc: "http://img.example/one.png"}},
		nil,
	)
	path := testutil.WriteFeedFile(t, dir, "feed.xml", doc, false)

	if _, err := RewriteFile(path, "feed.xml", map[string]string{"one": pooledURL}); err != nil {
		t.Fatalf("first RewriteFile: %v", err)
	}
	afterFirst, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	changes, err := RewriteFile(path, "feed.xml", map[string]string{"one": pooledURL})
	if err != nil {
		t.Fatalf("second RewriteFile: %v", err)
	}
	if changes != 0 {
		t.Errorf("Expected 0 changes on second pass, got %d", changes)
	}

	afterSecond, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(afterFirst, afterSecond) {
		t.Error("Unchanged feed must keep its exact bytes")
	}
}

func TestRewriteFile_EmptyMapLeavesFileUntouched(t *testing.T) {
	dir := t.TempDir()
	original := "<tv><channel id=\"one\"><icon src=\"http://img.example/one.png\"/></channel></tv>"
	path := testutil.WriteFeedFile(t, dir, "feed.xml", original, false)

	changes, err := RewriteFile(path, "feed.xml", nil)
	if err != nil {
		t.Fatalf("RewriteFile: %v", err)
	}
	if changes != 0 {
		t.Errorf("Expected 0 changes, got %d", changes)
	}

	got, _ := os.ReadFile(path)
	if string(got) != original {
		t.Error("File must keep upstream bytes when no mapping applies")
	}
}

func TestRewriteFile_UnmappedChannelUntouched(t *testing.T) {
	dir := t.TempDir()
	doc := testutil.GenerateXMLTV([]testutil.ChannelOptions{
		{ID: "mapped", IconSrc: "http://img.example/mapped.png"},
		{ID: "other", IconSrc: "http://img.example/other.png"},
	}, nil)
	path := testutil.WriteFeedFile(t, dir, "feed.xml", doc, false)

	changes, err := RewriteFile(path, "feed.xml", map[string]string{"mapped": pooledURL})
	if err != nil {
		t.Fatalf("RewriteFile: %v", err)
	}
	if changes != 1 {
		t.Fatalf("Expected 1 change, got %d", changes)
	}

	got := string(testutil.ReadMaybeGzipped(t, path))
	if !strings.Contains(got, "http://img.example/other.png") {
		t.Error("Unmapped channel must keep its upstream icon")
	}
}

func TestRewriteFile_ProgrammeIconsUntouched(t *testing.T) {
	dir := t.TempDir()
	doc := testutil.GenerateXMLTV(
		[]testutil.ChannelOptions{{ID: "one", IconSrc: "http://img.example/one.png"}},
		[]testutil.ProgrammeOptions{{Channel: "one", Title: "Movie", IconSrc: "http://img.example/poster.jpg"}},
	)
	path := testutil.WriteFeedFile(t, dir, "feed.xml", doc, false)

	if _, err := RewriteFile(path, "feed.xml", map[string]string{"one": pooledURL}); err != nil {
		t.Fatalf("RewriteFile: %v", err)
	}

	got := string(testutil.ReadMaybeGzipped(t, path))
	if !strings.Contains(got, "http://img.example/poster.jpg") {
		t.Error("Programme icons must not be rewritten")
	}
}

func TestRewriteFile_GzipPayload(t *testing.T) {
	dir := t.TempDir()
	doc := testutil.GenerateXMLTV(
		[]testutil.ChannelOptions{{ID: "one", IconSrc: "http://img.example/one.png"}},
		nil,
	)
	path := testutil.WriteFeedFile(t, dir, "guide.xml.gz", doc, true)

	changes, err := RewriteFile(path, "guide.xml", map[string]string{"one": pooledURL})
	if err != nil {
		t.Fatalf("RewriteFile: %v", err)
	}
	if changes != 1 {
		t.Fatalf("Expected 1 change, got %d", changes)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	r, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Rewritten payload must still be gzip: %v", err)
	}
	defer r.Close()

	if r.Header.Name != "guide.xml" {
		t.Errorf("Expected member name 'guide.xml', got %q", r.Header.Name)
	}
	if !r.Header.ModTime.IsZero() && !r.Header.ModTime.Equal(time.Unix(0, 0)) {
		t.Errorf("Expected zero modification time, got %v", r.Header.ModTime)
	}

	var inner bytes.Buffer
	if _, err := inner.ReadFrom(r); err != nil {
		t.Fatalf("read inner: %v", err)
	}
	if !strings.Contains(inner.String(), pooledURL) {
		t.Error("Expected pooled URL inside the gzip payload")
	}
}

func TestRewriteFile_DeterministicOutput(t *testing.T) {
	dir := t.TempDir()
	doc := testutil.GenerateXMLTV(
		[]testutil.ChannelOptions{{ID: "one", IconSrc: "http://img.example/one.png"}},
		[]testutil.ProgrammeOptions{{Channel: "one", Title: "News"}},
	)
	pathA := testutil.WriteFeedFile(t, dir, "a.xml.gz", doc, true)
	pathB := testutil.WriteFeedFile(t, dir, "b.xml.gz", doc, true)

	mapping := map[string]string{"one": pooledURL}
	if _, err := RewriteFile(pathA, "a.xml", mapping); err != nil {
		t.Fatalf("RewriteFile(a): %v", err)
	}
	if _, err := RewriteFile(pathB, "a.xml", mapping); err != nil {
		t.Fatalf("RewriteFile(b): %v", err)
	}

	bytesA, _ := os.ReadFile(pathA)
	bytesB, _ := os.ReadFile(pathB)
	if !bytes.Equal(bytesA, bytesB) {
		t.Error("Identical input and mapping must produce identical output bytes")
	}
}

func TestRewriteFile_ConvertsLegacyEncoding(t *testing.T) {
	dir := t.TempDir()

	cyrillicName := "Первый канал"
	utf8Doc := `<?xml version="1.0" encoding="windows-1251"?>
<tv>
  <channel id="one">
    <display-name>` + cyrillicName + `</display-name>
    <icon src="http://img.example/one.png"/>
  </channel>
</tv>`
	encoded, err := charmap.Windows1251.NewEncoder().String(utf8Doc)
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	path := testutil.WriteFeedFile(t, dir, "feed.xml", encoded, false)

	changes, err := RewriteFile(path, "feed.xml", map[string]string{"one": pooledURL})
	if err != nil {
		t.Fatalf("RewriteFile: %v", err)
	}
	if changes != 1 {
		t.Fatalf("Expected 1 change, got %d", changes)
	}

	got := string(testutil.ReadMaybeGzipped(t, path))
	if !strings.Contains(got, `encoding="UTF-8"`) {
		t.Error("Expected UTF-8 declaration after rewrite")
	}
	if !strings.Contains(got, cyrillicName) {
		t.Error("Expected channel name converted to UTF-8")
	}
}

func TestRewriteFile_MalformedXMLFails(t *testing.T) {
	dir := t.TempDir()
	// Unclosed elements get repaired silently; a document cut off inside a
	// tag cannot be.
	original := "<tv><channel id=\"one\"><icon src=\"u"
	path := testutil.WriteFeedFile(t, dir, "feed.xml", original, false)

	if _, err := RewriteFile(path, "feed.xml", map[string]string{"one": pooledURL}); err == nil {
		t.Fatal("Expected error for malformed XML")
	}

	// The failed rewrite must leave the published file as-is.
	got, _ := os.ReadFile(path)
	if string(got) != original {
		t.Error("Failed rewrite must not modify the file")
	}

	// No temp leftovers either.
	if _, err := os.Stat(path + ".rewrite"); !os.IsNotExist(err) {
		t.Error("Temp file must be cleaned up after a failed rewrite")
	}
}
