package icons

import (
	"archive/tar"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/epgforge/epg-mirror/internal/cache"
)

func newSnapshotCache(t *testing.T) cache.Cache {
	t.Helper()
	c, err := cache.New("memory", cache.ProviderConfig{Size: 8})
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func writePoolFile(t *testing.T, iconsDir, name, content string) {
	t.Helper()
	path := filepath.Join(iconsDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestSnapshotKey_DependsOnSourcesBytes(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.json")
	pathB := filepath.Join(dir, "b.json")
	pathC := filepath.Join(dir, "c.json")
	os.WriteFile(pathA, []byte(`{"sources":[]}`), 0o644)
	os.WriteFile(pathB, []byte(`{"sources":[]}`), 0o644)
	os.WriteFile(pathC, []byte(`{"sources":[{"url":"x"}]}`), 0o644)

	keyA, err := SnapshotKey(pathA)
	if err != nil {
		t.Fatalf("SnapshotKey: %v", err)
	}
	keyB, _ := SnapshotKey(pathB)
	keyC, _ := SnapshotKey(pathC)

	if !strings.HasPrefix(keyA, snapshotVersion+"-") {
		t.Errorf("Expected version prefix, got %q", keyA)
	}
	if keyA != keyB {
		t.Error("Identical sources bytes must produce the same key")
	}
	if keyA == keyC {
		t.Error("Different sources bytes must produce different keys")
	}
}

func TestSnapshotKey_MissingSourcesFile(t *testing.T) {
	if _, err := SnapshotKey(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("Expected an error for a missing sources file")
	}
}

func TestSaveAndRestoreSnapshot_RoundTrip(t *testing.T) {
	c := newSnapshotCache(t)
	dir := t.TempDir()
	iconsDir := filepath.Join(dir, "icons")
	writePoolFile(t, iconsDir, filepath.Join("pool", "aa.png"), "png-bytes")
	writePoolFile(t, iconsDir, filepath.Join("pool", "bb.jpg"), "jpg-bytes")

	key := snapshotVersion + "-roundtrip"
	if err := SaveSnapshot(c, iconsDir, key); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	if err := os.RemoveAll(iconsDir); err != nil {
		t.Fatalf("remove: %v", err)
	}

	ok, err := RestoreSnapshot(c, iconsDir, key)
	if err != nil {
		t.Fatalf("RestoreSnapshot: %v", err)
	}
	if !ok {
		t.Fatal("Expected a restore for the saved key")
	}

	got, err := os.ReadFile(filepath.Join(iconsDir, "pool", "aa.png"))
	if err != nil {
		t.Fatalf("read restored file: %v", err)
	}
	if string(got) != "png-bytes" {
		t.Errorf("Restored content mismatch: %q", got)
	}
	if _, err := os.Stat(filepath.Join(iconsDir, "pool", "bb.jpg")); err != nil {
		t.Errorf("Expected second pool file restored: %v", err)
	}
}

func TestRestoreSnapshot_FallsBackToLatest(t *testing.T) {
	c := newSnapshotCache(t)
	dir := t.TempDir()
	iconsDir := filepath.Join(dir, "icons")
	writePoolFile(t, iconsDir, filepath.Join("pool", "aa.png"), "png-bytes")

	if err := SaveSnapshot(c, iconsDir, snapshotVersion+"-old"); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if err := os.RemoveAll(iconsDir); err != nil {
		t.Fatalf("remove: %v", err)
	}

	// The sources file changed, so the exact key misses and the most recent
	// snapshot is used instead.
	ok, err := RestoreSnapshot(c, iconsDir, snapshotVersion+"-new")
	if err != nil {
		t.Fatalf("RestoreSnapshot: %v", err)
	}
	if !ok {
		t.Fatal("Expected a fallback restore")
	}
	if _, err := os.Stat(filepath.Join(iconsDir, "pool", "aa.png")); err != nil {
		t.Errorf("Expected pool file from fallback snapshot: %v", err)
	}
}

func TestRestoreSnapshot_NothingSaved(t *testing.T) {
	c := newSnapshotCache(t)

	ok, err := RestoreSnapshot(c, filepath.Join(t.TempDir(), "icons"), snapshotVersion+"-none")
	if err != nil {
		t.Fatalf("RestoreSnapshot: %v", err)
	}
	if ok {
		t.Error("Expected no restore from an empty cache")
	}
}

func TestSaveSnapshot_MissingDir(t *testing.T) {
	c := newSnapshotCache(t)

	if err := SaveSnapshot(c, filepath.Join(t.TempDir(), "icons"), snapshotVersion+"-empty"); err != nil {
		t.Fatalf("SaveSnapshot on a missing dir: %v", err)
	}
}

func TestUnpackDir_RejectsEscapingEntries(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	content := []byte("evil")
	if err := tw.WriteHeader(&tar.Header{Name: "../evil.txt", Mode: 0o644, Size: int64(len(content))}); err != nil {
		t.Fatalf("tar header: %v", err)
	}
	if _, err := tw.Write(content); err != nil {
		t.Fatalf("tar write: %v", err)
	}
	tw.Close()
	gz.Close()

	if err := unpackDir(t.TempDir(), buf.Bytes()); err == nil {
		t.Fatal("Expected an error for a path-escaping entry")
	}
}
