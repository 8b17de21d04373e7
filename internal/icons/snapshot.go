package icons

import (
	"archive/tar"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/epgforge/epg-mirror/internal/cache"
	"github.com/epgforge/epg-mirror/internal/config"
)

// snapshotVersion prefixes every snapshot key so a change to the archive
// layout can retire old entries by bumping the version.
const snapshotVersion = "icons-v2"

// latestSnapshotKey indexes the most recently saved snapshot key, serving as
// the fallback when the exact sources hash has no entry yet.
const latestSnapshotKey = snapshotVersion + "-latest"

// SnapshotKey derives the cache key for the icon pool from the sources file:
// the pool contents follow from which sources are mirrored, so the key is the
// SHA-256 of the sources file bytes under a version prefix.
func SnapshotKey(sourcesPath string) (string, error) {
	raw, err := os.ReadFile(sourcesPath)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", sourcesPath, err)
	}
	sum := sha256.Sum256(raw)
	return snapshotVersion + "-" + hex.EncodeToString(sum[:]), nil
}

// SaveSnapshot archives the icons directory into the cache under key and
// records key as the latest snapshot for fallback restores.
func SaveSnapshot(c cache.Cache, iconsDir, key string) error {
	blob, err := packDir(iconsDir)
	if err != nil {
		return fmt.Errorf("pack %s: %w", iconsDir, err)
	}

	c.Set(key, blob)
	c.Set(latestSnapshotKey, []byte(key))

	logger := config.GetLogger()
	logger.Info().
		Str("key", key).
		Int("bytes", len(blob)).
		Msg("Icon pool snapshot saved")
	return nil
}

// RestoreSnapshot extracts the snapshot for key into iconsDir. When the exact
// key is absent it falls back to the most recently saved snapshot, so a
// changed sources file still reuses the previous pool. It reports whether
// anything was restored.
func RestoreSnapshot(c cache.Cache, iconsDir, key string) (bool, error) {
	logger := config.GetLogger()

	blob, ok := c.Get(key)
	if !ok {
		latest, found := c.Get(latestSnapshotKey)
		if !found {
			logger.Info().Str("key", key).Msg("No icon pool snapshot available")
			return false, nil
		}
		fallbackKey := string(latest)
		if blob, ok = c.Get(fallbackKey); !ok {
			logger.Info().Str("key", fallbackKey).Msg("Latest snapshot entry is stale")
			return false, nil
		}
		logger.Info().Str("key", fallbackKey).Msg("Restoring icon pool from fallback snapshot")
	} else {
		logger.Info().Str("key", key).Msg("Restoring icon pool snapshot")
	}

	if err := unpackDir(iconsDir, blob); err != nil {
		return false, fmt.Errorf("unpack snapshot: %w", err)
	}
	return true, nil
}

// packDir archives every regular file under dir into a gzipped tar, with
// paths stored relative to dir. A missing or empty directory packs into an
// empty archive.
func packDir(dir string) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == dir {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		header := &tar.Header{
			Name: filepath.ToSlash(rel),
			Mode: 0o644,
			Size: info.Size(),
		}
		if err := tw.WriteHeader(header); err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		_, err = io.Copy(tw, f)
		f.Close()
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// unpackDir extracts a gzipped tar produced by packDir into dir, rejecting
// entries that would escape it.
func unpackDir(dir string, blob []byte) error {
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}

		name := filepath.FromSlash(header.Name)
		if filepath.IsAbs(name) || strings.Contains(name, "..") {
			return fmt.Errorf("unsafe archive entry %q", header.Name)
		}

		target := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}

		out, err := os.Create(target)
		if err != nil {
			return err
		}
		_, err = io.Copy(out, tr)
		if closeErr := out.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return err
		}
	}
}
