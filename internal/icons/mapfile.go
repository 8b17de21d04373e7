package icons

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/epgforge/epg-mirror/internal/apperrors"
	"github.com/epgforge/epg-mirror/internal/models"
)

// LoadIconData reads the persisted icon mapping from path.
// A missing file yields an ErrNotFound, which daily runs treat as "skip the
// rewrite stage" rather than a failure.
func LoadIconData(path string) (*models.IconData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewIconMapNotFoundError(path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var data models.IconData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &data, nil
}

// SaveIconData writes the icon mapping to path as indented JSON. URLs are
// written verbatim (no HTML escaping) so the committed file stays greppable.
func SaveIconData(path string, data *models.IconData) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encode icon data: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
