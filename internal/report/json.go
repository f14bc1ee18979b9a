package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"sdwan-sites/pkg/models"
)

// ExportJSON writes the full site map to path as indented JSON.
func ExportJSON(path string, sites *models.SiteMap) error {
	b, err := json.MarshalIndent(sites, "", "  ")
	if err != nil {
		return fmt.Errorf("encode sites: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// LoadJSON reads a site map written by ExportJSON.
func LoadJSON(path string) (*models.SiteMap, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	sites := models.NewSiteMap()
	if err := json.Unmarshal(b, sites); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return sites, nil
}
