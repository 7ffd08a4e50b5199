package store

import (
	"path/filepath"
	"strings"

	"novelkit/internal/asset"
)

// blobRelPath builds the storage path for a payload from its owning project,
// category, and sanitized display name. The path is relative to the blob
// root and recorded verbatim in the metadata row.
func blobRelPath(projectID string, category asset.Category, name string) string {
	return filepath.Join(projectID, string(category), asset.SanitizeName(name))
}

// disambiguate inserts a short id fragment before the extension so two
// assets whose names sanitize identically keep distinct payload files.
func disambiguate(relPath, assetID string) string {
	ext := filepath.Ext(relPath)
	base := strings.TrimSuffix(relPath, ext)
	fragment := assetID
	if len(fragment) > 8 {
		fragment = fragment[:8]
	}
	return base + "-" + fragment + ext
}

func (s *Store) blobAbsPath(relPath string) string {
	return filepath.Join(s.blobDir, relPath)
}
