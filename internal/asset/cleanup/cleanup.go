// Package cleanup scans the blob tree for payload files that no metadata
// row references. Orphans accumulate when a process dies between writing a
// blob and committing its row; the scanner reports them and can reclaim
// the space.
package cleanup

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"novelkit/internal/asset/store"
	"novelkit/internal/logging"
)

// Result contains the outcome of an orphan scan.
type Result struct {
	Orphans []string
	Removed []string
	Errors  []ScanError
}

// ScanError pairs a blob path with the error that hit it.
type ScanError struct {
	Path  string
	Error error
}

// Scan walks the blob tree and reports files without a metadata row,
// relative to the blob root. When remove is true the orphans are deleted
// and emptied directories pruned.
func Scan(ctx context.Context, st *store.Store, remove bool, logger *slog.Logger) (Result, error) {
	logger = logging.NewComponentLogger(logger, "cleanup")
	result := Result{}

	referenced, err := st.BlobPaths(ctx)
	if err != nil {
		return result, err
	}

	root := st.BlobDir()
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			result.Errors = append(result.Errors, ScanError{Path: path, Error: err})
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			result.Errors = append(result.Errors, ScanError{Path: path, Error: err})
			return nil
		}
		if _, ok := referenced[rel]; ok {
			return nil
		}
		result.Orphans = append(result.Orphans, rel)
		return nil
	})
	if err != nil {
		return result, err
	}
	sort.Strings(result.Orphans)

	if !remove {
		return result, nil
	}

	for _, rel := range result.Orphans {
		path := filepath.Join(root, rel)
		if err := os.Remove(path); err != nil {
			result.Errors = append(result.Errors, ScanError{Path: path, Error: err})
			logger.Warn("failed to remove orphan blob",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "disk space not reclaimed"))
			continue
		}
		result.Removed = append(result.Removed, rel)
		logger.Info("removed orphan blob", logging.String("path", path))
		pruneEmptyParents(root, filepath.Dir(path))
	}
	return result, nil
}

// pruneEmptyParents removes now-empty directories up to but excluding root.
func pruneEmptyParents(root, dir string) {
	for dir != root && len(dir) > len(root) {
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}
