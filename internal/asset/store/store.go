package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"novelkit/internal/asset"
	"novelkit/internal/asset/handle"
	"novelkit/internal/config"
	"novelkit/internal/logging"
)

// Store manages durable asset persistence backed by SQLite plus an on-disk
// payload tree.
type Store struct {
	db       *sql.DB
	path     string
	blobDir  string
	quota    int64
	registry *handle.Registry
	logger   *slog.Logger
}

// Open initializes or connects to the asset database and applies the schema.
func Open(cfg *config.Config, registry *handle.Registry, logger *slog.Logger) (*Store, error) {
	if registry == nil {
		return nil, errors.New("handle registry is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.Storage.DatabasePath
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{
		db:       db,
		path:     dbPath,
		blobDir:  cfg.Paths.BlobDir,
		quota:    cfg.QuotaBytes(),
		registry: registry,
		logger:   logging.NewComponentLogger(logger, "store"),
	}
	if err := store.applySchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save stores metadata and payload bytes keyed by (projectID, asset.ID) and
// returns an immediately-usable handle to the freshly stored bytes.
func (s *Store) Save(ctx context.Context, projectID string, a asset.Asset, data []byte) (string, error) {
	if projectID == "" {
		return "", fmt.Errorf("%w: project id is required", ErrStorageWrite)
	}
	if err := a.Validate(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}

	if s.quota > 0 {
		used, err := s.usedBytes(ctx)
		if err != nil {
			return "", fmt.Errorf("%w: query usage: %w", ErrStorageWrite, err)
		}
		if used+int64(len(data)) > s.quota {
			return "", fmt.Errorf("%w: quota exceeded (%d bytes used of %d)", ErrStorageWrite, used, s.quota)
		}
	}

	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (id, created_at) VALUES (?, ?) ON CONFLICT (id) DO NOTHING`,
		projectID, now.Format(time.RFC3339Nano),
	); err != nil {
		return "", fmt.Errorf("%w: ensure project: %w", ErrStorageWrite, err)
	}

	relPath, err := s.claimBlobPath(ctx, projectID, a)
	if err != nil {
		return "", err
	}

	if err := s.writeBlob(relPath, data); err != nil {
		return "", fmt.Errorf("%w: write payload: %w", ErrStorageWrite, err)
	}

	h := s.registry.Mint(data, a.Metadata.Format)

	a.Metadata.Size = int64(len(data))
	if a.Metadata.UploadedAt.IsZero() {
		a.Metadata.UploadedAt = now
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO assets (
            project_id, id, name, type, category, url, size, format,
            width, height, duration, blob_path, uploaded_at, last_used
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (project_id, id) DO UPDATE SET
            name = excluded.name, type = excluded.type,
            category = excluded.category, url = excluded.url,
            size = excluded.size, format = excluded.format,
            width = excluded.width, height = excluded.height,
            duration = excluded.duration, blob_path = excluded.blob_path,
            uploaded_at = excluded.uploaded_at, last_used = excluded.last_used`,
		projectID,
		a.ID,
		a.Name,
		string(a.Type),
		string(a.Category),
		h,
		a.Metadata.Size,
		a.Metadata.Format,
		nullableInt(a.Metadata.Width),
		nullableInt(a.Metadata.Height),
		nullableFloat(a.Metadata.Duration),
		relPath,
		a.Metadata.UploadedAt.Format(time.RFC3339Nano),
		nullableTime(a.Metadata.LastUsed),
	); err != nil {
		s.registry.Revoke(h)
		return "", fmt.Errorf("%w: insert asset: %w", ErrStorageWrite, err)
	}

	s.logger.Info("saved asset",
		logging.String(logging.FieldProjectID, projectID),
		logging.String(logging.FieldAssetID, a.ID),
		logging.String("blob_path", relPath),
		logging.Int64("size", a.Metadata.Size))
	return h, nil
}

// Get fetches asset metadata. Returns nil (not an error) when the asset is
// absent or owned by a different project.
func (s *Store) Get(ctx context.Context, projectID, assetID string) (*asset.Asset, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE project_id = ? AND id = ?`,
		projectID, assetID)
	a, _, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}
	return a, nil
}

// Delete removes both metadata and payload. Idempotent: deleting an absent
// asset is not an error.
func (s *Store) Delete(ctx context.Context, projectID, assetID string) error {
	var relPath sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT blob_path FROM assets WHERE project_id = ? AND id = ?`,
		projectID, assetID).Scan(&relPath)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup asset for delete: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM assets WHERE project_id = ? AND id = ?`,
		projectID, assetID); err != nil {
		return fmt.Errorf("delete asset: %w", err)
	}

	if relPath.Valid && relPath.String != "" {
		if err := os.Remove(s.blobAbsPath(relPath.String)); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to remove payload file",
				logging.String("blob_path", relPath.String),
				logging.Error(err),
				logging.String(logging.FieldImpact, "orphaned payload remains until gc"))
		}
	}

	s.logger.Info("deleted asset",
		logging.String(logging.FieldProjectID, projectID),
		logging.String(logging.FieldAssetID, assetID))
	return nil
}

// ListByProject returns every asset owned by a project ordered by upload
// time, then id for a stable tie-break.
func (s *Store) ListByProject(ctx context.Context, projectID string) ([]asset.Asset, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE project_id = ? ORDER BY uploaded_at, id`,
		projectID)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []asset.Asset
	for rows.Next() {
		a, _, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, *a)
	}
	return assets, rows.Err()
}

// DeleteProject removes every asset owned by the project along with its
// payload tree and the project record itself.
func (s *Store) DeleteProject(ctx context.Context, projectID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM assets WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("delete project assets: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, projectID); err != nil {
		return fmt.Errorf("delete project record: %w", err)
	}
	if projectID != "" {
		if err := os.RemoveAll(filepath.Join(s.blobDir, projectID)); err != nil {
			return fmt.Errorf("remove project payloads: %w", err)
		}
	}
	s.logger.Info("deleted project", logging.String(logging.FieldProjectID, projectID))
	return nil
}

// MintHandle re-reads the stored payload and issues a fresh handle,
// independent of any previously issued one. The new handle is recorded as
// the asset's url hint.
func (s *Store) MintHandle(ctx context.Context, projectID, assetID string) (string, error) {
	var relPath, format string
	err := s.db.QueryRowContext(ctx,
		`SELECT blob_path, format FROM assets WHERE project_id = ? AND id = ?`,
		projectID, assetID).Scan(&relPath, &format)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s/%s", ErrAssetNotFound, projectID, assetID)
	}
	if err != nil {
		return "", fmt.Errorf("lookup asset: %w", err)
	}

	data, err := os.ReadFile(s.blobAbsPath(relPath))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: payload missing for %s/%s", ErrAssetNotFound, projectID, assetID)
		}
		return "", fmt.Errorf("%w: %s/%s: %w", ErrPayloadRead, projectID, assetID, err)
	}

	h := s.registry.Mint(data, format)
	if _, err := s.db.ExecContext(ctx,
		`UPDATE assets SET url = ? WHERE project_id = ? AND id = ?`,
		h, projectID, assetID); err != nil {
		s.logger.Warn("failed to record url hint",
			logging.String(logging.FieldAssetID, assetID),
			logging.Error(err))
	}
	return h, nil
}

// ReadBlob returns the committed payload bytes for an asset, bypassing
// handles entirely. Used by the export pipeline.
func (s *Store) ReadBlob(ctx context.Context, projectID, assetID string) ([]byte, error) {
	var relPath string
	err := s.db.QueryRowContext(ctx,
		`SELECT blob_path FROM assets WHERE project_id = ? AND id = ?`,
		projectID, assetID).Scan(&relPath)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", ErrAssetNotFound, projectID, assetID)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup asset: %w", err)
	}

	data, err := os.ReadFile(s.blobAbsPath(relPath))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: payload missing for %s/%s", ErrAssetNotFound, projectID, assetID)
		}
		return nil, fmt.Errorf("%w: %s/%s: %w", ErrPayloadRead, projectID, assetID, err)
	}
	return data, nil
}

// TouchLastUsed records when the asset was last resolved. Best-effort.
func (s *Store) TouchLastUsed(ctx context.Context, projectID, assetID string, at time.Time) {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE assets SET last_used = ? WHERE project_id = ? AND id = ?`,
		at.UTC().Format(time.RFC3339Nano), projectID, assetID); err != nil {
		s.logger.Debug("failed to bump last_used",
			logging.String(logging.FieldAssetID, assetID),
			logging.Error(err))
	}
}

// Info summarizes storage consumption against the configured quota.
type Info struct {
	Used      int64
	Total     int64
	Available int64
	Assets    int
	Projects  int
}

// StorageInfo reports bytes used, the configured quota, and remaining
// capacity. With no quota configured Total and Available are zero.
func (s *Store) StorageInfo(ctx context.Context) (Info, error) {
	info := Info{Total: s.quota}

	row := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size), 0), COUNT(1) FROM assets`)
	if err := row.Scan(&info.Used, &info.Assets); err != nil {
		return Info{}, fmt.Errorf("storage info: %w", err)
	}
	row = s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM projects`)
	if err := row.Scan(&info.Projects); err != nil {
		return Info{}, fmt.Errorf("storage info: %w", err)
	}
	if s.quota > 0 && s.quota > info.Used {
		info.Available = s.quota - info.Used
	}
	return info, nil
}

// BlobDir exposes the payload root for diagnostics.
func (s *Store) BlobDir() string { return s.blobDir }

// BlobPaths returns the set of payload paths (relative to the blob root)
// referenced by metadata rows. Used by the cleanup scanner.
func (s *Store) BlobPaths(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT blob_path FROM assets`)
	if err != nil {
		return nil, fmt.Errorf("query blob paths: %w", err)
	}
	defer rows.Close()

	paths := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths[p] = struct{}{}
	}
	return paths, rows.Err()
}

func (s *Store) usedBytes(ctx context.Context) (int64, error) {
	var used int64
	row := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size), 0) FROM assets`)
	if err := row.Scan(&used); err != nil {
		return 0, err
	}
	return used, nil
}

// claimBlobPath computes the payload path for an asset, stepping around a
// path already claimed by a different asset id.
func (s *Store) claimBlobPath(ctx context.Context, projectID string, a asset.Asset) (string, error) {
	relPath := blobRelPath(projectID, a.Category, a.Name)

	var ownerID string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM assets WHERE project_id = ? AND blob_path = ?`,
		projectID, relPath).Scan(&ownerID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return relPath, nil
	case err != nil:
		return "", fmt.Errorf("%w: check payload path: %w", ErrStorageWrite, err)
	case ownerID == a.ID:
		return relPath, nil
	default:
		return disambiguate(relPath, a.ID), nil
	}
}

func (s *Store) writeBlob(relPath string, data []byte) error {
	target := s.blobAbsPath(relPath)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create payload directory: %w", err)
	}
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp payload: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename payload: %w", err)
	}
	return nil
}

const assetColumns = "project_id, id, name, type, category, url, size, format, width, height, duration, blob_path, uploaded_at, last_used"

func scanAsset(scanner interface{ Scan(dest ...any) error }) (*asset.Asset, string, error) {
	var (
		projectID   string
		id          string
		name        string
		typeStr     string
		categoryStr string
		url         sql.NullString
		size        int64
		format      string
		width       sql.NullInt64
		height      sql.NullInt64
		duration    sql.NullFloat64
		blobPath    string
		uploadedRaw string
		lastUsedRaw sql.NullString
	)

	if err := scanner.Scan(
		&projectID,
		&id,
		&name,
		&typeStr,
		&categoryStr,
		&url,
		&size,
		&format,
		&width,
		&height,
		&duration,
		&blobPath,
		&uploadedRaw,
		&lastUsedRaw,
	); err != nil {
		return nil, "", err
	}

	a := &asset.Asset{
		ID:       id,
		Name:     name,
		Type:     asset.Type(typeStr),
		Category: asset.Category(categoryStr),
		URL:      url.String,
	}
	a.Metadata.Size = size
	a.Metadata.Format = format
	if width.Valid {
		a.Metadata.Width = int(width.Int64)
	}
	if height.Valid {
		a.Metadata.Height = int(height.Int64)
	}
	if duration.Valid {
		a.Metadata.Duration = duration.Float64
	}
	if uploaded, err := time.Parse(time.RFC3339Nano, uploadedRaw); err == nil {
		a.Metadata.UploadedAt = uploaded
	}
	if lastUsedRaw.Valid {
		if lastUsed, err := time.Parse(time.RFC3339Nano, lastUsedRaw.String); err == nil {
			a.Metadata.LastUsed = &lastUsed
		}
	}
	return a, blobPath, nil
}

func nullableInt(value int) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullableFloat(value float64) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}
