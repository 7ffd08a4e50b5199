package export

import (
	"archive/zip"
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"novelkit/internal/asset"
	"novelkit/internal/config"
	"novelkit/internal/logging"
	"novelkit/internal/project"
)

// ErrArchiveGeneration marks a fatal packaging failure that aborts the
// export. Missing asset bytes are not fatal; they surface as warnings.
var ErrArchiveGeneration = errors.New("archive generation failed")

//go:embed runtime.html.tmpl
var runtimeTemplate string

var docTemplate = template.Must(template.New("index").Parse(runtimeTemplate))

type docData struct {
	Title string
	Data  template.JS
}

// BlobSource reads committed asset bytes keyed by (projectID, assetID).
// *store.Store satisfies it.
type BlobSource interface {
	ReadBlob(ctx context.Context, projectID, assetID string) ([]byte, error)
}

// Warning reports an asset whose bytes could not be collected. The asset is
// excluded from the archive.
type Warning struct {
	AssetID string
	Err     error
}

// Result describes a finished export.
type Result struct {
	ArchivePath string
	AssetPaths  map[string]string
	Warnings    []Warning
}

// Pipeline builds distributable archives.
type Pipeline struct {
	source BlobSource
	logger *slog.Logger
	dir    string
}

// New creates an export pipeline writing archives into the configured
// export directory.
func New(cfg *config.Config, source BlobSource, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		source: source,
		logger: logging.NewComponentLogger(logger, "export"),
		dir:    cfg.Paths.ExportDir,
	}
}

// AssetPath computes the deterministic archive-relative path for an asset.
func AssetPath(a asset.Asset) string {
	category := a.Category
	if !category.Valid() {
		category = asset.CategoryOther
	}
	return path.Join("assets", string(category), a.ID+"."+asset.ExtensionFor(a))
}

// Export builds the archive, writes it into the export directory, and
// returns its path along with any per-asset collection warnings.
func (p *Pipeline) Export(ctx context.Context, proj *project.Project) (*Result, error) {
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create export directory: %w", ErrArchiveGeneration, err)
	}

	base := strings.TrimSpace(proj.Title)
	if base == "" {
		base = proj.ID
	}
	target := filepath.Join(p.dir, asset.SanitizeName(base)+".zip")
	tmp := target + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("%w: create archive: %w", ErrArchiveGeneration, err)
	}
	res, err := p.WriteArchive(ctx, proj, f)
	if err != nil {
		f.Close()
		os.Remove(tmp)
		return nil, err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("%w: close archive: %w", ErrArchiveGeneration, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("%w: finalize archive: %w", ErrArchiveGeneration, err)
	}

	res.ArchivePath = target
	p.logger.Info("export complete",
		logging.String(logging.FieldProjectID, proj.ID),
		logging.String("archive", target),
		logging.Int("assets", len(res.AssetPaths)),
		logging.Int("warnings", len(res.Warnings)))
	return res, nil
}

// WriteArchive streams the archive to w. Byte collection reads committed
// store state directly and never consults the handle cache.
func (p *Pipeline) WriteArchive(ctx context.Context, proj *project.Project, w io.Writer) (*Result, error) {
	blobs, paths, warnings := p.collect(ctx, proj)
	snap := buildSnapshot(proj, paths)

	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("%w: encode game data: %w", ErrArchiveGeneration, err)
	}
	title := strings.TrimSpace(proj.Title)
	if title == "" {
		title = "Visual Novel"
	}
	var doc bytes.Buffer
	if err := docTemplate.Execute(&doc, docData{Title: title, Data: template.JS(data)}); err != nil {
		return nil, fmt.Errorf("%w: render document: %w", ErrArchiveGeneration, err)
	}

	zw := zip.NewWriter(w)
	entry, err := zw.Create("index.html")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArchiveGeneration, err)
	}
	if _, err := entry.Write(doc.Bytes()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArchiveGeneration, err)
	}

	// Flat-list order keeps archive layout stable across builds.
	for _, a := range proj.Assets {
		rel, ok := paths[a.ID]
		if !ok {
			continue
		}
		entry, err := zw.Create(rel)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrArchiveGeneration, rel, err)
		}
		if _, err := entry.Write(blobs[a.ID]); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrArchiveGeneration, rel, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArchiveGeneration, err)
	}

	return &Result{AssetPaths: paths, Warnings: warnings}, nil
}

func (p *Pipeline) collect(ctx context.Context, proj *project.Project) (map[string][]byte, map[string]string, []Warning) {
	blobs := make(map[string][]byte, len(proj.Assets))
	paths := make(map[string]string, len(proj.Assets))
	var warnings []Warning

	for _, a := range proj.Assets {
		data, err := p.assetBytes(ctx, proj.ID, a)
		if err != nil {
			p.logger.Warn("asset bytes unavailable, excluding from archive",
				logging.String(logging.FieldProjectID, proj.ID),
				logging.String(logging.FieldAssetID, a.ID),
				logging.Error(err))
			warnings = append(warnings, Warning{AssetID: a.ID, Err: err})
			continue
		}
		blobs[a.ID] = data
		paths[a.ID] = AssetPath(a)
	}
	return blobs, paths, warnings
}

// assetBytes prefers a durable self-contained url over a store read.
func (p *Pipeline) assetBytes(ctx context.Context, projectID string, a asset.Asset) ([]byte, error) {
	if asset.IsDataURL(a.URL) {
		if _, data, err := asset.DecodeDataURL(a.URL); err == nil {
			return data, nil
		}
	}
	return p.source.ReadBlob(ctx, projectID, a.ID)
}
