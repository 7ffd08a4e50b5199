package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"novelkit/internal/asset"
	"novelkit/internal/asset/store"
	"novelkit/internal/testsupport"
)

func TestSaveAndGet(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reg := testsupport.MustRegistry(t)
	st := testsupport.MustOpenStore(t, cfg, reg)
	ctx := context.Background()

	a := testsupport.ImageAsset("a1", "bg.png", asset.CategoryBackground)
	h, err := st.Save(ctx, "p1", a, testsupport.PNGBytes())
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !reg.Probe(ctx, h) {
		t.Fatal("handle from Save probed invalid")
	}

	fetched, err := st.Get(ctx, "p1", "a1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fetched == nil || fetched.Name != "bg.png" || fetched.Category != asset.CategoryBackground {
		t.Fatalf("unexpected fetched asset: %#v", fetched)
	}
	if fetched.Metadata.Size != int64(len(testsupport.PNGBytes())) {
		t.Fatalf("size not recorded: %d", fetched.Metadata.Size)
	}
	if fetched.URL != h {
		t.Fatalf("url hint not recorded: %q", fetched.URL)
	}
}

func TestGetRespectsProjectScope(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reg := testsupport.MustRegistry(t)
	st := testsupport.MustOpenStore(t, cfg, reg)
	ctx := context.Background()

	testsupport.SaveAsset(t, st, "p1", testsupport.ImageAsset("a1", "bg.png", asset.CategoryBackground), testsupport.PNGBytes())

	got, err := st.Get(ctx, "p2", "a1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Fatal("asset leaked across project scope")
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reg := testsupport.MustRegistry(t)
	st := testsupport.MustOpenStore(t, cfg, reg)
	ctx := context.Background()

	testsupport.SaveAsset(t, st, "p1", testsupport.ImageAsset("a1", "bg.png", asset.CategoryBackground), testsupport.PNGBytes())

	if err := st.Delete(ctx, "p1", "a1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if got, _ := st.Get(ctx, "p1", "a1"); got != nil {
		t.Fatal("asset survived delete")
	}
	if err := st.Delete(ctx, "p1", "a1"); err != nil {
		t.Fatalf("second Delete failed: %v", err)
	}
	if _, err := st.ReadBlob(ctx, "p1", "a1"); !errors.Is(err, store.ErrAssetNotFound) {
		t.Fatalf("expected ErrAssetNotFound after delete, got %v", err)
	}
}

func TestMintHandleAfterRestart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reg := testsupport.MustRegistry(t)
	st := testsupport.MustOpenStore(t, cfg, reg)
	ctx := context.Background()

	saved := testsupport.SaveAsset(t, st, "p1", testsupport.ImageAsset("a1", "bg.png", asset.CategoryBackground), testsupport.PNGBytes())

	// Simulate a page reload: every outstanding handle dies.
	reg.RevokeAll()
	if reg.Probe(ctx, saved.URL) {
		t.Fatal("handle survived registry teardown")
	}

	h2, err := st.MintHandle(ctx, "p1", "a1")
	if err != nil {
		t.Fatalf("MintHandle failed: %v", err)
	}
	if h2 == saved.URL {
		t.Fatal("expected a fresh handle")
	}
	if !reg.Probe(ctx, h2) {
		t.Fatal("fresh handle probed invalid")
	}

	fetched, err := st.Get(ctx, "p1", "a1")
	if err != nil || fetched == nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fetched.URL != h2 {
		t.Fatalf("url hint not refreshed: %q", fetched.URL)
	}
}

func TestMintHandleMissingAsset(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reg := testsupport.MustRegistry(t)
	st := testsupport.MustOpenStore(t, cfg, reg)

	_, err := st.MintHandle(context.Background(), "p1", "ghost")
	if !errors.Is(err, store.ErrAssetNotFound) {
		t.Fatalf("expected ErrAssetNotFound, got %v", err)
	}
}

func TestListByProjectOrdering(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reg := testsupport.MustRegistry(t)
	st := testsupport.MustOpenStore(t, cfg, reg)
	ctx := context.Background()

	testsupport.SaveAsset(t, st, "p1", testsupport.ImageAsset("a1", "bg.png", asset.CategoryBackground), testsupport.PNGBytes())
	testsupport.SaveAsset(t, st, "p1", testsupport.AudioAsset("a2", "theme.mp3", asset.CategoryBGM), testsupport.MP3Bytes())
	testsupport.SaveAsset(t, st, "p2", testsupport.ImageAsset("b1", "other.png", asset.CategoryOther), testsupport.PNGBytes())

	assets, err := st.ListByProject(ctx, "p1")
	if err != nil {
		t.Fatalf("ListByProject failed: %v", err)
	}
	if len(assets) != 2 {
		t.Fatalf("expected 2 assets, got %d", len(assets))
	}
}

func TestDeleteProjectCascades(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reg := testsupport.MustRegistry(t)
	st := testsupport.MustOpenStore(t, cfg, reg)
	ctx := context.Background()

	testsupport.SaveAsset(t, st, "p1", testsupport.ImageAsset("a1", "bg.png", asset.CategoryBackground), testsupport.PNGBytes())
	testsupport.SaveAsset(t, st, "p1", testsupport.AudioAsset("a2", "theme.mp3", asset.CategoryBGM), testsupport.MP3Bytes())

	if err := st.DeleteProject(ctx, "p1"); err != nil {
		t.Fatalf("DeleteProject failed: %v", err)
	}
	assets, err := st.ListByProject(ctx, "p1")
	if err != nil {
		t.Fatalf("ListByProject failed: %v", err)
	}
	if len(assets) != 0 {
		t.Fatalf("expected no assets, got %d", len(assets))
	}
	if _, err := os.Stat(filepath.Join(st.BlobDir(), "p1")); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("project payload tree survived DeleteProject")
	}
}

func TestQuotaEnforcement(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithQuotaMiB(1))
	reg := testsupport.MustRegistry(t)
	st := testsupport.MustOpenStore(t, cfg, reg)
	ctx := context.Background()

	big := make([]byte, 2*1024*1024)
	_, err := st.Save(ctx, "p1", testsupport.ImageAsset("a1", "big.png", asset.CategoryBackground), big)
	if !errors.Is(err, store.ErrStorageWrite) {
		t.Fatalf("expected ErrStorageWrite on quota exhaustion, got %v", err)
	}
}

func TestSanitizedNameCollision(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reg := testsupport.MustRegistry(t)
	st := testsupport.MustOpenStore(t, cfg, reg)
	ctx := context.Background()

	testsupport.SaveAsset(t, st, "p1", testsupport.ImageAsset("aaaa1111", "BG.png", asset.CategoryBackground), testsupport.PNGBytes())
	testsupport.SaveAsset(t, st, "p1", testsupport.ImageAsset("bbbb2222", "bg.PNG", asset.CategoryBackground), testsupport.PNGBytes())

	b1, err := st.ReadBlob(ctx, "p1", "aaaa1111")
	if err != nil {
		t.Fatalf("ReadBlob a1: %v", err)
	}
	b2, err := st.ReadBlob(ctx, "p1", "bbbb2222")
	if err != nil {
		t.Fatalf("ReadBlob a2: %v", err)
	}
	if len(b1) == 0 || len(b2) == 0 {
		t.Fatal("expected both payloads readable despite name collision")
	}
}

func TestStorageInfo(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithQuotaMiB(10))
	reg := testsupport.MustRegistry(t)
	st := testsupport.MustOpenStore(t, cfg, reg)
	ctx := context.Background()

	payload := testsupport.PNGBytes()
	testsupport.SaveAsset(t, st, "p1", testsupport.ImageAsset("a1", "bg.png", asset.CategoryBackground), payload)

	info, err := st.StorageInfo(ctx)
	if err != nil {
		t.Fatalf("StorageInfo failed: %v", err)
	}
	if info.Used != int64(len(payload)) {
		t.Fatalf("unexpected used bytes: %d", info.Used)
	}
	if info.Total != 10*1024*1024 {
		t.Fatalf("unexpected total: %d", info.Total)
	}
	if info.Available != info.Total-info.Used {
		t.Fatalf("unexpected available: %d", info.Available)
	}
	if info.Assets != 1 || info.Projects != 1 {
		t.Fatalf("unexpected counts: %+v", info)
	}
}

func TestSaveOverwriteKeepsSingleRow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reg := testsupport.MustRegistry(t)
	st := testsupport.MustOpenStore(t, cfg, reg)
	ctx := context.Background()

	a := testsupport.ImageAsset("a1", "bg.png", asset.CategoryBackground)
	testsupport.SaveAsset(t, st, "p1", a, testsupport.PNGBytes())
	a.Name = "bg2.png"
	testsupport.SaveAsset(t, st, "p1", a, testsupport.PNGBytes())

	assets, err := st.ListByProject(ctx, "p1")
	if err != nil {
		t.Fatalf("ListByProject failed: %v", err)
	}
	if len(assets) != 1 {
		t.Fatalf("expected upsert, got %d rows", len(assets))
	}
	if assets[0].Name != "bg2.png" {
		t.Fatalf("expected updated name, got %s", assets[0].Name)
	}
}
