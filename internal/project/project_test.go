package project_test

import (
	"encoding/json"
	"errors"
	"testing"

	"novelkit/internal/asset"
	"novelkit/internal/project"
	"novelkit/internal/testsupport"
)

func sampleProject() *project.Project {
	p := project.New("demo")
	p.ID = "p1"
	p.Assets = []asset.Asset{
		testsupport.ImageAsset("bg1", "forest.png", asset.CategoryBackground),
		testsupport.ImageAsset("spr1", "alice.png", asset.CategoryCharacter),
		testsupport.AudioAsset("bgm1", "theme.mp3", asset.CategoryBGM),
	}
	p.Paragraphs = []project.Paragraph{
		{
			ID:         "para1",
			Title:      "opening",
			Background: "bg1",
			BGM:        "bgm1",
			Characters: []project.Character{
				{ID: "c1", Name: "Alice", Sprite: "spr1"},
			},
		},
		{
			ID:         "para2",
			Title:      "forest again",
			Background: "bg1",
		},
	}
	return p
}

func TestAssetRefDecodesBareID(t *testing.T) {
	var ref project.AssetRef
	if err := json.Unmarshal([]byte(`"bg1"`), &ref); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if ref != "bg1" {
		t.Fatalf("got %q", ref)
	}
}

func TestAssetRefDecodesLegacyEmbeddedAsset(t *testing.T) {
	legacy := `{"id":"bg1","name":"forest.png","type":"image","url":"blob:novelkit/abc"}`
	var ref project.AssetRef
	if err := json.Unmarshal([]byte(legacy), &ref); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if ref != "bg1" {
		t.Fatalf("legacy object decoded to %q", ref)
	}
}

func TestAssetRefDecodesNullAsUnset(t *testing.T) {
	ref := project.AssetRef("stale")
	if err := json.Unmarshal([]byte(`null`), &ref); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !ref.IsZero() {
		t.Fatalf("expected unset ref, got %q", ref)
	}
}

func TestAssetRefEncodesAsID(t *testing.T) {
	data, err := json.Marshal(project.AssetRef("bg1"))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `"bg1"` {
		t.Fatalf("got %s", data)
	}
}

func TestRemoveAssetCascadesToEverySlot(t *testing.T) {
	p := sampleProject()

	if !p.RemoveAsset("bg1") {
		t.Fatal("expected removal")
	}
	if _, ok := p.FindAsset("bg1"); ok {
		t.Fatal("asset survived in flat list")
	}
	for _, para := range p.Paragraphs {
		if para.Background == "bg1" {
			t.Fatalf("paragraph %s still references deleted background", para.ID)
		}
	}
	// Unrelated slots are untouched.
	if p.Paragraphs[0].BGM != "bgm1" {
		t.Fatal("bgm slot was cleared")
	}
	if p.Paragraphs[0].Characters[0].Sprite != "spr1" {
		t.Fatal("sprite slot was cleared")
	}
}

func TestRemoveAssetClearsSprites(t *testing.T) {
	p := sampleProject()
	p.RemoveAsset("spr1")
	if !p.Paragraphs[0].Characters[0].Sprite.IsZero() {
		t.Fatal("sprite slot still set after removal")
	}
}

func TestRemoveAbsentAssetIsNoOp(t *testing.T) {
	p := sampleProject()
	before := len(p.Assets)
	if p.RemoveAsset("does-not-exist") {
		t.Fatal("reported removal of absent asset")
	}
	if len(p.Assets) != before {
		t.Fatal("flat list changed")
	}
	if p.Paragraphs[0].Background != "bg1" {
		t.Fatal("slot cleared by no-op removal")
	}
}

func TestReferencedIDsAreDistinct(t *testing.T) {
	p := sampleProject()
	ids := p.ReferencedIDs()
	want := []string{"bg1", "bgm1", "spr1"}
	if len(ids) != len(want) {
		t.Fatalf("got %v", ids)
	}
	for i, id := range want {
		if ids[i] != id {
			t.Fatalf("got %v, want %v", ids, want)
		}
	}
}

func TestResolverFollowsFlatList(t *testing.T) {
	p := sampleProject()
	p.Assets[0].URL = "blob:novelkit/fresh"

	res := project.NewResolver(p.Assets)
	a, ok := res.Resolve(p.Paragraphs[0].Background)
	if !ok {
		t.Fatal("reference did not resolve")
	}
	if a.URL != "blob:novelkit/fresh" {
		t.Fatalf("resolved stale url %q", a.URL)
	}
	if res.URL("dangling") != "" {
		t.Fatal("dangling reference resolved to a url")
	}
}

func TestUpsertAssetReplacesByID(t *testing.T) {
	p := sampleProject()
	updated := p.Assets[0]
	updated.URL = "blob:novelkit/new"
	p.UpsertAsset(updated)
	if len(p.Assets) != 3 {
		t.Fatalf("expected replace, list grew to %d", len(p.Assets))
	}
	if got, _ := p.FindAsset("bg1"); got.URL != "blob:novelkit/new" {
		t.Fatalf("flat list not updated: %q", got.URL)
	}

	extra := testsupport.ImageAsset("bg2", "cave.png", asset.CategoryBackground)
	p.UpsertAsset(extra)
	if len(p.Assets) != 4 {
		t.Fatal("new asset was not appended")
	}
}

func TestStoreRoundTrip(t *testing.T) {
	store := project.NewStore(t.TempDir())
	p := sampleProject()

	if err := store.Save(p); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := store.Load("p1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Title != "demo" || len(loaded.Paragraphs) != 2 || len(loaded.Assets) != 3 {
		t.Fatalf("round trip mangled document: %+v", loaded)
	}
	if loaded.Paragraphs[0].Background != "bg1" {
		t.Fatalf("slot decoded as %q", loaded.Paragraphs[0].Background)
	}

	ids, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != "p1" {
		t.Fatalf("List returned %v", ids)
	}
}

func TestStoreLoadMissing(t *testing.T) {
	store := project.NewStore(t.TempDir())
	if _, err := store.Load("ghost"); !errors.Is(err, project.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreDeleteIdempotent(t *testing.T) {
	store := project.NewStore(t.TempDir())
	p := sampleProject()
	if err := store.Save(p); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Delete("p1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete("p1"); err != nil {
		t.Fatalf("second Delete failed: %v", err)
	}
}

func TestStoreDecodesLegacyDocuments(t *testing.T) {
	doc := `{
	  "id": "old1",
	  "title": "legacy",
	  "paragraphs": [
	    {
	      "id": "para1",
	      "title": "opening",
	      "text": "",
	      "background": {"id": "bg1", "name": "forest.png", "type": "image", "category": "background", "url": "blob:novelkit/dead"},
	      "bgm": {"id": "bgm1", "name": "theme.mp3", "type": "audio", "category": "bgm", "url": "blob:novelkit/dead2"}
	    }
	  ],
	  "assets": []
	}`
	var p project.Project
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if p.Paragraphs[0].Background != "bg1" || p.Paragraphs[0].BGM != "bgm1" {
		t.Fatalf("legacy slots decoded as %q / %q", p.Paragraphs[0].Background, p.Paragraphs[0].BGM)
	}
}
