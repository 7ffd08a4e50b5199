package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"novelkit/internal/asset"
	"novelkit/internal/asset/handle"
	"novelkit/internal/asset/repair"
	"novelkit/internal/asset/store"
	"novelkit/internal/asset/urlcache"
	"novelkit/internal/config"
	"novelkit/internal/export"
	"novelkit/internal/project"
	"novelkit/internal/server"
	"novelkit/internal/testsupport"
)

type env struct {
	cfg      *config.Config
	reg      *handle.Registry
	st       *store.Store
	cache    *urlcache.Cache
	projects *project.Store
	ts       *httptest.Server
}

func newEnv(t *testing.T, opts ...testsupport.ConfigOption) *env {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	reg := testsupport.MustRegistry(t)
	st := testsupport.MustOpenStore(t, cfg, reg)
	cache := urlcache.New(cfg, st, reg, nil)
	t.Cleanup(cache.Close)
	repairer := repair.New(cfg, cache, reg, nil)
	exporter := export.New(cfg, st, nil)
	projects := project.NewStore(cfg.ProjectsDir())

	srv := server.New(cfg, st, cache, repairer, exporter, projects, reg, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &env{cfg: cfg, reg: reg, st: st, cache: cache, projects: projects, ts: ts}
}

func (e *env) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.ts.URL+path, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := e.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func uploadBody(name, category string, data []byte, mime string) map[string]string {
	return map[string]string{
		"name":     name,
		"category": category,
		"data":     asset.EncodeDataURL(mime, data),
	}
}

func TestUploadAndListAssets(t *testing.T) {
	e := newEnv(t)

	resp := e.do(t, http.MethodPost, "/api/projects/p1/assets", uploadBody("forest.png", "background", testsupport.PNGBytes(), "image/png"))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload returned %d", resp.StatusCode)
	}
	created := decode[struct {
		Asset asset.Asset `json:"asset"`
	}](t, resp)
	if created.Asset.ID == "" {
		t.Fatal("upload response has no asset id")
	}
	if !asset.IsHandleURL(created.Asset.URL) {
		t.Fatalf("upload response url is not a handle: %q", created.Asset.URL)
	}
	if created.Asset.Type != asset.TypeImage || created.Asset.Category != asset.CategoryBackground {
		t.Fatalf("type or category mangled: %+v", created.Asset)
	}

	resp = e.do(t, http.MethodGet, "/api/projects/p1/assets", nil)
	listed := decode[struct {
		Assets []asset.Asset `json:"assets"`
	}](t, resp)
	if len(listed.Assets) != 1 || listed.Assets[0].ID != created.Asset.ID {
		t.Fatalf("unexpected listing: %+v", listed.Assets)
	}
}

func TestAcquireAndServeHandleBytes(t *testing.T) {
	e := newEnv(t)

	testsupport.SaveAsset(t, e.st, "p1", testsupport.ImageAsset("a1", "bg.png", asset.CategoryBackground), testsupport.PNGBytes())

	resp := e.do(t, http.MethodPost, "/api/projects/p1/assets/a1/acquire", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("acquire returned %d", resp.StatusCode)
	}
	acquired := decode[struct {
		Handle string `json:"handle"`
	}](t, resp)
	if !asset.IsHandleURL(acquired.Handle) {
		t.Fatalf("acquire returned %q", acquired.Handle)
	}

	resp = e.do(t, http.MethodGet, "/api/handles?url="+acquired.Handle, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("handle bytes returned %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("unexpected content type %q", ct)
	}

	resp = e.do(t, http.MethodPost, "/api/projects/p1/assets/a1/release", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("release returned %d", resp.StatusCode)
	}
	resp.Body.Close()
	if e.cache.RefCount("p1", "a1") != 0 {
		t.Fatal("release did not drop the reference")
	}
}

func TestDeleteAssetCascadesIntoDocument(t *testing.T) {
	e := newEnv(t)

	a := testsupport.SaveAsset(t, e.st, "p1", testsupport.ImageAsset("bg1", "forest.png", asset.CategoryBackground), testsupport.PNGBytes())

	p := project.New("demo")
	p.ID = "p1"
	p.Assets = []asset.Asset{a}
	p.Paragraphs = []project.Paragraph{{ID: "para1", Background: "bg1"}}
	if err := e.projects.Save(p); err != nil {
		t.Fatalf("seed project: %v", err)
	}

	resp := e.do(t, http.MethodDelete, "/api/projects/p1/assets/bg1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete returned %d", resp.StatusCode)
	}
	resp.Body.Close()

	reloaded, err := e.projects.Load("p1")
	if err != nil {
		t.Fatalf("reload project: %v", err)
	}
	if _, ok := reloaded.FindAsset("bg1"); ok {
		t.Fatal("asset survived in flat list")
	}
	if !reloaded.Paragraphs[0].Background.IsZero() {
		t.Fatal("paragraph slot still references deleted asset")
	}
}

func TestRepairEndpointHealsDeadHandles(t *testing.T) {
	e := newEnv(t)

	a := testsupport.SaveAsset(t, e.st, "p1", testsupport.AudioAsset("bgm1", "theme.mp3", asset.CategoryBGM), testsupport.MP3Bytes())
	e.reg.Revoke(a.URL)

	p := project.New("demo")
	p.ID = "p1"
	p.Assets = []asset.Asset{a}
	p.Paragraphs = []project.Paragraph{{ID: "para1", BGM: "bgm1"}}
	if err := e.projects.Save(p); err != nil {
		t.Fatalf("seed project: %v", err)
	}

	resp := e.do(t, http.MethodPost, "/api/projects/p1/repair?strategy=validate", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("repair returned %d", resp.StatusCode)
	}
	result := decode[struct {
		Strategy string `json:"strategy"`
	}](t, resp)
	if result.Strategy != "validate" {
		t.Fatalf("unexpected strategy %q", result.Strategy)
	}

	reloaded, err := e.projects.Load("p1")
	if err != nil {
		t.Fatalf("reload project: %v", err)
	}
	healed, _ := reloaded.FindAsset("bgm1")
	if healed.URL == a.URL {
		t.Fatal("dead handle was not replaced")
	}
}

func TestGetProjectRunsProactiveRepair(t *testing.T) {
	e := newEnv(t)

	a := testsupport.SaveAsset(t, e.st, "p1", testsupport.ImageAsset("bg1", "forest.png", asset.CategoryBackground), testsupport.PNGBytes())
	e.reg.Revoke(a.URL)

	p := project.New("demo")
	p.ID = "p1"
	p.Assets = []asset.Asset{a}
	if err := e.projects.Save(p); err != nil {
		t.Fatalf("seed project: %v", err)
	}

	resp := e.do(t, http.MethodGet, "/api/projects/p1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get project returned %d", resp.StatusCode)
	}
	doc := decode[project.Project](t, resp)
	opened, _ := doc.FindAsset("bg1")
	if opened.URL == a.URL {
		t.Fatal("opened document still carries the dead handle")
	}
}

func TestExportEndpointReturnsArchive(t *testing.T) {
	e := newEnv(t)

	a := testsupport.SaveAsset(t, e.st, "p1", testsupport.ImageAsset("bg1", "forest.png", asset.CategoryBackground), testsupport.PNGBytes())

	p := project.New("demo")
	p.ID = "p1"
	p.Assets = []asset.Asset{a}
	if err := e.projects.Save(p); err != nil {
		t.Fatalf("seed project: %v", err)
	}

	resp := e.do(t, http.MethodPost, "/api/projects/p1/export", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export returned %d", resp.StatusCode)
	}
	result := decode[struct {
		ArchivePath string            `json:"archivePath"`
		AssetPaths  map[string]string `json:"assetPaths"`
	}](t, resp)
	if result.ArchivePath == "" {
		t.Fatal("no archive path in response")
	}
	if result.AssetPaths["bg1"] != "assets/background/bg1.png" {
		t.Fatalf("unexpected asset path %q", result.AssetPaths["bg1"])
	}
}

func TestStorageEndpoint(t *testing.T) {
	e := newEnv(t, testsupport.WithQuotaMiB(1))

	testsupport.SaveAsset(t, e.st, "p1", testsupport.ImageAsset("a1", "bg.png", asset.CategoryBackground), testsupport.PNGBytes())

	resp := e.do(t, http.MethodGet, "/api/storage", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("storage returned %d", resp.StatusCode)
	}
	info := decode[struct {
		UsedBytes  int64 `json:"usedBytes"`
		QuotaBytes int64 `json:"quotaBytes"`
		Assets     int   `json:"assets"`
	}](t, resp)
	if info.Assets != 1 || info.UsedBytes == 0 {
		t.Fatalf("unexpected storage info: %+v", info)
	}
	if info.QuotaBytes != 1024*1024 {
		t.Fatalf("unexpected quota: %d", info.QuotaBytes)
	}
}

func TestBearerTokenIsEnforced(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIToken = "secret"
	reg := testsupport.MustRegistry(t)
	st := testsupport.MustOpenStore(t, cfg, reg)
	cache := urlcache.New(cfg, st, reg, nil)
	t.Cleanup(cache.Close)
	repairer := repair.New(cfg, cache, reg, nil)
	exporter := export.New(cfg, st, nil)
	projects := project.NewStore(cfg.ProjectsDir())

	srv := server.New(cfg, st, cache, repairer, exporter, projects, reg, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp, err := ts.Client().Get(ts.URL + "/api/storage")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/storage", nil)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = ts.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", resp.StatusCode)
	}
}

func TestUnknownResource(t *testing.T) {
	e := newEnv(t)
	resp := e.do(t, http.MethodGet, "/api/projects/p1/unknown", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	var payload map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	if payload["error"] == "" {
		t.Fatalf("unexpected error payload: %v", payload)
	}
}
