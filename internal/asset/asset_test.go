package asset_test

import (
	"testing"

	"novelkit/internal/asset"
)

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"bg.png", "bg.png"},
		{"Title Screen.PNG", "title-screen.png"},
		{"  spaced   out .mp3", "spaced-out.mp3"},
		{"日本語タイトル.jpg", "日本語タイトル.jpg"},
		{"___", "asset"},
		{"", "asset"},
		{"weird/../name!!.png", "weird-name.png"},
	}
	for _, tc := range cases {
		if got := asset.SanitizeName(tc.in); got != tc.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExtensionForPrefersFormat(t *testing.T) {
	a := asset.Asset{Name: "cover.jpeg", Type: asset.TypeImage}
	a.Metadata.Format = "image/png"
	if got := asset.ExtensionFor(a); got != "png" {
		t.Fatalf("expected png from metadata format, got %q", got)
	}
}

func TestExtensionForFallsBackToName(t *testing.T) {
	a := asset.Asset{Name: "cover.webp", Type: asset.TypeImage}
	if got := asset.ExtensionFor(a); got != "webp" {
		t.Fatalf("expected webp from name, got %q", got)
	}
}

func TestExtensionForSniffsDataURL(t *testing.T) {
	a := asset.Asset{Name: "cover", Type: asset.TypeImage, URL: "data:image/gif;base64,R0lGOD=="}
	if got := asset.ExtensionFor(a); got != "gif" {
		t.Fatalf("expected gif from data url, got %q", got)
	}
}

func TestExtensionForTypeDefaults(t *testing.T) {
	img := asset.Asset{Name: "cover", Type: asset.TypeImage}
	if got := asset.ExtensionFor(img); got != "png" {
		t.Fatalf("expected png default, got %q", got)
	}
	aud := asset.Asset{Name: "theme", Type: asset.TypeAudio}
	if got := asset.ExtensionFor(aud); got != "mp3" {
		t.Fatalf("expected mp3 default, got %q", got)
	}
}

func TestDataURLRoundTrip(t *testing.T) {
	payload := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}
	url := asset.EncodeDataURL("image/png", payload)
	if !asset.IsDataURL(url) {
		t.Fatal("expected data url classification")
	}
	mime, data, err := asset.DecodeDataURL(url)
	if err != nil {
		t.Fatalf("DecodeDataURL failed: %v", err)
	}
	if mime != "image/png" {
		t.Fatalf("unexpected mime %q", mime)
	}
	if string(data) != string(payload) {
		t.Fatalf("payload mismatch: %v", data)
	}
}

func TestDecodeDataURLRejectsMalformed(t *testing.T) {
	if _, _, err := asset.DecodeDataURL("data:image/png;base64"); err == nil {
		t.Fatal("expected error for missing separator")
	}
	if _, _, err := asset.DecodeDataURL("blob:novelkit/abc"); err == nil {
		t.Fatal("expected error for non data url")
	}
}

func TestHandleClassification(t *testing.T) {
	if !asset.IsHandleURL(asset.HandleScheme + "abc") {
		t.Fatal("expected handle classification")
	}
	if asset.IsHandleURL("data:image/png;base64,xx") {
		t.Fatal("data url misclassified as handle")
	}
}

func TestValidate(t *testing.T) {
	a := asset.Asset{ID: asset.NewID(), Name: "bg.png", Type: asset.TypeImage, Category: asset.CategoryBackground}
	if err := a.Validate(); err != nil {
		t.Fatalf("valid asset rejected: %v", err)
	}
	a.Category = "scenery"
	if err := a.Validate(); err == nil {
		t.Fatal("expected rejection of unknown category")
	}
	a.Category = asset.CategoryBackground
	a.Type = "video"
	if err := a.Validate(); err == nil {
		t.Fatal("expected rejection of unknown type")
	}
}

func TestParseCategory(t *testing.T) {
	if asset.ParseCategory(" BGM ") != asset.CategoryBGM {
		t.Fatal("expected bgm")
	}
	if asset.ParseCategory("scenery") != asset.CategoryOther {
		t.Fatal("expected fallback to other")
	}
}
