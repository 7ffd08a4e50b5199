package handle_test

import (
	"context"
	"testing"
	"time"

	"novelkit/internal/asset"
	"novelkit/internal/asset/handle"
)

func TestMintProbeRevoke(t *testing.T) {
	reg := handle.NewRegistry(nil)
	ctx := context.Background()

	h := reg.Mint([]byte{1, 2, 3}, "image/png")
	if !asset.IsHandleURL(h) {
		t.Fatalf("minted handle has wrong scheme: %s", h)
	}
	if !reg.Probe(ctx, h) {
		t.Fatal("fresh handle probed invalid")
	}

	data, mime, ok := reg.Bytes(h)
	if !ok || mime != "image/png" || len(data) != 3 {
		t.Fatalf("unexpected payload: ok=%v mime=%s len=%d", ok, mime, len(data))
	}

	reg.Revoke(h)
	if reg.Probe(ctx, h) {
		t.Fatal("revoked handle probed valid")
	}
	if _, _, ok := reg.Bytes(h); ok {
		t.Fatal("revoked handle still serves bytes")
	}

	// Second revoke must be a no-op.
	reg.Revoke(h)
}

func TestHandlesAreUnique(t *testing.T) {
	reg := handle.NewRegistry(nil)
	a := reg.Mint([]byte("a"), "image/png")
	b := reg.Mint([]byte("a"), "image/png")
	if a == b {
		t.Fatal("expected distinct handles for repeated mints")
	}
	if reg.Len() != 2 {
		t.Fatalf("expected 2 live handles, got %d", reg.Len())
	}
}

func TestProbeRejectsForeignURLs(t *testing.T) {
	reg := handle.NewRegistry(nil)
	ctx := context.Background()
	if reg.Probe(ctx, "data:image/png;base64,xx") {
		t.Fatal("data url probed valid")
	}
	if reg.Probe(ctx, "") {
		t.Fatal("empty url probed valid")
	}
}

func TestProbeHonorsContextDeadline(t *testing.T) {
	reg := handle.NewRegistry(nil)
	h := reg.Mint([]byte("x"), "audio/mpeg")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// A cancelled context may still lose the race against the in-memory
	// lookup; what matters is that a dead context never reports a revoked
	// handle valid and never blocks.
	reg.Revoke(h)
	if reg.Probe(ctx, h) {
		t.Fatal("revoked handle probed valid under cancelled context")
	}
}

func TestRevokeAll(t *testing.T) {
	reg := handle.NewRegistry(nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	h1 := reg.Mint([]byte("1"), "image/png")
	h2 := reg.Mint([]byte("2"), "audio/mpeg")
	reg.RevokeAll()

	if reg.Probe(ctx, h1) || reg.Probe(ctx, h2) {
		t.Fatal("handles survived RevokeAll")
	}
	if reg.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", reg.Len())
	}
}
