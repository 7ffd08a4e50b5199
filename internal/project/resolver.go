package project

import "novelkit/internal/asset"

// Resolver maps asset ids to their current values. Render paths and the
// export pipeline resolve slot references through one of these instead of
// carrying copies, so a repaired asset is immediately visible everywhere
// its id appears.
type Resolver struct {
	byID map[string]asset.Asset
}

// NewResolver indexes the given flat asset list.
func NewResolver(assets []asset.Asset) *Resolver {
	r := &Resolver{byID: make(map[string]asset.Asset, len(assets))}
	for _, a := range assets {
		r.byID[a.ID] = a
	}
	return r
}

// Resolve looks up the asset a slot reference names.
func (r *Resolver) Resolve(ref AssetRef) (asset.Asset, bool) {
	if ref.IsZero() {
		return asset.Asset{}, false
	}
	a, ok := r.byID[ref.String()]
	return a, ok
}

// URL returns the referenced asset's current url, or "" when the reference
// is unset or dangling.
func (r *Resolver) URL(ref AssetRef) string {
	a, ok := r.Resolve(ref)
	if !ok {
		return ""
	}
	return a.URL
}
