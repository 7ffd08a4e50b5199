package store

import "errors"

// ErrStorageWrite marks quota exhaustion or backend failure on save. The
// operation failed and should be surfaced to the author.
var ErrStorageWrite = errors.New("storage write failed")

// ErrAssetNotFound marks a request for an asset id with no stored bytes.
// Callers such as the handle cache treat it as non-fatal and degrade.
var ErrAssetNotFound = errors.New("asset not found")

// ErrPayloadRead marks a payload that exists in metadata but whose bytes
// cannot be read. The failure is scoped to that one asset, not the store.
var ErrPayloadRead = errors.New("payload unreadable")
