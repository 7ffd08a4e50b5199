// Package store persists asset metadata in SQLite and asset payloads on
// disk, scoped by project. It is the durable side of the asset subsystem:
// handles minted from it are volatile, but the bytes it owns survive
// restarts and are the source of truth for export.
package store
