// Package asset defines the media asset model shared across the store,
// handle cache, repair service, and export pipeline: asset identity,
// categories, URL classification, and file naming rules.
package asset
