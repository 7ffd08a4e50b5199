// Package urlcache implements the stable handle cache: the single
// authoritative path for resolving an asset to a handle that is valid right
// now. Entries are reference counted, re-validated outside a freshness
// window, and evicted by a background sweep the cache owns. All consumers
// resolve through this cache; only the export pipeline bypasses it, reading
// committed bytes straight from the store.
package urlcache
