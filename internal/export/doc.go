// Package export builds a self-contained playable archive from a project.
// Asset bytes are read straight from the persistent store (never through
// the handle cache), placed at deterministic relative paths, and referenced
// from a generated standalone HTML document with an inline runtime.
package export
