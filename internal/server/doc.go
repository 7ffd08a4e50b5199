// Package server exposes the asset store, handle cache, repair service, and
// export pipeline over a local HTTP API consumed by the editor frontend and
// the CLI.
package server
