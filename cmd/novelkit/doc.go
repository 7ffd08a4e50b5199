// Package main hosts the novelkit CLI entrypoint and command graph.
//
// The Cobra-based command tree surfaces the asset store, handle cache,
// reconciliation service, and export pipeline as terminal commands, and runs
// the editor API server. It centralizes configuration resolution and logging
// setup so subcommands can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
