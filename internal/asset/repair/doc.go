// Package repair heals asset values whose urls may reference dead handles.
// Serialized projects carry handle strings that do not survive into a new
// session; a reconciliation pass probes or proactively re-mints them so the
// editor never renders through a dead reference.
package repair
