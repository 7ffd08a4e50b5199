// Package handle issues and revokes volatile in-process references to asset
// payloads. A handle is valid only while the registry holds its entry; page
// reloads in the browser analog and process restarts here both kill every
// outstanding handle, which is the failure mode the rest of the asset
// subsystem exists to absorb.
package handle
