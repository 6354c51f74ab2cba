// Package api defines the wire-format types shared by the HTTP surface and
// the CLI's JSON output. It translates record-store models and move results
// into transport-friendly DTOs so consumers never depend on internal types.
//
// # Key Types
//
// FileItem: a file awaiting or past review, with its media type and status.
//
// RejectedItem: one quarantine move record, including whether it was purged.
//
// StatsResponse: aggregate counts plus a per-media-type breakdown.
//
// MoveResponse: the outcome of a reject, restore or purge with its error kind.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds in
// UTC. Error kinds are the lowercase faults.Kind strings so clients can branch
// on them without parsing messages.
package api
