// Package records persists review state in SQLite.
//
// The Store owns every durable table: the files seen by any scan with their
// review status, the move records written each time a file is quarantined, and
// the single-row queue state together with the persisted shuffled queue. No
// other package writes review metadata.
//
// Inserts are idempotent on filepath so re-scans never duplicate or reset a row.
// Write failures are returned wrapped with faults.ErrStorage. Lookups and
// listings degrade to absent or empty results after logging, so a flaky read
// never aborts a scan or review loop.
package records
