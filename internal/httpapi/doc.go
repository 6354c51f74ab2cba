// Package httpapi serves the review session over local HTTP for `triage
// serve`.
//
// Routes:
//
//	GET  /healthz               liveness
//	GET  /metrics               Prometheus exposition
//	POST /api/scan              rebuild the queue (?mode=resume merges instead)
//	GET  /api/next              next pending file
//	POST /api/keep|skip|reject  {"path": ...}
//	POST /api/restore           {"originalPath": ..., "deletedPath": ...}
//	POST /api/purge             {"path": ...}
//	GET  /api/stats             totals and per-type counts
//	GET  /api/pending           pending files
//	GET  /api/rejected          restorable quarantine records (?all=true for history)
//	GET  /api/rejected/export   plain-text "original -> deleted" lines
//	GET  /api/preview           leading bytes of ?path= (limit via ?limit=)
//
// Move failures are reported in the body with their error kind and mapped to
// a matching HTTP status.
package httpapi
