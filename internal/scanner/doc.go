// Package scanner walks configured roots through an fsys.Backend and returns
// the files eligible for review.
//
// Roots are traversed concurrently with a bounded fan-out. A root that is
// missing or unreadable is logged and skipped; it never aborts the other
// roots. Within a root, hidden and system entries are pruned according to
// Filter, and excluded locations (the quarantine folder) are never entered.
package scanner
