// Package main hosts the triage CLI entrypoint and command graph.
//
// Every command opens the review store and a session over the configured
// scan roots, performs one operation, and exits. The persisted queue is what
// carries a review from one invocation to the next, so `scan` followed by
// repeated `next`/`keep`/`reject` calls behaves like one long session.
//
// Keep this package thin: behavior belongs in internal/session and below.
package main
