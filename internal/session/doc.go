// Package session is the review surface used by the CLI and HTTP server.
//
// A Session is built from one config snapshot and one record store handle. It
// owns the filesystem backend, scanner, queue builder and move engine for its
// lifetime and tags every log line with a per-session UUID. Paths accepted by
// Session methods are resolved through the backend, so the same calls work
// with absolute host paths and with root-relative tokens.
package session
