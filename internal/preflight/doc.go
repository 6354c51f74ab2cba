// Package preflight provides readiness checks for the filesystem locations
// triage depends on.
//
// The CLI "triage config validate" command runs RunAll and prints one line
// per check. Checks never modify the filesystem: a quarantine folder that
// does not exist yet passes when its parent is writable, since the move
// engine creates it on first reject.
package preflight
