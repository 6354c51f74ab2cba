// Package faults defines the error taxonomy shared by the record store, the
// scanner, and the file move engine.
//
// Failures are tagged with one of the exported sentinel markers via Wrap so
// callers can branch with errors.Is, and Classify collapses any error
// (including raw errno values surfaced by the operating system) into a Kind
// suitable for structured results and user-facing messages.
package faults
