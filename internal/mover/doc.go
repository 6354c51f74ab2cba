// Package mover relocates rejected files into quarantine and back.
//
// Every operation returns a Result rather than an error. Record-store state
// only changes after the physical move succeeded, and a move whose record
// could not be written is rolled back. Name collisions are resolved with a
// timestamp suffix; if the suffixed name is also taken the operation fails
// with KindBusy instead of overwriting anything.
//
// When a rename crosses volumes (EXDEV) and the backend implements
// fsys.Copier, the file is copied with verification after a free-space check
// and the source removed only once the copy is confirmed.
package mover
