// Package fsys abstracts the file operations the scanner and move engine need
// behind one capability interface.
//
// PathBackend operates on absolute host paths. RootBackend confines every
// operation to a single directory opened with os.OpenRoot, addressing files by
// slash-separated tokens relative to that directory. Callers treat the strings
// a backend yields as opaque locations and combine them only through the
// backend's Join and Split.
package fsys
