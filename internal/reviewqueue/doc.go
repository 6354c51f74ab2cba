// Package reviewqueue reconciles scan results with the record store and
// serves the session's review order.
//
// The shuffled queue is persisted together with the index of the next entry,
// so a later session resumes the exact order it left off with. Resume keeps
// the surviving pending entries in place and appends newly discovered files
// in a fresh random order; a stored index is never applied to a reshuffled
// list. When the persisted queue is exhausted, Next falls back to the oldest
// pending record in the store.
package reviewqueue
