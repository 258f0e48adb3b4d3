// Package checkpoint persists the set of verified completions in SQLite.
//
// Every successful item is appended durably before the worker moves on, so
// a killed run resumes exactly where it stopped. The database tracks
// verified success, not attempts: identifiers whose output later turns out
// to carry an error marker are deleted again so the item is retried.
// Removing the database file is the signal that a run finished with zero
// outstanding errors.
package checkpoint
