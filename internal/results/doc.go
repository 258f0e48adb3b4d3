// Package results decides whether a written caption counts as done.
//
// A caption can exist on disk and still be a failure: the service client
// serializes terminal failures into the output file so they survive the
// run. The classifier spots those embedded markers, both right after a
// write and during the startup scan that re-queues previously failed work.
package results
