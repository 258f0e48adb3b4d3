// Package workset enumerates pending work items and keeps the mapping
// between source images, caption outputs, and the stable identifiers the
// checkpoint records. It also produces the static worker-file partitions
// used to spread a backlog across machines before a run starts.
package workset
