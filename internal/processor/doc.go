// Package processor coordinates a captioning run: a bounded worker pool
// feeding pending images through the service, with per-item checkpointing
// and batch-level reconciliation between the checkpoint and the caption
// files actually on disk.
package processor
