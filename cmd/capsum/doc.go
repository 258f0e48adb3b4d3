// Package main hosts the capsum CLI entrypoint and command graph.
//
// The Cobra-based command tree covers the captioning run itself plus the
// surrounding maintenance operations: rescanning outputs for embedded
// errors, reprocessing the failures, splitting a backlog across machines,
// and configuration scaffolding. Configuration resolution and structured
// logging setup are centralized here so subcommands stay declarative; the
// processing semantics live in the internal packages.
package main
