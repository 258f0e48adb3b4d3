package preflight

import (
	"capsum/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check for a processing run. A run should
// not start unless all results pass; failing late on a missing key or an
// unwritable output tree wastes rate limiter budget.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckAPIKeys(cfg),
		CheckPrompt(cfg),
		CheckInputReadable(cfg.Paths.InputDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDiskSpace(cfg.Paths.OutputDir),
	}
}

// Passed reports whether every result passed.
func Passed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}
