package main

import (
	"path/filepath"
	"testing"

	"capsum/internal/testsupport"
)

func TestScanCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"scan"}, env.configPath)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	requireContains(t, out, "No erroring caption files found")

	testsupport.WriteFile(t, filepath.Join(env.cfg.Paths.OutputDir, "good.txt"), "a fine caption")
	testsupport.WriteFile(t, filepath.Join(env.cfg.Paths.OutputDir, "bad.txt"), `{"error":"All API keys rate limited"}`)

	out, _, err = runCLI(t, []string{"scan", "--verbose"}, env.configPath)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	requireContains(t, out, "1 caption file(s) contain error markers")
	requireContains(t, out, "bad.txt")
}
