package preflight

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"capsum/internal/config"
	"capsum/internal/keypool"
)

// Caption outputs are small, but a full disk mid-run strands every
// in-flight item as a write failure.
const minFreeBytes = 100 * 1024 * 1024

// statfs reports total and free bytes for the filesystem holding path.
// Replaced in tests.
var statfs = realStatfs

// CheckAPIKeys verifies that at least one Gemini API key is configured.
func CheckAPIKeys(cfg *config.Config) Result {
	const name = "API keys"
	if _, err := keypool.New(cfg.Gemini.APIKeys); err != nil {
		return Result{Name: name, Detail: "no API keys configured (set gemini.api_keys or GEMINI_API_KEYS)"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d key(s) configured", len(cfg.Gemini.APIKeys))}
}

// CheckPrompt verifies that the captioning prompt resolves, including any
// configured override file.
func CheckPrompt(cfg *config.Config) Result {
	const name = "Prompt"
	if _, err := cfg.Prompt(); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if cfg.Gemini.PromptPath != "" {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("using %s", cfg.Gemini.PromptPath)}
	}
	return Result{Name: name, Passed: true, Detail: "using built-in prompt"}
}

// CheckInputReadable verifies that the input directory exists and can be
// listed.
func CheckInputReadable(path string) Result {
	const name = "Input directory"
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read ok)", path)}
}

// CheckDirectoryAccess verifies that the directory exists and is
// readable and writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDiskSpace verifies that the filesystem holding the output tree has
// room for caption files and the checkpoint database.
func CheckDiskSpace(path string) Result {
	const name = "Disk space"
	_, free, err := statfs(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	if free < minFreeBytes {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: only %d MiB free)", path, free/(1024*1024))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d MiB free", free/(1024*1024))}
}

func realStatfs(path string) (uint64, uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bavail * uint64(stat.Bsize)
	return total, free, nil
}
