package common

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Build metadata injected via -ldflags. Anything the build left at its
// default can be filled in from a .version file at startup.
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

// GetFullVersion formats the complete build identity for the version command
func GetFullVersion() string {
	return fmt.Sprintf("sentinel %s (build %s, commit %s)", Version, Build, GitCommit)
}

// LoadVersionFromFile fills unset build metadata from the first .version file
// found next to the binary or in the working directory (the latter covers
// go-run development).
func LoadVersionFromFile() {
	for _, dir := range versionDirs() {
		if applyVersionFile(filepath.Join(dir, ".version")) {
			return
		}
	}
}

func versionDirs() []string {
	dirs := make([]string, 0, 2)
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	if wd, err := os.Getwd(); err == nil {
		dirs = append(dirs, wd)
	}
	return dirs
}

// applyVersionFile parses "key: value" lines; # starts a comment
func applyVersionFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		applyVersionValue(strings.TrimSpace(key), strings.TrimSpace(val))
	}
	return true
}

// applyVersionValue sets one metadata field unless ldflags already did
func applyVersionValue(key, val string) {
	switch key {
	case "version":
		if Version == "dev" {
			Version = val
		}
	case "build":
		if Build == "unknown" {
			Build = val
		}
	case "commit":
		if GitCommit == "unknown" {
			GitCommit = val
		}
	}
}
