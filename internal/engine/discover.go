package engine

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/hailam/chessmcp/internal/failure"
	"github.com/hailam/chessmcp/internal/storage"
)

// BinaryName is the engine looked up on PATH.
const BinaryName = "stockfish"

// FindBinary resolves the engine executable. An explicit path wins; then
// BinaryName is looked up on PATH; finally the single file inside the data
// directory's stockfish folder is used.
func FindBinary(configured string) (string, error) {
	dir, err := storage.GetEngineDir()
	if err != nil {
		dir = ""
	}
	return findBinary(configured, dir)
}

func findBinary(configured, engineDir string) (string, error) {
	if configured != "" {
		info, err := os.Stat(configured)
		if err != nil {
			return "", failure.Wrap(failure.OracleUnavailable, err, "engine %s", configured)
		}
		if info.IsDir() {
			return findInDir(configured)
		}
		return configured, nil
	}

	if path, err := exec.LookPath(BinaryName); err == nil {
		return path, nil
	}

	if engineDir != "" {
		if path, err := findInDir(engineDir); err == nil {
			return path, nil
		}
	}

	return "", failure.New(failure.OracleUnavailable,
		"no engine found: set engine.path, put %s on PATH or place one binary in %s", BinaryName, engineDir)
}

// findInDir returns the only regular file in dir.
func findInDir(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", failure.Wrap(failure.OracleUnavailable, err, "engine directory %s", dir)
	}

	var found []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			found = append(found, filepath.Join(dir, e.Name()))
		}
	}

	switch len(found) {
	case 1:
		return found[0], nil
	case 0:
		return "", failure.New(failure.OracleUnavailable, "engine directory %s is empty", dir)
	default:
		return "", failure.New(failure.OracleUnavailable, "engine directory %s holds %d files, want exactly one", dir, len(found))
	}
}
