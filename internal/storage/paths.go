// Package storage provides the persistent evaluation cache and the
// application's data directories.
package storage

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "chessmcp"

// DataDirEnv overrides the platform data directory when set.
const DataDirEnv = "CHESSMCP_DATA_DIR"

// GetDataDir returns the application's data directory, creating it if needed.
//   - macOS: ~/Library/Application Support/chessmcp/
//   - Linux: $XDG_DATA_HOME/chessmcp/ or ~/.local/share/chessmcp/
//   - Windows: %APPDATA%/chessmcp/
func GetDataDir() (string, error) {
	dir := os.Getenv(DataDirEnv)
	if dir == "" {
		base, err := platformDataHome()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(base, appName)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

func platformDataHome() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		return fromHome("Library", "Application Support")
	case "windows":
		if dir := os.Getenv("APPDATA"); dir != "" {
			return dir, nil
		}
		return fromHome("AppData", "Roaming")
	default:
		if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
			return dir, nil
		}
		return fromHome(".local", "share")
	}
}

func fromHome(elem ...string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append([]string{home}, elem...)...), nil
}

// GetEngineDir returns the directory searched for a bundled engine binary.
// It is not created.
func GetEngineDir() (string, error) {
	dataDir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "stockfish"), nil
}

// GetDatabaseDir returns the directory for the evaluation cache database.
func GetDatabaseDir() (string, error) {
	dataDir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	dbDir := filepath.Join(dataDir, "evalcache")
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return "", err
	}
	return dbDir, nil
}
