// Package dotdir manages the .pitwall/ and ~/.pitwall directories.
//
// The directory holds config.toml, the default SQLite database and the
// rendered chart media.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the pitwall directory.
	dirName = ".pitwall"

	// mediaDirName is the media subdirectory rendered charts are written to.
	mediaDirName = "media"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .pitwall/ directory.
// Order of precedence is as follows:
//  1. Provided override (created if missing)
//  2. Local ./.pitwall/ dir
//  3. Home ~/.pitwall/ dir
//
// If none is found, an empty string is returned with no error.
func (m *Manager) Target(overrideDir string) (string, error) {
	if overrideDir != "" {
		if err := os.MkdirAll(overrideDir, 0o755); err != nil {
			return "", fmt.Errorf("creating pitwall directory %s: %w", overrideDir, err)
		}
		return filepath.Abs(overrideDir)
	}

	if m.localDirExists() {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		return filepath.Join(cwd, dirName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	homeDir := filepath.Join(home, dirName)
	if isDir(homeDir) {
		return homeDir, nil
	}

	return "", nil
}

// Init creates the .pitwall/ directory (in the home directory unless an
// override is given) together with its media subdirectory.
func (m *Manager) Init(overrideDir string) (string, error) {
	dir := overrideDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, dirName)
	}

	if err := os.MkdirAll(filepath.Join(dir, mediaDirName), 0o755); err != nil {
		return "", fmt.Errorf("creating pitwall directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// MediaDir returns the media directory under target. When target is empty
// the relative ./media directory is used.
func MediaDir(target string) string {
	if target == "" {
		return mediaDirName
	}
	return filepath.Join(target, mediaDirName)
}

// localDirExists checks whether a .pitwall/ directory exists in the current
// working directory.
func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	return isDir(filepath.Join(cwd, dirName))
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
