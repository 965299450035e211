package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathValidator checks the database, index, log and import file paths
// handed to hubsearch on the command line or in the config file.
type PathValidator struct {
	// AllowedBaseDirs restricts paths to these directories; empty allows all
	AllowedBaseDirs []string
	MaxPathLength   int
}

// NewPathValidator restricts paths to the hubsearch data and config
// directories and the temp dir.
func NewPathValidator() *PathValidator {
	homeDir, _ := os.UserHomeDir()
	return &PathValidator{
		AllowedBaseDirs: []string{
			filepath.Join(homeDir, ".hubsearch"),
			filepath.Join(homeDir, ".config", "hubsearch"),
			os.TempDir(),
		},
		MaxPathLength: 4096,
	}
}

// NewPermissivePathValidator allows any directory.
func NewPermissivePathValidator() *PathValidator {
	return &PathValidator{MaxPathLength: 4096}
}

// Clean expands a leading ~/, makes the path absolute and rejects traversal,
// control characters and paths outside the allowed directories.
func (v *PathValidator) Clean(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if len(path) > v.MaxPathLength {
		return "", fmt.Errorf("path too long (max %d characters)", v.MaxPathLength)
	}
	for _, r := range path {
		if r == 0 || (r < 32 && r != '\t') {
			return "", fmt.Errorf("path contains control characters")
		}
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return "", fmt.Errorf("directory traversal not allowed")
		}
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	} else if strings.HasPrefix(path, "~") {
		return "", fmt.Errorf("invalid tilde usage")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cannot make path absolute: %w", err)
	}

	if err := v.withinBaseDirs(abs); err != nil {
		return "", err
	}
	return abs, nil
}

func (v *PathValidator) withinBaseDirs(abs string) error {
	if len(v.AllowedBaseDirs) == 0 {
		return nil
	}
	for _, base := range v.AllowedBaseDirs {
		absBase, err := filepath.Abs(base)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(absBase, abs)
		if err != nil {
			continue
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil
		}
	}
	return fmt.Errorf("path not within allowed directories: %v", v.AllowedBaseDirs)
}

// ValidateFile cleans path and makes sure it is not a directory.
func (v *PathValidator) ValidateFile(path string) (string, error) {
	clean, err := v.Clean(path)
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(clean); err == nil && info.IsDir() {
		return "", fmt.Errorf("path is a directory, not a file: %s", clean)
	}
	return clean, nil
}

// EnsureDirectory cleans path and creates the directory if it is missing.
func (v *PathValidator) EnsureDirectory(path string) (string, error) {
	clean, err := v.Clean(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(clean)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(clean, 0o755); mkErr != nil {
			return "", fmt.Errorf("failed to create directory: %w", mkErr)
		}
	case err != nil:
		return "", fmt.Errorf("checking directory: %w", err)
	case !info.IsDir():
		return "", fmt.Errorf("path exists but is not a directory: %s", clean)
	}
	return clean, nil
}
