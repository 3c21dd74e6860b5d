package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FilePathValidator checks the paths of files newsdesk writes: the source
// catalog database and the log file.
type FilePathValidator struct {
	// AllowedBaseDirs restricts files to these directories. Empty allows any.
	AllowedBaseDirs []string
	MaxPathLength   int
}

// NewFilePathValidator accepts any directory. Data file locations are the
// user's choice; only malformed paths are rejected.
func NewFilePathValidator() *FilePathValidator {
	return &FilePathValidator{MaxPathLength: 4096}
}

// ValidateFile expands ~, makes path absolute and cleans it. An empty path
// stays empty and means "disabled" to the caller.
func (v *FilePathValidator) ValidateFile(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if v.MaxPathLength > 0 && len(path) > v.MaxPathLength {
		return "", fmt.Errorf("path too long (max %d characters)", v.MaxPathLength)
	}
	if err := validateCharacters(path); err != nil {
		return "", err
	}
	if err := validateTraversal(path); err != nil {
		return "", err
	}

	normalized, err := normalizePath(path)
	if err != nil {
		return "", err
	}
	if err := v.validateBaseDirs(normalized); err != nil {
		return "", err
	}

	if info, err := os.Stat(normalized); err == nil && info.IsDir() {
		return "", fmt.Errorf("path is a directory, not a file: %s", normalized)
	}
	return normalized, nil
}

func validateCharacters(path string) error {
	for _, char := range path {
		if char == 0 {
			return fmt.Errorf("path contains null bytes")
		}
		if char < 32 && char != '\t' {
			return fmt.Errorf("path contains control characters")
		}
	}
	return nil
}

func validateTraversal(path string) error {
	for _, component := range strings.Split(filepath.ToSlash(path), "/") {
		if component == ".." {
			return fmt.Errorf("directory traversal not allowed")
		}
	}
	return nil
}

func normalizePath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	} else if strings.HasPrefix(path, "~") {
		return "", fmt.Errorf("only ~/ is expanded, got %q", path)
	}

	if !filepath.IsAbs(path) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("cannot make path absolute: %w", err)
		}
		path = abs
	}
	return filepath.Clean(path), nil
}

func (v *FilePathValidator) validateBaseDirs(path string) error {
	if len(v.AllowedBaseDirs) == 0 {
		return nil
	}
	for _, base := range v.AllowedBaseDirs {
		absBase, err := filepath.Abs(base)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(absBase, path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil
		}
	}
	return fmt.Errorf("path not within allowed directories: %v", v.AllowedBaseDirs)
}
