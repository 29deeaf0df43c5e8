package filex

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDir resolves dir to an absolute path and creates it when missing.
func EnsureDir(dir string, perm os.FileMode) (string, error) {
	if dir == "" {
		return "", errors.New("directory name required")
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", dir, err)
	}

	if err := os.MkdirAll(abs, perm); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", abs, err)
	}

	return abs, nil
}
