// Package buildinfo identifies the detector build and the monitored module.
package buildinfo

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/mod/modfile"
)

// Version is the detrace release version.
const Version = "0.1.0"

// FindModule walks up from dir looking for a go.mod and returns the module
// path it declares. The result labels race reports with the monitored
// program's identity; callers treat an error as "not a module" and move on.
func FindModule(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve module dir: %w", err)
	}
	for {
		data, err := os.ReadFile(filepath.Join(abs, "go.mod"))
		if err == nil {
			path := modfile.ModulePath(data)
			if path == "" {
				return "", fmt.Errorf("go.mod in %s declares no module path", abs)
			}
			return path, nil
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("no go.mod found above %s", dir)
		}
		abs = parent
	}
}
