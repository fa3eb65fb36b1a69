//go:build windows

package storage

import (
	"os"
	"path/filepath"
)

func platformRootDefault() string {
	// Git Bash exports a unix-looking HOME; prefer it so the hook and the
	// shell wrappers agree on one root.
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(NormalizeHome(home), ".config", appName)
	}
	return filepath.Join(os.Getenv("APPDATA"), appName)
}
