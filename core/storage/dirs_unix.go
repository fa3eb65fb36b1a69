//go:build !windows

package storage

import (
	"os"
	"path/filepath"
)

func platformRootDefault() string {
	home := NormalizeHome(os.Getenv("HOME"))
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".config", appName)
}
