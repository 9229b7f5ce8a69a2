// Package config implements ht's YAML defaults file, adapted from the
// teacher's internal/config/wing.go: same read-if-exists-else-zero-value-
// no-error loading pattern, same gopkg.in/yaml.v3 library, rewritten for
// ht's own settings instead of wingthing's device/roost registration.
package config

import (
	"os"
	"path/filepath"
)

// UserConfigDir returns ~/.config/ht, the location of config.yaml. There
// is no flag to choose another location.
func UserConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ht"), nil
}

// EnsureUserConfigDir creates dir if it does not already exist.
func EnsureUserConfigDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}
