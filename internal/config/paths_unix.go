//go:build !windows

package config

import (
	"os"
	"path/filepath"
)

func configSearchPaths() []string {
	home, _ := os.UserHomeDir()
	return []string{
		filepath.Join(home, ".hostmon", "config.yaml"),
		"/etc/hostmon/hostmon.yaml",
	}
}
