// Package config provides configuration loading for the application.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath expands ~ and environment variables in a file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	return os.ExpandEnv(path)
}

// DefaultJournalPath returns the default location of the run journal.
func DefaultJournalPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "dedupe-journal.db"
	}
	return filepath.Join(home, ".local", "share", "dedupe", "journal.db")
}
