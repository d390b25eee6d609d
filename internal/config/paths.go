package config

import (
	"os"
	"path/filepath"
)

const defaultBaseDir = ".anfbot"

// Paths holds resolved filesystem paths for anfbot data.
type Paths struct {
	Base     string // ~/.anfbot
	Config   string // ~/.anfbot/config.yaml
	Sessions string // ~/.anfbot/sessions
	Logs     string // ~/.anfbot/logs
	Data     string // ~/.anfbot/data
}

// ResolvePaths computes all standard paths from the home directory.
// If ANFBOT_HOME is set, it overrides the default base directory.
func ResolvePaths() (Paths, error) {
	base := os.Getenv("ANFBOT_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, err
		}
		base = filepath.Join(home, defaultBaseDir)
	}

	return Paths{
		Base:     base,
		Config:   filepath.Join(base, "config.yaml"),
		Sessions: filepath.Join(base, "sessions"),
		Logs:     filepath.Join(base, "logs"),
		Data:     filepath.Join(base, "data"),
	}, nil
}

// EnsureDirs creates all standard directories if they don't exist.
func (p Paths) EnsureDirs() error {
	dirs := []string{p.Base, p.Sessions, p.Logs, p.Data}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return err
		}
	}
	return nil
}

// SessionDBPath is the SQLite database used by the persistent session
// store.
func (p Paths) SessionDBPath() string {
	return filepath.Join(p.Sessions, "sessions.db")
}
