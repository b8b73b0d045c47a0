package session

import (
	"os"
	"path/filepath"
)

// BaseDir returns the state root, ~/.wabridge unless WABRIDGE_HOME is set.
func BaseDir() string {
	if dir := os.Getenv("WABRIDGE_HOME"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".wabridge")
}

// Dir returns the session-specific directory.
func Dir(name string) string {
	return filepath.Join(BaseDir(), "sessions", name)
}

// LockPath returns the lock file path for a session.
func LockPath(name string) string {
	return filepath.Join(Dir(name), "LOCK")
}

// SessionDBPath returns the whatsmeow device store session.db path.
func SessionDBPath(name string) string {
	return filepath.Join(Dir(name), "session.db")
}

// ArchiveDBPath returns the app-owned archive.db path.
func ArchiveDBPath(name string) string {
	return filepath.Join(Dir(name), "archive.db")
}

// AddrFilePath returns the file the daemon writes its HTTP listen address to,
// so wabridgectl can find a running daemon without flags.
func AddrFilePath(name string) string {
	return filepath.Join(Dir(name), "daemon.addr")
}

// LogDir returns the log directory for a session.
func LogDir(name string) string {
	return filepath.Join(Dir(name), "logs")
}

// LogPath returns the daemon log file path.
func LogPath(name string) string {
	return filepath.Join(LogDir(name), "wabridged.log")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDir creates the session directory tree with proper permissions.
func EnsureDir(name string) error {
	dirs := []string{
		Dir(name),
		LogDir(name),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
