package session

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolvePrecedence(t *testing.T) {
	home := t.TempDir()
	t.Setenv("WABRIDGE_HOME", home)

	if got := Resolve("cli"); got != "cli" {
		t.Errorf("Resolve(cli) = %q, want the flag value", got)
	}

	// No config file: builtin default.
	if got := Resolve(""); got != DefaultSessionName {
		t.Errorf("Resolve() = %q, want %q", got, DefaultSessionName)
	}

	cfg := []byte("default_session = \"work\"\n")
	if err := os.WriteFile(filepath.Join(home, "config.toml"), cfg, 0600); err != nil {
		t.Fatal(err)
	}
	if got := Resolve(""); got != "work" {
		t.Errorf("Resolve() = %q, want work", got)
	}
}
