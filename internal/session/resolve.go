package session

import "github.com/wabridge/wabridge/internal/config"

// DefaultSessionName is used when neither the flag nor the config names one.
const DefaultSessionName = "main"

// Resolve picks the active session name. An explicit flag wins, then the
// config file's default_session, then DefaultSessionName.
func Resolve(flagOverride string) string {
	if flagOverride != "" {
		return flagOverride
	}
	if cfg, err := config.Load(ConfigPath()); err == nil && cfg.DefaultSession != "" {
		return cfg.DefaultSession
	}
	return DefaultSessionName
}
