package session

import (
	"fmt"
	"regexp"
)

// Session names become directory names, so the alphabet stays narrow.
var namePattern = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// ValidateName rejects names that cannot serve as a session directory.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("session name is empty")
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("invalid session name %q: use lowercase letters, digits, '-' or '_', at most 64 characters", name)
	}
	return nil
}
