// Package userutil derives per-user names for the launcher's instance lock and
// activation endpoint.
package userutil

import (
	"os"
	"os/user"
	"regexp"
	"strings"
)

var invalidUsernameRune = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

var currentUserFn = user.Current

// SanitizeUsername normalizes username-like values used in lock and endpoint
// names.
func SanitizeUsername(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return invalidUsernameRune.ReplaceAllString(value, "_")
}

// CurrentUsername returns the login name from USERNAME or USER, falling back
// to the OS account lookup. The result is not sanitized.
func CurrentUsername() string {
	for _, key := range []string{"USERNAME", "USER"} {
		if name := strings.TrimSpace(os.Getenv(key)); name != "" {
			return name
		}
	}
	if current, err := currentUserFn(); err == nil {
		return current.Username
	}
	return ""
}

// InstanceName returns "<prefix>-<sanitized user>".
func InstanceName(prefix string) string {
	return prefix + "-" + SanitizeUsername(CurrentUsername())
}
