package helpers

import (
	"net/url"
	"strings"
)

// SafeRedirect reports whether target is a same-origin relative path.
// Absolute URLs, scheme-relative "//host" and backslash tricks are refused
// so the login flow cannot be used as an open redirect.
func SafeRedirect(target string) bool {
	if target == "" {
		return true
	}
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.ContainsAny(target, "\\\r\n") {
		return false
	}
	u, err := url.Parse(target)
	return err == nil && u.Scheme == "" && u.Host == ""
}
