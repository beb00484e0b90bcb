// Package urlutil joins application paths onto the configured base URL and
// inspects browser URLs.
package urlutil

import (
	"net/url"
	"strings"
)

// NormalizeBaseURL trims whitespace and trailing slashes.
func NormalizeBaseURL(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return ""
	}
	return strings.TrimRight(base, "/")
}

// BuildAbsolute builds an absolute URL from a base origin and a path.
// Absolute http(s) paths are returned unchanged.
func BuildAbsolute(base, path string) string {
	base = NormalizeBaseURL(base)
	if path == "" {
		return base
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if strings.HasPrefix(path, "/") {
		return base + path
	}
	return base + "/" + path
}

// PathContains reports whether the path of rawURL contains marker. Query
// strings and fragments are ignored, so a login URL carrying
// ?redirect=/dashboard/index does not match "/dashboard/index".
func PathContains(rawURL, marker string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.Contains(u.Path, marker)
}
