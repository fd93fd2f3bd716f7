// Package device turns raw User-Agent strings into short display names for
// the audit trail, so an event reads "Chrome 120 on Linux" instead of the
// full header.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

// ParseUserAgent produces a human readable device description. The result is
// stable for a given input so audit events from the same device group.
func ParseUserAgent(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "Unknown Device"
	}

	ua := useragent.New(raw)
	name, version := ua.Browser()
	if name == "" {
		name = "Unknown"
	}

	os := ua.OSInfo().Name
	if os == "" {
		os = ua.Platform()
	}
	if os == "" {
		os = "Unknown"
	}

	parts := []string{name}
	if major, _, ok := strings.Cut(version, "."); ok && major != "" {
		parts = append(parts, major)
	} else if version != "" {
		parts = append(parts, version)
	}
	parts = append(parts, "on", os)
	return strings.Join(parts, " ")
}
