package pathutil

import (
	"regexp"
	"strings"
)

// PathPattern represents a regex pattern and its corresponding normalized template.
type PathPattern struct {
	Pattern  *regexp.Regexp
	Template string
}

// pathPatterns defines the list of patterns for dynamic routes.
// Relay IDs are UUIDs, so the patterns match the UUID shape only; static
// subpaths like /relays/optimal fall through unchanged.
// Pre-compiled at initialization for optimal performance.
var pathPatterns = []*PathPattern{
	{Pattern: regexp.MustCompile(`^/relays/[0-9a-fA-F-]{36}$`), Template: "/relays/:id"},
	{Pattern: regexp.MustCompile(`^/relays/[0-9a-fA-F-]{36}/outcome$`), Template: "/relays/:id/outcome"},
}

// NormalizePath normalizes dynamic URL paths to prevent metrics label cardinality explosion.
// It converts paths with IDs (e.g., /relays/7f9c.../outcome) to template
// format (e.g., /relays/:id/outcome). Static paths remain unchanged.
//
// Query parameters and trailing slashes are stripped before matching.
func NormalizePath(path string) string {
	// Strip query parameters if present
	if idx := strings.IndexByte(path, '?'); idx != -1 {
		path = path[:idx]
	}

	// Strip trailing slash if present (except for root path)
	if len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}

	for _, p := range pathPatterns {
		if p.Pattern.MatchString(path) {
			return p.Template
		}
	}

	// No match found, return original path. Static paths like /health,
	// /metrics, /relays/optimal and /breakers pass through unchanged.
	return path
}
