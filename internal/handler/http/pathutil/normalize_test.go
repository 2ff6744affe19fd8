package pathutil

import (
	"testing"
)

func TestNormalizePath(t *testing.T) {
	const id = "7f9c24e8-3b2a-4f6d-9e1c-8a5b0d4c2f10"

	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{
			name:     "relay by id",
			path:     "/relays/" + id,
			expected: "/relays/:id",
		},
		{
			name:     "relay outcome",
			path:     "/relays/" + id + "/outcome",
			expected: "/relays/:id/outcome",
		},
		{
			name:     "relay by id with trailing slash",
			path:     "/relays/" + id + "/",
			expected: "/relays/:id",
		},
		{
			name:     "relay by id with query params",
			path:     "/relays/" + id + "?verbose=1",
			expected: "/relays/:id",
		},
		{
			name:     "optimal endpoint stays static",
			path:     "/relays/optimal",
			expected: "/relays/optimal",
		},
		{
			name:     "relay collection stays static",
			path:     "/relays",
			expected: "/relays",
		},
		{
			name:     "health stays static",
			path:     "/health",
			expected: "/health",
		},
		{
			name:     "metrics stays static",
			path:     "/metrics",
			expected: "/metrics",
		},
		{
			name:     "breakers stays static",
			path:     "/breakers",
			expected: "/breakers",
		},
		{
			name:     "unknown path passes through",
			path:     "/unknown/path/123",
			expected: "/unknown/path/123",
		},
		{
			name:     "root path",
			path:     "/",
			expected: "/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizePath(tt.path); got != tt.expected {
				t.Errorf("NormalizePath(%q) = %q, want %q", tt.path, got, tt.expected)
			}
		})
	}
}

func BenchmarkNormalizePath(b *testing.B) {
	paths := []string{
		"/relays/7f9c24e8-3b2a-4f6d-9e1c-8a5b0d4c2f10",
		"/relays/7f9c24e8-3b2a-4f6d-9e1c-8a5b0d4c2f10/outcome",
		"/relays/optimal",
		"/health",
		"/metrics",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = NormalizePath(paths[i%len(paths)])
	}
}
