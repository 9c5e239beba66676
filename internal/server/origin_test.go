package server

import (
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOriginPolicy(t *testing.T) {
	log := slog.New(slog.DiscardHandler)
	policy := newOriginPolicy([]string{"HTTP://LocalHost:8080", "not a url", ""}, log)

	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{"exact match", "http://localhost:8080", true},
		{"case insensitive", "http://LOCALHOST:8080", true},
		{"other port", "http://localhost:3000", false},
		{"other scheme", "https://localhost:8080", false},
		{"missing header", "", false},
		{"garbage", "localhost", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			require.Equal(t, tt.want, policy.checkOrigin(req))
		})
	}
}

func TestOriginPolicyWildcard(t *testing.T) {
	policy := newOriginPolicy([]string{"*"}, slog.New(slog.DiscardHandler))

	req := httptest.NewRequest("GET", "/ws", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	require.True(t, policy.checkOrigin(req))

	// A wildcard still requires a well-formed Origin header
	req.Header.Del("Origin")
	require.False(t, policy.checkOrigin(req))
}
