package urlutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinPath(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		paths   []string
		want    string
		wantErr bool
	}{
		{
			name:  "simple join",
			base:  "https://example.com",
			paths: []string{"realms", "demo"},
			want:  "https://example.com/realms/demo",
		},
		{
			name:  "base with path",
			base:  "https://example.com/auth",
			paths: []string{"realms", "demo"},
			want:  "https://example.com/auth/realms/demo",
		},
		{
			name:  "base with trailing slash",
			base:  "https://example.com/",
			paths: []string{"realms"},
			want:  "https://example.com/realms",
		},
		{
			name:  "multi-segment path component",
			base:  "https://example.com",
			paths: []string{"realms", "demo", "protocol/openid-connect/token"},
			want:  "https://example.com/realms/demo/protocol/openid-connect/token",
		},
		{
			name:  "empty paths",
			base:  "https://example.com",
			paths: []string{},
			want:  "https://example.com",
		},
		{
			name:    "invalid base URL",
			base:    "://invalid",
			paths:   []string{"realms"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := JoinPath(tt.base, tt.paths...)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
