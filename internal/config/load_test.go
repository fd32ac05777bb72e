package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `{
		"issuer": "https://id.example.com",
		"realm": "demo",
		"clientId": "react-client",
		"scopes": ["openid", "email", "profile"],
		"redirectUri": "https://app.example/callback"
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://id.example.com", cfg.Issuer)
	assert.Equal(t, "demo", cfg.Realm)
	assert.Equal(t, Secret("react-client"), cfg.ClientID)
	assert.Equal(t, []string{"openid", "email", "profile"}, cfg.Scopes)
	assert.Equal(t, "https://app.example/callback", cfg.RedirectURI)
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"issuer": "https://id.example.com",
		"realm": "demo",
		"clientId": "react-client",
		"redirectUri": "https://app.example/callback"
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultScopes, cfg.Scopes)
	assert.Equal(t, "https://app.example", cfg.PostLogoutRedirectURI)
}

func TestLoadEnvReference(t *testing.T) {
	t.Setenv("TEST_OIDC_CLIENT_ID", "env-client")

	path := writeConfig(t, `{
		"issuer": "https://id.example.com",
		"realm": "demo",
		"clientId": {"$env": "TEST_OIDC_CLIENT_ID"},
		"redirectUri": "https://app.example/callback"
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Secret("env-client"), cfg.ClientID)
}

func TestLoadEnvReferenceMissing(t *testing.T) {
	path := writeConfig(t, `{
		"issuer": "https://id.example.com",
		"realm": "demo",
		"clientId": {"$env": "TEST_OIDC_UNSET_VARIABLE"},
		"redirectUri": "https://app.example/callback"
	}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEST_OIDC_UNSET_VARIABLE")
}

func TestLoadValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing realm",
			content: `{
				"issuer": "https://id.example.com",
				"clientId": "c",
				"redirectUri": "https://app.example/callback"
			}`,
			wantErr: "realm is required",
		},
		{
			name: "missing client id",
			content: `{
				"issuer": "https://id.example.com",
				"realm": "demo",
				"redirectUri": "https://app.example/callback"
			}`,
			wantErr: "clientId is required",
		},
		{
			name: "relative issuer",
			content: `{
				"issuer": "id.example.com",
				"realm": "demo",
				"clientId": "c",
				"redirectUri": "https://app.example/callback"
			}`,
			wantErr: "issuer must be an absolute URL",
		},
		{
			name: "bad issuer scheme",
			content: `{
				"issuer": "ftp://id.example.com",
				"realm": "demo",
				"clientId": "c",
				"redirectUri": "https://app.example/callback"
			}`,
			wantErr: "issuer must use http or https",
		},
		{
			name: "relative redirect uri",
			content: `{
				"issuer": "https://id.example.com",
				"realm": "demo",
				"clientId": "c",
				"redirectUri": "/callback"
			}`,
			wantErr: "redirectUri must be an absolute URL",
		},
		{
			name: "relative post-logout redirect uri",
			content: `{
				"issuer": "https://id.example.com",
				"realm": "demo",
				"clientId": "c",
				"redirectUri": "https://app.example/callback",
				"postLogoutRedirectUri": "/signed-out"
			}`,
			wantErr: "postLogoutRedirectUri must be an absolute URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
