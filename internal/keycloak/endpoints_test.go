package keycloak

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointsForRealm(t *testing.T) {
	eps, err := EndpointsForRealm("https://id.example.com", "demo")
	require.NoError(t, err)

	assert.Equal(t, "https://id.example.com/realms/demo/protocol/openid-connect/auth", eps.Authorization)
	assert.Equal(t, "https://id.example.com/realms/demo/protocol/openid-connect/token", eps.Token)
	assert.Equal(t, "https://id.example.com/realms/demo/protocol/openid-connect/userinfo", eps.UserInfo)
	assert.Equal(t, "https://id.example.com/realms/demo/protocol/openid-connect/revoke", eps.Revocation)
	assert.Equal(t, "https://id.example.com/realms/demo/protocol/openid-connect/logout", eps.Logout)
}

func TestEndpointsForRealmIssuerWithPath(t *testing.T) {
	eps, err := EndpointsForRealm("https://example.com/auth", "internal")
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/auth/realms/internal/protocol/openid-connect/token", eps.Token)
}

func TestEndpointsForRealmEmptyRealm(t *testing.T) {
	_, err := EndpointsForRealm("https://id.example.com", "")
	assert.Error(t, err)
}

func TestOAuth2Endpoint(t *testing.T) {
	eps, err := EndpointsForRealm("https://id.example.com", "demo")
	require.NoError(t, err)

	oe := eps.OAuth2Endpoint()
	assert.Equal(t, eps.Authorization, oe.AuthURL)
	assert.Equal(t, eps.Token, oe.TokenURL)
}
