// Package keycloak builds the OpenID Connect endpoint set exposed by a
// Keycloak realm. Endpoints are derived from the issuer base URL and the
// realm name; no discovery request is made.
package keycloak

import (
	"fmt"

	"github.com/evergrove/authfront/internal/urlutil"
	"golang.org/x/oauth2"
)

// Endpoints holds the realm's protocol endpoints consumed by the auth flow.
type Endpoints struct {
	Authorization string
	Token         string
	UserInfo      string
	Revocation    string
	Logout        string
}

// EndpointsForRealm resolves the protocol endpoints for a realm under the
// given issuer base URL, e.g. https://id.example.com + "demo" ->
// https://id.example.com/realms/demo/protocol/openid-connect/auth.
func EndpointsForRealm(issuer, realm string) (Endpoints, error) {
	if realm == "" {
		return Endpoints{}, fmt.Errorf("realm is required")
	}

	var eps Endpoints
	for _, part := range []struct {
		dst  *string
		leaf string
	}{
		{&eps.Authorization, "auth"},
		{&eps.Token, "token"},
		{&eps.UserInfo, "userinfo"},
		{&eps.Revocation, "revoke"},
		{&eps.Logout, "logout"},
	} {
		u, err := urlutil.JoinPath(issuer, "realms", realm, "protocol/openid-connect", part.leaf)
		if err != nil {
			return Endpoints{}, fmt.Errorf("building %s endpoint: %w", part.leaf, err)
		}
		*part.dst = u
	}
	return eps, nil
}

// OAuth2Endpoint returns the endpoint pair in the form golang.org/x/oauth2
// consumes. Public clients carry their client_id in the request body, so the
// auth style is pinned to params.
func (e Endpoints) OAuth2Endpoint() oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:   e.Authorization,
		TokenURL:  e.Token,
		AuthStyle: oauth2.AuthStyleInParams,
	}
}
