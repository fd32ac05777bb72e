package config

import (
	"encoding/json"
)

// Secret is a string type that redacts itself when printed
type Secret string

// String implements fmt.Stringer to redact the secret
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "***"
}

// MarshalJSON implements json.Marshaler to prevent secrets in JSON logs
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}
	return json.Marshal("***")
}

// Config holds the identity-provider client settings. The core consumes
// these as opaque values; nothing here is discovered at runtime.
type Config struct {
	// Issuer is the identity provider's base URL, without the realm path.
	Issuer string `json:"issuer"`

	// Realm is the Keycloak realm the client is registered in.
	Realm string `json:"realm"`

	// ClientID identifies the public client. No client secret is used;
	// the flow relies on PKCE instead.
	ClientID Secret `json:"clientId"`

	// Scopes requested during authorization. Defaults to
	// openid/email/profile when empty.
	Scopes []string `json:"scopes,omitempty"`

	// RedirectURI must exactly match the redirect URI registered with the
	// provider; a mismatch causes a provider-side rejection.
	RedirectURI string `json:"redirectUri"`

	// PostLogoutRedirectURI is where the provider sends the browser after
	// ending the session. Defaults to the redirect URI's origin.
	PostLogoutRedirectURI string `json:"postLogoutRedirectUri,omitempty"`
}
