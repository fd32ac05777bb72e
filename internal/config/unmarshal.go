package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// resolveValue parses a config value that is either a plain JSON string or an
// environment reference of the form {"$env": "VAR_NAME"}.
func resolveValue(raw json.RawMessage) (string, error) {
	if raw == nil {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var ref struct {
		Env string `json:"$env"`
	}
	if err := json.Unmarshal(raw, &ref); err != nil {
		return "", fmt.Errorf("value must be a string or {\"$env\": \"VAR_NAME\"}: %w", err)
	}
	if ref.Env == "" {
		return "", fmt.Errorf("value must be a string or {\"$env\": \"VAR_NAME\"}")
	}

	v, ok := os.LookupEnv(ref.Env)
	if !ok {
		return "", fmt.Errorf("environment variable %s is not set", ref.Env)
	}
	return v, nil
}

// UnmarshalJSON implements custom unmarshaling for Config, resolving
// environment references immediately.
func (c *Config) UnmarshalJSON(data []byte) error {
	// Use a raw type to avoid recursion
	type rawConfig struct {
		Issuer                json.RawMessage `json:"issuer"`
		Realm                 json.RawMessage `json:"realm"`
		ClientID              json.RawMessage `json:"clientId"`
		Scopes                []string        `json:"scopes,omitempty"`
		RedirectURI           json.RawMessage `json:"redirectUri"`
		PostLogoutRedirectURI json.RawMessage `json:"postLogoutRedirectUri,omitempty"`
	}

	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	c.Scopes = raw.Scopes

	for _, field := range []struct {
		name string
		raw  json.RawMessage
		dst  *string
	}{
		{"issuer", raw.Issuer, &c.Issuer},
		{"realm", raw.Realm, &c.Realm},
		{"redirectUri", raw.RedirectURI, &c.RedirectURI},
		{"postLogoutRedirectUri", raw.PostLogoutRedirectURI, &c.PostLogoutRedirectURI},
	} {
		v, err := resolveValue(field.raw)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", field.name, err)
		}
		*field.dst = v
	}

	clientID, err := resolveValue(raw.ClientID)
	if err != nil {
		return fmt.Errorf("parsing clientId: %w", err)
	}
	c.ClientID = Secret(clientID)

	return nil
}
