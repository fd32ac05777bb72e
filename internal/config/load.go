package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// DefaultScopes are requested when the config names none. They cover the
// claims the userinfo endpoint needs to populate a profile.
var DefaultScopes = []string{"openid", "email", "profile"}

// Load loads and processes the config with immediate env var resolution
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&config)

	if err := Validate(&config); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func applyDefaults(config *Config) {
	if len(config.Scopes) == 0 {
		config.Scopes = append([]string(nil), DefaultScopes...)
	}
	if config.PostLogoutRedirectURI == "" {
		if u, err := url.Parse(config.RedirectURI); err == nil && u.Host != "" {
			config.PostLogoutRedirectURI = u.Scheme + "://" + u.Host
		}
	}
}

// Validate validates the resolved configuration
func Validate(config *Config) error {
	u, err := url.Parse(config.Issuer)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("issuer must be an absolute URL, got %q", config.Issuer)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("issuer must use http or https, got %q", u.Scheme)
	}

	if config.Realm == "" {
		return fmt.Errorf("realm is required")
	}
	if config.ClientID == "" {
		return fmt.Errorf("clientId is required")
	}

	r, err := url.Parse(config.RedirectURI)
	if err != nil || r.Scheme == "" || r.Host == "" {
		return fmt.Errorf("redirectUri must be an absolute URL, got %q", config.RedirectURI)
	}

	if config.PostLogoutRedirectURI != "" {
		p, err := url.Parse(config.PostLogoutRedirectURI)
		if err != nil || p.Scheme == "" || p.Host == "" {
			return fmt.Errorf("postLogoutRedirectUri must be an absolute URL, got %q", config.PostLogoutRedirectURI)
		}
	}

	for _, scope := range config.Scopes {
		if strings.TrimSpace(scope) == "" {
			return fmt.Errorf("scopes must not contain empty entries")
		}
	}

	return nil
}
