package auth

import (
	"github.com/evergrove/authfront/internal/log"
	"github.com/evergrove/authfront/internal/store"
	"github.com/golang-jwt/jwt/v5"
)

// UserProfile holds the authenticated identity's claims as returned by the
// userinfo endpoint (standard OIDC claim names, Keycloak included).
type UserProfile struct {
	Subject       string `json:"sub"`
	Username      string `json:"preferred_username"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
}

// mergeIDTokenClaims fills profile fields the userinfo response omitted from
// the stored ID token's claims. The token is decoded without signature
// verification: it arrived directly from the token endpoint over TLS and is
// used only to enrich the display profile.
func (s *Service) mergeIDTokenClaims(p *UserProfile) {
	raw, ok := s.store.Get(store.KeyIDToken)
	if !ok || raw == "" {
		return
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		log.LogDebugWithFields("auth", "Could not decode ID token claims", map[string]any{
			"flow_id": s.flowID,
			"error":   err.Error(),
		})
		return
	}

	str := func(key string) string {
		v, _ := claims[key].(string)
		return v
	}

	if p.Subject == "" {
		p.Subject = str("sub")
	}
	if p.Username == "" {
		p.Username = str("preferred_username")
	}
	if p.Email == "" {
		p.Email = str("email")
		if v, ok := claims["email_verified"].(bool); ok {
			p.EmailVerified = v
		}
	}
	if p.Name == "" {
		p.Name = str("name")
	}
	if p.GivenName == "" {
		p.GivenName = str("given_name")
	}
	if p.FamilyName == "" {
		p.FamilyName = str("family_name")
	}
}
