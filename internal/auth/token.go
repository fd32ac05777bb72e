package auth

import (
	"time"

	"github.com/evergrove/authfront/internal/store"
	"golang.org/x/oauth2"
)

// expirySkew is subtracted from the stored expiry when checking token
// validity, so a token never expires mid-flight between the check and its
// use.
const expirySkew = 30 * time.Second

// TokenSet holds the credentials issued by the provider on a code exchange
// or refresh. ExpiresAt is absolute, derived from the issuance response.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	TokenType    string
	Scope        string
	ExpiresAt    time.Time
}

func tokenSetFromOAuth2(tok *oauth2.Token) *TokenSet {
	ts := &TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ExpiresAt:    tok.Expiry,
	}
	if id, ok := tok.Extra("id_token").(string); ok {
		ts.IDToken = id
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		ts.Scope = scope
	}
	return ts
}

// persistTokens writes the token set to the session store, overwriting any
// earlier set. Fields the provider omitted on a refresh keep their stored
// values.
func (s *Service) persistTokens(ts *TokenSet) {
	s.store.Put(store.KeyAccessToken, ts.AccessToken)
	if ts.RefreshToken != "" {
		s.store.Put(store.KeyRefreshToken, ts.RefreshToken)
	}
	if ts.IDToken != "" {
		s.store.Put(store.KeyIDToken, ts.IDToken)
	}
	if ts.TokenType != "" {
		s.store.Put(store.KeyTokenType, ts.TokenType)
	}
	if ts.Scope != "" {
		s.store.Put(store.KeyScope, ts.Scope)
	}
	if ts.ExpiresAt.IsZero() {
		s.store.Remove(store.KeyTokenExpiry)
	} else {
		s.store.Put(store.KeyTokenExpiry, ts.ExpiresAt.Format(time.RFC3339Nano))
	}
}

// clearTokens removes every stored token entry. In-flight login material
// (verifier, state) is not touched.
func (s *Service) clearTokens() {
	for _, key := range []string{
		store.KeyAccessToken,
		store.KeyRefreshToken,
		store.KeyIDToken,
		store.KeyTokenType,
		store.KeyScope,
		store.KeyTokenExpiry,
	} {
		s.store.Remove(key)
	}
}

// IsExpired reports whether the stored access token is past its expiry,
// applying the safety skew. A missing or unparsable expiry counts as
// expired.
func (s *Service) IsExpired() bool {
	raw, ok := s.store.Get(store.KeyTokenExpiry)
	if !ok {
		return true
	}
	expiry, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return true
	}
	return s.now().After(expiry.Add(-expirySkew))
}
