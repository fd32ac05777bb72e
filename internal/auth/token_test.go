package auth

import (
	"testing"
	"time"

	"github.com/evergrove/authfront/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestTokenSetFromOAuth2(t *testing.T) {
	expiry := time.Now().Add(5 * time.Minute)
	tok := (&oauth2.Token{
		AccessToken:  "at",
		RefreshToken: "rt",
		TokenType:    "Bearer",
		Expiry:       expiry,
	}).WithExtra(map[string]any{
		"id_token": "idt",
		"scope":    "openid email",
	})

	ts := tokenSetFromOAuth2(tok)
	assert.Equal(t, "at", ts.AccessToken)
	assert.Equal(t, "rt", ts.RefreshToken)
	assert.Equal(t, "idt", ts.IDToken)
	assert.Equal(t, "Bearer", ts.TokenType)
	assert.Equal(t, "openid email", ts.Scope)
	assert.Equal(t, expiry, ts.ExpiresAt)
}

func TestTokenSetFromOAuth2WithoutExtras(t *testing.T) {
	ts := tokenSetFromOAuth2(&oauth2.Token{AccessToken: "at"})
	assert.Empty(t, ts.IDToken)
	assert.Empty(t, ts.Scope)
}

func TestPersistTokensKeepsOmittedFields(t *testing.T) {
	idp := newFakeIdP(t)
	svc, st, _ := newTestService(t, idp)

	st.Put(store.KeyRefreshToken, "rt-old")
	st.Put(store.KeyIDToken, "idt-old")

	// A refresh response that carried neither a refresh token nor an ID
	// token keeps the stored values.
	svc.persistTokens(&TokenSet{
		AccessToken: "at-new",
		ExpiresAt:   time.Now().Add(time.Minute),
	})

	at, _ := st.Get(store.KeyAccessToken)
	assert.Equal(t, "at-new", at)
	rt, _ := st.Get(store.KeyRefreshToken)
	assert.Equal(t, "rt-old", rt)
	idt, _ := st.Get(store.KeyIDToken)
	assert.Equal(t, "idt-old", idt)
}

func TestPersistTokensWritesExpiry(t *testing.T) {
	idp := newFakeIdP(t)
	svc, st, _ := newTestService(t, idp)

	expiry := time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC)
	svc.persistTokens(&TokenSet{AccessToken: "at", ExpiresAt: expiry})

	raw, ok := st.Get(store.KeyTokenExpiry)
	require.True(t, ok)

	parsed, err := time.Parse(time.RFC3339Nano, raw)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(expiry))
}

func TestClearTokensLeavesLoginMaterial(t *testing.T) {
	idp := newFakeIdP(t)
	svc, st, _ := newTestService(t, idp)

	st.Put(store.KeyCodeVerifier, "v")
	st.Put(store.KeyState, "s")
	st.Put(store.KeyAccessToken, "at")
	st.Put(store.KeyRefreshToken, "rt")

	svc.clearTokens()

	_, ok := st.Get(store.KeyAccessToken)
	assert.False(t, ok)
	_, ok = st.Get(store.KeyRefreshToken)
	assert.False(t, ok)

	// In-flight login material is not token state
	_, ok = st.Get(store.KeyCodeVerifier)
	assert.True(t, ok)
	_, ok = st.Get(store.KeyState)
	assert.True(t, ok)
}
