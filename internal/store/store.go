// Package store provides the ephemeral session store the auth flow persists
// its in-flight PKCE material and issued tokens in. Entries live for the
// process lifetime only; nothing survives exit.
package store

// Keys used by the auth flow. Collected here so the service and its tests
// agree on the store layout.
const (
	KeyCodeVerifier = "pkce_code_verifier"
	KeyState        = "oauth_state"
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyIDToken      = "id_token"
	KeyTokenExpiry  = "token_expiry"
	KeyTokenType    = "token_type"
	KeyScope        = "token_scope"
)

// Store is the session-scoped key/value persistence the auth service writes
// through. Get on a missing key reports absence, never an error. The store
// has no expiry logic of its own; token expiry is tracked by the service.
type Store interface {
	Put(key, value string)
	Get(key string) (string, bool)
	Remove(key string)
	Clear()
}
