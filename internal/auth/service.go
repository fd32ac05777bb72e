// Package auth implements the OAuth 2.0 authorization code flow with PKCE
// against a Keycloak-shaped identity provider: login initiation, the
// callback exchange, token lifecycle (expiry, refresh, revocation) and
// profile fetches. The service owns no session state beyond what it
// persists in the injected store.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/evergrove/authfront/internal/config"
	"github.com/evergrove/authfront/internal/keycloak"
	"github.com/evergrove/authfront/internal/log"
	"github.com/evergrove/authfront/internal/pkce"
	"github.com/evergrove/authfront/internal/store"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// defaultHTTPTimeout bounds every provider call.
const defaultHTTPTimeout = 30 * time.Second

// CallbackResult is what a completed authorization callback yields.
type CallbackResult struct {
	Tokens *TokenSet
	User   *UserProfile
}

// completedCallback records the outcome of a processed authorization code so
// duplicate deliveries return the original result instead of replaying the
// exchange.
type completedCallback struct {
	result *CallbackResult
	err    error
}

// Service orchestrates the protocol exchange with the identity provider.
type Service struct {
	cfg            config.Config
	endpoints      keycloak.Endpoints
	oauth          oauth2.Config
	store          store.Store
	httpClient     *http.Client
	nav            Navigator
	now            func() time.Time
	verifierLength int

	mu        sync.Mutex
	flowID    string
	group     singleflight.Group
	completed map[string]completedCallback
}

// Option configures the service.
type Option func(*Service)

// WithHTTPClient sets the HTTP client used for provider calls.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) {
		s.httpClient = c
	}
}

// WithNavigator sets the Navigator used for authorize and logout redirects.
func WithNavigator(n Navigator) Option {
	return func(s *Service) {
		s.nav = n
	}
}

// WithClock sets the time source (for testing expiry behavior).
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithVerifierLength sets the PKCE code verifier length.
func WithVerifierLength(length int) Option {
	return func(s *Service) {
		s.verifierLength = length
	}
}

// New creates an auth service for the configured realm and client.
func New(cfg config.Config, st store.Store, opts ...Option) (*Service, error) {
	endpoints, err := keycloak.EndpointsForRealm(cfg.Issuer, cfg.Realm)
	if err != nil {
		return nil, fmt.Errorf("resolving realm endpoints: %w", err)
	}

	s := &Service{
		cfg:       cfg,
		endpoints: endpoints,
		oauth: oauth2.Config{
			ClientID:    string(cfg.ClientID),
			RedirectURL: cfg.RedirectURI,
			Scopes:      cfg.Scopes,
			Endpoint:    endpoints.OAuth2Endpoint(),
		},
		store:          st,
		httpClient:     &http.Client{Timeout: defaultHTTPTimeout},
		nav:            NewBrowserNavigator(),
		now:            time.Now,
		verifierLength: pkce.DefaultVerifierLength,
		flowID:         uuid.NewString(),
		completed:      make(map[string]completedCallback),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// oauthContext routes the oauth2 library's requests through our HTTP client.
func (s *Service) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// currentFlowID returns the correlation id of the most recent login attempt.
func (s *Service) currentFlowID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flowID
}

// rotateFlowID issues a fresh correlation id, scoping log lines to one
// login attempt.
func (s *Service) rotateFlowID() string {
	id := uuid.NewString()
	s.mu.Lock()
	s.flowID = id
	s.mu.Unlock()
	return id
}

// InitiateLogin starts a login attempt: generates fresh PKCE material,
// persists it, and sends the browser to the authorization endpoint. A new
// attempt replaces any earlier in-flight one.
func (s *Service) InitiateLogin(ctx context.Context) error {
	flowID := s.rotateFlowID()

	verifier, err := pkce.GenerateVerifier(s.verifierLength)
	if err != nil {
		return wrapFlowError(KindRandomSourceUnavailable, "generating code verifier", err)
	}
	state, err := pkce.GenerateState()
	if err != nil {
		return wrapFlowError(KindRandomSourceUnavailable, "generating state", err)
	}

	s.store.Put(store.KeyCodeVerifier, verifier)
	s.store.Put(store.KeyState, state)

	challenge := pkce.DeriveChallenge(verifier)
	authURL := s.oauth.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)

	log.LogInfoWithFields("auth", "Starting login", map[string]any{
		"flow_id":  flowID,
		"client":   s.cfg.ClientID,
		"redirect": s.cfg.RedirectURI,
	})

	if err := s.nav.OpenURL(authURL); err != nil {
		return fmt.Errorf("opening authorization URL: %w", err)
	}
	return nil
}

// HandleCallback processes the authorization response delivered on the
// redirect target. Each authorization code is processed at most once:
// concurrent deliveries share one exchange, and later deliveries of the
// same code receive the recorded outcome.
func (s *Service) HandleCallback(ctx context.Context, params url.Values) (*CallbackResult, error) {
	if errCode := params.Get("error"); errCode != "" {
		description := errCode
		if detail := params.Get("error_description"); detail != "" {
			description = fmt.Sprintf("%s: %s", errCode, detail)
		}
		return nil, newFlowError(KindProviderDenied, description)
	}

	code := params.Get("code")
	state := params.Get("state")
	if code == "" || state == "" {
		return nil, newFlowError(KindMalformedCallback, "authorization response missing code or state")
	}

	s.mu.Lock()
	if done, ok := s.completed[code]; ok {
		s.mu.Unlock()
		return done.result, done.err
	}
	s.mu.Unlock()

	v, err, _ := s.group.Do(code, func() (any, error) {
		result, err := s.processCallback(ctx, code, state)

		s.mu.Lock()
		s.completed[code] = completedCallback{result: result, err: err}
		s.mu.Unlock()

		return result, err
	})
	if err != nil {
		return nil, err
	}
	return v.(*CallbackResult), nil
}

func (s *Service) processCallback(ctx context.Context, code, state string) (*CallbackResult, error) {
	storedState, ok := s.store.Get(store.KeyState)
	if !ok || storedState != state {
		log.LogWarnWithFields("auth", "State mismatch on authorization callback", map[string]any{
			"flow_id": s.currentFlowID(),
		})
		return nil, newFlowError(KindCsrfMismatch, "state parameter does not match the value issued at login")
	}

	// Past the state check the verifier and state are single-use, whatever
	// the outcome.
	defer func() {
		s.store.Remove(store.KeyCodeVerifier)
		s.store.Remove(store.KeyState)
	}()

	tokens, err := s.exchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}

	profile, err := s.FetchUserProfile(ctx, tokens.AccessToken)
	if err != nil {
		return nil, err
	}

	s.persistTokens(tokens)

	log.LogInfoWithFields("auth", "Login completed", map[string]any{
		"flow_id": s.currentFlowID(),
		"subject": profile.Subject,
	})

	return &CallbackResult{Tokens: tokens, User: profile}, nil
}

func (s *Service) exchangeCode(ctx context.Context, code string) (*TokenSet, error) {
	verifier, ok := s.store.Get(store.KeyCodeVerifier)
	if !ok {
		return nil, newFlowError(KindMissingVerifier, "no code verifier persisted for this login attempt")
	}

	tok, err := s.oauth.Exchange(s.oauthContext(ctx), code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, wrapFlowError(KindTokenExchangeFailed, providerErrorDescription(err), err)
	}
	return tokenSetFromOAuth2(tok), nil
}

// FetchUserProfile fetches the identity's claims from the userinfo endpoint
// using the given access token.
func (s *Service) FetchUserProfile(ctx context.Context, accessToken string) (*UserProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoints.UserInfo, nil)
	if err != nil {
		return nil, wrapFlowError(KindUserInfoFailed, "building userinfo request", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, wrapFlowError(KindUserInfoFailed, "userinfo request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, newFlowError(KindUserInfoFailed, fmt.Sprintf("userinfo returned status %d: %s", resp.StatusCode, body))
	}

	var profile UserProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, wrapFlowError(KindUserInfoFailed, "decoding userinfo response", err)
	}
	return &profile, nil
}

// RefreshToken exchanges the stored refresh token for a new token set. A
// rejected refresh clears every stored token; the session then requires
// re-authentication.
func (s *Service) RefreshToken(ctx context.Context) (*TokenSet, error) {
	refreshToken, ok := s.store.Get(store.KeyRefreshToken)
	if !ok || refreshToken == "" {
		return nil, newFlowError(KindNoRefreshToken, "no refresh token persisted")
	}

	src := s.oauth.TokenSource(s.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		s.clearTokens()
		log.LogWarnWithFields("auth", "Refresh rejected, session cleared", map[string]any{
			"flow_id": s.currentFlowID(),
			"error":   err.Error(),
		})
		return nil, wrapFlowError(KindRefreshInvalid, providerErrorDescription(err), err)
	}

	ts := tokenSetFromOAuth2(tok)
	s.persistTokens(ts)
	return ts, nil
}

// ValidateSession reports whether a usable session exists: a stored access
// token accepted by the userinfo endpoint, or one successfully refreshed
// after a single attempt. Failures degrade to false, never an error.
func (s *Service) ValidateSession(ctx context.Context) bool {
	accessToken, ok := s.store.Get(store.KeyAccessToken)
	if !ok {
		return false
	}

	if _, err := s.FetchUserProfile(ctx, accessToken); err == nil {
		return true
	}

	if _, err := s.RefreshToken(ctx); err != nil {
		s.clearTokens()
		log.LogDebugWithFields("auth", "Session validation failed", map[string]any{
			"flow_id": s.currentFlowID(),
			"error":   err.Error(),
		})
		return false
	}
	return true
}

// CurrentUser returns the authenticated profile, refreshing first when the
// access token is expired. It degrades to nil rather than propagating
// failures; a transient network error and a revoked session are
// indistinguishable here, so the distinction lives in the logs only.
func (s *Service) CurrentUser(ctx context.Context) *UserProfile {
	accessToken, ok := s.store.Get(store.KeyAccessToken)
	if !ok {
		return nil
	}

	if s.IsExpired() {
		if _, err := s.RefreshToken(ctx); err != nil {
			log.LogDebugWithFields("auth", "Refresh before profile fetch failed", map[string]any{
				"flow_id": s.currentFlowID(),
				"error":   err.Error(),
			})
			return nil
		}
		accessToken, _ = s.store.Get(store.KeyAccessToken)
	}

	profile, err := s.FetchUserProfile(ctx, accessToken)
	if err != nil {
		log.LogDebugWithFields("auth", "Profile fetch failed", map[string]any{
			"flow_id": s.currentFlowID(),
			"error":   err.Error(),
		})
		return nil
	}

	s.mergeIDTokenClaims(profile)
	return profile
}

// Logout revokes the refresh token best-effort, clears stored tokens, and
// sends the browser to the provider's logout endpoint. Revocation failures
// are logged, never fatal: the local session is cleared regardless.
func (s *Service) Logout(ctx context.Context) error {
	if refreshToken, ok := s.store.Get(store.KeyRefreshToken); ok && refreshToken != "" {
		if err := s.revokeRefreshToken(ctx, refreshToken); err != nil {
			log.LogWarnWithFields("auth", "Token revocation failed, continuing logout", map[string]any{
				"flow_id": s.currentFlowID(),
				"error":   err.Error(),
			})
		}
	}

	idToken, _ := s.store.Get(store.KeyIDToken)
	s.clearTokens()

	logoutURL, err := s.logoutURL(idToken)
	if err != nil {
		return err
	}
	return s.nav.OpenURL(logoutURL)
}

func (s *Service) logoutURL(idToken string) (string, error) {
	u, err := url.Parse(s.endpoints.Logout)
	if err != nil {
		return "", fmt.Errorf("parsing logout endpoint: %w", err)
	}

	q := u.Query()
	if idToken != "" {
		q.Set("id_token_hint", idToken)
	}
	if s.cfg.PostLogoutRedirectURI != "" {
		q.Set("post_logout_redirect_uri", s.cfg.PostLogoutRedirectURI)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *Service) revokeRefreshToken(ctx context.Context, refreshToken string) error {
	form := url.Values{
		"client_id":     {string(s.cfg.ClientID)},
		"refresh_token": {refreshToken},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoints.Revocation, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("building revocation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("revocation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("revocation endpoint returned status %d: %s", resp.StatusCode, body)
	}
	return nil
}

// providerErrorDescription extracts the provider's error description from an
// oauth2 retrieval error when one is available.
func providerErrorDescription(err error) string {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		if re.ErrorDescription != "" {
			return re.ErrorDescription
		}
		if re.ErrorCode != "" {
			return re.ErrorCode
		}
	}
	return "token endpoint returned an error"
}
