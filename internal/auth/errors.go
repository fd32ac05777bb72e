package auth

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure of the authentication flow. Callers dispatch
// on the kind rather than matching message strings.
type ErrorKind string

const (
	// KindProviderDenied means the provider returned an OAuth error on the
	// authorization response, e.g. the user declined consent.
	KindProviderDenied ErrorKind = "provider_denied"

	// KindMalformedCallback means the authorization response is missing the
	// code or state parameter.
	KindMalformedCallback ErrorKind = "malformed_callback"

	// KindCsrfMismatch means the callback's state parameter does not match
	// the persisted one. Treated as a security event; the flow never
	// proceeds past it.
	KindCsrfMismatch ErrorKind = "csrf_mismatch"

	// KindMissingVerifier means no code verifier was persisted for the
	// login attempt being completed.
	KindMissingVerifier ErrorKind = "missing_verifier"

	// KindTokenExchangeFailed means the token endpoint rejected the
	// authorization code exchange.
	KindTokenExchangeFailed ErrorKind = "token_exchange_failed"

	// KindUserInfoFailed means the userinfo endpoint returned a
	// non-success response.
	KindUserInfoFailed ErrorKind = "userinfo_failed"

	// KindRefreshInvalid means the refresh grant was rejected; stored
	// tokens are cleared and re-authentication is required.
	KindRefreshInvalid ErrorKind = "refresh_invalid"

	// KindNoRefreshToken means a refresh was requested with no refresh
	// token persisted.
	KindNoRefreshToken ErrorKind = "no_refresh_token"

	// KindRandomSourceUnavailable means the secure random source failed.
	// Fatal and environment-level; not retryable.
	KindRandomSourceUnavailable ErrorKind = "random_source_unavailable"
)

// FlowError is the tagged failure type of the auth flow.
type FlowError struct {
	Kind        ErrorKind
	Description string
	Err         error
}

func (e *FlowError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Description)
	}
	return string(e.Kind)
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

func newFlowError(kind ErrorKind, description string) *FlowError {
	return &FlowError{Kind: kind, Description: description}
}

func wrapFlowError(kind ErrorKind, description string, err error) *FlowError {
	return &FlowError{Kind: kind, Description: description, Err: err}
}

// IsKind reports whether err is a FlowError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var fe *FlowError
	return errors.As(err, &fe) && fe.Kind == kind
}
