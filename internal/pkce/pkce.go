// Package pkce generates the Proof Key for Code Exchange material used by the
// OAuth 2.0 authorization code flow (RFC 7636): a random code verifier, its
// S256 code challenge, and the anti-CSRF state parameter.
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// DefaultVerifierLength is the verifier length used when callers have no
// reason to pick another one. RFC 7636 allows 43-128; we default to the top
// of the range.
const DefaultVerifierLength = 128

// verifierCharset is the unreserved character set RFC 7636 permits in a
// code verifier.
const verifierCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"

// maxAcceptedByte is the rejection-sampling bound: random bytes at or above
// it are discarded so every charset character is equally likely.
const maxAcceptedByte = 256 - 256%len(verifierCharset)

// ErrRandomSource is returned when the secure random source fails. This is an
// environment-level failure and not retryable.
var ErrRandomSource = errors.New("secure random source unavailable")

// GenerateVerifier creates a random code verifier of the given length drawn
// uniformly from the RFC 7636 unreserved character set.
func GenerateVerifier(length int) (string, error) {
	if length < 1 {
		return "", fmt.Errorf("verifier length must be at least 1, got %d", length)
	}

	out, err := verifierFromRandom(rand.Reader, length)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRandomSource, err)
	}
	return out, nil
}

func verifierFromRandom(r io.Reader, length int) (string, error) {
	out := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(out) < length {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
		for _, v := range buf {
			if int(v) >= maxAcceptedByte {
				continue
			}
			out = append(out, verifierCharset[int(v)%len(verifierCharset)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}

// DeriveChallenge computes the S256 code challenge for a verifier: the
// base64url encoding, without padding, of the verifier's SHA-256 digest.
func DeriveChallenge(verifier string) string {
	h := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(h[:])
}

// GenerateState creates the state parameter round-tripped through the
// identity provider for CSRF detection: 32 random bytes, hex encoded.
func GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRandomSource, err)
	}
	return hex.EncodeToString(b), nil
}
