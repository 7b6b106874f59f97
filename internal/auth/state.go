// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidState is returned when an OAuth state parameter fails verification.
var ErrInvalidState = errors.New("invalid oauth state")

const (
	stateIssuer     = "readmark"
	defaultStateTTL = 10 * time.Minute
)

// StateClaims is the payload of the OAuth state parameter.
type StateClaims struct {
	// Next is the local path to return to after login.
	Next string `json:"next"`
	jwt.RegisteredClaims
}

// StateSigner issues and verifies OAuth state tokens.
type StateSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewStateSigner creates a signer keyed with the session secret.
//
// The state round-trips through the WeChat authorize endpoint, so it must be
// tamper evident and short lived:
//
//   - HS256 with the session secret
//   - 10 minute expiry
//   - a random jti so two logins never share a state
//
// Returns an error if secret is empty.
func NewStateSigner(secret string) (*StateSigner, error) {
	if secret == "" {
		return nil, fmt.Errorf("session secret is required but was empty")
	}
	return &StateSigner{secret: []byte(secret), ttl: defaultStateTTL, now: time.Now}, nil
}

// Issue returns a signed state carrying next. Anything that is not a local
// path is replaced by "/".
func (s *StateSigner) Issue(next string) (string, error) {
	now := s.now()
	claims := &StateClaims{
		Next: SafeNext(next),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    stateIssuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign state: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, issuer and expiry of state and returns the
// carried path. Every failure wraps ErrInvalidState.
func (s *StateSigner) Verify(state string) (string, error) {
	claims := &StateClaims{}
	_, err := jwt.ParseWithClaims(state, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(stateIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	return SafeNext(claims.Next), nil
}

// SafeNext returns next if it is a path on this site, otherwise "/".
func SafeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return "/"
	}
	return next
}
