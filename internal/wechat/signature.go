// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package wechat

import (
	"crypto/sha1" //nolint:gosec // the platform mandates SHA-1 signatures
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
)

// ErrInvalidSignature is returned when a webhook request fails verification.
var ErrInvalidSignature = errors.New("invalid wechat signature")

// Signature computes the webhook signature for token, timestamp and nonce.
func Signature(token, timestamp, nonce string) string {
	parts := []string{token, timestamp, nonce}
	sort.Strings(parts)
	sum := sha1.Sum([]byte(strings.Join(parts, ""))) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// VerifySignature checks signature in constant time.
func VerifySignature(token, signature, timestamp, nonce string) error {
	if signature == "" {
		return ErrInvalidSignature
	}
	want := Signature(token, timestamp, nonce)
	if subtle.ConstantTimeCompare([]byte(want), []byte(signature)) != 1 {
		return ErrInvalidSignature
	}
	return nil
}
