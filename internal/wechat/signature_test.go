// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package wechat

import (
	"errors"
	"testing"
)

const (
	testToken     = "readmark-token"
	testTimestamp = "1700000000"
	testNonce     = "nonce123"
	testSignature = "a3fa1a946e5ba1e91fefcc7149a3e0163270a609"
)

func TestSignature_ReferenceVector(t *testing.T) {
	if got := Signature(testToken, testTimestamp, testNonce); got != testSignature {
		t.Errorf("Signature() = %q, want %q", got, testSignature)
	}
	// Argument order does not matter because the parts are sorted.
	if got := Signature(testNonce, testToken, testTimestamp); got != testSignature {
		t.Errorf("Signature(permuted) = %q, want %q", got, testSignature)
	}
}

func TestVerifySignature(t *testing.T) {
	tests := []struct {
		name      string
		token     string
		signature string
		timestamp string
		nonce     string
		wantErr   bool
	}{
		{"valid", testToken, testSignature, testTimestamp, testNonce, false},
		{"wrong token", "other", testSignature, testTimestamp, testNonce, true},
		{"wrong timestamp", testToken, testSignature, "1700000001", testNonce, true},
		{"wrong nonce", testToken, testSignature, testTimestamp, "nonce124", true},
		{"empty signature", testToken, "", testTimestamp, testNonce, true},
		{"uppercase signature", testToken, "A3FA1A946E5BA1E91FEFCC7149A3E0163270A609", testTimestamp, testNonce, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifySignature(tt.token, tt.signature, tt.timestamp, tt.nonce)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidSignature) {
					t.Errorf("VerifySignature() error = %v, want ErrInvalidSignature", err)
				}
				return
			}
			if err != nil {
				t.Errorf("VerifySignature() unexpected error: %v", err)
			}
		})
	}
}
