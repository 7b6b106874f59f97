// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestStateSigner_RoundTrip(t *testing.T) {
	s, err := NewStateSigner("0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatalf("NewStateSigner() error: %v", err)
	}

	state, err := s.Issue("/my_page?page=2")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	next, err := s.Verify(state)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if next != "/my_page?page=2" {
		t.Errorf("next = %q", next)
	}

	other, _ := s.Issue("/my_page?page=2")
	if other == state {
		t.Error("two states for the same next are identical")
	}
}

func TestStateSigner_Rejects(t *testing.T) {
	s, _ := NewStateSigner("0123456789abcdef0123456789abcdef")
	issued := time.Unix(1700000000, 0)
	s.now = func() time.Time { return issued }
	state, _ := s.Issue("/")

	otherKey, _ := NewStateSigner("another-secret-another-secret-xx")
	otherKey.now = s.now
	forged, _ := otherKey.Issue("/")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &StateClaims{Next: "/"})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		state string
		at    time.Time
	}{
		{"empty", "", issued},
		{"garbage", "not-a-jwt", issued},
		{"wrong key", forged, issued},
		{"alg none", unsigned, issued},
		{"tampered", state[:len(state)-2] + "xx", issued},
		{"expired", state, issued.Add(11 * time.Minute)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.now = func() time.Time { return tt.at }
			if _, err := s.Verify(tt.state); !errors.Is(err, ErrInvalidState) {
				t.Errorf("Verify() error = %v, want ErrInvalidState", err)
			}
		})
	}
}

func TestNewStateSigner_RequiresSecret(t *testing.T) {
	if _, err := NewStateSigner(""); err == nil {
		t.Error("NewStateSigner(\"\") expected error")
	}
}

func TestSafeNext(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/my_page", "/my_page"},
		{"/book/3?x=1", "/book/3?x=1"},
		{"", "/"},
		{"https://evil.example", "/"},
		{"//evil.example/x", "/"},
		{"/\\evil.example", "/"},
		{"my_page", "/"},
	}
	for _, tt := range tests {
		if got := SafeNext(tt.in); got != tt.want {
			t.Errorf("SafeNext(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
