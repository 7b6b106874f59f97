// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package opac

import (
	"crypto/md5" //nolint:gosec // the library API mandates MD5 signatures
	"encoding/hex"
	"fmt"

	"github.com/goccy/go-json"
)

// AuthHeader is the decoded form of the X-Hw-ApiAuth header.
type AuthHeader struct {
	AppID     string `json:"appId"`
	Nonce     string `json:"noncestr"`
	Timestamp string `json:"timestamp"`
	Sign      string `json:"sign"`
}

// Sign computes the request signature.
func Sign(appID, appKey, nonce, timestamp string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("appId=%s&noncestr=%s&timestamp=%s&key=%s", appID, nonce, timestamp, appKey))) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// NewAuthHeader builds the signed header value.
func NewAuthHeader(appID, appKey, nonce, timestamp string) (string, error) {
	b, err := json.Marshal(AuthHeader{
		AppID:     appID,
		Nonce:     nonce,
		Timestamp: timestamp,
		Sign:      Sign(appID, appKey, nonce, timestamp),
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode auth header: %w", err)
	}
	return string(b), nil
}
