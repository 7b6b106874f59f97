// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

// Package models provides the data structures shared by the Readmark
// persistence layer, the WeChat gateway and the web front end.
package models

import "time"

// ReaderType identifies which kind of patron identifier a reader bound.
// The values are the codes the library's loan-history API expects.
type ReaderType string

const (
	// ReaderTypeCard is the patron certificate number (证件号).
	ReaderTypeCard ReaderType = "0"
	// ReaderTypeBarcode is the barcode printed on the library card (条码号).
	ReaderTypeBarcode ReaderType = "1"
)

// Valid reports whether t is one of the supported codes.
func (t ReaderType) Valid() bool {
	return t == ReaderTypeCard || t == ReaderTypeBarcode
}

// Label returns the Chinese display name used in replies and pages.
func (t ReaderType) Label() string {
	if t == ReaderTypeCard {
		return "证件号"
	}
	return "条码号"
}

// Reader links a WeChat openid to a library patron.
type Reader struct {
	ID         int64      `json:"id"`
	OpenID     string     `json:"openid"`
	ReaderCard string     `json:"reader_card"`
	ReaderType ReaderType `json:"reader_type"`
	Nickname   string     `json:"nickname,omitempty"`
	IsAdmin    bool       `json:"is_admin"`
	CreatedAt  time.Time  `json:"created_at"`
}

// DisplayName is the nickname, or the card number when no nickname is set.
func (r *Reader) DisplayName() string {
	if r.Nickname != "" {
		return r.Nickname
	}
	return r.ReaderCard
}
