// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/tomtom215/readmark/internal/models"
)

// MaxReflectionRunes bounds reflection text.
const MaxReflectionRunes = 2000

// BookReflectionForm is posted from the book detail page.
type BookReflectionForm struct {
	BookID     int64  `validate:"gt=0"`
	ReaderCard string `validate:"required"`
	Content    string `validate:"required,max=2000"`
}

// FeedReflectionForm is posted from the reflections feed with a free title.
type FeedReflectionForm struct {
	BookTitle string `validate:"required,max=200"`
	Content   string `validate:"required,max=2000"`
}

// EditReflectionForm replaces a reflection's text.
type EditReflectionForm struct {
	Content string `validate:"required,max=2000"`
}

// LikeForm is posted by the anonymous like endpoint.
type LikeForm struct {
	ReflectionID int64  `validate:"gt=0"`
	ReaderCard   string `validate:"required"`
}

// ProfileForm edits the display nickname.
type ProfileForm struct {
	Nickname string `validate:"required,min=1,max=50"`
}

// BindInput is a parsed chat bind submission.
type BindInput struct {
	Card string            `validate:"readercard"`
	Type models.ReaderType `validate:"readertype"`
}

var (
	// ErrBindFormat is returned when the submission is not two comma-separated fields.
	ErrBindFormat = errors.New("bind input must be card,type")
	// ErrBindCard is returned when the card is not ten letters or digits.
	ErrBindCard = errors.New("reader card must be 10 letters or digits")
)

// BindTypeError carries the rejected type code.
type BindTypeError struct {
	Type string
}

func (e *BindTypeError) Error() string {
	return fmt.Sprintf("unsupported reader type %q", e.Type)
}

var bindSeparator = regexp.MustCompile(`[，,]`)

// ParseBindInput parses "card,type". The type is checked before the card.
func ParseBindInput(text string) (BindInput, error) {
	parts := bindSeparator.Split(strings.TrimSpace(text), -1)
	if len(parts) != 2 {
		return BindInput{}, ErrBindFormat
	}
	in := BindInput{
		Card: strings.TrimSpace(parts[0]),
		Type: models.ReaderType(strings.TrimSpace(parts[1])),
	}

	if err := ValidateStruct(&in); err != nil {
		if err.HasField("Type") {
			return BindInput{}, &BindTypeError{Type: string(in.Type)}
		}
		return BindInput{}, ErrBindCard
	}
	return in, nil
}
