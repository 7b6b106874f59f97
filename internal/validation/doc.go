// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

// Package validation provides struct validation using go-playground/validator v10.
//
// # Overview
//
// The package provides:
//   - Thread-safe singleton validator (initialized once, cached struct info)
//   - Custom tags: readercard (exactly ten ASCII letters or digits) and
//     readertype ("0" or "1")
//   - Form structs for every web POST and the chat bind submission
//   - Error translation to human-readable messages for logs
//
// # Quick Start
//
//	form := validation.ProfileForm{Nickname: r.PostFormValue("nickname")}
//	if err := validation.ValidateStruct(&form); err != nil {
//	    logging.Ctx(ctx).Debug().Err(err).Msg("invalid profile form")
//	    http.Error(w, "昵称长度需为1-50个字符", http.StatusBadRequest)
//	    return
//	}
//
// # Bind Submissions
//
// ParseBindInput splits "card,type" (ASCII or full-width comma) and reports
// the first failing rule through ErrBindFormat, *BindTypeError or
// ErrBindCard, in that order.
package validation
