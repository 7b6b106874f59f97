// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

// Package authz decides what a bound reader may do on the web site, using a
// Casbin RBAC model embedded in the binary.
//
// Subjects are roles, not openids:
//
//	reader  every bound reader
//	admin   readers with is_admin set or listed in security.admin_openids
//
// admin inherits reader. Objects and actions are small fixed strings such as
// ("reflections", "moderate").
package authz
