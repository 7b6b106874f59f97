// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package authz

import (
	"github.com/rs/zerolog"

	"github.com/tomtom215/readmark/internal/logging"
	"github.com/tomtom215/readmark/internal/models"
)

// Authorizer maps readers to roles and checks permissions.
type Authorizer struct {
	enforcer *Enforcer
	admins   map[string]struct{}
	logger   zerolog.Logger
}

// NewAuthorizer creates an authorizer. adminOpenIDs are granted the admin
// role in addition to readers whose is_admin flag is set.
func NewAuthorizer(enforcer *Enforcer, adminOpenIDs []string) *Authorizer {
	admins := make(map[string]struct{}, len(adminOpenIDs))
	for _, id := range adminOpenIDs {
		if id != "" {
			admins[id] = struct{}{}
		}
	}
	return &Authorizer{
		enforcer: enforcer,
		admins:   admins,
		logger:   logging.WithComponent("authz"),
	}
}

// Roles returns the roles of r. A nil reader has none.
func (a *Authorizer) Roles(r *models.Reader) []string {
	if r == nil {
		return nil
	}
	roles := []string{RoleReader}
	if a.IsAdmin(r) {
		roles = append(roles, RoleAdmin)
	}
	return roles
}

// IsAdmin reports whether r holds the admin role.
func (a *Authorizer) IsAdmin(r *models.Reader) bool {
	if r == nil {
		return false
	}
	if r.IsAdmin {
		return true
	}
	_, ok := a.admins[r.OpenID]
	return ok
}

// Can reports whether r may perform action on object. Enforcement errors deny.
func (a *Authorizer) Can(r *models.Reader, object, action string) bool {
	allowed, err := a.enforcer.EnforceAny(a.Roles(r), object, action)
	if err != nil {
		a.logger.Error().Err(err).Str("object", object).Str("action", action).Msg("authorization check failed")
		return false
	}
	return allowed
}
