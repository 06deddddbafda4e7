package ratelimit

import (
	"github.com/zapcodes-dev/zapcodes/internal/models"
	"github.com/zapcodes-dev/zapcodes/internal/tier"
)

// ResolveLimit resolves the effective per-second request limit for a user.
//
// Priority order: roles that bypass limits are never limited, then the
// plan's burst limit, then the settings default. A zero decision means no
// limiting.
func ResolveLimit(user *models.User) Decision {
	if user == nil || user.ID == 0 {
		return Decision{}
	}
	if user.Role.BypassesLimits() {
		return Decision{}
	}

	planLimit := tier.Resolve(user.Plan).RequestsPerSecond
	if planLimit > 0 {
		return Decision{Limit: planLimit, Scope: ScopeUser}
	}

	settingsLimit := DefaultSettingsLimit()
	if settingsLimit > 0 {
		return Decision{Limit: settingsLimit, Scope: ScopeUser}
	}
	return Decision{}
}
