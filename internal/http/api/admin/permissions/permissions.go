// Package permissions defines the admin console's route policy as data:
// every admin route is declared with the minimum role allowed to call it.
package permissions

import (
	"strings"

	"github.com/zapcodes-dev/zapcodes/internal/models"
)

// Definition describes one admin route and the minimum role it requires.
type Definition struct {
	Key     string      `json:"key"`
	Method  string      `json:"method"`
	Path    string      `json:"path"`
	Label   string      `json:"label"`
	Module  string      `json:"module"`
	MinRole models.Role `json:"min_role"`
}

// Key builds a permission key from method and path.
func Key(method, path string) string {
	return strings.ToUpper(method) + " " + path
}

// roleRank orders roles for minimum-role comparisons.
var roleRank = map[models.Role]int{
	models.RoleUser:       0,
	models.RoleModerator:  1,
	models.RoleCoAdmin:    2,
	models.RoleSuperAdmin: 3,
}

// RoleAtLeast reports whether role meets the minimum.
func RoleAtLeast(role, min models.Role) bool {
	return roleRank[role] >= roleRank[min]
}

// newDefinition builds a Definition with a normalized key.
func newDefinition(method, path, label, module string, minRole models.Role) Definition {
	upperMethod := strings.ToUpper(method)
	return Definition{
		Key:     Key(upperMethod, path),
		Method:  upperMethod,
		Path:    path,
		Label:   label,
		Module:  module,
		MinRole: minRole,
	}
}

// definitions is the authoritative route policy. Routes absent from this
// table are denied for every role.
var definitions = []Definition{
	newDefinition("GET", "/v0/admin/users", "List users", "users", models.RoleCoAdmin),
	newDefinition("GET", "/v0/admin/users/:id", "Get user", "users", models.RoleCoAdmin),
	newDefinition("PUT", "/v0/admin/users/:id", "Update user", "users", models.RoleCoAdmin),
	newDefinition("DELETE", "/v0/admin/users/:id", "Delete user", "users", models.RoleSuperAdmin),
	newDefinition("POST", "/v0/admin/users/:id/disable", "Disable user", "users", models.RoleCoAdmin),
	newDefinition("POST", "/v0/admin/users/:id/enable", "Enable user", "users", models.RoleCoAdmin),
	newDefinition("PUT", "/v0/admin/users/:id/role", "Change user role", "users", models.RoleSuperAdmin),
	newDefinition("PUT", "/v0/admin/users/:id/plan", "Change user plan", "users", models.RoleCoAdmin),
	newDefinition("POST", "/v0/admin/users/:id/coins", "Adjust coin balance", "users", models.RoleCoAdmin),
	newDefinition("GET", "/v0/admin/users/:id/transactions", "List user transactions", "ledger", models.RoleCoAdmin),

	newDefinition("GET", "/v0/admin/sites", "List sites", "sites", models.RoleCoAdmin),
	newDefinition("DELETE", "/v0/admin/sites/:id", "Delete site", "sites", models.RoleCoAdmin),

	newDefinition("GET", "/v0/admin/settings", "List settings", "settings", models.RoleCoAdmin),
	newDefinition("GET", "/v0/admin/settings/:key", "Get setting", "settings", models.RoleCoAdmin),
	newDefinition("PUT", "/v0/admin/settings/:key", "Update setting", "settings", models.RoleSuperAdmin),
	newDefinition("DELETE", "/v0/admin/settings/:key", "Delete setting", "settings", models.RoleSuperAdmin),

	newDefinition("GET", "/v0/admin/dashboard/stats", "Dashboard stats", "dashboard", models.RoleCoAdmin),
	newDefinition("GET", "/v0/admin/permissions", "List permissions", "admin", models.RoleCoAdmin),
}

// definitionMap indexes definitions by key.
var definitionMap = buildDefinitionMap()

func buildDefinitionMap() map[string]Definition {
	out := make(map[string]Definition, len(definitions))
	for _, def := range definitions {
		out[def.Key] = def
	}
	return out
}

// Allowed reports whether the role may call the route. Unknown routes are
// denied regardless of role.
func Allowed(role models.Role, method, path string) bool {
	def, ok := definitionMap[Key(method, path)]
	if !ok {
		return false
	}
	return RoleAtLeast(role, def.MinRole)
}

// Definitions returns a copy of all route policy definitions.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// DefinitionsForRole returns the definitions the role may call.
func DefinitionsForRole(role models.Role) []Definition {
	out := make([]Definition, 0, len(definitions))
	for _, def := range definitions {
		if RoleAtLeast(role, def.MinRole) {
			out = append(out, def)
		}
	}
	return out
}
