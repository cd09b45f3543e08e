package domain

import "strings"

// RoleName is the closed role catalog. Seniority is hard-coded: a country
// manager outranks a project coordinator, who outranks a team lead, and so on.
type RoleName string

const (
	RoleCountryManager     RoleName = "COUNTRY_MANAGER"
	RoleProjectCoordinator RoleName = "PROJECT_COORDINATOR"
	RoleTeamLead           RoleName = "TEAM_LEAD"
	RoleFieldTeam          RoleName = "FIELD_TEAM"
	RoleEmployee           RoleName = "EMPLOYEE"
)

// roleWeight orders roles for main-role resolution. Higher = more senior.
var roleWeight = map[RoleName]int{
	RoleCountryManager:     5,
	RoleProjectCoordinator: 4,
	RoleTeamLead:           3,
	RoleFieldTeam:          2,
	RoleEmployee:           1,
}

// Weight returns the seniority weight of the role, 0 for unknown names.
func (r RoleName) Weight() int { return roleWeight[r] }

// legacyRoleNames maps the free-text display names the HR tooling used to
// store (case and separator varied) onto the closed catalog.
var legacyRoleNames = map[string]RoleName{
	"country manager":     RoleCountryManager,
	"country_manager":     RoleCountryManager,
	"project coordinator": RoleProjectCoordinator,
	"project_coordinator": RoleProjectCoordinator,
	"team lead":           RoleTeamLead,
	"team_lead":           RoleTeamLead,
	"field team":          RoleFieldTeam,
	"field_team":          RoleFieldTeam,
	"employee":            RoleEmployee,
	"employé":             RoleEmployee,
}

// ParseRoleName normalizes a role name, accepting both catalog values and
// legacy display names. Validation happens at assignment creation so no
// free-text role ever reaches the resolver.
func ParseRoleName(raw string) (RoleName, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return "", ErrInvalidRole
	}
	if role, ok := legacyRoleNames[normalized]; ok {
		return role, nil
	}
	candidate := RoleName(strings.ToUpper(normalized))
	if _, ok := roleWeight[candidate]; ok {
		return candidate, nil
	}
	return "", ErrInvalidRole
}
