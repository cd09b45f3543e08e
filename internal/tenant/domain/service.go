package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fieldtrack/pkg/actorctx"
	"gorm.io/gorm"
)

// MainRole labels shown on dashboards. Main role is a display convenience;
// capability checks always consult the full active role set.
const (
	MainRoleSuperuser   = "System Administrator"
	MainRoleCM          = "Country Manager"
	MainRoleCoordinator = "Project Coordinator"
	MainRoleTeamLead    = "Team Lead"
	MainRoleFieldTeam   = "Field Team"
	MainRoleEmployee    = "Employee"
)

type Service interface {
	CreateCountry(ctx context.Context, req CreateCountryRequest) (*Country, error)
	ListCountries(ctx context.Context) ([]Country, error)

	CreateEmployee(ctx context.Context, req CreateEmployeeRequest) (*Employee, error)
	GetEmployee(ctx context.Context, id snowflake.ID) (*Employee, error)

	CreateAssignment(ctx context.Context, req CreateAssignmentRequest) (*Assignment, error)
	EndAssignment(ctx context.Context, assignmentID snowflake.ID) error
	ListAssignments(ctx context.Context, employeeID snowflake.ID) ([]Assignment, error)

	// ActiveRoles returns the set of role names the employee currently holds
	// across active assignments in active countries.
	ActiveRoles(ctx context.Context, employeeID snowflake.ID) (map[RoleName]bool, error)

	// RolesByCountry returns the active role names grouped per country.
	RolesByCountry(ctx context.Context, employeeID snowflake.ID) (map[snowflake.ID][]RoleName, error)

	// MainRole picks the most senior classification for display purposes.
	MainRole(ctx context.Context, actor actorctx.Actor) (string, error)

	// ActiveCountryIDs is the tenant scope: the countries the employee may
	// see and act in.
	ActiveCountryIDs(ctx context.Context, employeeID snowflake.ID) ([]snowflake.ID, error)

	// Scope* narrow a query to the actor's active countries. Superusers pass
	// through unfiltered. Scoping is a visibility concern: out-of-scope rows
	// silently disappear rather than erroring.
	ScopeProjects(ctx context.Context, q *gorm.DB, actor actorctx.Actor) (*gorm.DB, error)
	ScopeSites(ctx context.Context, q *gorm.DB, actor actorctx.Actor) (*gorm.DB, error)
	ScopeTasks(ctx context.Context, q *gorm.DB, actor actorctx.Actor) (*gorm.DB, error)
}

type CreateCountryRequest struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type CreateEmployeeRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	IsSuperuser bool   `json:"is_superuser"`
}

type CreateAssignmentRequest struct {
	EmployeeID snowflake.ID `json:"employee_id"`
	CountryID  snowflake.ID `json:"country_id"`
	Role       string       `json:"role"`
	StartDate  *time.Time   `json:"start_date,omitempty"`
	EndDate    *time.Time   `json:"end_date,omitempty"`
}

var (
	ErrNotFound        = errors.New("not_found")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidCode     = errors.New("invalid_code")
	ErrInvalidRole     = errors.New("invalid_role")
	ErrInvalidEmployee = errors.New("invalid_employee")
	ErrInvalidCountry  = errors.New("invalid_country")
	ErrCountryInactive = errors.New("country_inactive")
	ErrDuplicate       = errors.New("duplicate")
)
