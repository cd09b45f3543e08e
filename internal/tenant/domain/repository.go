package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateCountry(ctx context.Context, country Country) error
	ListCountries(ctx context.Context) ([]Country, error)
	GetCountry(ctx context.Context, id snowflake.ID) (*Country, error)

	GetRoleByName(ctx context.Context, name RoleName) (*Role, error)
	EnsureRole(ctx context.Context, role Role) error

	CreateEmployee(ctx context.Context, employee Employee) error
	GetEmployee(ctx context.Context, id snowflake.ID) (*Employee, error)

	CreateAssignment(ctx context.Context, assignment Assignment) error
	GetAssignment(ctx context.Context, id snowflake.ID) (*Assignment, error)
	DeactivateAssignment(ctx context.Context, id snowflake.ID) error
	ListAssignmentsByEmployee(ctx context.Context, employeeID snowflake.ID) ([]Assignment, error)

	// ActiveAssignments joins assignments with countries and roles and keeps
	// only rows where both the assignment and the country are active.
	ActiveAssignments(ctx context.Context, employeeID snowflake.ID) ([]ActiveAssignment, error)

	// HasActiveCoordinatedProject reports whether the employee coordinates
	// at least one active project. Feeds main-role resolution.
	HasActiveCoordinatedProject(ctx context.Context, employeeID snowflake.ID) (bool, error)
}
