// Package domain contains persistence models for the tenant service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Country is the tenant boundary. Every project, assignment and salary
// structure hangs off a country; inactive countries drop out of scoping.
type Country struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:text;not null;uniqueIndex:ux_countries_name" json:"name"`
	Code      string       `gorm:"type:text;not null;uniqueIndex:ux_countries_code" json:"code"`
	// No gorm-level default: gorm skips zero-valued fields that carry one,
	// which would silently turn IsActive=false into TRUE on insert.
	IsActive  bool      `gorm:"not null" json:"is_active"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Country) TableName() string { return "countries" }

// Role is a catalog row. The hierarchy is not stored; RoleName carries it.
type Role struct {
	ID   snowflake.ID `gorm:"primaryKey" json:"id"`
	Name RoleName     `gorm:"type:text;not null;uniqueIndex:ux_roles_name" json:"name"`
}

// TableName sets the database table name.
func (Role) TableName() string { return "roles" }

// Employee is the subject of assignments and permission checks.
type Employee struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Username    string       `gorm:"type:text;not null;uniqueIndex:ux_employees_username" json:"username"`
	Email       string       `gorm:"type:text" json:"email"`
	PhoneNumber string       `gorm:"type:text" json:"phone_number"`
	IsSuperuser bool         `gorm:"not null;default:false" json:"is_superuser"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Employee) TableName() string { return "employees" }

// Assignment grants an employee a role within a country for a time window.
// HR tooling is the sole writer; rows are deactivated, never deleted.
type Assignment struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	EmployeeID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_assignment,priority:1" json:"employee_id"`
	CountryID  snowflake.ID `gorm:"not null;index;uniqueIndex:ux_assignment,priority:2" json:"country_id"`
	RoleID     snowflake.ID `gorm:"not null;uniqueIndex:ux_assignment,priority:3" json:"role_id"`
	StartDate  time.Time    `gorm:"not null;uniqueIndex:ux_assignment,priority:4" json:"start_date"`
	EndDate    *time.Time   `json:"end_date,omitempty"`
	IsActive   bool         `gorm:"not null" json:"is_active"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Assignment) TableName() string { return "assignments" }

// ActiveAt reports whether the assignment grants anything at asOf.
// Only the manual flag is consulted; end_date is informational. Expired
// assignments still count until HR deactivates them, see ExpiredAt.
func (a Assignment) ActiveAt(asOf time.Time) bool {
	_ = asOf
	return a.IsActive
}

// ExpiredAt reports whether the assignment's window has lapsed even though
// it is still flagged active. Used for operator warnings only.
func (a Assignment) ExpiredAt(asOf time.Time) bool {
	return a.IsActive && a.EndDate != nil && a.EndDate.Before(asOf)
}

// ActiveAssignment is an assignment row joined with its country and role,
// restricted to active assignments in active countries.
type ActiveAssignment struct {
	AssignmentID snowflake.ID `gorm:"column:assignment_id"`
	EmployeeID   snowflake.ID `gorm:"column:employee_id"`
	CountryID    snowflake.ID `gorm:"column:country_id"`
	CountryCode  string       `gorm:"column:country_code"`
	RoleID       snowflake.ID `gorm:"column:role_id"`
	RoleName     RoleName     `gorm:"column:role_name"`
	EndDate      *time.Time   `gorm:"column:end_date"`
}
