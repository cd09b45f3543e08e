// Package domain contains persistence models for payroll costing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// SalaryStructure is the monthly base salary for a role within a country.
// One structure per (country, role) pair.
type SalaryStructure struct {
	ID         snowflake.ID    `gorm:"primaryKey" json:"id"`
	CountryID  snowflake.ID    `gorm:"not null;uniqueIndex:ux_salary_country_role,priority:1" json:"country_id"`
	RoleID     snowflake.ID    `gorm:"not null;uniqueIndex:ux_salary_country_role,priority:2" json:"role_id"`
	BaseAmount decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"base_amount"`
	Currency   string          `gorm:"type:text;not null;default:XOF" json:"currency"`
	CreatedAt  time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (SalaryStructure) TableName() string { return "salary_structures" }

// WorkCompletionRecord is one priced unit of work on a task. Rate and cost
// are frozen at creation time so later salary changes never rewrite history.
type WorkCompletionRecord struct {
	ID                   snowflake.ID    `gorm:"primaryKey" json:"id"`
	TaskID               snowflake.ID    `gorm:"not null;index" json:"task_id"`
	EmployeeID           snowflake.ID    `gorm:"not null;index" json:"employee_id"`
	WorkDate             time.Time       `gorm:"not null" json:"work_date"`
	DurationHours        decimal.Decimal `gorm:"type:numeric(6,2);not null" json:"duration_hours"`
	CompletionPercentage int             `gorm:"not null;default:0" json:"completion_percentage"`
	HourlyRate           decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"hourly_rate"`
	Cost                 decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"cost"`
	IsPaidOut            bool            `gorm:"not null;default:false" json:"is_paid_out"`
	Notes                string          `gorm:"type:text" json:"notes"`
	CreatedAt            time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (WorkCompletionRecord) TableName() string { return "work_completion_records" }
