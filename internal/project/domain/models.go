// Package domain contains persistence models for the project service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	progressdomain "github.com/smallbiznis/fieldtrack/internal/progress/domain"
)

// Project is the client contract. It owns sites and carries the aggregated
// progress of everything underneath it.
type Project struct {
	ID              snowflake.ID                  `gorm:"primaryKey" json:"id"`
	CountryID       snowflake.ID                  `gorm:"not null;index;uniqueIndex:ux_projects_country_name,priority:1" json:"country_id"`
	CoordinatorID   snowflake.ID                  `gorm:"not null;index" json:"coordinator_id"`
	Name            string                        `gorm:"type:text;not null;uniqueIndex:ux_projects_country_name,priority:2" json:"name"`
	Status          progressdomain.ProjectStatus  `gorm:"type:text;not null;default:PREPARATION" json:"status"`
	Progress        decimal.Decimal               `gorm:"type:numeric(5,2);not null;default:0" json:"progress_percentage"`
	BudgetAllocated decimal.Decimal               `gorm:"type:numeric(12,2);not null;default:0" json:"budget_allocated"`
	StartDate       time.Time                     `gorm:"not null" json:"start_date"`
	EndDate         *time.Time                    `json:"end_date,omitempty"`
	IsActive        bool                          `gorm:"not null" json:"is_active"`
	IsCompleted     bool                          `gorm:"not null;default:false" json:"is_completed"`
	CreatedBy       snowflake.ID                  `gorm:"not null" json:"created_by"`
	CreatedAt       time.Time                     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time                     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Project) TableName() string { return "projects" }

// Site is a place of intervention. Belongs to exactly one project.
type Site struct {
	ID         snowflake.ID              `gorm:"primaryKey" json:"id"`
	ProjectID  snowflake.ID              `gorm:"not null;index" json:"project_id"`
	SiteCode   string                    `gorm:"type:text;not null;uniqueIndex:ux_sites_code" json:"site_code"`
	Name       string                    `gorm:"type:text;not null" json:"name"`
	Location   string                    `gorm:"type:text" json:"location"`
	TeamLeadID *snowflake.ID             `gorm:"index" json:"team_lead_id,omitempty"`
	Status     progressdomain.SiteStatus `gorm:"type:text;not null;default:TO_DO" json:"status"`
	Progress   decimal.Decimal           `gorm:"type:numeric(5,2);not null;default:0" json:"progress_percentage"`
	CreatedBy  snowflake.ID              `gorm:"not null" json:"created_by"`
	CreatedAt  time.Time                 `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time                 `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Site) TableName() string { return "sites" }

// Task is the leaf of the cascade. Progress is fully determined by status;
// ReportedCompletion carries the work-record signal separately so the two
// writers never race on the same column.
type Task struct {
	ID                  snowflake.ID              `gorm:"primaryKey" json:"id"`
	SiteID              snowflake.ID              `gorm:"not null;index" json:"site_id"`
	AssignedToID        snowflake.ID              `gorm:"not null;index" json:"assigned_to_id"`
	Description         string                    `gorm:"type:text;not null" json:"description"`
	TicketNumber        string                    `gorm:"type:text" json:"ticket_number"`
	Status              progressdomain.TaskStatus `gorm:"type:text;not null;default:TO_DO" json:"status"`
	Progress            decimal.Decimal           `gorm:"type:numeric(5,2);not null;default:0" json:"progress_percentage"`
	ReportedCompletion  int                       `gorm:"not null;default:0" json:"reported_completion"`
	DueDate             *time.Time                `json:"due_date,omitempty"`
	CompletionDate      *time.Time                `json:"completion_date,omitempty"`
	IsPayrollRelevant   bool                      `gorm:"not null;default:false" json:"is_payroll_relevant"`
	CreatedBy           snowflake.ID              `gorm:"not null" json:"created_by"`
	CreatedAt           time.Time                 `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt           time.Time                 `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Task) TableName() string { return "tasks" }
