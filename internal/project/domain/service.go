package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	progressdomain "github.com/smallbiznis/fieldtrack/internal/progress/domain"
)

var (
	ErrProjectNotFound = errors.New("project_not_found")
	ErrSiteNotFound    = errors.New("site_not_found")
	ErrTaskNotFound    = errors.New("task_not_found")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidSiteCode = errors.New("invalid_site_code")
	ErrInvalidStatus   = errors.New("invalid_status")
	ErrInvalidCountry  = errors.New("invalid_country")
	ErrDuplicate       = errors.New("duplicate_record")
)

type CreateProjectRequest struct {
	CountryID       snowflake.ID `json:"country_id"`
	CoordinatorID   snowflake.ID `json:"coordinator_id"`
	Name            string       `json:"name"`
	BudgetAllocated string       `json:"budget_allocated"`
	StartDate       time.Time    `json:"start_date"`
	EndDate         *time.Time   `json:"end_date"`
}

type UpdateProjectRequest struct {
	Name          *string                       `json:"name"`
	CoordinatorID *snowflake.ID                 `json:"coordinator_id"`
	Status        *progressdomain.ProjectStatus `json:"status"`
	EndDate       *time.Time                    `json:"end_date"`
	IsActive      *bool                         `json:"is_active"`
}

type CreateSiteRequest struct {
	ProjectID  snowflake.ID  `json:"project_id"`
	SiteCode   string        `json:"site_code"`
	Name       string        `json:"name"`
	Location   string        `json:"location"`
	TeamLeadID *snowflake.ID `json:"team_lead_id"`
}

type UpdateSiteRequest struct {
	Name       *string       `json:"name"`
	Location   *string       `json:"location"`
	TeamLeadID *snowflake.ID `json:"team_lead_id"`
}

type CreateTaskRequest struct {
	SiteID            snowflake.ID `json:"site_id"`
	AssignedToID      snowflake.ID `json:"assigned_to_id"`
	Description       string       `json:"description"`
	TicketNumber      string       `json:"ticket_number"`
	DueDate           *time.Time   `json:"due_date"`
	IsPayrollRelevant bool         `json:"is_payroll_relevant"`
}

type UpdateTaskRequest struct {
	Status       *progressdomain.TaskStatus `json:"status"`
	AssignedToID *snowflake.ID              `json:"assigned_to_id"`
	Description  *string                    `json:"description"`
	DueDate      *time.Time                 `json:"due_date"`
}

type ListProjectsRequest struct {
	CountryID  *snowflake.ID
	ActiveOnly bool
}

type ListTasksRequest struct {
	SiteID       *snowflake.ID
	AssignedToID *snowflake.ID
}

// Service mutates projects, sites and tasks. Every call is evaluated against
// the caller carried in ctx: tenant scope first, then capability.
type Service interface {
	CreateProject(ctx context.Context, req CreateProjectRequest) (*Project, error)
	GetProject(ctx context.Context, id snowflake.ID) (*Project, error)
	UpdateProject(ctx context.Context, id snowflake.ID, req UpdateProjectRequest) (*Project, error)
	ListProjects(ctx context.Context, req ListProjectsRequest) ([]Project, error)

	CreateSite(ctx context.Context, req CreateSiteRequest) (*Site, error)
	GetSite(ctx context.Context, id snowflake.ID) (*Site, error)
	UpdateSite(ctx context.Context, id snowflake.ID, req UpdateSiteRequest) (*Site, error)
	ListSites(ctx context.Context, projectID snowflake.ID) ([]Site, error)

	CreateTask(ctx context.Context, req CreateTaskRequest) (*Task, error)
	GetTask(ctx context.Context, id snowflake.ID) (*Task, error)
	UpdateTask(ctx context.Context, id snowflake.ID, req UpdateTaskRequest) (*Task, error)
	DeleteTask(ctx context.Context, id snowflake.ID) error
	ListTasks(ctx context.Context, req ListTasksRequest) ([]Task, error)
}
