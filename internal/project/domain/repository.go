package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository is the persistence boundary for projects, sites and tasks.
// Mutations that must share a transaction with the outbox go through WithTx.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateProject(ctx context.Context, project *Project) error
	GetProject(ctx context.Context, id snowflake.ID) (*Project, error)
	UpdateProject(ctx context.Context, project *Project) error

	CreateSite(ctx context.Context, site *Site) error
	GetSite(ctx context.Context, id snowflake.ID) (*Site, error)
	UpdateSite(ctx context.Context, site *Site) error

	CreateTask(ctx context.Context, task *Task) error
	GetTask(ctx context.Context, id snowflake.ID) (*Task, error)
	UpdateTask(ctx context.Context, task *Task) error
	DeleteTask(ctx context.Context, id snowflake.ID) error
}
