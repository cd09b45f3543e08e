// Package events is the explicit pipeline between task mutations and the
// aggregation cascade. Mutations append outbox rows in their own transaction;
// handlers run after commit, so recomputation always sees committed siblings.
package events

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	EventTaskCreated = "task.created"
	EventTaskUpdated = "task.updated"
	EventTaskDeleted = "task.deleted"
)

// TaskEvent is an outbox row describing a task mutation.
type TaskEvent struct {
	ID          snowflake.ID      `gorm:"primaryKey"`
	SiteID      snowflake.ID      `gorm:"not null;index"`
	EventType   string            `gorm:"type:text;not null"`
	Payload     datatypes.JSONMap `gorm:"type:jsonb;not null"`
	Published   bool              `gorm:"not null;default:false"`
	PublishedAt *time.Time        `gorm:""`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (TaskEvent) TableName() string { return "task_events" }
