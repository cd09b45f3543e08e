package events

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Publisher appends task events to the outbox. Publish must be called with
// the transaction that performs the task mutation so the event and the
// mutation commit or roll back together.
type Publisher interface {
	Publish(ctx context.Context, tx *gorm.DB, eventType string, siteID snowflake.ID, payload map[string]any) (snowflake.ID, error)
}

type outboxPublisher struct {
	genID *snowflake.Node
}

func NewOutboxPublisher(genID *snowflake.Node) Publisher {
	return &outboxPublisher{genID: genID}
}

func (p *outboxPublisher) Publish(ctx context.Context, tx *gorm.DB, eventType string, siteID snowflake.ID, payload map[string]any) (snowflake.ID, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	event := TaskEvent{
		ID:        p.genID.Generate(),
		SiteID:    siteID,
		EventType: eventType,
		Payload:   datatypes.JSONMap(payload),
		Published: false,
		CreatedAt: time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(&event).Error; err != nil {
		return 0, err
	}
	return event.ID, nil
}
