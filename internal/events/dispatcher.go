package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler consumes a task event. Handlers must be idempotent: unpublished
// events are retried by the drain path.
type Handler func(ctx context.Context, event TaskEvent) error

// Dispatcher fans committed task events out to registered handlers and
// marks them published. A handler failure leaves the event unpublished so
// DrainPending can pick it up again; it never fails the task mutation.
type Dispatcher struct {
	db  *gorm.DB
	log *zap.Logger

	mu       sync.RWMutex
	handlers []Handler
}

func NewDispatcher(db *gorm.DB, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		db:  db,
		log: log.Named("events.dispatcher"),
	}
}

func (d *Dispatcher) Register(handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, handler)
}

// Dispatch runs handlers for a single committed event.
func (d *Dispatcher) Dispatch(ctx context.Context, eventID snowflake.ID) {
	var event TaskEvent
	err := d.db.WithContext(ctx).First(&event, "id = ?", eventID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return
	}
	if err != nil {
		d.log.Warn("failed to load task event", zap.Error(err), zap.String("event_id", eventID.String()))
		return
	}
	d.deliver(ctx, event)
}

// DrainPending delivers events a previous dispatch failed to publish.
func (d *Dispatcher) DrainPending(ctx context.Context, limit int) error {
	if limit <= 0 {
		limit = 50
	}

	var pending []TaskEvent
	if err := d.db.WithContext(ctx).
		Where("published = ?", false).
		Order("created_at ASC").
		Limit(limit).
		Find(&pending).Error; err != nil {
		return err
	}

	var jobErr error
	for _, event := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !d.deliver(ctx, event) {
			jobErr = errors.Join(jobErr, errors.New("event delivery failed: "+event.ID.String()))
		}
	}
	return jobErr
}

func (d *Dispatcher) deliver(ctx context.Context, event TaskEvent) bool {
	if event.Published {
		return true
	}

	d.mu.RLock()
	handlers := make([]Handler, len(d.handlers))
	copy(handlers, d.handlers)
	d.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			d.log.Warn("task event handler failed",
				zap.Error(err),
				zap.String("event_id", event.ID.String()),
				zap.String("event_type", event.EventType),
			)
			return false
		}
	}

	now := time.Now().UTC()
	if err := d.db.WithContext(ctx).Model(&TaskEvent{}).
		Where("id = ?", event.ID).
		Updates(map[string]any{"published": true, "published_at": now}).Error; err != nil {
		d.log.Warn("failed to mark task event published", zap.Error(err), zap.String("event_id", event.ID.String()))
		return false
	}
	return true
}
