package events

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupEvents(t *testing.T) (*gorm.DB, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&TaskEvent{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return db, node
}

func TestPublishAndDispatch(t *testing.T) {
	db, node := setupEvents(t)
	publisher := NewOutboxPublisher(node)
	dispatcher := NewDispatcher(db, zaptest.NewLogger(t))

	var seen []TaskEvent
	dispatcher.Register(func(ctx context.Context, event TaskEvent) error {
		seen = append(seen, event)
		return nil
	})

	ctx := context.Background()
	siteID := node.Generate()

	var eventID snowflake.ID
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		eventID, err = publisher.Publish(ctx, tx, EventTaskUpdated, siteID, map[string]any{"status": "COMPLETED"})
		return err
	})
	require.NoError(t, err)

	dispatcher.Dispatch(ctx, eventID)

	require.Len(t, seen, 1)
	assert.Equal(t, EventTaskUpdated, seen[0].EventType)
	assert.Equal(t, siteID, seen[0].SiteID)

	var stored TaskEvent
	require.NoError(t, db.First(&stored, "id = ?", eventID).Error)
	assert.True(t, stored.Published)
	require.NotNil(t, stored.PublishedAt)
}

func TestDispatchSkipsAlreadyPublished(t *testing.T) {
	db, node := setupEvents(t)
	publisher := NewOutboxPublisher(node)
	dispatcher := NewDispatcher(db, zaptest.NewLogger(t))

	calls := 0
	dispatcher.Register(func(ctx context.Context, event TaskEvent) error {
		calls++
		return nil
	})

	ctx := context.Background()
	var eventID snowflake.ID
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		eventID, err = publisher.Publish(ctx, tx, EventTaskCreated, node.Generate(), nil)
		return err
	})
	require.NoError(t, err)

	dispatcher.Dispatch(ctx, eventID)
	dispatcher.Dispatch(ctx, eventID)

	assert.Equal(t, 1, calls)
}

func TestDrainPendingRetriesFailedDelivery(t *testing.T) {
	db, node := setupEvents(t)
	publisher := NewOutboxPublisher(node)
	dispatcher := NewDispatcher(db, zaptest.NewLogger(t))

	fail := true
	calls := 0
	dispatcher.Register(func(ctx context.Context, event TaskEvent) error {
		calls++
		if fail {
			return errors.New("handler down")
		}
		return nil
	})

	ctx := context.Background()
	var eventID snowflake.ID
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		eventID, err = publisher.Publish(ctx, tx, EventTaskDeleted, node.Generate(), nil)
		return err
	})
	require.NoError(t, err)

	dispatcher.Dispatch(ctx, eventID)

	var stored TaskEvent
	require.NoError(t, db.First(&stored, "id = ?", eventID).Error)
	assert.False(t, stored.Published)

	err = dispatcher.DrainPending(ctx, 10)
	require.Error(t, err)

	fail = false
	require.NoError(t, dispatcher.DrainPending(ctx, 10))

	require.NoError(t, db.First(&stored, "id = ?", eventID).Error)
	assert.True(t, stored.Published)
	assert.Equal(t, 3, calls)
}
