// Package actorctx carries the authenticated employee through a request context.
package actorctx

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type keyType string

const actorKey keyType = "actor"

// Actor identifies the employee performing the current operation.
type Actor struct {
	EmployeeID  snowflake.ID
	IsSuperuser bool
}

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

func FromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey).(Actor)
	return actor, ok
}
