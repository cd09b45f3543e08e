// Package authorization decides whether an actor may perform an action on a
// project, site or task. Role capabilities live in casbin policies keyed by
// country; ownership rules (own task, led site, coordinated project) are
// evaluated on top of them.
package authorization

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	projectdomain "github.com/smallbiznis/fieldtrack/internal/project/domain"
	"github.com/smallbiznis/fieldtrack/pkg/actorctx"
)

var ErrForbidden = errors.New("forbidden")

const (
	ActionProjectCreate = "project.create"
	ActionProjectUpdate = "project.update"
	ActionProjectView   = "project.view"
	ActionSiteCreate    = "site.create"
	ActionSiteUpdate    = "site.update"
	ActionSiteView      = "site.view"
	ActionTaskCreate    = "task.create"
	ActionTaskUpdate    = "task.update"
	ActionTaskDelete    = "task.delete"
	ActionTaskView      = "task.view"
	ActionWorkRecord    = "work_record.create"
)

// Target carries the entities an action applies to. CountryID must always be
// set; Project, Site and Task are filled in as deep as the target goes so
// ownership rules can see them.
type Target struct {
	CountryID snowflake.ID
	Project   *projectdomain.Project
	Site      *projectdomain.Site
	Task      *projectdomain.Task
}

// Decision is an explicit allow/deny with the reason that produced it.
// Reasons are stable strings meant for logs and audit, not end users.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow(reason string) Decision { return Decision{Allowed: true, Reason: reason} }
func deny(reason string) Decision  { return Decision{Allowed: false, Reason: reason} }

type Service interface {
	// Can never returns ErrForbidden itself; a deny is a valid Decision.
	// Errors signal evaluation failure, not denial.
	Can(ctx context.Context, actor actorctx.Actor, action string, target Target) (Decision, error)
}
