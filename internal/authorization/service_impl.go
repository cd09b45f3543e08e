package authorization

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/smallbiznis/fieldtrack/internal/observability/metrics"
	tenantdomain "github.com/smallbiznis/fieldtrack/internal/tenant/domain"
	"github.com/smallbiznis/fieldtrack/pkg/actorctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServiceParam struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	Tenant   tenantdomain.Service
	Metrics  *metrics.Metrics
}

type service struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	tenant   tenantdomain.Service
	metrics  *metrics.Metrics
}

func NewService(p ServiceParam) Service {
	return &service{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		tenant:   p.Tenant,
		metrics:  p.Metrics,
	}
}

func (s *service) Can(ctx context.Context, actor actorctx.Actor, action string, target Target) (Decision, error) {
	decision, err := s.evaluate(ctx, actor, action, target)
	if err != nil {
		return Decision{}, err
	}

	outcome := "deny"
	if decision.Allowed {
		outcome = "allow"
	}
	s.metrics.AuthzDecisions.WithLabelValues(action, outcome).Inc()
	if !decision.Allowed {
		s.log.Info("capability denied",
			zap.String("action", action),
			zap.String("reason", decision.Reason),
			zap.String("employee_id", actor.EmployeeID.String()),
			zap.String("country_id", targetCountry(target).String()),
		)
	}
	return decision, nil
}

func (s *service) evaluate(ctx context.Context, actor actorctx.Actor, action string, target Target) (Decision, error) {
	if actor.IsSuperuser {
		return allow("superuser"), nil
	}

	countryID := targetCountry(target)
	if countryID == 0 {
		return deny("no_target_country"), nil
	}

	byCountry, err := s.tenant.RolesByCountry(ctx, actor.EmployeeID)
	if err != nil {
		return Decision{}, err
	}
	roles := byCountry[countryID]
	if len(roles) == 0 {
		// Tenant scope is evaluated before capability: an actor with no
		// active assignment in the country gets the same answer for every
		// action, leaking nothing about what exists there.
		return deny("out_of_tenant_scope"), nil
	}

	if err := s.syncGrouping(actor.EmployeeID, countryID, roles); err != nil {
		return Decision{}, err
	}

	obj, act, ok := splitAction(action)
	if !ok {
		return deny("unknown_action"), nil
	}

	allowed, err := s.enforcer.Enforce(actor.EmployeeID.String(), countryID.String(), obj, act)
	if err != nil {
		return Decision{}, err
	}
	if allowed {
		return allow("role_capability"), nil
	}

	if d, ok := ownershipGrant(actor, action, target); ok {
		return d, nil
	}
	return deny("no_capability"), nil
}

// ownershipGrant covers the allowances that depend on the specific target
// rather than a role: coordinators manage their own project tree, team leads
// their own sites, assignees their own tasks.
func ownershipGrant(actor actorctx.Actor, action string, target Target) (Decision, bool) {
	coordinates := target.Project != nil && target.Project.CoordinatorID == actor.EmployeeID
	leads := target.Site != nil && target.Site.TeamLeadID != nil && *target.Site.TeamLeadID == actor.EmployeeID

	switch action {
	case ActionProjectUpdate:
		if coordinates {
			return allow("project_coordinator"), true
		}
	case ActionSiteCreate, ActionTaskCreate, ActionTaskDelete:
		if coordinates {
			return allow("project_coordinator"), true
		}
	case ActionSiteUpdate:
		if coordinates {
			return allow("project_coordinator"), true
		}
		if leads {
			return allow("site_team_lead"), true
		}
	case ActionTaskUpdate:
		if coordinates {
			return allow("project_coordinator"), true
		}
		if leads {
			return allow("site_team_lead"), true
		}
		if target.Task != nil && target.Task.AssignedToID == actor.EmployeeID {
			return allow("task_assignee"), true
		}
	}
	return Decision{}, false
}

// syncGrouping reconciles the casbin grouping rows for the actor in the
// target country with the freshly resolved role set. Rows for roles no
// longer held are removed, so a deactivated assignment stops granting on
// the very next check. AddGroupingPolicy is a no-op for existing rows.
func (s *service) syncGrouping(employeeID, countryID snowflake.ID, roles []tenantdomain.RoleName) error {
	active := make(map[string]bool, len(roles))
	for _, role := range roles {
		active[string(role)] = true
	}

	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, employeeID.String(), "", countryID.String())
	if err != nil {
		return err
	}
	for _, row := range existing {
		if len(row) < 3 || active[row[1]] {
			continue
		}
		if _, err := s.enforcer.RemoveGroupingPolicy(row[0], row[1], row[2]); err != nil {
			return err
		}
	}

	for _, role := range roles {
		if _, err := s.enforcer.AddGroupingPolicy(employeeID.String(), string(role), countryID.String()); err != nil {
			return err
		}
	}
	return nil
}

func targetCountry(target Target) snowflake.ID {
	if target.CountryID != 0 {
		return target.CountryID
	}
	if target.Project != nil {
		return target.Project.CountryID
	}
	return 0
}

func splitAction(action string) (obj, act string, ok bool) {
	obj, act, found := strings.Cut(action, ".")
	if !found || obj == "" || act == "" {
		return "", "", false
	}
	return obj, act, true
}
