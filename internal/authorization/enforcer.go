package authorization

import (
	"github.com/casbin/casbin/v2"
	casbinmodel "github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

// RBAC with countries as casbin domains. Subjects are employee IDs grouped
// into role names per country.
const modelText = `
[request_definition]
r = sub, dom, obj, act

[policy_definition]
p = sub, dom, obj, act

[role_definition]
g = _, _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub, r.dom) && (r.dom == p.dom || p.dom == "*") && r.obj == p.obj && r.act == p.act
`

// capability matrix, one row per (role, object, action). Policies are seeded
// for the wildcard domain; the per-country grouping of employees into roles
// is what scopes them.
var rolePolicies = [][3]string{
	{"COUNTRY_MANAGER", "project", "create"},
	{"COUNTRY_MANAGER", "project", "update"},
	{"COUNTRY_MANAGER", "project", "view"},
	{"COUNTRY_MANAGER", "site", "create"},
	{"COUNTRY_MANAGER", "site", "update"},
	{"COUNTRY_MANAGER", "site", "view"},
	{"COUNTRY_MANAGER", "task", "create"},
	{"COUNTRY_MANAGER", "task", "update"},
	{"COUNTRY_MANAGER", "task", "delete"},
	{"COUNTRY_MANAGER", "task", "view"},
	{"COUNTRY_MANAGER", "work_record", "create"},

	{"PROJECT_COORDINATOR", "project", "view"},
	{"PROJECT_COORDINATOR", "site", "view"},
	{"PROJECT_COORDINATOR", "task", "view"},
	{"PROJECT_COORDINATOR", "work_record", "create"},

	{"TEAM_LEAD", "project", "view"},
	{"TEAM_LEAD", "site", "view"},
	{"TEAM_LEAD", "task", "view"},
	{"TEAM_LEAD", "work_record", "create"},

	{"FIELD_TEAM", "project", "view"},
	{"FIELD_TEAM", "site", "view"},
	{"FIELD_TEAM", "task", "view"},
	{"FIELD_TEAM", "work_record", "create"},

	{"EMPLOYEE", "project", "view"},
	{"EMPLOYEE", "site", "view"},
	{"EMPLOYEE", "task", "view"},
}

// NewEnforcer builds a synced enforcer backed by the application database and
// seeds the role capability matrix. Seeding is idempotent.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}

	m, err := casbinmodel.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}

	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}

	for _, p := range rolePolicies {
		if _, err := enforcer.AddPolicy(p[0], "*", p[1], p[2]); err != nil {
			return nil, err
		}
	}
	return enforcer, nil
}
