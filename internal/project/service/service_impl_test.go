package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/fieldtrack/internal/authorization"
	"github.com/smallbiznis/fieldtrack/internal/clock"
	"github.com/smallbiznis/fieldtrack/internal/events"
	"github.com/smallbiznis/fieldtrack/internal/observability/metrics"
	payrolldomain "github.com/smallbiznis/fieldtrack/internal/payroll/domain"
	"github.com/smallbiznis/fieldtrack/internal/progress/cascade"
	"github.com/smallbiznis/fieldtrack/internal/project/domain"
	"github.com/smallbiznis/fieldtrack/internal/project/repository"
	progressdomain "github.com/smallbiznis/fieldtrack/internal/progress/domain"
	tenantdomain "github.com/smallbiznis/fieldtrack/internal/tenant/domain"
	tenantrepository "github.com/smallbiznis/fieldtrack/internal/tenant/repository"
	tenantservice "github.com/smallbiznis/fieldtrack/internal/tenant/service"
	"github.com/smallbiznis/fieldtrack/pkg/actorctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fixture struct {
	db     *gorm.DB
	node   *snowflake.Node
	clock  *clock.FakeClock
	tenant tenantdomain.Service
	svc    domain.Service

	benin tenantdomain.Country
	togo  tenantdomain.Country
	roles map[tenantdomain.RoleName]tenantdomain.Role
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&tenantdomain.Country{},
		&tenantdomain.Role{},
		&tenantdomain.Employee{},
		&tenantdomain.Assignment{},
		&domain.Project{},
		&domain.Site{},
		&domain.Task{},
		&events.TaskEvent{},
		&payrolldomain.SalaryStructure{},
		&payrolldomain.WorkCompletionRecord{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	log := zaptest.NewLogger(t)

	tenantSvc := tenantservice.NewService(tenantservice.ServiceParam{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: fake,
		Repo:  tenantrepository.NewRepository(db),
	})

	enforcer, err := authorization.NewEnforcer(db)
	require.NoError(t, err)
	m := metrics.New()
	authzSvc := authorization.NewService(authorization.ServiceParam{
		Log:      log,
		Enforcer: enforcer,
		Tenant:   tenantSvc,
		Metrics:  m,
	})

	publisher := events.NewOutboxPublisher(node)
	dispatcher := events.NewDispatcher(db, log)
	recomputer := cascade.NewRecomputer(cascade.RecomputerParam{
		DB:      db,
		Log:     log,
		Clock:   fake,
		Metrics: m,
	})
	dispatcher.Register(recomputer.Handle)

	svc := NewService(ServiceParam{
		DB:         db,
		Log:        log,
		GenID:      node,
		Clock:      fake,
		Repo:       repository.NewRepository(db),
		Tenant:     tenantSvc,
		Authz:      authzSvc,
		Publisher:  publisher,
		Dispatcher: dispatcher,
	})

	f := &fixture{
		db:     db,
		node:   node,
		clock:  fake,
		tenant: tenantSvc,
		svc:    svc,
		roles:  map[tenantdomain.RoleName]tenantdomain.Role{},
	}

	f.benin = f.country(t, "Benin", "BEN")
	f.togo = f.country(t, "Togo", "TGO")
	for _, name := range []tenantdomain.RoleName{
		tenantdomain.RoleCountryManager,
		tenantdomain.RoleProjectCoordinator,
		tenantdomain.RoleTeamLead,
		tenantdomain.RoleFieldTeam,
		tenantdomain.RoleEmployee,
	} {
		role := tenantdomain.Role{ID: node.Generate(), Name: name}
		require.NoError(t, db.Create(&role).Error)
		f.roles[name] = role
	}
	return f
}

func (f *fixture) country(t *testing.T, name, code string) tenantdomain.Country {
	t.Helper()
	country := tenantdomain.Country{ID: f.node.Generate(), Name: name, Code: code, IsActive: true}
	require.NoError(t, f.db.Create(&country).Error)
	return country
}

func (f *fixture) member(t *testing.T, username string, country tenantdomain.Country, roles ...tenantdomain.RoleName) tenantdomain.Employee {
	t.Helper()
	employee := tenantdomain.Employee{ID: f.node.Generate(), Username: username}
	require.NoError(t, f.db.Create(&employee).Error)
	for _, name := range roles {
		assignment := tenantdomain.Assignment{
			ID:         f.node.Generate(),
			EmployeeID: employee.ID,
			CountryID:  country.ID,
			RoleID:     f.roles[name].ID,
			StartDate:  f.clock.Now().AddDate(0, -1, 0),
			IsActive:   true,
		}
		require.NoError(t, f.db.Create(&assignment).Error)
	}
	return employee
}

func (f *fixture) as(employee tenantdomain.Employee) context.Context {
	return actorctx.WithActor(context.Background(), actorctx.Actor{EmployeeID: employee.ID, IsSuperuser: employee.IsSuperuser})
}

func (f *fixture) asSuperuser() context.Context {
	return actorctx.WithActor(context.Background(), actorctx.Actor{EmployeeID: f.node.Generate(), IsSuperuser: true})
}

func (f *fixture) reloadSite(t *testing.T, id snowflake.ID) domain.Site {
	t.Helper()
	var site domain.Site
	require.NoError(t, f.db.First(&site, "id = ?", id).Error)
	return site
}

func (f *fixture) reloadProject(t *testing.T, id snowflake.ID) domain.Project {
	t.Helper()
	var project domain.Project
	require.NoError(t, f.db.First(&project, "id = ?", id).Error)
	return project
}

func TestProjectLifecycleWithCascade(t *testing.T) {
	f := setup(t)

	manager := f.member(t, "manager", f.benin, tenantdomain.RoleCountryManager)
	coordinator := f.member(t, "coordinator", f.benin, tenantdomain.RoleProjectCoordinator)
	worker := f.member(t, "worker", f.benin, tenantdomain.RoleFieldTeam)

	project, err := f.svc.CreateProject(f.as(manager), domain.CreateProjectRequest{
		CountryID:     f.benin.ID,
		CoordinatorID: coordinator.ID,
		Name:          "Solar Schools",
	})
	require.NoError(t, err)
	assert.Equal(t, progressdomain.ProjectStatusPreparation, project.Status)

	site, err := f.svc.CreateSite(f.as(coordinator), domain.CreateSiteRequest{
		ProjectID: project.ID,
		SiteCode:  "SCH-001",
		Name:      "Parakou School",
	})
	require.NoError(t, err)

	taskA, err := f.svc.CreateTask(f.as(coordinator), domain.CreateTaskRequest{
		SiteID:       site.ID,
		AssignedToID: worker.ID,
		Description:  "mount panels",
	})
	require.NoError(t, err)
	taskB, err := f.svc.CreateTask(f.as(coordinator), domain.CreateTaskRequest{
		SiteID:       site.ID,
		AssignedToID: worker.ID,
		Description:  "wire batteries",
	})
	require.NoError(t, err)

	// Two TO_DO tasks: cascade already ran, everything at zero.
	assert.True(t, f.reloadSite(t, site.ID).Progress.IsZero())

	inProgress := progressdomain.TaskStatusInProgress
	_, err = f.svc.UpdateTask(f.as(worker), taskA.ID, domain.UpdateTaskRequest{Status: &inProgress})
	require.NoError(t, err)

	gotSite := f.reloadSite(t, site.ID)
	assert.True(t, gotSite.Progress.Equal(decimal.NewFromInt(25)), "got %s", gotSite.Progress)
	assert.Equal(t, progressdomain.SiteStatusInProgress, gotSite.Status)

	gotProject := f.reloadProject(t, project.ID)
	assert.True(t, gotProject.Progress.Equal(decimal.NewFromInt(25)), "got %s", gotProject.Progress)
	assert.Equal(t, progressdomain.ProjectStatusInProgress, gotProject.Status)

	completed := progressdomain.TaskStatusCompleted
	_, err = f.svc.UpdateTask(f.as(worker), taskA.ID, domain.UpdateTaskRequest{Status: &completed})
	require.NoError(t, err)
	_, err = f.svc.UpdateTask(f.as(worker), taskB.ID, domain.UpdateTaskRequest{Status: &completed})
	require.NoError(t, err)

	gotProject = f.reloadProject(t, project.ID)
	assert.True(t, gotProject.Progress.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, progressdomain.ProjectStatusCompleted, gotProject.Status)
	assert.True(t, gotProject.IsCompleted)
}

func TestBlockedTaskKeepsProgress(t *testing.T) {
	f := setup(t)

	manager := f.member(t, "manager", f.benin, tenantdomain.RoleCountryManager)
	coordinator := f.member(t, "coordinator", f.benin, tenantdomain.RoleProjectCoordinator)
	worker := f.member(t, "worker", f.benin, tenantdomain.RoleFieldTeam)

	project, err := f.svc.CreateProject(f.as(manager), domain.CreateProjectRequest{
		CountryID:     f.benin.ID,
		CoordinatorID: coordinator.ID,
		Name:          "Bridge Repair",
	})
	require.NoError(t, err)
	site, err := f.svc.CreateSite(f.as(coordinator), domain.CreateSiteRequest{
		ProjectID: project.ID, SiteCode: "BRG-001", Name: "North Bridge",
	})
	require.NoError(t, err)
	task, err := f.svc.CreateTask(f.as(coordinator), domain.CreateTaskRequest{
		SiteID: site.ID, AssignedToID: worker.ID, Description: "pour concrete",
	})
	require.NoError(t, err)

	qc := progressdomain.TaskStatusQCPending
	_, err = f.svc.UpdateTask(f.as(worker), task.ID, domain.UpdateTaskRequest{Status: &qc})
	require.NoError(t, err)

	blocked := progressdomain.TaskStatusBlocked
	got, err := f.svc.UpdateTask(f.as(worker), task.ID, domain.UpdateTaskRequest{Status: &blocked})
	require.NoError(t, err)

	assert.Equal(t, progressdomain.TaskStatusBlocked, got.Status)
	assert.True(t, got.Progress.Equal(decimal.NewFromInt(75)), "blocked keeps the stuck percentage, got %s", got.Progress)

	gotSite := f.reloadSite(t, site.ID)
	assert.True(t, gotSite.Progress.Equal(decimal.NewFromInt(75)))
}

func TestDeleteTaskRecomputes(t *testing.T) {
	f := setup(t)

	manager := f.member(t, "manager", f.benin, tenantdomain.RoleCountryManager)
	coordinator := f.member(t, "coordinator", f.benin, tenantdomain.RoleProjectCoordinator)
	worker := f.member(t, "worker", f.benin, tenantdomain.RoleFieldTeam)

	project, err := f.svc.CreateProject(f.as(manager), domain.CreateProjectRequest{
		CountryID:     f.benin.ID,
		CoordinatorID: coordinator.ID,
		Name:          "Well Drilling",
	})
	require.NoError(t, err)
	site, err := f.svc.CreateSite(f.as(coordinator), domain.CreateSiteRequest{
		ProjectID: project.ID, SiteCode: "WEL-001", Name: "Village Well",
	})
	require.NoError(t, err)

	done, err := f.svc.CreateTask(f.as(coordinator), domain.CreateTaskRequest{
		SiteID: site.ID, AssignedToID: worker.ID, Description: "survey",
	})
	require.NoError(t, err)
	_, err = f.svc.CreateTask(f.as(coordinator), domain.CreateTaskRequest{
		SiteID: site.ID, AssignedToID: worker.ID, Description: "drill",
	})
	require.NoError(t, err)

	completed := progressdomain.TaskStatusCompleted
	_, err = f.svc.UpdateTask(f.as(worker), done.ID, domain.UpdateTaskRequest{Status: &completed})
	require.NoError(t, err)
	assert.True(t, f.reloadSite(t, site.ID).Progress.Equal(decimal.NewFromInt(50)))

	require.NoError(t, f.svc.DeleteTask(f.as(coordinator), done.ID))

	gotSite := f.reloadSite(t, site.ID)
	assert.True(t, gotSite.Progress.IsZero(), "remaining TO_DO task averages to zero, got %s", gotSite.Progress)
}

func TestCapabilityDenials(t *testing.T) {
	f := setup(t)

	manager := f.member(t, "manager", f.benin, tenantdomain.RoleCountryManager)
	coordinator := f.member(t, "coordinator", f.benin, tenantdomain.RoleProjectCoordinator)
	worker := f.member(t, "worker", f.benin, tenantdomain.RoleFieldTeam)
	bystander := f.member(t, "bystander", f.benin, tenantdomain.RoleFieldTeam)

	project, err := f.svc.CreateProject(f.as(manager), domain.CreateProjectRequest{
		CountryID:     f.benin.ID,
		CoordinatorID: coordinator.ID,
		Name:          "Clinic Build",
	})
	require.NoError(t, err)
	site, err := f.svc.CreateSite(f.as(coordinator), domain.CreateSiteRequest{
		ProjectID: project.ID, SiteCode: "CLN-001", Name: "Clinic",
	})
	require.NoError(t, err)
	task, err := f.svc.CreateTask(f.as(coordinator), domain.CreateTaskRequest{
		SiteID: site.ID, AssignedToID: worker.ID, Description: "foundation",
	})
	require.NoError(t, err)

	inProgress := progressdomain.TaskStatusInProgress

	t.Run("field team cannot create projects", func(t *testing.T) {
		_, err := f.svc.CreateProject(f.as(worker), domain.CreateProjectRequest{
			CountryID:     f.benin.ID,
			CoordinatorID: coordinator.ID,
			Name:          "Rogue Project",
		})
		assert.ErrorIs(t, err, authorization.ErrForbidden)
	})

	t.Run("assignee may update own task", func(t *testing.T) {
		_, err := f.svc.UpdateTask(f.as(worker), task.ID, domain.UpdateTaskRequest{Status: &inProgress})
		assert.NoError(t, err)
	})

	t.Run("field team cannot update another's task", func(t *testing.T) {
		_, err := f.svc.UpdateTask(f.as(bystander), task.ID, domain.UpdateTaskRequest{Status: &inProgress})
		assert.ErrorIs(t, err, authorization.ErrForbidden)
	})

	t.Run("coordinator may update any task in own project", func(t *testing.T) {
		_, err := f.svc.UpdateTask(f.as(coordinator), task.ID, domain.UpdateTaskRequest{Status: &inProgress})
		assert.NoError(t, err)
	})

	t.Run("coordinator cannot update a project they do not coordinate", func(t *testing.T) {
		other := f.member(t, "other_coordinator", f.benin, tenantdomain.RoleProjectCoordinator)
		name := "Renamed"
		_, err := f.svc.UpdateProject(f.as(other), project.ID, domain.UpdateProjectRequest{Name: &name})
		assert.ErrorIs(t, err, authorization.ErrForbidden)
	})

	t.Run("country manager may update any project in country", func(t *testing.T) {
		name := "Clinic Build Phase 2"
		_, err := f.svc.UpdateProject(f.as(manager), project.ID, domain.UpdateProjectRequest{Name: &name})
		assert.NoError(t, err)
	})
}

func TestTenantIsolation(t *testing.T) {
	f := setup(t)

	manager := f.member(t, "manager", f.benin, tenantdomain.RoleCountryManager)
	coordinator := f.member(t, "coordinator", f.benin, tenantdomain.RoleProjectCoordinator)
	worker := f.member(t, "worker", f.benin, tenantdomain.RoleFieldTeam)
	outsider := f.member(t, "outsider", f.togo, tenantdomain.RoleCountryManager)

	project, err := f.svc.CreateProject(f.as(manager), domain.CreateProjectRequest{
		CountryID:     f.benin.ID,
		CoordinatorID: coordinator.ID,
		Name:          "Border Roads",
	})
	require.NoError(t, err)
	site, err := f.svc.CreateSite(f.as(coordinator), domain.CreateSiteRequest{
		ProjectID: project.ID, SiteCode: "RDS-001", Name: "Km 12",
	})
	require.NoError(t, err)
	task, err := f.svc.CreateTask(f.as(coordinator), domain.CreateTaskRequest{
		SiteID: site.ID, AssignedToID: worker.ID, Description: "grading",
	})
	require.NoError(t, err)

	t.Run("cross-country reads come back not found", func(t *testing.T) {
		_, err := f.svc.GetProject(f.as(outsider), project.ID)
		assert.ErrorIs(t, err, domain.ErrProjectNotFound)

		_, err = f.svc.GetTask(f.as(outsider), task.ID)
		assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	})

	t.Run("cross-country writes are forbidden", func(t *testing.T) {
		inProgress := progressdomain.TaskStatusInProgress
		_, err := f.svc.UpdateTask(f.as(outsider), task.ID, domain.UpdateTaskRequest{Status: &inProgress})
		assert.ErrorIs(t, err, authorization.ErrForbidden)
	})

	t.Run("cross-country manager cannot create in foreign country", func(t *testing.T) {
		_, err := f.svc.CreateProject(f.as(outsider), domain.CreateProjectRequest{
			CountryID:     f.benin.ID,
			CoordinatorID: coordinator.ID,
			Name:          "Foreign Project",
		})
		assert.ErrorIs(t, err, authorization.ErrForbidden)
	})

	t.Run("lists are scoped", func(t *testing.T) {
		projects, err := f.svc.ListProjects(f.as(outsider), domain.ListProjectsRequest{})
		require.NoError(t, err)
		assert.Empty(t, projects)
	})

	t.Run("superuser passes through", func(t *testing.T) {
		got, err := f.svc.GetProject(f.asSuperuser(), project.ID)
		require.NoError(t, err)
		assert.Equal(t, project.ID, got.ID)
	})
}

func TestTeamLeadOwnership(t *testing.T) {
	f := setup(t)

	manager := f.member(t, "manager", f.benin, tenantdomain.RoleCountryManager)
	coordinator := f.member(t, "coordinator", f.benin, tenantdomain.RoleProjectCoordinator)
	lead := f.member(t, "lead", f.benin, tenantdomain.RoleTeamLead)
	worker := f.member(t, "worker", f.benin, tenantdomain.RoleFieldTeam)

	project, err := f.svc.CreateProject(f.as(manager), domain.CreateProjectRequest{
		CountryID:     f.benin.ID,
		CoordinatorID: coordinator.ID,
		Name:          "Grid Extension",
	})
	require.NoError(t, err)

	ledSite, err := f.svc.CreateSite(f.as(coordinator), domain.CreateSiteRequest{
		ProjectID: project.ID, SiteCode: "GRD-001", Name: "Sector A", TeamLeadID: &lead.ID,
	})
	require.NoError(t, err)
	otherSite, err := f.svc.CreateSite(f.as(coordinator), domain.CreateSiteRequest{
		ProjectID: project.ID, SiteCode: "GRD-002", Name: "Sector B",
	})
	require.NoError(t, err)

	ledTask, err := f.svc.CreateTask(f.as(coordinator), domain.CreateTaskRequest{
		SiteID: ledSite.ID, AssignedToID: worker.ID, Description: "string cable",
	})
	require.NoError(t, err)
	otherTask, err := f.svc.CreateTask(f.as(coordinator), domain.CreateTaskRequest{
		SiteID: otherSite.ID, AssignedToID: worker.ID, Description: "set poles",
	})
	require.NoError(t, err)

	inProgress := progressdomain.TaskStatusInProgress

	_, err = f.svc.UpdateTask(f.as(lead), ledTask.ID, domain.UpdateTaskRequest{Status: &inProgress})
	assert.NoError(t, err, "team lead updates tasks on their own site")

	_, err = f.svc.UpdateTask(f.as(lead), otherTask.ID, domain.UpdateTaskRequest{Status: &inProgress})
	assert.ErrorIs(t, err, authorization.ErrForbidden, "but not on sites they do not lead")
}

func TestUpdateSiteAssignsTeamLead(t *testing.T) {
	f := setup(t)

	manager := f.member(t, "manager", f.benin, tenantdomain.RoleCountryManager)
	coordinator := f.member(t, "coordinator", f.benin, tenantdomain.RoleProjectCoordinator)
	lead := f.member(t, "lead", f.benin, tenantdomain.RoleTeamLead)
	worker := f.member(t, "worker", f.benin, tenantdomain.RoleFieldTeam)

	project, err := f.svc.CreateProject(f.as(manager), domain.CreateProjectRequest{
		CountryID:     f.benin.ID,
		CoordinatorID: coordinator.ID,
		Name:          "Water Points",
	})
	require.NoError(t, err)

	site, err := f.svc.CreateSite(f.as(coordinator), domain.CreateSiteRequest{
		ProjectID: project.ID, SiteCode: "WTR-001", Name: "Borehole North",
	})
	require.NoError(t, err)
	require.Nil(t, site.TeamLeadID)

	updated, err := f.svc.UpdateSite(f.as(coordinator), site.ID, domain.UpdateSiteRequest{
		TeamLeadID: &lead.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.TeamLeadID)
	assert.Equal(t, lead.ID, *updated.TeamLeadID)

	_, err = f.svc.UpdateSite(f.as(worker), site.ID, domain.UpdateSiteRequest{TeamLeadID: &lead.ID})
	assert.ErrorIs(t, err, authorization.ErrForbidden)

	var none snowflake.ID
	updated, err = f.svc.UpdateSite(f.as(manager), site.ID, domain.UpdateSiteRequest{TeamLeadID: &none})
	require.NoError(t, err)
	assert.Nil(t, updated.TeamLeadID)
}

func TestDuplicateSiteCode(t *testing.T) {
	f := setup(t)

	manager := f.member(t, "manager", f.benin, tenantdomain.RoleCountryManager)
	coordinator := f.member(t, "coordinator", f.benin, tenantdomain.RoleProjectCoordinator)

	project, err := f.svc.CreateProject(f.as(manager), domain.CreateProjectRequest{
		CountryID:     f.benin.ID,
		CoordinatorID: coordinator.ID,
		Name:          "Warehouse",
	})
	require.NoError(t, err)

	_, err = f.svc.CreateSite(f.as(coordinator), domain.CreateSiteRequest{
		ProjectID: project.ID, SiteCode: "WHS-001", Name: "Depot",
	})
	require.NoError(t, err)

	_, err = f.svc.CreateSite(f.as(coordinator), domain.CreateSiteRequest{
		ProjectID: project.ID, SiteCode: "WHS-001", Name: "Depot Copy",
	})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}
