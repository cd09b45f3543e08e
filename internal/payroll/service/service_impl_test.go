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
	"github.com/smallbiznis/fieldtrack/internal/payroll/domain"
	projectdomain "github.com/smallbiznis/fieldtrack/internal/project/domain"
	projectrepository "github.com/smallbiznis/fieldtrack/internal/project/repository"
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
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
	svc   domain.Service

	benin tenantdomain.Country
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
		&projectdomain.Project{},
		&projectdomain.Site{},
		&projectdomain.Task{},
		&events.TaskEvent{},
		&domain.SalaryStructure{},
		&domain.WorkCompletionRecord{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	log := zaptest.NewLogger(t)

	tenantRepo := tenantrepository.NewRepository(db)
	tenantSvc := tenantservice.NewService(tenantservice.ServiceParam{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: fake,
		Repo:  tenantRepo,
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

	svc := NewService(ServiceParam{
		DB:         db,
		Log:        log,
		GenID:      node,
		Clock:      fake,
		Metrics:    m,
		TenantRepo: tenantRepo,
		Tenant:     tenantSvc,
		Projects:   projectrepository.NewRepository(db),
		Authz:      authzSvc,
	})

	f := &fixture{db: db, node: node, clock: fake, svc: svc, roles: map[tenantdomain.RoleName]tenantdomain.Role{}}

	f.benin = tenantdomain.Country{ID: node.Generate(), Name: "Benin", Code: "BEN", IsActive: true}
	require.NoError(t, db.Create(&f.benin).Error)
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

func (f *fixture) member(t *testing.T, username string, roles ...tenantdomain.RoleName) tenantdomain.Employee {
	t.Helper()
	employee := tenantdomain.Employee{ID: f.node.Generate(), Username: username}
	require.NoError(t, f.db.Create(&employee).Error)
	for _, name := range roles {
		assignment := tenantdomain.Assignment{
			ID:         f.node.Generate(),
			EmployeeID: employee.ID,
			CountryID:  f.benin.ID,
			RoleID:     f.roles[name].ID,
			StartDate:  f.clock.Now().AddDate(0, -1, 0),
			IsActive:   true,
		}
		require.NoError(t, f.db.Create(&assignment).Error)
	}
	return employee
}

func (f *fixture) task(t *testing.T, coordinator, assignee tenantdomain.Employee) projectdomain.Task {
	t.Helper()
	project := projectdomain.Project{
		ID:            f.node.Generate(),
		CountryID:     f.benin.ID,
		CoordinatorID: coordinator.ID,
		Name:          "Irrigation " + f.node.Generate().String(),
		Status:        progressdomain.ProjectStatusInProgress,
		Progress:      decimal.Zero,
		StartDate:     f.clock.Now(),
		IsActive:      true,
		CreatedBy:     coordinator.ID,
	}
	require.NoError(t, f.db.Create(&project).Error)
	site := projectdomain.Site{
		ID:        f.node.Generate(),
		ProjectID: project.ID,
		SiteCode:  "IRR-" + f.node.Generate().String(),
		Name:      "Field",
		Status:    progressdomain.SiteStatusToDo,
		Progress:  decimal.Zero,
		CreatedBy: coordinator.ID,
	}
	require.NoError(t, f.db.Create(&site).Error)
	task := projectdomain.Task{
		ID:           f.node.Generate(),
		SiteID:       site.ID,
		AssignedToID: assignee.ID,
		Description:  "lay pipe",
		Status:       progressdomain.TaskStatusInProgress,
		Progress:     decimal.NewFromInt(50),
		CreatedBy:    coordinator.ID,
	}
	require.NoError(t, f.db.Create(&task).Error)
	return task
}

func (f *fixture) as(employee tenantdomain.Employee) context.Context {
	return actorctx.WithActor(context.Background(), actorctx.Actor{EmployeeID: employee.ID, IsSuperuser: employee.IsSuperuser})
}

func (f *fixture) structure(t *testing.T, role tenantdomain.RoleName, monthly string) domain.SalaryStructure {
	t.Helper()
	structure := domain.SalaryStructure{
		ID:         f.node.Generate(),
		CountryID:  f.benin.ID,
		RoleID:     f.roles[role].ID,
		BaseAmount: decimal.RequireFromString(monthly),
		Currency:   "XOF",
	}
	require.NoError(t, f.db.Create(&structure).Error)
	return structure
}

func TestPriceFromFirstActiveAssignment(t *testing.T) {
	f := setup(t)

	worker := f.member(t, "worker", tenantdomain.RoleFieldTeam)
	f.structure(t, tenantdomain.RoleFieldTeam, "160000")

	// 160000 / 160 = 1000/h; 8h = 8000.
	price, err := f.svc.Price(context.Background(), worker.ID, decimal.NewFromInt(8))
	require.NoError(t, err)
	assert.True(t, price.Priced)
	assert.True(t, price.HourlyRate.Equal(decimal.NewFromInt(1000)), "got %s", price.HourlyRate)
	assert.True(t, price.Cost.Equal(decimal.NewFromInt(8000)), "got %s", price.Cost)
}

func TestPriceDegradesWithoutStructure(t *testing.T) {
	f := setup(t)

	worker := f.member(t, "worker", tenantdomain.RoleFieldTeam)

	price, err := f.svc.Price(context.Background(), worker.ID, decimal.NewFromInt(8))
	require.NoError(t, err)
	assert.False(t, price.Priced)
	assert.True(t, price.HourlyRate.IsZero())
	assert.True(t, price.Cost.IsZero())
}

func TestPriceDegradesWithoutAssignment(t *testing.T) {
	f := setup(t)

	idle := f.member(t, "idle")

	price, err := f.svc.Price(context.Background(), idle.ID, decimal.NewFromInt(4))
	require.NoError(t, err)
	assert.False(t, price.Priced)
	assert.True(t, price.Cost.IsZero())
}

func TestPriceRejectsNonPositiveDuration(t *testing.T) {
	f := setup(t)
	worker := f.member(t, "worker", tenantdomain.RoleFieldTeam)

	_, err := f.svc.Price(context.Background(), worker.ID, decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrInvalidDuration)
}

func TestRecordWorkStoresPricedRecord(t *testing.T) {
	f := setup(t)

	coordinator := f.member(t, "coordinator", tenantdomain.RoleProjectCoordinator)
	worker := f.member(t, "worker", tenantdomain.RoleFieldTeam)
	f.structure(t, tenantdomain.RoleFieldTeam, "160000")
	task := f.task(t, coordinator, worker)

	record, err := f.svc.RecordWork(f.as(worker), domain.RecordWorkRequest{
		TaskID:               task.ID,
		DurationHours:        "4",
		CompletionPercentage: 40,
	})
	require.NoError(t, err)
	assert.True(t, record.HourlyRate.Equal(decimal.NewFromInt(1000)))
	assert.True(t, record.Cost.Equal(decimal.NewFromInt(4000)))

	var stored projectdomain.Task
	require.NoError(t, f.db.First(&stored, "id = ?", task.ID).Error)
	assert.Equal(t, 40, stored.ReportedCompletion)
	// The status-derived percentage is untouched by work records.
	assert.True(t, stored.Progress.Equal(decimal.NewFromInt(50)))
}

func TestRecordWorkCapsReportedCompletion(t *testing.T) {
	f := setup(t)

	coordinator := f.member(t, "coordinator", tenantdomain.RoleProjectCoordinator)
	worker := f.member(t, "worker", tenantdomain.RoleFieldTeam)
	task := f.task(t, coordinator, worker)

	for _, pct := range []int{60, 60} {
		_, err := f.svc.RecordWork(f.as(worker), domain.RecordWorkRequest{
			TaskID:               task.ID,
			DurationHours:        "2",
			CompletionPercentage: pct,
		})
		require.NoError(t, err)
	}

	var stored projectdomain.Task
	require.NoError(t, f.db.First(&stored, "id = ?", task.ID).Error)
	assert.Equal(t, 100, stored.ReportedCompletion)
}

func TestRecordWorkValidation(t *testing.T) {
	f := setup(t)

	coordinator := f.member(t, "coordinator", tenantdomain.RoleProjectCoordinator)
	worker := f.member(t, "worker", tenantdomain.RoleFieldTeam)
	task := f.task(t, coordinator, worker)

	t.Run("zero duration rejected", func(t *testing.T) {
		_, err := f.svc.RecordWork(f.as(worker), domain.RecordWorkRequest{
			TaskID:               task.ID,
			DurationHours:        "0",
			CompletionPercentage: 10,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidDuration)
	})

	t.Run("completion out of range rejected", func(t *testing.T) {
		_, err := f.svc.RecordWork(f.as(worker), domain.RecordWorkRequest{
			TaskID:               task.ID,
			DurationHours:        "2",
			CompletionPercentage: 140,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidCompletion)
	})

	t.Run("unknown task rejected", func(t *testing.T) {
		_, err := f.svc.RecordWork(f.as(worker), domain.RecordWorkRequest{
			TaskID:               f.node.Generate(),
			DurationHours:        "2",
			CompletionPercentage: 10,
		})
		assert.ErrorIs(t, err, projectdomain.ErrTaskNotFound)
	})
}

func TestCreateSalaryStructureRequiresManager(t *testing.T) {
	f := setup(t)

	worker := f.member(t, "worker", tenantdomain.RoleFieldTeam)
	manager := f.member(t, "manager", tenantdomain.RoleCountryManager)

	_, err := f.svc.CreateSalaryStructure(f.as(worker), domain.CreateSalaryStructureRequest{
		CountryID:  f.benin.ID,
		Role:       "field team",
		BaseAmount: "160000",
	})
	assert.ErrorIs(t, err, authorization.ErrForbidden)

	structure, err := f.svc.CreateSalaryStructure(f.as(manager), domain.CreateSalaryStructureRequest{
		CountryID:  f.benin.ID,
		Role:       "field team",
		BaseAmount: "160000",
	})
	require.NoError(t, err)
	assert.Equal(t, f.roles[tenantdomain.RoleFieldTeam].ID, structure.RoleID)

	_, err = f.svc.CreateSalaryStructure(f.as(manager), domain.CreateSalaryStructureRequest{
		CountryID:  f.benin.ID,
		Role:       "FIELD_TEAM",
		BaseAmount: "170000",
	})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestTaskCostSumsUnpaidRecords(t *testing.T) {
	f := setup(t)

	coordinator := f.member(t, "coordinator", tenantdomain.RoleProjectCoordinator)
	worker := f.member(t, "worker", tenantdomain.RoleFieldTeam)
	f.structure(t, tenantdomain.RoleFieldTeam, "160000")
	task := f.task(t, coordinator, worker)

	for i := 0; i < 2; i++ {
		_, err := f.svc.RecordWork(f.as(worker), domain.RecordWorkRequest{
			TaskID:               task.ID,
			DurationHours:        "3",
			CompletionPercentage: 10,
		})
		require.NoError(t, err)
	}

	cost, err := f.svc.TaskCost(f.as(coordinator), task.ID)
	require.NoError(t, err)
	assert.True(t, cost.Equal(decimal.NewFromInt(6000)), "got %s", cost)

	// Paid-out records drop out of the open cost.
	require.NoError(t, f.db.Model(&domain.WorkCompletionRecord{}).
		Where("task_id = ?", task.ID).
		Update("is_paid_out", true).Error)

	cost, err = f.svc.TaskCost(f.as(coordinator), task.ID)
	require.NoError(t, err)
	assert.True(t, cost.IsZero())
}

func TestWorkRecordReadsAreTenantScoped(t *testing.T) {
	f := setup(t)

	coordinator := f.member(t, "coordinator", tenantdomain.RoleProjectCoordinator)
	worker := f.member(t, "worker", tenantdomain.RoleFieldTeam)
	f.structure(t, tenantdomain.RoleFieldTeam, "160000")
	task := f.task(t, coordinator, worker)

	_, err := f.svc.RecordWork(f.as(worker), domain.RecordWorkRequest{
		TaskID:               task.ID,
		DurationHours:        "4",
		CompletionPercentage: 40,
	})
	require.NoError(t, err)

	togo := tenantdomain.Country{ID: f.node.Generate(), Name: "Togo", Code: "TGO", IsActive: true}
	require.NoError(t, f.db.Create(&togo).Error)
	outsider := tenantdomain.Employee{ID: f.node.Generate(), Username: "outsider"}
	require.NoError(t, f.db.Create(&outsider).Error)
	require.NoError(t, f.db.Create(&tenantdomain.Assignment{
		ID:         f.node.Generate(),
		EmployeeID: outsider.ID,
		CountryID:  togo.ID,
		RoleID:     f.roles[tenantdomain.RoleCountryManager].ID,
		StartDate:  f.clock.Now().AddDate(0, -1, 0),
		IsActive:   true,
	}).Error)

	// The task's country is not among the outsider's active countries;
	// records and costs read as absent.
	_, err = f.svc.ListWorkRecords(f.as(outsider), task.ID)
	assert.ErrorIs(t, err, projectdomain.ErrTaskNotFound)
	_, err = f.svc.TaskCost(f.as(outsider), task.ID)
	assert.ErrorIs(t, err, projectdomain.ErrTaskNotFound)

	// In-scope readers still see them.
	records, err := f.svc.ListWorkRecords(f.as(worker), task.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	cost, err := f.svc.TaskCost(f.as(coordinator), task.ID)
	require.NoError(t, err)
	assert.True(t, cost.Equal(decimal.NewFromInt(4000)), "got %s", cost)
}
