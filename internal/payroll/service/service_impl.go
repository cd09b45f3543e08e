package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/fieldtrack/internal/authorization"
	"github.com/smallbiznis/fieldtrack/internal/clock"
	"github.com/smallbiznis/fieldtrack/internal/observability/metrics"
	"github.com/smallbiznis/fieldtrack/internal/payroll/domain"
	projectdomain "github.com/smallbiznis/fieldtrack/internal/project/domain"
	tenantdomain "github.com/smallbiznis/fieldtrack/internal/tenant/domain"
	"github.com/smallbiznis/fieldtrack/pkg/actorctx"
	"github.com/smallbiznis/fieldtrack/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// monthlyHours converts a monthly base salary into an hourly rate.
var monthlyHours = decimal.NewFromInt(160)

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Metrics    *metrics.Metrics
	TenantRepo tenantdomain.Repository
	Tenant     tenantdomain.Service
	Projects   projectdomain.Repository
	Authz      authorization.Service
}

type service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	metrics    *metrics.Metrics
	tenantRepo tenantdomain.Repository
	tenant     tenantdomain.Service
	projects   projectdomain.Repository
	authz      authorization.Service
}

func NewService(p ServiceParam) domain.Service {
	return &service{
		db:         p.DB,
		log:        p.Log.Named("payroll.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		metrics:    p.Metrics,
		tenantRepo: p.TenantRepo,
		tenant:     p.Tenant,
		projects:   p.Projects,
		authz:      p.Authz,
	}
}

func (s *service) CreateSalaryStructure(ctx context.Context, req domain.CreateSalaryStructureRequest) (*domain.SalaryStructure, error) {
	actor, ok := actorctx.FromContext(ctx)
	if !ok {
		return nil, authorization.ErrForbidden
	}
	if !actor.IsSuperuser {
		byCountry, err := s.tenant.RolesByCountry(ctx, actor.EmployeeID)
		if err != nil {
			return nil, err
		}
		manages := false
		for _, role := range byCountry[req.CountryID] {
			if role == tenantdomain.RoleCountryManager {
				manages = true
				break
			}
		}
		if !manages {
			return nil, fmt.Errorf("%w: salary structures require country manager", authorization.ErrForbidden)
		}
	}

	roleName, err := tenantdomain.ParseRoleName(req.Role)
	if err != nil {
		return nil, err
	}
	role, err := s.tenantRepo.GetRoleByName(ctx, roleName)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, tenantdomain.ErrInvalidRole
	}

	amount, err := decimal.NewFromString(req.BaseAmount)
	if err != nil || amount.IsNegative() {
		return nil, domain.ErrInvalidAmount
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "XOF"
	}

	structure := domain.SalaryStructure{
		ID:         s.genID.Generate(),
		CountryID:  req.CountryID,
		RoleID:     role.ID,
		BaseAmount: amount,
		Currency:   currency,
		CreatedAt:  s.clock.Now(),
		UpdatedAt:  s.clock.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&structure).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicate
		}
		return nil, err
	}
	return &structure, nil
}

// Price resolves the employee's first active assignment and rates the hours
// against its salary structure. A missing structure degrades to a zero rate
// rather than failing: field work is recorded even before payroll is set up.
func (s *service) Price(ctx context.Context, employeeID snowflake.ID, durationHours decimal.Decimal) (domain.PriceResult, error) {
	if durationHours.LessThanOrEqual(decimal.Zero) {
		return domain.PriceResult{}, domain.ErrInvalidDuration
	}

	assignments, err := s.tenantRepo.ActiveAssignments(ctx, employeeID)
	if err != nil {
		return domain.PriceResult{}, err
	}
	if len(assignments) == 0 {
		s.metrics.PayrollMissingStructure.Inc()
		s.log.Warn("pricing without active assignment",
			zap.String("employee_id", employeeID.String()),
		)
		return domain.PriceResult{HourlyRate: decimal.Zero, Cost: decimal.Zero}, nil
	}
	first := assignments[0]

	var structure domain.SalaryStructure
	err = s.db.WithContext(ctx).
		First(&structure, "country_id = ? AND role_id = ?", first.CountryID, first.RoleID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.metrics.PayrollMissingStructure.Inc()
		s.log.Warn("no salary structure for assignment",
			zap.String("employee_id", employeeID.String()),
			zap.String("country_id", first.CountryID.String()),
			zap.String("role", string(first.RoleName)),
		)
		return domain.PriceResult{HourlyRate: decimal.Zero, Cost: decimal.Zero}, nil
	}
	if err != nil {
		return domain.PriceResult{}, err
	}

	rate := structure.BaseAmount.Div(monthlyHours).Round(2)
	cost := durationHours.Mul(rate).Round(2)
	return domain.PriceResult{HourlyRate: rate, Cost: cost, Priced: true}, nil
}

func (s *service) RecordWork(ctx context.Context, req domain.RecordWorkRequest) (*domain.WorkCompletionRecord, error) {
	actor, ok := actorctx.FromContext(ctx)
	if !ok {
		return nil, authorization.ErrForbidden
	}

	duration, err := decimal.NewFromString(req.DurationHours)
	if err != nil || duration.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidDuration
	}
	if req.CompletionPercentage < 0 || req.CompletionPercentage > 100 {
		return nil, domain.ErrInvalidCompletion
	}

	task, err := s.projects.GetTask(ctx, req.TaskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, projectdomain.ErrTaskNotFound
	}
	site, err := s.projects.GetSite(ctx, task.SiteID)
	if err != nil {
		return nil, err
	}
	if site == nil {
		return nil, projectdomain.ErrSiteNotFound
	}
	project, err := s.projects.GetProject(ctx, site.ProjectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, projectdomain.ErrProjectNotFound
	}

	decision, err := s.authz.Can(ctx, actor, authorization.ActionWorkRecord, authorization.Target{
		Project: project,
		Site:    site,
		Task:    task,
	})
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, fmt.Errorf("%w: %s", authorization.ErrForbidden, decision.Reason)
	}

	price, err := s.Price(ctx, actor.EmployeeID, duration)
	if err != nil {
		return nil, err
	}

	workDate := s.clock.Now()
	if req.WorkDate != nil {
		workDate = *req.WorkDate
	}

	record := domain.WorkCompletionRecord{
		ID:                   s.genID.Generate(),
		TaskID:               task.ID,
		EmployeeID:           actor.EmployeeID,
		WorkDate:             workDate,
		DurationHours:        duration,
		CompletionPercentage: req.CompletionPercentage,
		HourlyRate:           price.HourlyRate,
		Cost:                 price.Cost,
		Notes:                req.Notes,
		CreatedAt:            s.clock.Now(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}

		var total int
		if err := tx.Raw(
			`SELECT COALESCE(SUM(completion_percentage), 0) FROM work_completion_records WHERE task_id = ?`,
			task.ID,
		).Scan(&total).Error; err != nil {
			return err
		}
		if total > 100 {
			total = 100
		}

		return tx.Model(&projectdomain.Task{}).
			Where("id = ?", task.ID).
			Updates(map[string]any{
				"reported_completion": total,
				"updated_at":          s.clock.Now(),
			}).Error
	})
	if err != nil {
		return nil, err
	}

	if !price.Priced {
		s.log.Warn("work recorded at zero cost",
			zap.String("record_id", record.ID.String()),
			zap.String("task_id", task.ID.String()),
		)
	}
	return &record, nil
}

// scopedTask resolves the task only when the caller may see it: the task's
// country must be among the actor's active countries. A scope miss reads the
// same as absence.
func (s *service) scopedTask(ctx context.Context, taskID snowflake.ID) (*projectdomain.Task, error) {
	actor, ok := actorctx.FromContext(ctx)
	if !ok {
		return nil, authorization.ErrForbidden
	}

	task, err := s.projects.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, projectdomain.ErrTaskNotFound
	}
	if actor.IsSuperuser {
		return task, nil
	}

	site, err := s.projects.GetSite(ctx, task.SiteID)
	if err != nil {
		return nil, err
	}
	if site == nil {
		return nil, projectdomain.ErrTaskNotFound
	}
	project, err := s.projects.GetProject(ctx, site.ProjectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, projectdomain.ErrTaskNotFound
	}

	countries, err := s.tenant.ActiveCountryIDs(ctx, actor.EmployeeID)
	if err != nil {
		return nil, err
	}
	for _, countryID := range countries {
		if countryID == project.CountryID {
			return task, nil
		}
	}
	return nil, projectdomain.ErrTaskNotFound
}

func (s *service) ListWorkRecords(ctx context.Context, taskID snowflake.ID) ([]domain.WorkCompletionRecord, error) {
	task, err := s.scopedTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	var records []domain.WorkCompletionRecord
	err = s.db.WithContext(ctx).
		Where("task_id = ?", task.ID).
		Order("work_date ASC").
		Find(&records).Error
	return records, err
}

func (s *service) TaskCost(ctx context.Context, taskID snowflake.ID) (decimal.Decimal, error) {
	if _, err := s.scopedTask(ctx, taskID); err != nil {
		return decimal.Zero, err
	}

	var row struct {
		Total decimal.Decimal
	}
	err := s.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(cost), 0) AS total FROM work_completion_records WHERE task_id = ? AND is_paid_out = ?`,
		taskID,
		false,
	).Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}
