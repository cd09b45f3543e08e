package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/fieldtrack/internal/authorization"
	"github.com/smallbiznis/fieldtrack/internal/clock"
	"github.com/smallbiznis/fieldtrack/internal/events"
	"github.com/smallbiznis/fieldtrack/internal/project/domain"
	progressdomain "github.com/smallbiznis/fieldtrack/internal/progress/domain"
	tenantdomain "github.com/smallbiznis/fieldtrack/internal/tenant/domain"
	"github.com/smallbiznis/fieldtrack/pkg/actorctx"
	"github.com/smallbiznis/fieldtrack/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	Tenant     tenantdomain.Service
	Authz      authorization.Service
	Publisher  events.Publisher
	Dispatcher *events.Dispatcher
}

type service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	tenant     tenantdomain.Service
	authz      authorization.Service
	publisher  events.Publisher
	dispatcher *events.Dispatcher
}

func NewService(p ServiceParam) domain.Service {
	return &service{
		db:         p.DB,
		log:        p.Log.Named("project.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		tenant:     p.Tenant,
		authz:      p.Authz,
		publisher:  p.Publisher,
		dispatcher: p.Dispatcher,
	}
}

func (s *service) actor(ctx context.Context) (actorctx.Actor, error) {
	actor, ok := actorctx.FromContext(ctx)
	if !ok {
		return actorctx.Actor{}, authorization.ErrForbidden
	}
	return actor, nil
}

func (s *service) authorize(ctx context.Context, action string, target authorization.Target) (actorctx.Actor, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return actorctx.Actor{}, err
	}
	decision, err := s.authz.Can(ctx, actor, action, target)
	if err != nil {
		return actorctx.Actor{}, err
	}
	if !decision.Allowed {
		return actorctx.Actor{}, fmt.Errorf("%w: %s", authorization.ErrForbidden, decision.Reason)
	}
	return actor, nil
}

func (s *service) CreateProject(ctx context.Context, req domain.CreateProjectRequest) (*domain.Project, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, domain.ErrInvalidName
	}
	if req.CountryID == 0 || req.CoordinatorID == 0 {
		return nil, domain.ErrInvalidCountry
	}

	var country struct {
		ID       snowflake.ID
		IsActive bool
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT id, is_active FROM countries WHERE id = ?`, req.CountryID,
	).Scan(&country).Error; err != nil {
		return nil, err
	}
	if country.ID == 0 || !country.IsActive {
		return nil, domain.ErrInvalidCountry
	}

	actor, err := s.authorize(ctx, authorization.ActionProjectCreate, authorization.Target{CountryID: req.CountryID})
	if err != nil {
		return nil, err
	}

	budget := decimal.Zero
	if req.BudgetAllocated != "" {
		budget, err = decimal.NewFromString(req.BudgetAllocated)
		if err != nil {
			return nil, fmt.Errorf("parse budget: %w", err)
		}
	}

	startDate := req.StartDate
	if startDate.IsZero() {
		startDate = s.clock.Now()
	}

	project := domain.Project{
		ID:              s.genID.Generate(),
		CountryID:       req.CountryID,
		CoordinatorID:   req.CoordinatorID,
		Name:            strings.TrimSpace(req.Name),
		Status:          progressdomain.ProjectStatusPreparation,
		Progress:        decimal.Zero,
		BudgetAllocated: budget,
		StartDate:       startDate,
		EndDate:         req.EndDate,
		IsActive:        true,
		CreatedBy:       actor.EmployeeID,
		CreatedAt:       s.clock.Now(),
		UpdatedAt:       s.clock.Now(),
	}
	if err := s.repo.CreateProject(ctx, &project); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicate
		}
		return nil, err
	}

	s.log.Info("project created",
		zap.String("project_id", project.ID.String()),
		zap.String("country_id", project.CountryID.String()),
	)
	return &project, nil
}

func (s *service) GetProject(ctx context.Context, id snowflake.ID) (*domain.Project, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	q, err := s.tenant.ScopeProjects(ctx, s.db.WithContext(ctx).Model(&domain.Project{}), actor)
	if err != nil {
		return nil, err
	}
	var project domain.Project
	if err := q.First(&project, "projects.id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrProjectNotFound
		}
		return nil, err
	}
	return &project, nil
}

func (s *service) UpdateProject(ctx context.Context, id snowflake.ID, req domain.UpdateProjectRequest) (*domain.Project, error) {
	project, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, domain.ErrProjectNotFound
	}

	if _, err := s.authorize(ctx, authorization.ActionProjectUpdate, authorization.Target{Project: project}); err != nil {
		return nil, err
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, domain.ErrInvalidName
		}
		project.Name = strings.TrimSpace(*req.Name)
	}
	if req.CoordinatorID != nil {
		project.CoordinatorID = *req.CoordinatorID
	}
	if req.Status != nil {
		switch *req.Status {
		case progressdomain.ProjectStatusPreparation,
			progressdomain.ProjectStatusInProgress,
			progressdomain.ProjectStatusCompleted,
			progressdomain.ProjectStatusInvoiced,
			progressdomain.ProjectStatusPaid:
			project.Status = *req.Status
		default:
			return nil, domain.ErrInvalidStatus
		}
	}
	if req.EndDate != nil {
		project.EndDate = req.EndDate
	}
	if req.IsActive != nil {
		project.IsActive = *req.IsActive
	}
	project.UpdatedAt = s.clock.Now()

	if err := s.repo.UpdateProject(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *service) ListProjects(ctx context.Context, req domain.ListProjectsRequest) ([]domain.Project, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	q, err := s.tenant.ScopeProjects(ctx, s.db.WithContext(ctx).Model(&domain.Project{}), actor)
	if err != nil {
		return nil, err
	}
	if req.CountryID != nil {
		q = q.Where("projects.country_id = ?", *req.CountryID)
	}
	if req.ActiveOnly {
		q = q.Where("projects.is_active = ?", true)
	}
	var projects []domain.Project
	if err := q.Order("projects.created_at ASC").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (s *service) CreateSite(ctx context.Context, req domain.CreateSiteRequest) (*domain.Site, error) {
	if strings.TrimSpace(req.SiteCode) == "" {
		return nil, domain.ErrInvalidSiteCode
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, domain.ErrInvalidName
	}

	project, err := s.repo.GetProject(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, domain.ErrProjectNotFound
	}

	actor, err := s.authorize(ctx, authorization.ActionSiteCreate, authorization.Target{Project: project})
	if err != nil {
		return nil, err
	}

	site := domain.Site{
		ID:         s.genID.Generate(),
		ProjectID:  project.ID,
		SiteCode:   strings.TrimSpace(req.SiteCode),
		Name:       strings.TrimSpace(req.Name),
		Location:   req.Location,
		TeamLeadID: req.TeamLeadID,
		Status:     progressdomain.SiteStatusToDo,
		Progress:   decimal.Zero,
		CreatedBy:  actor.EmployeeID,
		CreatedAt:  s.clock.Now(),
		UpdatedAt:  s.clock.Now(),
	}
	if err := s.repo.CreateSite(ctx, &site); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicate
		}
		return nil, err
	}
	return &site, nil
}

func (s *service) GetSite(ctx context.Context, id snowflake.ID) (*domain.Site, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	q, err := s.tenant.ScopeSites(ctx, s.db.WithContext(ctx).Model(&domain.Site{}), actor)
	if err != nil {
		return nil, err
	}
	var site domain.Site
	if err := q.First(&site, "sites.id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrSiteNotFound
		}
		return nil, err
	}
	return &site, nil
}

func (s *service) UpdateSite(ctx context.Context, id snowflake.ID, req domain.UpdateSiteRequest) (*domain.Site, error) {
	site, target, err := s.siteTarget(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := s.authorize(ctx, authorization.ActionSiteUpdate, target); err != nil {
		return nil, err
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, domain.ErrInvalidName
		}
		site.Name = strings.TrimSpace(*req.Name)
	}
	if req.Location != nil {
		site.Location = *req.Location
	}
	if req.TeamLeadID != nil {
		if *req.TeamLeadID == 0 {
			site.TeamLeadID = nil
		} else {
			site.TeamLeadID = req.TeamLeadID
		}
	}
	site.UpdatedAt = s.clock.Now()

	if err := s.repo.UpdateSite(ctx, site); err != nil {
		return nil, err
	}
	return site, nil
}

func (s *service) ListSites(ctx context.Context, projectID snowflake.ID) ([]domain.Site, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	q, err := s.tenant.ScopeSites(ctx, s.db.WithContext(ctx).Model(&domain.Site{}), actor)
	if err != nil {
		return nil, err
	}
	if projectID != 0 {
		q = q.Where("sites.project_id = ?", projectID)
	}
	var sites []domain.Site
	if err := q.Order("sites.site_code ASC").Find(&sites).Error; err != nil {
		return nil, err
	}
	return sites, nil
}

// siteTarget loads the site and its project for authorization.
func (s *service) siteTarget(ctx context.Context, siteID snowflake.ID) (*domain.Site, authorization.Target, error) {
	site, err := s.repo.GetSite(ctx, siteID)
	if err != nil {
		return nil, authorization.Target{}, err
	}
	if site == nil {
		return nil, authorization.Target{}, domain.ErrSiteNotFound
	}
	project, err := s.repo.GetProject(ctx, site.ProjectID)
	if err != nil {
		return nil, authorization.Target{}, err
	}
	if project == nil {
		return nil, authorization.Target{}, domain.ErrProjectNotFound
	}
	return site, authorization.Target{Project: project, Site: site}, nil
}

func (s *service) CreateTask(ctx context.Context, req domain.CreateTaskRequest) (*domain.Task, error) {
	if strings.TrimSpace(req.Description) == "" {
		return nil, domain.ErrInvalidName
	}

	site, target, err := s.siteTarget(ctx, req.SiteID)
	if err != nil {
		return nil, err
	}

	actor, err := s.authorize(ctx, authorization.ActionTaskCreate, target)
	if err != nil {
		return nil, err
	}

	task := domain.Task{
		ID:                s.genID.Generate(),
		SiteID:            site.ID,
		AssignedToID:      req.AssignedToID,
		Description:       strings.TrimSpace(req.Description),
		TicketNumber:      req.TicketNumber,
		Status:            progressdomain.TaskStatusToDo,
		Progress:          decimal.Zero,
		DueDate:           req.DueDate,
		IsPayrollRelevant: req.IsPayrollRelevant,
		CreatedBy:         actor.EmployeeID,
		CreatedAt:         s.clock.Now(),
		UpdatedAt:         s.clock.Now(),
	}

	var eventID snowflake.ID
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).CreateTask(ctx, &task); err != nil {
			return err
		}
		eventID, err = s.publisher.Publish(ctx, tx, events.EventTaskCreated, task.SiteID, map[string]any{
			"task_id": task.ID.String(),
			"site_id": task.SiteID.String(),
			"status":  string(task.Status),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Dispatch(ctx, eventID)
	return &task, nil
}

func (s *service) GetTask(ctx context.Context, id snowflake.ID) (*domain.Task, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	q, err := s.tenant.ScopeTasks(ctx, s.db.WithContext(ctx).Model(&domain.Task{}), actor)
	if err != nil {
		return nil, err
	}
	var task domain.Task
	if err := q.First(&task, "tasks.id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}
	return &task, nil
}

func (s *service) UpdateTask(ctx context.Context, id snowflake.ID, req domain.UpdateTaskRequest) (*domain.Task, error) {
	task, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, domain.ErrTaskNotFound
	}

	_, target, err := s.siteTarget(ctx, task.SiteID)
	if err != nil {
		return nil, err
	}
	target.Task = task

	if _, err := s.authorize(ctx, authorization.ActionTaskUpdate, target); err != nil {
		return nil, err
	}

	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, domain.ErrInvalidStatus
		}
		task.Status = *req.Status
		// BLOCKED carries no percentage of its own; the task keeps the
		// progress it had when it got stuck.
		if progress, ok := progressdomain.DeriveProgress(task.Status); ok {
			task.Progress = progress
		}
		if task.Status == progressdomain.TaskStatusCompleted {
			now := s.clock.Now()
			task.CompletionDate = &now
		} else {
			task.CompletionDate = nil
		}
	}
	if req.AssignedToID != nil {
		task.AssignedToID = *req.AssignedToID
	}
	if req.Description != nil {
		if strings.TrimSpace(*req.Description) == "" {
			return nil, domain.ErrInvalidName
		}
		task.Description = strings.TrimSpace(*req.Description)
	}
	if req.DueDate != nil {
		task.DueDate = req.DueDate
	}
	task.UpdatedAt = s.clock.Now()

	var eventID snowflake.ID
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).UpdateTask(ctx, task); err != nil {
			return err
		}
		eventID, err = s.publisher.Publish(ctx, tx, events.EventTaskUpdated, task.SiteID, map[string]any{
			"task_id": task.ID.String(),
			"site_id": task.SiteID.String(),
			"status":  string(task.Status),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Dispatch(ctx, eventID)
	return task, nil
}

func (s *service) DeleteTask(ctx context.Context, id snowflake.ID) error {
	task, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if task == nil {
		return domain.ErrTaskNotFound
	}

	_, target, err := s.siteTarget(ctx, task.SiteID)
	if err != nil {
		return err
	}
	target.Task = task

	if _, err := s.authorize(ctx, authorization.ActionTaskDelete, target); err != nil {
		return err
	}

	var eventID snowflake.ID
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).DeleteTask(ctx, task.ID); err != nil {
			return err
		}
		eventID, err = s.publisher.Publish(ctx, tx, events.EventTaskDeleted, task.SiteID, map[string]any{
			"task_id": task.ID.String(),
			"site_id": task.SiteID.String(),
		})
		return err
	})
	if err != nil {
		return err
	}

	s.dispatcher.Dispatch(ctx, eventID)
	return nil
}

func (s *service) ListTasks(ctx context.Context, req domain.ListTasksRequest) ([]domain.Task, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	q, err := s.tenant.ScopeTasks(ctx, s.db.WithContext(ctx).Model(&domain.Task{}), actor)
	if err != nil {
		return nil, err
	}
	if req.SiteID != nil {
		q = q.Where("tasks.site_id = ?", *req.SiteID)
	}
	if req.AssignedToID != nil {
		q = q.Where("tasks.assigned_to_id = ?", *req.AssignedToID)
	}
	var tasks []domain.Task
	if err := q.Order("tasks.created_at ASC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}
