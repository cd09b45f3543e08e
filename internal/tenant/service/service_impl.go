package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fieldtrack/internal/clock"
	"github.com/smallbiznis/fieldtrack/internal/tenant/domain"
	"github.com/smallbiznis/fieldtrack/pkg/actorctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("tenant.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) CreateCountry(ctx context.Context, req domain.CreateCountryRequest) (*domain.Country, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return nil, domain.ErrInvalidCode
	}

	country := domain.Country{
		ID:        s.genID.Generate(),
		Name:      name,
		Code:      code,
		IsActive:  true,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.CreateCountry(ctx, country); err != nil {
		return nil, err
	}
	return &country, nil
}

func (s *Service) ListCountries(ctx context.Context) ([]domain.Country, error) {
	return s.repo.ListCountries(ctx)
}

func (s *Service) CreateEmployee(ctx context.Context, req domain.CreateEmployeeRequest) (*domain.Employee, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, domain.ErrInvalidEmployee
	}

	employee := domain.Employee{
		ID:          s.genID.Generate(),
		Username:    username,
		Email:       strings.TrimSpace(req.Email),
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		IsSuperuser: req.IsSuperuser,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.repo.CreateEmployee(ctx, employee); err != nil {
		return nil, err
	}
	return &employee, nil
}

func (s *Service) GetEmployee(ctx context.Context, id snowflake.ID) (*domain.Employee, error) {
	employee, err := s.repo.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}
	if employee == nil {
		return nil, domain.ErrNotFound
	}
	return employee, nil
}

func (s *Service) CreateAssignment(ctx context.Context, req domain.CreateAssignmentRequest) (*domain.Assignment, error) {
	if req.EmployeeID == 0 {
		return nil, domain.ErrInvalidEmployee
	}

	// Role names are validated here so free text never reaches the resolver.
	roleName, err := domain.ParseRoleName(req.Role)
	if err != nil {
		return nil, err
	}
	role, err := s.repo.GetRoleByName(ctx, roleName)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, domain.ErrInvalidRole
	}

	country, err := s.repo.GetCountry(ctx, req.CountryID)
	if err != nil {
		return nil, err
	}
	if country == nil {
		return nil, domain.ErrInvalidCountry
	}
	if !country.IsActive {
		return nil, domain.ErrCountryInactive
	}

	employee, err := s.repo.GetEmployee(ctx, req.EmployeeID)
	if err != nil {
		return nil, err
	}
	if employee == nil {
		return nil, domain.ErrInvalidEmployee
	}

	now := s.clock.Now()
	startDate := now
	if req.StartDate != nil {
		startDate = req.StartDate.UTC()
	}

	assignment := domain.Assignment{
		ID:         s.genID.Generate(),
		EmployeeID: req.EmployeeID,
		CountryID:  req.CountryID,
		RoleID:     role.ID,
		StartDate:  startDate,
		EndDate:    req.EndDate,
		IsActive:   true,
		CreatedAt:  now,
	}
	if err := s.repo.CreateAssignment(ctx, assignment); err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (s *Service) EndAssignment(ctx context.Context, assignmentID snowflake.ID) error {
	assignment, err := s.repo.GetAssignment(ctx, assignmentID)
	if err != nil {
		return err
	}
	if assignment == nil {
		return domain.ErrNotFound
	}
	return s.repo.DeactivateAssignment(ctx, assignmentID)
}

func (s *Service) ListAssignments(ctx context.Context, employeeID snowflake.ID) ([]domain.Assignment, error) {
	return s.repo.ListAssignmentsByEmployee(ctx, employeeID)
}

// activeAssignments is the single activity predicate for scope and roles.
// end_date is not enforced, matching the manual-deactivation policy; a
// warning is emitted when an expired assignment is still granting access.
func (s *Service) activeAssignments(ctx context.Context, employeeID snowflake.ID) ([]domain.ActiveAssignment, error) {
	rows, err := s.repo.ActiveAssignments(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	for _, row := range rows {
		if row.EndDate != nil && row.EndDate.Before(now) {
			s.log.Warn("assignment past end_date still active",
				zap.String("assignment_id", row.AssignmentID.String()),
				zap.String("employee_id", row.EmployeeID.String()),
				zap.Time("end_date", *row.EndDate),
			)
		}
	}
	return rows, nil
}

func (s *Service) ActiveRoles(ctx context.Context, employeeID snowflake.ID) (map[domain.RoleName]bool, error) {
	rows, err := s.activeAssignments(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	roles := make(map[domain.RoleName]bool, len(rows))
	for _, row := range rows {
		roles[row.RoleName] = true
	}
	return roles, nil
}

func (s *Service) RolesByCountry(ctx context.Context, employeeID snowflake.ID) (map[snowflake.ID][]domain.RoleName, error) {
	rows, err := s.activeAssignments(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	byCountry := make(map[snowflake.ID][]domain.RoleName)
	for _, row := range rows {
		byCountry[row.CountryID] = append(byCountry[row.CountryID], row.RoleName)
	}
	return byCountry, nil
}

func (s *Service) MainRole(ctx context.Context, actor actorctx.Actor) (string, error) {
	if actor.IsSuperuser {
		return domain.MainRoleSuperuser, nil
	}

	roles, err := s.ActiveRoles(ctx, actor.EmployeeID)
	if err != nil {
		return "", err
	}

	if roles[domain.RoleCountryManager] {
		return domain.MainRoleCM, nil
	}

	// Coordinating an active project classifies the employee as coordinator
	// even without the catalog role.
	if roles[domain.RoleProjectCoordinator] {
		return domain.MainRoleCoordinator, nil
	}
	coordinates, err := s.repo.HasActiveCoordinatedProject(ctx, actor.EmployeeID)
	if err != nil {
		return "", err
	}
	if coordinates {
		return domain.MainRoleCoordinator, nil
	}

	if roles[domain.RoleTeamLead] {
		return domain.MainRoleTeamLead, nil
	}
	if roles[domain.RoleFieldTeam] {
		return domain.MainRoleFieldTeam, nil
	}
	return domain.MainRoleEmployee, nil
}

func (s *Service) ActiveCountryIDs(ctx context.Context, employeeID snowflake.ID) ([]snowflake.ID, error) {
	rows, err := s.activeAssignments(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	seen := make(map[snowflake.ID]bool, len(rows))
	ids := make([]snowflake.ID, 0, len(rows))
	for _, row := range rows {
		if seen[row.CountryID] {
			continue
		}
		seen[row.CountryID] = true
		ids = append(ids, row.CountryID)
	}
	return ids, nil
}

func (s *Service) ScopeProjects(ctx context.Context, q *gorm.DB, actor actorctx.Actor) (*gorm.DB, error) {
	if actor.IsSuperuser {
		return q, nil
	}
	ids, err := s.ActiveCountryIDs(ctx, actor.EmployeeID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return q.Where("1 = 0"), nil
	}
	return q.Where("country_id IN ?", ids), nil
}

func (s *Service) ScopeSites(ctx context.Context, q *gorm.DB, actor actorctx.Actor) (*gorm.DB, error) {
	if actor.IsSuperuser {
		return q, nil
	}
	ids, err := s.ActiveCountryIDs(ctx, actor.EmployeeID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return q.Where("1 = 0"), nil
	}
	return q.Where("project_id IN (SELECT id FROM projects WHERE country_id IN ?)", ids), nil
}

func (s *Service) ScopeTasks(ctx context.Context, q *gorm.DB, actor actorctx.Actor) (*gorm.DB, error) {
	if actor.IsSuperuser {
		return q, nil
	}
	ids, err := s.ActiveCountryIDs(ctx, actor.EmployeeID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return q.Where("1 = 0"), nil
	}
	return q.Where(
		"site_id IN (SELECT s.id FROM sites s JOIN projects p ON p.id = s.project_id WHERE p.country_id IN ?)",
		ids,
	), nil
}
