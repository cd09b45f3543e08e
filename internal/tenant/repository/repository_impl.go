package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fieldtrack/internal/tenant/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) CreateCountry(ctx context.Context, country domain.Country) error {
	return r.db.WithContext(ctx).Create(&country).Error
}

func (r *repository) ListCountries(ctx context.Context) ([]domain.Country, error) {
	var countries []domain.Country
	err := r.db.WithContext(ctx).Order("name ASC").Find(&countries).Error
	return countries, err
}

func (r *repository) GetCountry(ctx context.Context, id snowflake.ID) (*domain.Country, error) {
	var country domain.Country
	err := r.db.WithContext(ctx).First(&country, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &country, nil
}

func (r *repository) GetRoleByName(ctx context.Context, name domain.RoleName) (*domain.Role, error) {
	var role domain.Role
	err := r.db.WithContext(ctx).First(&role, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *repository) EnsureRole(ctx context.Context, role domain.Role) error {
	existing, err := r.GetRoleByName(ctx, role.Name)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	return r.db.WithContext(ctx).Create(&role).Error
}

func (r *repository) CreateEmployee(ctx context.Context, employee domain.Employee) error {
	return r.db.WithContext(ctx).Create(&employee).Error
}

func (r *repository) GetEmployee(ctx context.Context, id snowflake.ID) (*domain.Employee, error) {
	var employee domain.Employee
	err := r.db.WithContext(ctx).First(&employee, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &employee, nil
}

func (r *repository) CreateAssignment(ctx context.Context, assignment domain.Assignment) error {
	return r.db.WithContext(ctx).Create(&assignment).Error
}

func (r *repository) GetAssignment(ctx context.Context, id snowflake.ID) (*domain.Assignment, error) {
	var assignment domain.Assignment
	err := r.db.WithContext(ctx).First(&assignment, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *repository) DeactivateAssignment(ctx context.Context, id snowflake.ID) error {
	// Assignments are never deleted; payroll history depends on them.
	return r.db.WithContext(ctx).Exec(
		`UPDATE assignments SET is_active = ? WHERE id = ?`,
		false,
		id,
	).Error
}

func (r *repository) ListAssignmentsByEmployee(ctx context.Context, employeeID snowflake.ID) ([]domain.Assignment, error) {
	var assignments []domain.Assignment
	err := r.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Order("start_date ASC").
		Find(&assignments).Error
	return assignments, err
}

func (r *repository) ActiveAssignments(ctx context.Context, employeeID snowflake.ID) ([]domain.ActiveAssignment, error) {
	var rows []domain.ActiveAssignment
	err := r.db.WithContext(ctx).Raw(
		`SELECT a.id AS assignment_id,
		        a.employee_id AS employee_id,
		        a.country_id AS country_id,
		        c.code AS country_code,
		        a.role_id AS role_id,
		        r.name AS role_name,
		        a.end_date AS end_date
		 FROM assignments a
		 JOIN countries c ON c.id = a.country_id
		 JOIN roles r ON r.id = a.role_id
		 WHERE a.employee_id = ? AND a.is_active = ? AND c.is_active = ?
		 ORDER BY a.start_date ASC`,
		employeeID,
		true,
		true,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) HasActiveCoordinatedProject(ctx context.Context, employeeID snowflake.ID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM projects WHERE coordinator_id = ? AND is_active = ?`,
		employeeID,
		true,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
