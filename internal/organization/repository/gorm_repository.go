package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tair/plantops/internal/organization/domain"
	"github.com/tair/plantops/pkg/apperr"
	"github.com/tair/plantops/pkg/database"
)

// GormRepository is the PostgreSQL organization repository
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new gorm backed repository
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// AutoMigrate creates the organization tables
func (r *GormRepository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&domain.Department{},
		&domain.Employee{},
		&domain.EmployeeDepartment{},
		&domain.EmployeePermission{},
	)
}

func (r *GormRepository) ListDepartments(ctx context.Context) ([]domain.Department, error) {
	var departments []domain.Department
	if err := database.Conn(ctx, r.db).Order("id").Find(&departments).Error; err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	return departments, nil
}

func (r *GormRepository) FindDepartment(ctx context.Context, id uint) (*domain.Department, error) {
	var department domain.Department
	err := database.Conn(ctx, r.db).First(&department, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("department", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find department: %w", err)
	}
	return &department, nil
}

func (r *GormRepository) CreateDepartment(ctx context.Context, department *domain.Department) error {
	if err := database.Conn(ctx, r.db).Create(department).Error; err != nil {
		return fmt.Errorf("failed to create department: %w", err)
	}
	return nil
}

func (r *GormRepository) UpdateDepartment(ctx context.Context, department *domain.Department) error {
	err := database.Conn(ctx, r.db).Model(department).
		Select("name", "parent_id", "active", "updated_at").
		Updates(department).Error
	if err != nil {
		return fmt.Errorf("failed to update department: %w", err)
	}
	return nil
}

func (r *GormRepository) FindEmployee(ctx context.Context, id uint) (*domain.Employee, error) {
	db := database.Conn(ctx, r.db)

	var employee domain.Employee
	err := db.First(&employee, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("employee", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find employee: %w", err)
	}

	if err := db.Model(&domain.EmployeeDepartment{}).
		Where("employee_id = ?", id).
		Order("department_id").
		Pluck("department_id", &employee.MembershipIDs).Error; err != nil {
		return nil, fmt.Errorf("failed to load memberships: %w", err)
	}

	if err := db.Model(&domain.EmployeePermission{}).
		Where("employee_id = ?", id).
		Order("permission").
		Pluck("permission", &employee.Permissions).Error; err != nil {
		return nil, fmt.Errorf("failed to load permissions: %w", err)
	}

	return &employee, nil
}

func (r *GormRepository) SaveEmployee(ctx context.Context, employee *domain.Employee) error {
	return database.Conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(employee).Error; err != nil {
			return fmt.Errorf("failed to save employee: %w", err)
		}

		if err := tx.Where("employee_id = ?", employee.ID).Delete(&domain.EmployeeDepartment{}).Error; err != nil {
			return fmt.Errorf("failed to reset memberships: %w", err)
		}
		for _, departmentID := range employee.MembershipIDs {
			row := domain.EmployeeDepartment{EmployeeID: employee.ID, DepartmentID: departmentID}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("failed to save membership: %w", err)
			}
		}

		if err := tx.Where("employee_id = ?", employee.ID).Delete(&domain.EmployeePermission{}).Error; err != nil {
			return fmt.Errorf("failed to reset permissions: %w", err)
		}
		for _, permission := range employee.Permissions {
			row := domain.EmployeePermission{EmployeeID: employee.ID, Permission: permission}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("failed to save permission: %w", err)
			}
		}
		return nil
	})
}
