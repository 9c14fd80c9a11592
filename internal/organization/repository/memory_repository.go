package repository

import (
	"context"
	"time"

	"github.com/tair/plantops/internal/organization/domain"
	"github.com/tair/plantops/pkg/apperr"
	"github.com/tair/plantops/pkg/database"
)

// MemoryRepository keeps the organization in a database.MemoryDB
type MemoryRepository struct {
	db          *database.MemoryDB
	departments *database.Table[domain.Department]
	employees   *database.Table[domain.Employee]
}

// NewMemoryRepository creates an in-memory repository
func NewMemoryRepository(db *database.MemoryDB) *MemoryRepository {
	return &MemoryRepository{
		db:          db,
		departments: database.NewTable[domain.Department](db),
		employees:   database.NewTable[domain.Employee](db),
	}
}

func (r *MemoryRepository) ListDepartments(ctx context.Context) ([]domain.Department, error) {
	var out []domain.Department
	err := r.db.Run(ctx, func() error {
		out = r.departments.All()
		return nil
	})
	return out, err
}

func (r *MemoryRepository) FindDepartment(ctx context.Context, id uint) (*domain.Department, error) {
	var out *domain.Department
	err := r.db.Run(ctx, func() error {
		d, ok := r.departments.Get(id)
		if !ok {
			return apperr.NotFound("department", id)
		}
		out = &d
		return nil
	})
	return out, err
}

func (r *MemoryRepository) CreateDepartment(ctx context.Context, department *domain.Department) error {
	return r.db.Run(ctx, func() error {
		now := time.Now()
		department.ID = r.departments.NextID()
		department.CreatedAt, department.UpdatedAt = now, now
		r.departments.Put(department.ID, *department)
		return nil
	})
}

func (r *MemoryRepository) UpdateDepartment(ctx context.Context, department *domain.Department) error {
	return r.db.Run(ctx, func() error {
		if _, ok := r.departments.Get(department.ID); !ok {
			return apperr.NotFound("department", department.ID)
		}
		r.departments.Put(department.ID, *department)
		return nil
	})
}

func (r *MemoryRepository) FindEmployee(ctx context.Context, id uint) (*domain.Employee, error) {
	var out *domain.Employee
	err := r.db.Run(ctx, func() error {
		e, ok := r.employees.Get(id)
		if !ok {
			return apperr.NotFound("employee", id)
		}
		e.MembershipIDs = append([]uint(nil), e.MembershipIDs...)
		e.Permissions = append([]domain.Permission(nil), e.Permissions...)
		out = &e
		return nil
	})
	return out, err
}

func (r *MemoryRepository) SaveEmployee(ctx context.Context, employee *domain.Employee) error {
	return r.db.Run(ctx, func() error {
		if employee.ID == 0 {
			employee.ID = r.employees.NextID()
		}
		stored := *employee
		stored.MembershipIDs = append([]uint(nil), employee.MembershipIDs...)
		stored.Permissions = append([]domain.Permission(nil), employee.Permissions...)
		r.employees.Put(employee.ID, stored)
		return nil
	})
}
