package domain

import (
	"context"
	"time"
)

// Department is a node of the organizational tree. Departments are never
// hard-deleted; deactivation keeps them in the tree.
type Department struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null"`
	ParentID  *uint     `json:"parent_id,omitempty" gorm:"index"`
	Active    bool      `json:"active" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name
func (Department) TableName() string {
	return "departments"
}

// Permission is a capability key granted to an employee
type Permission string

const (
	PermissionAdmin             Permission = "admin"
	PermissionManageParts       Permission = "parts.manage"
	PermissionBookStock         Permission = "stock.book"
	PermissionCreateOrders      Permission = "orders.create"
	PermissionApproveOrders     Permission = "orders.approve"
	PermissionManageQuotes      Permission = "quotes.manage"
	PermissionManageDepartments Permission = "departments.manage"
)

// Employee is the acting identity for every authorization decision
type Employee struct {
	ID                  uint      `json:"id" gorm:"primaryKey"`
	Name                string    `json:"name" gorm:"not null"`
	Email               string    `json:"email" gorm:"uniqueIndex"`
	PrimaryDepartmentID *uint     `json:"primary_department_id,omitempty"`
	Active              bool      `json:"active" gorm:"not null"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`

	// Additional memberships, not including the primary department
	MembershipIDs []uint       `json:"membership_ids" gorm:"-"`
	Permissions   []Permission `json:"permissions" gorm:"-"`
}

// TableName specifies the table name
func (Employee) TableName() string {
	return "employees"
}

// EmployeeDepartment is an additional department membership
type EmployeeDepartment struct {
	EmployeeID   uint `gorm:"primaryKey"`
	DepartmentID uint `gorm:"primaryKey"`
}

// TableName specifies the table name
func (EmployeeDepartment) TableName() string {
	return "employee_departments"
}

// EmployeePermission is a granted permission key
type EmployeePermission struct {
	EmployeeID uint       `gorm:"primaryKey"`
	Permission Permission `gorm:"primaryKey;type:varchar(64)"`
}

// TableName specifies the table name
func (EmployeePermission) TableName() string {
	return "employee_permissions"
}

// IsAdmin reports whether the employee holds the admin permission
func (e *Employee) IsAdmin() bool {
	return e.hasKey(PermissionAdmin)
}

// Has reports whether an active employee holds p. Admin implies every
// permission.
func (e *Employee) Has(p Permission) bool {
	if e == nil || !e.Active {
		return false
	}
	return e.IsAdmin() || e.hasKey(p)
}

func (e *Employee) hasKey(p Permission) bool {
	for _, granted := range e.Permissions {
		if granted == p {
			return true
		}
	}
	return false
}

// DepartmentIDs returns the primary department followed by the additional
// memberships, without duplicates.
func (e *Employee) DepartmentIDs() []uint {
	seen := make(map[uint]struct{}, len(e.MembershipIDs)+1)
	ids := make([]uint, 0, len(e.MembershipIDs)+1)
	add := func(id uint) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if e.PrimaryDepartmentID != nil {
		add(*e.PrimaryDepartmentID)
	}
	for _, id := range e.MembershipIDs {
		add(id)
	}
	return ids
}

// Repository defines the contract for organization data access
type Repository interface {
	ListDepartments(ctx context.Context) ([]Department, error)
	FindDepartment(ctx context.Context, id uint) (*Department, error)
	CreateDepartment(ctx context.Context, department *Department) error
	UpdateDepartment(ctx context.Context, department *Department) error

	FindEmployee(ctx context.Context, id uint) (*Employee, error)
	// SaveEmployee creates or replaces an employee with its memberships and
	// permissions. Used for provisioning.
	SaveEmployee(ctx context.Context, employee *Employee) error
}

// TreeLocker serializes edits of the department tree across instances
type TreeLocker interface {
	Lock(ctx context.Context) (unlock func(), err error)
}

// TreeChangePublisher announces department tree edits so other instances
// drop their cached graph
type TreeChangePublisher interface {
	TreeChanged(ctx context.Context, departmentID, actorID uint) error
}
