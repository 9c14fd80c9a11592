package app

import (
	"context"
	"fmt"

	orgdomain "github.com/tair/plantops/internal/organization/domain"
	"github.com/tair/plantops/pkg/auth"
)

// SeedDevelopment provisions a root department and an administrator and
// returns a bearer token for the administrator. Meant for the memory store.
func SeedDevelopment(ctx context.Context, store *Store, tokens *auth.TokenService) (string, error) {
	admin := &orgdomain.Employee{
		Name:        "Administrator",
		Email:       "admin@plantops.local",
		Active:      true,
		Permissions: []orgdomain.Permission{orgdomain.PermissionAdmin},
	}

	err := store.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		plant := &orgdomain.Department{Name: "Plant", Active: true}
		if err := store.Organization.CreateDepartment(ctx, plant); err != nil {
			return err
		}
		admin.PrimaryDepartmentID = &plant.ID
		return store.Organization.SaveEmployee(ctx, admin)
	})
	if err != nil {
		return "", fmt.Errorf("failed to seed development data: %w", err)
	}

	return tokens.GenerateToken(admin.ID, admin.Name)
}
