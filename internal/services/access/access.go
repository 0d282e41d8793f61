// Package services содержит проверки прав доступа: роль и владение поездкой.
package services

import (
	"fmt"

	"github.com/magabrotheeeer/carpool/internal/models"
)

// RequireRole пропускает только субъекта с ролью role.
func RequireRole(id models.Identity, role string) error {
	if id.Role != role {
		return fmt.Errorf("access.RequireRole: %w", models.ErrForbidden)
	}
	return nil
}

// RequireOwnership пропускает только владельца поездки.
func RequireOwnership(id models.Identity, trip *models.Trip) error {
	if trip.UserID != id.UserID {
		return fmt.Errorf("access.RequireOwnership: %w", models.ErrForbidden)
	}
	return nil
}

// RequireOwnerOrAdmin пропускает владельца поездки и администратора.
func RequireOwnerOrAdmin(id models.Identity, trip *models.Trip) error {
	if id.Role == models.RoleAdmin {
		return nil
	}
	return RequireOwnership(id, trip)
}
