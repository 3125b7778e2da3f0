// Package roles derives the single effective role of a principal.
package roles

import (
	"context"

	"carebook-server/internal/models"
)

// RoleSource reads the role rows assigned to a principal.
type RoleSource interface {
	RolesForUser(ctx context.Context, userID string) ([]models.Role, error)
}

// Resolver resolves effective roles from stored role rows.
type Resolver struct {
	roles RoleSource
}

func NewResolver(roles RoleSource) *Resolver {
	return &Resolver{roles: roles}
}

// Resolve returns the effective role of userID, or models.RoleNone when the
// principal holds no role rows.
func (r *Resolver) Resolve(ctx context.Context, userID string) (models.Role, error) {
	assigned, err := r.roles.RolesForUser(ctx, userID)
	if err != nil {
		return models.RoleNone, err
	}
	return Effective(assigned), nil
}

// precedence lists roles from strongest to weakest.
var precedence = []models.Role{models.RoleAdmin, models.RoleDoctor, models.RolePatient}

// Effective picks the strongest role in assigned: admin > doctor > patient.
func Effective(assigned []models.Role) models.Role {
	held := make(map[models.Role]bool, len(assigned))
	for _, r := range assigned {
		held[r] = true
	}
	for _, r := range precedence {
		if held[r] {
			return r
		}
	}
	return models.RoleNone
}
