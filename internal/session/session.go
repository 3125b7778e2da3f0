// Package session models request authentication as an explicit two-phase
// state machine: the session token is resolved first, then the role.
// Snapshots are values; every transition returns a new one.
package session

import (
	"context"
	"fmt"

	"carebook-server/internal/models"
)

// Phase is the authentication progress of a request.
type Phase string

const (
	PhaseUnauthenticated       Phase = "unauthenticated"
	PhaseAuthenticating        Phase = "authenticating"
	PhaseAuthenticatedNoRole   Phase = "authenticated-no-role"
	PhaseAuthenticatedWithRole Phase = "authenticated"
)

// Snapshot is the immutable view consumers act on.
type Snapshot struct {
	Phase  Phase       `json:"phase"`
	UserID string      `json:"userId,omitempty"`
	Role   models.Role `json:"role,omitempty"`
}

// Unauthenticated is the starting snapshot of every request.
func Unauthenticated() Snapshot {
	return Snapshot{Phase: PhaseUnauthenticated}
}

// Authenticating records a verified session for userID.
func (s Snapshot) Authenticating(userID string) (Snapshot, error) {
	if s.Phase != PhaseUnauthenticated {
		return s, fmt.Errorf("session: cannot authenticate from phase %s", s.Phase)
	}
	if userID == "" {
		return s, fmt.Errorf("session: empty user id")
	}
	return Snapshot{Phase: PhaseAuthenticating, UserID: userID}, nil
}

// WithRole completes the second phase with the resolved effective role.
func (s Snapshot) WithRole(role models.Role) (Snapshot, error) {
	if s.Phase != PhaseAuthenticating {
		return s, fmt.Errorf("session: cannot resolve role from phase %s", s.Phase)
	}
	if role == models.RoleNone {
		return Snapshot{Phase: PhaseAuthenticatedNoRole, UserID: s.UserID}, nil
	}
	return Snapshot{Phase: PhaseAuthenticatedWithRole, UserID: s.UserID, Role: role}, nil
}

// Authenticated reports whether both phases completed.
func (s Snapshot) Authenticated() bool {
	return s.Phase == PhaseAuthenticatedNoRole || s.Phase == PhaseAuthenticatedWithRole
}

// Is reports whether the effective role equals role.
func (s Snapshot) Is(role models.Role) bool {
	return s.Phase == PhaseAuthenticatedWithRole && s.Role == role
}

// DashboardRole selects the dashboard. Principals without a role row get
// the patient view.
func (s Snapshot) DashboardRole() models.Role {
	switch s.Phase {
	case PhaseAuthenticatedWithRole:
		return s.Role
	case PhaseAuthenticatedNoRole:
		return models.RolePatient
	}
	return models.RoleNone
}

type ctxKey struct{}

// NewContext returns ctx carrying s.
func NewContext(ctx context.Context, s Snapshot) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the snapshot in ctx, or Unauthenticated.
func FromContext(ctx context.Context) Snapshot {
	if s, ok := ctx.Value(ctxKey{}).(Snapshot); ok {
		return s
	}
	return Unauthenticated()
}
