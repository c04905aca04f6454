// Package authz decides whether a principal may perform an operation on an
// entity. Decisions are pure functions of the principal, the resolved entity
// facts and the proposed change; the package never touches the store.
package authz

import (
	"context"

	"github.com/frahmantamala/workforce-management/internal/core/entity"
	"github.com/frahmantamala/workforce-management/internal/core/role"
)

// Principal is the authenticated actor of a request.
type Principal struct {
	ID           int64     `json:"id"`
	Role         role.Role `json:"role"`
	TeamID       *int64    `json:"team_id,omitempty"`
	DepartmentID *int64    `json:"department_id,omitempty"`
}

func PrincipalOf(u *entity.User) Principal {
	return Principal{
		ID:           u.ID,
		Role:         u.Role,
		TeamID:       u.TeamID,
		DepartmentID: u.DepartmentID,
	}
}

func (p Principal) IsAdmin() bool {
	return p.Role == role.Admin
}

func (p Principal) IsManager() bool {
	return p.Role == role.Manager
}

func (p Principal) OnTeam(teamID int64) bool {
	return p.TeamID != nil && *p.TeamID == teamID
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
