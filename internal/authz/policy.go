package authz

import (
	"fmt"
	"strings"

	"github.com/frahmantamala/workforce-management/internal"
	"github.com/frahmantamala/workforce-management/internal/core/entity"
	"github.com/frahmantamala/workforce-management/internal/core/role"
)

// Facts is everything a decision may look at. The caller resolves the
// records that apply to the operation and leaves the rest nil.
type Facts struct {
	Principal Principal
	Operation entity.Operation
	Entity    entity.Type
	TargetID  int64
	Changes   entity.Changes

	// Team is the team under operation, or the team a project is bound to
	// (the requested team on project create).
	Team *entity.Team
	// NewTeam is the team a project is being moved to.
	NewTeam *entity.Team
	// Project is the project under operation, or the project owning the
	// assignment or task.
	Project    *entity.Project
	Assignment *entity.Assignment
	Task       *entity.Task
	User       *entity.User
	// OnProject reports whether the principal holds an active assignment on
	// Project.
	OnProject bool
}

type Decision struct {
	Allowed bool               `json:"allowed"`
	Code    internal.ErrorCode `json:"code,omitempty"`
	Reason  string             `json:"reason,omitempty"`
}

func Allow() Decision {
	return Decision{Allowed: true}
}

func Deny(code internal.ErrorCode, reason string) Decision {
	return Decision{Code: code, Reason: reason}
}

func denyWith(err *internal.AppError) Decision {
	return Deny(err.Code, err.Message)
}

// Err returns nil for an allowed decision and an AuthorizationDenied error
// otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return internal.NewAuthorizationDenied(d.Reason, d.Code)
}

// Authorize evaluates the rules in precedence order; the first one that
// applies decides.
func Authorize(f *Facts) Decision {
	p := f.Principal
	if !p.Role.Valid() {
		return Deny(internal.ErrCodeOutOfScope, "unknown role")
	}

	if RemovesSelf(p, f.Entity, f.Operation, f.TargetID, f.Changes) {
		return denyWith(internal.ErrSelfAction)
	}

	if reason, unsupported := Unsupported(f.Entity, f.Operation); unsupported {
		return Deny(internal.ErrCodeUnsupportedOp, reason)
	}

	if p.IsAdmin() {
		return Allow()
	}

	grant, ok := lookup(f.Entity, f.Operation, p.Role)
	if !ok {
		return defaultDeny(f)
	}
	if grant.Check == nil {
		return Allow()
	}
	return grant.Check(f)
}

// RemovesSelf reports whether the intent takes the principal's own user record
// out of service, either directly or by an update clearing is_active.
func RemovesSelf(p Principal, e entity.Type, op entity.Operation, targetID int64, ch entity.Changes) bool {
	if e != entity.TypeUser || targetID != p.ID {
		return false
	}
	if op.IsRemoval() {
		return true
	}
	uc, ok := ch.(*entity.UserChanges)
	return op == entity.OpUpdate && ok && uc != nil && uc.IsActive != nil && !*uc.IsActive
}

// Unsupported reports operations no role may perform.
func Unsupported(e entity.Type, op entity.Operation) (string, bool) {
	switch {
	case e == entity.TypeProject && op == entity.OpDelete:
		return "projects cannot be deleted, set status to CANCELLED instead", true
	case e == entity.TypeProject && op == entity.OpDeactivate:
		return "projects cannot be deactivated, set status to CANCELLED instead", true
	case e == entity.TypeTask && op == entity.OpDeactivate:
		return "tasks cannot be deactivated", true
	case op == entity.OpDelete && e != entity.TypeUser:
		return fmt.Sprintf("%ss cannot be deleted", e), true
	}
	return "", false
}

func defaultDeny(f *Facts) Decision {
	if f.Entity == entity.TypeDepartment {
		return Deny(internal.ErrCodeAdminOnly, "only administrators can manage departments")
	}
	if f.Entity == entity.TypeUser && f.Operation == entity.OpDelete {
		return Deny(internal.ErrCodeAdminOnly, "only administrators can delete users")
	}
	return Deny(internal.ErrCodeOutOfScope,
		fmt.Sprintf("%s cannot %s %ss", strings.ToLower(string(f.Principal.Role)), f.Operation, f.Entity))
}

func (f *Facts) principalManagesTeam(t *entity.Team) bool {
	return t != nil && t.IsManagedBy(f.Principal.ID)
}

func (f *Facts) principalManagesProject() bool {
	return f.Project != nil && f.Project.IsManagedBy(f.Principal.ID)
}

// CanManageUser reports whether a manager may act on the target user: the
// target must be an employee on the manager's team or on no team at all.
func CanManageUser(p Principal, target *entity.User) error {
	if target.Role != role.Employee {
		return internal.ErrEmployeesOnly
	}
	if target.TeamID != nil && !p.OnTeam(*target.TeamID) {
		return internal.NewAuthorizationDenied("user is not on your team", internal.ErrCodeOutOfScope)
	}
	return nil
}
