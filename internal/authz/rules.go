package authz

import (
	"github.com/frahmantamala/workforce-management/internal"
	"github.com/frahmantamala/workforce-management/internal/core/entity"
	"github.com/frahmantamala/workforce-management/internal/core/role"
)

// Predicate decides a single grant.
type Predicate func(f *Facts) Decision

// Grant is what one role may do for one (entity, operation) pair. A nil
// Check allows unconditionally.
type Grant struct {
	Label string
	Check Predicate
}

// Rule maps a role to its grant. A role with no entry is denied.
type Rule map[role.Role]Grant

var everyone = Grant{Label: "all"}

// rules lists the grants of non-admin roles. Admins are allowed everything
// that is not unsupported, so they have no entries here.
var rules = map[entity.Type]map[entity.Operation]Rule{
	entity.TypeDepartment: {
		entity.OpRead: {role.Manager: everyone, role.Employee: everyone},
		entity.OpList: {role.Manager: everyone, role.Employee: everyone},
	},
	entity.TypeTeam: {
		entity.OpRead:       {role.Manager: everyone, role.Employee: everyone},
		entity.OpList:       {role.Manager: everyone, role.Employee: everyone},
		entity.OpCreate:     {role.Manager: {Label: "teams they will manage", Check: createsOwnTeam}},
		entity.OpUpdate:     {role.Manager: {Label: "own team", Check: managesTargetTeam}},
		entity.OpDeactivate: {role.Manager: {Label: "own team", Check: managesTargetTeam}},
	},
	entity.TypeProject: {
		entity.OpRead: {
			role.Manager:  {Label: "managed projects", Check: managesProject},
			role.Employee: {Label: "assigned projects", Check: assignedToProject},
		},
		entity.OpList: {
			role.Manager:  {Label: "managed projects"},
			role.Employee: {Label: "assigned projects"},
		},
		entity.OpCreate: {role.Manager: {Label: "on a team they manage", Check: managesTargetTeam}},
		entity.OpUpdate: {role.Manager: {Label: "managed projects", Check: updatesManagedProject}},
	},
	entity.TypeAssignment: {
		entity.OpRead: {
			role.Manager:  {Label: "managed projects", Check: managesProject},
			role.Employee: {Label: "own", Check: ownsAssignment},
		},
		entity.OpList: {
			role.Manager:  {Label: "managed projects"},
			role.Employee: {Label: "own"},
		},
		entity.OpCreate:     {role.Manager: {Label: "managed projects", Check: managesProject}},
		entity.OpUpdate:     {role.Manager: {Label: "managed projects", Check: managesProject}},
		entity.OpDeactivate: {role.Manager: {Label: "managed projects", Check: managesProject}},
	},
	entity.TypeTask: {
		entity.OpRead: {
			role.Manager:  {Label: "managed projects", Check: managesProject},
			role.Employee: {Label: "assigned", Check: assignedToTask},
		},
		entity.OpList: {
			role.Manager:  {Label: "managed projects"},
			role.Employee: {Label: "assigned"},
		},
		entity.OpCreate: {role.Manager: {Label: "managed projects", Check: managesProject}},
		// Task updates are decided by the lifecycle rules.
		entity.OpUpdate: {
			role.Manager:  {Label: "managed projects, lifecycle"},
			role.Employee: {Label: "assigned, status only"},
		},
	},
	entity.TypeUser: {
		entity.OpRead: {
			role.Manager:  {Label: "own team and self", Check: readsUser},
			role.Employee: {Label: "self", Check: readsUser},
		},
		entity.OpList: {
			role.Manager:  {Label: "own team and self"},
			role.Employee: {Label: "self"},
		},
		entity.OpCreate:     {role.Manager: {Label: "employees on own team", Check: createsEmployee}},
		entity.OpUpdate:     {role.Manager: {Label: "employees on own team, self profile", Check: updatesUser}, role.Employee: {Label: "own name and email", Check: updatesUser}},
		entity.OpDeactivate: {role.Manager: {Label: "employees on own team", Check: managesTargetUser}},
	},
}

func lookup(e entity.Type, op entity.Operation, r role.Role) (Grant, bool) {
	grant, ok := rules[e][op][r]
	return grant, ok
}

func decide(ok bool, code internal.ErrorCode, reason string) Decision {
	if ok {
		return Allow()
	}
	return Deny(code, reason)
}

func fromErr(err error) Decision {
	if err == nil {
		return Allow()
	}
	if appErr, ok := internal.IsAppError(err); ok {
		return Deny(appErr.Code, appErr.Message)
	}
	return Deny(internal.ErrCodeOutOfScope, err.Error())
}

func createsOwnTeam(f *Facts) Decision {
	c, _ := f.Changes.(*entity.TeamChanges)
	if c == nil || c.ManagerID == nil || *c.ManagerID == f.Principal.ID {
		return Allow()
	}
	return Deny(internal.ErrCodeNotTeamManager, "managers can only create teams they manage")
}

func managesTargetTeam(f *Facts) Decision {
	return decide(f.principalManagesTeam(f.Team), internal.ErrCodeNotTeamManager, "you do not manage this team")
}

func managesProject(f *Facts) Decision {
	return decide(f.principalManagesProject(), internal.ErrCodeNotProjectManager, "you do not manage this project")
}

func updatesManagedProject(f *Facts) Decision {
	if d := managesProject(f); !d.Allowed {
		return d
	}
	if f.NewTeam != nil && !f.principalManagesTeam(f.NewTeam) {
		return Deny(internal.ErrCodeNotTeamManager, "you do not manage the destination team")
	}
	return Allow()
}

func assignedToProject(f *Facts) Decision {
	return decide(f.OnProject, internal.ErrCodeOutOfScope, "you are not assigned to this project")
}

func ownsAssignment(f *Facts) Decision {
	ok := f.Assignment != nil && f.Assignment.UserID == f.Principal.ID
	return decide(ok, internal.ErrCodeOutOfScope, "this assignment is not yours")
}

func assignedToTask(f *Facts) Decision {
	ok := f.Task != nil && f.Task.IsAssignedTo(f.Principal.ID)
	return decide(ok, internal.ErrCodeNotAssignee, "this task is not assigned to you")
}

func readsUser(f *Facts) Decision {
	if f.TargetID == f.Principal.ID {
		return Allow()
	}
	if f.Principal.IsManager() && f.User != nil && f.User.TeamID != nil && f.Principal.OnTeam(*f.User.TeamID) {
		return Allow()
	}
	return Deny(internal.ErrCodeOutOfScope, "you cannot view this user")
}

func createsEmployee(f *Facts) Decision {
	c, _ := f.Changes.(*entity.UserChanges)
	target := role.Employee
	if c != nil && c.Role != nil {
		target = *c.Role
	}
	if !role.CanAssign(f.Principal.Role, target) {
		return denyWith(internal.ErrRoleNotAssignable)
	}
	if c != nil && c.TeamID != nil && *c.TeamID != 0 && !f.Principal.OnTeam(*c.TeamID) {
		return Deny(internal.ErrCodeOutOfScope, "managers can only add users to their own team")
	}
	return Allow()
}

func managesTargetUser(f *Facts) Decision {
	if f.User == nil {
		return Deny(internal.ErrCodeOutOfScope, "you cannot manage this user")
	}
	return fromErr(CanManageUser(f.Principal, f.User))
}

func updatesUser(f *Facts) Decision {
	c, _ := f.Changes.(*entity.UserChanges)
	if c == nil || f.User == nil {
		return Deny(internal.ErrCodeOutOfScope, "you cannot manage this user")
	}
	if c.TeamID != nil && f.User.TeamID != nil && *c.TeamID != *f.User.TeamID {
		return Deny(internal.ErrCodeTeamChangeForbidden, "changing team membership requires an administrator")
	}

	if f.TargetID == f.Principal.ID {
		if c.OnlyProfile() {
			return Allow()
		}
		return Deny(internal.ErrCodeFieldForbidden, "you may only update your own name and email")
	}
	if !f.Principal.IsManager() {
		return Deny(internal.ErrCodeOutOfScope, "you cannot manage this user")
	}

	if err := CanManageUser(f.Principal, f.User); err != nil {
		return fromErr(err)
	}
	if c.Role != nil && !role.CanAssign(f.Principal.Role, *c.Role) {
		return denyWith(internal.ErrRoleNotAssignable)
	}
	if c.TeamID != nil && *c.TeamID != 0 && !f.Principal.OnTeam(*c.TeamID) {
		return Deny(internal.ErrCodeOutOfScope, "managers can only add users to their own team")
	}
	return Allow()
}
