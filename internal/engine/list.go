package engine

import (
	"github.com/frahmantamala/workforce-management/internal/authz"
	"github.com/frahmantamala/workforce-management/internal/core/entity"
	"github.com/frahmantamala/workforce-management/internal/store"
)

// list returns the records of the intent's type visible to the principal,
// narrowed by the query.
func (ev *evaluation) list() (*Result, error) {
	if err := authz.Authorize(&authz.Facts{
		Principal: ev.principal,
		Operation: entity.OpList,
		Entity:    ev.intent.Entity,
	}).Err(); err != nil {
		return nil, err
	}

	scope := authz.ListScope(ev.principal, ev.intent.Entity)
	q := ev.intent.Query
	activeOnly := q.Active != nil && *q.Active

	var (
		records any
		err     error
	)
	switch ev.intent.Entity {
	case entity.TypeDepartment:
		var found []*entity.Department
		found, err = ev.tx.ListDepartments(store.DepartmentFilter{ActiveOnly: activeOnly})
		records = keep(found, func(d *entity.Department) bool { return matchesActive(q.Active, d.IsActive) })

	case entity.TypeTeam:
		var found []*entity.Team
		found, err = ev.tx.ListTeams(store.TeamFilter{
			DepartmentID: q.DepartmentID,
			ManagerID:    q.ManagerID,
			ActiveOnly:   activeOnly,
		})
		records = keep(found, func(t *entity.Team) bool { return matchesActive(q.Active, t.IsActive) })

	case entity.TypeProject:
		managerID, okM := narrow(scope.ManagerID, q.ManagerID)
		memberID, okU := narrow(scope.MemberID, q.UserID)
		if !okM || !okU {
			return &Result{Records: []*entity.Project{}}, nil
		}
		var found []*entity.Project
		found, err = ev.tx.ListProjects(store.ProjectFilter{
			TeamID:       q.TeamID,
			DepartmentID: q.DepartmentID,
			ManagerID:    managerID,
			MemberID:     memberID,
		})
		records = orEmpty(found)

	case entity.TypeAssignment:
		managerID, okM := narrow(scope.ManagerID, q.ManagerID)
		userID, okU := narrow(scope.UserID, q.UserID)
		if !okM || !okU {
			return &Result{Records: []*entity.Assignment{}}, nil
		}
		var found []*entity.Assignment
		found, err = ev.tx.ListAssignments(store.AssignmentFilter{
			ProjectID: q.ProjectID,
			UserID:    userID,
			ManagerID: managerID,
			Active:    q.Active,
		})
		records = orEmpty(found)

	case entity.TypeTask:
		managerID, okM := narrow(scope.ManagerID, q.ManagerID)
		assignedTo, okU := narrow(scope.AssignedTo, q.UserID)
		if !okM || !okU {
			return &Result{Records: []*entity.Task{}}, nil
		}
		var found []*entity.Task
		found, err = ev.tx.ListTasks(store.TaskFilter{ProjectID: q.ProjectID, AssignedTo: assignedTo, ManagerID: managerID})
		records = orEmpty(found)

	case entity.TypeUser:
		var found []*entity.User
		found, err = ev.tx.ListUsers(store.UserFilter{TeamID: q.TeamID, ActiveOnly: activeOnly})
		records = keep(found, func(u *entity.User) bool {
			if !matchesActive(q.Active, u.IsActive) {
				return false
			}
			return scope.All || u.ID == scope.SelfID || (scope.TeamID != 0 && u.IsMemberOf(scope.TeamID))
		})
	}
	if err != nil {
		return nil, err
	}
	return &Result{Records: records}, nil
}

// narrow combines a scope restriction with a requested filter on the same
// field. It reports false when the two can never match.
func narrow(scoped, requested int64) (int64, bool) {
	switch {
	case scoped == 0:
		return requested, true
	case requested == 0 || requested == scoped:
		return scoped, true
	}
	return 0, false
}

func matchesActive(want *bool, active bool) bool {
	return want == nil || *want == active
}

func keep[T any](items []T, pred func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if pred(item) {
			out = append(out, item)
		}
	}
	return out
}

// orEmpty keeps empty listings rendering as [] rather than null.
func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
