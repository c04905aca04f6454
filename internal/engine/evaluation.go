package engine

import (
	"time"

	"github.com/frahmantamala/workforce-management/internal"
	"github.com/frahmantamala/workforce-management/internal/authz"
	"github.com/frahmantamala/workforce-management/internal/consistency"
	"github.com/frahmantamala/workforce-management/internal/core/entity"
	"github.com/frahmantamala/workforce-management/internal/core/events"
	"github.com/frahmantamala/workforce-management/internal/lifecycle"
	"github.com/frahmantamala/workforce-management/internal/store"
)

// evaluation is one intent being run inside a transaction. Events are
// collected here and published only after the commit.
type evaluation struct {
	tx        store.Tx
	c         *consistency.Engine
	principal authz.Principal
	intent    Intent
	now       time.Time
	events    []events.Event

	// department is the addressed department; Facts has no slot for it.
	department *entity.Department
}

func (ev *evaluation) emit(e events.Event) {
	ev.events = append(ev.events, e)
}

func (ev *evaluation) dispatch() (*Result, error) {
	in := ev.intent

	// Rules that hold whatever the target is.
	if err := consistency.GuardSelf(ev.principal, in.Entity, in.Operation, in.ID, in.Changes); err != nil {
		return nil, err
	}
	if reason, unsupported := authz.Unsupported(in.Entity, in.Operation); unsupported {
		return nil, internal.NewAuthorizationDenied(reason, internal.ErrCodeUnsupportedOp)
	}

	if in.Operation == entity.OpList {
		return ev.list()
	}

	facts, err := ev.resolve()
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(facts).Err(); err != nil {
		return nil, err
	}

	switch in.Operation {
	case entity.OpRead:
		return &Result{Record: ev.target(facts)}, nil
	case entity.OpCreate:
		return ev.create()
	case entity.OpUpdate:
		return ev.update(facts)
	case entity.OpDeactivate:
		return ev.deactivate(facts)
	case entity.OpDelete:
		if err := ev.c.DeleteUser(facts.User); err != nil {
			return nil, err
		}
		return &Result{Record: facts.User}, nil
	}
	return nil, internal.NewBadRequestError("unsupported operation")
}

// target returns the record the intent addresses.
func (ev *evaluation) target(f *authz.Facts) any {
	switch ev.intent.Entity {
	case entity.TypeDepartment:
		return ev.department
	case entity.TypeTeam:
		return f.Team
	case entity.TypeProject:
		return f.Project
	case entity.TypeAssignment:
		return f.Assignment
	case entity.TypeTask:
		return f.Task
	case entity.TypeUser:
		return f.User
	}
	return nil
}

func (ev *evaluation) create() (*Result, error) {
	var (
		record  any
		derived consistency.Derived
		err     error
	)
	p := ev.principal
	switch ch := ev.intent.Changes.(type) {
	case *entity.DepartmentChanges:
		record, derived, err = ev.c.CreateDepartment(p, ch)
	case *entity.TeamChanges:
		record, derived, err = ev.c.CreateTeam(p, ch)
	case *entity.ProjectChanges:
		record, derived, err = ev.c.CreateProject(p, ch)
	case *entity.AssignmentChanges:
		var a *entity.Assignment
		a, derived, err = ev.c.CreateAssignment(p, ch)
		if err == nil && a.IsActive {
			ev.emit(events.NewAssignmentEvent(true, a.ID, a.ProjectID, a.UserID, p.ID, ev.now))
		}
		record = a
	case *entity.TaskChanges:
		record, derived, err = ev.c.CreateTask(p, ch)
	case *entity.UserChanges:
		record, derived, err = ev.c.CreateUser(ch)
	}
	if err != nil {
		return nil, err
	}
	return &Result{Record: record, Derived: derived}, nil
}

func (ev *evaluation) update(f *authz.Facts) (*Result, error) {
	p := ev.principal
	switch ch := ev.intent.Changes.(type) {
	case *entity.DepartmentChanges:
		d, derived, err := ev.c.UpdateDepartment(ev.department, ch)
		return result(d, derived, err)

	case *entity.TeamChanges:
		t, derived, err := ev.c.UpdateTeam(p, f.Team, ch)
		if err != nil {
			return nil, err
		}
		if managerID, changed := derived["manager_id"]; changed {
			projects, _ := derived["propagated_project_ids"].([]int64)
			ev.emit(events.NewTeamManagerChangedEvent(t.ID, idOf(f.Team.ManagerID), managerID.(int64), projects, p.ID, ev.now))
		}
		return result(t, derived, nil)

	case *entity.ProjectChanges:
		pr, derived, err := ev.c.UpdateProject(f.Project, ch)
		return result(pr, derived, err)

	case *entity.AssignmentChanges:
		a, derived, err := ev.c.UpdateAssignment(f.Assignment, ch)
		if err != nil {
			return nil, err
		}
		if a.IsActive != f.Assignment.IsActive {
			ev.emit(events.NewAssignmentEvent(a.IsActive, a.ID, a.ProjectID, a.UserID, p.ID, ev.now))
		}
		return result(a, derived, nil)

	case *entity.TaskChanges:
		if err := ev.checkLifecycle(f, ch); err != nil {
			return nil, err
		}
		t, derived, err := ev.c.UpdateTask(p, f.Task, ch)
		if err != nil {
			return nil, err
		}
		if t.Status != f.Task.Status {
			ev.emit(events.NewTaskStatusChangedEvent(t.ID, t.ProjectID, string(f.Task.Status), string(t.Status), p.ID, ev.now))
		}
		return result(t, derived, nil)

	case *entity.UserChanges:
		u, derived, err := ev.c.UpdateUser(f.User, ch)
		if err != nil {
			return nil, err
		}
		if f.User.IsActive && !u.IsActive {
			ev.emit(events.NewUserDeactivatedEvent(u.ID, p.ID, ev.now))
		}
		return result(u, derived, nil)
	}
	return nil, internal.NewBadRequestError("unsupported changes")
}

// checkLifecycle runs the task state machine. It precedes the consistency
// rules so a done task reports the immutable state first.
func (ev *evaluation) checkLifecycle(f *authz.Facts, ch *entity.TaskChanges) error {
	in := lifecycle.Input{
		Principal: ev.principal,
		Task:      f.Task,
		Project:   f.Project,
		Changes:   ch,
	}
	if ch.AssignedTo != nil && *ch.AssignedTo != 0 && !f.Task.IsDone() {
		on, err := ev.c.HasActiveAssignment(f.Task.ProjectID, *ch.AssignedTo)
		if err != nil {
			return err
		}
		in.AssigneeOnProject = on
	}
	return lifecycle.CheckUpdate(in)
}

func (ev *evaluation) deactivate(f *authz.Facts) (*Result, error) {
	p := ev.principal
	switch ev.intent.Entity {
	case entity.TypeDepartment:
		d, err := ev.c.DeactivateDepartment(ev.department)
		return result(d, nil, err)
	case entity.TypeTeam:
		t, err := ev.c.DeactivateTeam(f.Team)
		return result(t, nil, err)
	case entity.TypeAssignment:
		a, err := ev.c.DeactivateAssignment(f.Assignment)
		if err != nil {
			return nil, err
		}
		ev.emit(events.NewAssignmentEvent(false, a.ID, a.ProjectID, a.UserID, p.ID, ev.now))
		return result(a, nil, nil)
	case entity.TypeUser:
		u, err := ev.c.DeactivateUser(f.User)
		if err != nil {
			return nil, err
		}
		ev.emit(events.NewUserDeactivatedEvent(u.ID, p.ID, ev.now))
		return result(u, nil, nil)
	}
	return nil, internal.NewAuthorizationDenied(string(ev.intent.Entity)+"s cannot be deactivated", internal.ErrCodeUnsupportedOp)
}

func result(record any, derived consistency.Derived, err error) (*Result, error) {
	if err != nil {
		return nil, err
	}
	return &Result{Record: record, Derived: derived}, nil
}

func idOf(ptr *int64) int64 {
	if ptr == nil {
		return 0
	}
	return *ptr
}
