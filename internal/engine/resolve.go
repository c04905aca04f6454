package engine

import (
	"github.com/frahmantamala/workforce-management/internal"
	"github.com/frahmantamala/workforce-management/internal/authz"
	"github.com/frahmantamala/workforce-management/internal/core/entity"
	"github.com/frahmantamala/workforce-management/internal/store"
)

// resolve loads the target and the related records the policy rules look at.
func (ev *evaluation) resolve() (*authz.Facts, error) {
	in := ev.intent
	f := &authz.Facts{
		Principal: ev.principal,
		Operation: in.Operation,
		Entity:    in.Entity,
		TargetID:  in.ID,
		Changes:   in.Changes,
	}

	var err error
	switch in.Entity {
	case entity.TypeDepartment:
		err = ev.resolveDepartment()
	case entity.TypeTeam:
		err = ev.resolveTeam(f)
	case entity.TypeProject:
		err = ev.resolveProject(f)
	case entity.TypeAssignment:
		err = ev.resolveAssignment(f)
	case entity.TypeTask:
		err = ev.resolveTask(f)
	case entity.TypeUser:
		err = ev.resolveUser(f)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (ev *evaluation) isCreate() bool {
	return ev.intent.Operation == entity.OpCreate
}

func (ev *evaluation) resolveDepartment() error {
	if ev.isCreate() {
		return nil
	}
	d, err := ev.tx.GetDepartment(ev.intent.ID)
	if err != nil {
		return missing("department", ev.intent.ID, err)
	}
	ev.department = d
	return nil
}

func (ev *evaluation) resolveTeam(f *authz.Facts) error {
	if ev.isCreate() {
		return nil
	}
	t, err := ev.tx.GetTeam(ev.intent.ID)
	if err != nil {
		return missing("team", ev.intent.ID, err)
	}
	f.Team = t
	return nil
}

func (ev *evaluation) resolveProject(f *authz.Facts) error {
	if ev.isCreate() {
		ch := ev.intent.Changes.(*entity.ProjectChanges)
		if ch.TeamID == nil {
			return internal.NewValidationFieldError("team_id", "team_id is required", internal.ErrCodeValidationFailed)
		}
		t, err := ev.tx.GetTeam(*ch.TeamID)
		if err != nil {
			return missing("team", *ch.TeamID, err)
		}
		f.Team = t
		return nil
	}

	p, err := ev.tx.GetProject(ev.intent.ID)
	if err != nil {
		return missing("project", ev.intent.ID, err)
	}
	f.Project = p
	if t, err := ev.tx.GetTeam(p.TeamID); err == nil {
		f.Team = t
	} else if !store.IsNotFound(err) {
		return err
	}

	if ch, ok := ev.intent.Changes.(*entity.ProjectChanges); ok && ch.TeamID != nil && *ch.TeamID != p.TeamID {
		t, err := ev.tx.GetTeam(*ch.TeamID)
		if err != nil {
			return missing("team", *ch.TeamID, err)
		}
		f.NewTeam = t
	}

	if ev.intent.Operation == entity.OpRead {
		on, err := ev.c.HasActiveAssignment(p.ID, ev.principal.ID)
		if err != nil {
			return err
		}
		f.OnProject = on
	}
	return nil
}

func (ev *evaluation) resolveAssignment(f *authz.Facts) error {
	projectID := int64(0)
	if ev.isCreate() {
		ch := ev.intent.Changes.(*entity.AssignmentChanges)
		if ch.ProjectID == nil {
			return internal.NewValidationFieldError("project_id", "project_id is required", internal.ErrCodeValidationFailed)
		}
		projectID = *ch.ProjectID
	} else {
		a, err := ev.tx.GetAssignment(ev.intent.ID)
		if err != nil {
			return missing("assignment", ev.intent.ID, err)
		}
		f.Assignment = a
		projectID = a.ProjectID
	}
	return ev.owningProject(f, projectID)
}

func (ev *evaluation) resolveTask(f *authz.Facts) error {
	projectID := int64(0)
	if ev.isCreate() {
		ch := ev.intent.Changes.(*entity.TaskChanges)
		if ch.ProjectID == nil {
			return internal.NewValidationFieldError("project_id", "project_id is required", internal.ErrCodeValidationFailed)
		}
		projectID = *ch.ProjectID
	} else {
		t, err := ev.tx.GetTask(ev.intent.ID)
		if err != nil {
			return missing("task", ev.intent.ID, err)
		}
		f.Task = t
		projectID = t.ProjectID
	}
	return ev.owningProject(f, projectID)
}

func (ev *evaluation) owningProject(f *authz.Facts, projectID int64) error {
	p, err := ev.tx.GetProject(projectID)
	if err != nil {
		return missing("project", projectID, err)
	}
	f.Project = p
	return nil
}

func (ev *evaluation) resolveUser(f *authz.Facts) error {
	if ev.isCreate() {
		return nil
	}
	u, err := ev.tx.GetUser(ev.intent.ID)
	if err != nil {
		return missing("user", ev.intent.ID, err)
	}
	f.User = u
	return nil
}

func missing(kind string, id int64, err error) error {
	if store.IsNotFound(err) {
		return internal.NotFoundf(kind, id)
	}
	return err
}
