// Package lifecycle validates task updates against the status state machine
// and the role of the actor.
package lifecycle

import (
	"fmt"

	"github.com/frahmantamala/workforce-management/internal"
	"github.com/frahmantamala/workforce-management/internal/authz"
	"github.com/frahmantamala/workforce-management/internal/core/entity"
	"github.com/frahmantamala/workforce-management/internal/core/role"
)

// employeeTransitions is the only set of moves an assignee may make. Blocked
// has no entry: only a manager or an admin can unblock. Done is terminal for
// everyone.
var employeeTransitions = map[entity.TaskStatus][]entity.TaskStatus{
	entity.TaskTodo:       {entity.TaskInProgress, entity.TaskBlocked},
	entity.TaskInProgress: {entity.TaskTodo, entity.TaskReview, entity.TaskBlocked, entity.TaskDone},
	entity.TaskReview:     {entity.TaskInProgress, entity.TaskBlocked, entity.TaskDone},
}

// CanTransition reports whether a principal of role r may move a task from
// one status to another. Staying in the same non-terminal status is always
// allowed.
func CanTransition(r role.Role, from, to entity.TaskStatus) bool {
	if from.IsTerminal() || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	switch r {
	case role.Admin, role.Manager:
		return from.Valid()
	case role.Employee:
		for _, allowed := range employeeTransitions[from] {
			if allowed == to {
				return true
			}
		}
	}
	return false
}

// Input is a proposed update of an existing task.
type Input struct {
	Principal authz.Principal
	Task      *entity.Task
	Project   *entity.Project
	Changes   *entity.TaskChanges
	// AssigneeOnProject reports whether the proposed assignee holds an
	// active assignment on the task's project.
	AssigneeOnProject bool
}

// CheckUpdate returns nil when the update is allowed, an
// ImmutableStateViolation for any change to a done task and an
// AuthorizationDenied otherwise.
func CheckUpdate(in Input) error {
	task, c, p := in.Task, in.Changes, in.Principal
	if task.IsDone() {
		return internal.ErrTaskDone
	}
	if c == nil {
		c = &entity.TaskChanges{}
	}
	if c.Status != nil && !c.Status.Valid() {
		return internal.NewValidationFieldError("status", fmt.Sprintf("unknown status %q", *c.Status), internal.ErrCodeValidationFailed)
	}

	switch {
	case p.IsAdmin():
		return nil
	case p.IsManager() && in.Project != nil && in.Project.IsManagedBy(p.ID):
		return checkManager(in, c)
	case p.Role == role.Employee && task.IsAssignedTo(p.ID):
		return checkAssignee(task, c)
	case p.Role == role.Employee:
		return internal.NewAuthorizationDenied("this task is not assigned to you", internal.ErrCodeNotAssignee)
	default:
		return internal.NewAuthorizationDenied("you do not manage this task's project", internal.ErrCodeNotProjectManager)
	}
}

func checkManager(in Input, c *entity.TaskChanges) error {
	if c.Status != nil && !CanTransition(role.Manager, in.Task.Status, *c.Status) {
		return transitionDenied(in.Task.Status, *c.Status)
	}
	if reassigns(in.Task, c) && !in.AssigneeOnProject {
		return internal.ErrAssigneeNotOnProject
	}
	return nil
}

func checkAssignee(task *entity.Task, c *entity.TaskChanges) error {
	if c.AssignedTo != nil {
		return internal.NewAuthorizationDenied("employees cannot reassign tasks", internal.ErrCodeReassignDenied)
	}
	if c.Status == nil || !c.OnlyStatus() {
		return internal.NewAuthorizationDenied("employees may only change the status of a task", internal.ErrCodeFieldForbidden)
	}
	to := *c.Status
	if task.Status == entity.TaskBlocked && to != entity.TaskBlocked {
		return internal.NewAuthorizationDenied("only a manager can unblock a task", internal.ErrCodeTransitionDenied)
	}
	if !CanTransition(role.Employee, task.Status, to) {
		return transitionDenied(task.Status, to)
	}
	return nil
}

// reassigns reports whether the change points the task at a different, non
// empty assignee.
func reassigns(task *entity.Task, c *entity.TaskChanges) bool {
	if c.AssignedTo == nil || *c.AssignedTo == 0 {
		return false
	}
	return !task.IsAssignedTo(*c.AssignedTo)
}

func transitionDenied(from, to entity.TaskStatus) error {
	return internal.NewAuthorizationDenied(fmt.Sprintf("transition %s -> %s is not allowed", from, to), internal.ErrCodeTransitionDenied)
}
