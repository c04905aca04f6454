package consistency

import (
	"fmt"
	"strings"
	"time"

	"github.com/frahmantamala/workforce-management/internal"
	"github.com/frahmantamala/workforce-management/internal/authz"
	"github.com/frahmantamala/workforce-management/internal/core/entity"
	"github.com/frahmantamala/workforce-management/internal/store"
)

// ----------------- PROJECTS -----------------

// CreateProject binds the project to its team. The manager and, when not
// given, the department are taken from the team.
func (c *Engine) CreateProject(p authz.Principal, ch *entity.ProjectChanges) (*entity.Project, Derived, error) {
	var v internal.ValidationErrors
	required(&v, "name", ch.Name)
	required(&v, "code", ch.Code)
	if ch.TeamID == nil {
		v.Add("team_id", "team_id is required", internal.ErrCodeValidationFailed)
	}
	if ch.StartDate == nil {
		v.Add("start_date", "start_date is required", internal.ErrCodeValidationFailed)
	}
	if ch.Status != nil && !ch.Status.Valid() {
		v.Add("status", fmt.Sprintf("unknown status %q", *ch.Status), internal.ErrCodeValidationFailed)
	}
	if err := v.Err(); err != nil {
		return nil, nil, err
	}

	pr := &entity.Project{
		Name:      strings.TrimSpace(*ch.Name),
		Code:      strings.ToUpper(strings.TrimSpace(*ch.Code)),
		Status:    entity.ProjectPlanned,
		StartDate: *ch.StartDate,
		EndDate:   ch.EndDate,
		CreatedBy: entity.Ptr(p.ID),
		CreatedAt: c.now,
		UpdatedAt: c.now,
	}
	if ch.Description != nil {
		pr.Description = *ch.Description
	}
	if ch.Status != nil {
		pr.Status = *ch.Status
	}
	if err := c.bindProjectToTeam(pr, *ch.TeamID, ch.DepartmentID); err != nil {
		return nil, nil, err
	}
	if err := checkDates(pr.StartDate, pr.EndDate); err != nil {
		return nil, nil, err
	}
	if err := c.uniqueProject(pr); err != nil {
		return nil, nil, err
	}
	if err := c.tx.SaveProject(pr); err != nil {
		return nil, nil, err
	}
	return pr, Derived{"manager_id": idOf(pr.ManagerID), "department_id": pr.DepartmentID, "code": pr.Code}, nil
}

func (c *Engine) UpdateProject(pr *entity.Project, ch *entity.ProjectChanges) (*entity.Project, Derived, error) {
	var v internal.ValidationErrors
	notBlank(&v, "name", ch.Name)
	notBlank(&v, "code", ch.Code)
	if ch.Status != nil && !ch.Status.Valid() {
		v.Add("status", fmt.Sprintf("unknown status %q", *ch.Status), internal.ErrCodeValidationFailed)
	}
	if err := v.Err(); err != nil {
		return nil, nil, err
	}

	next := *pr
	if ch.Name != nil {
		next.Name = strings.TrimSpace(*ch.Name)
	}
	if ch.Code != nil {
		next.Code = strings.ToUpper(strings.TrimSpace(*ch.Code))
	}
	if ch.Description != nil {
		next.Description = *ch.Description
	}
	if ch.Status != nil {
		next.Status = *ch.Status
	}
	if ch.StartDate != nil {
		next.StartDate = *ch.StartDate
	}
	if ch.EndDate != nil {
		next.EndDate = ch.EndDate
	}

	derived := Derived{}
	if ch.TeamID != nil || ch.DepartmentID != nil {
		teamID := next.TeamID
		if ch.TeamID != nil {
			teamID = *ch.TeamID
		}
		if err := c.bindProjectToTeam(&next, teamID, ch.DepartmentID); err != nil {
			return nil, nil, err
		}
		if next.TeamID != pr.TeamID {
			derived.set("manager_id", idOf(next.ManagerID))
			derived.set("department_id", next.DepartmentID)
		}
	}
	if err := checkDates(next.StartDate, next.EndDate); err != nil {
		return nil, nil, err
	}
	next.UpdatedAt = c.now

	if err := c.uniqueProject(&next); err != nil {
		return nil, nil, err
	}
	if err := c.tx.SaveProject(&next); err != nil {
		return nil, nil, err
	}
	return &next, derived, nil
}

// bindProjectToTeam sets team, department and manager from the team. An
// explicit department must match the team's.
func (c *Engine) bindProjectToTeam(pr *entity.Project, teamID int64, departmentID *int64) error {
	t, err := c.activeTeam(teamID)
	if err != nil {
		return err
	}
	if departmentID != nil && *departmentID != t.DepartmentID {
		return internal.ErrDepartmentMismatch.WithDetails(map[string]int64{
			"department_id":      *departmentID,
			"team_department_id": t.DepartmentID,
		})
	}
	if !t.HasManager() {
		return internal.ErrTeamWithoutManager
	}
	pr.TeamID = t.ID
	pr.DepartmentID = t.DepartmentID
	pr.ManagerID = entity.Ptr(*t.ManagerID)
	return nil
}

func checkDates(start time.Time, end *time.Time) error {
	if end != nil && end.Before(start) {
		return internal.NewValidationFieldError("end_date", "end_date must not be before start_date", internal.ErrCodeInvalidDateRange)
	}
	return nil
}

func (c *Engine) uniqueProject(pr *entity.Project) error {
	byCode, err := c.tx.ListProjects(store.ProjectFilter{Code: pr.Code})
	if err != nil {
		return err
	}
	for _, other := range byCode {
		if other.ID != pr.ID {
			return duplicate("code", pr.Code)
		}
	}
	return nil
}

// ----------------- ASSIGNMENTS -----------------

func (c *Engine) CreateAssignment(p authz.Principal, ch *entity.AssignmentChanges) (*entity.Assignment, Derived, error) {
	var v internal.ValidationErrors
	if ch.ProjectID == nil {
		v.Add("project_id", "project_id is required", internal.ErrCodeValidationFailed)
	}
	if ch.UserID == nil {
		v.Add("user_id", "user_id is required", internal.ErrCodeValidationFailed)
	}
	if ch.Role == nil {
		v.Add("role", "role is required", internal.ErrCodeValidationFailed)
	} else if !ch.Role.Valid() {
		v.Add("role", fmt.Sprintf("unknown assignment role %q", *ch.Role), internal.ErrCodeValidationFailed)
	}
	if err := v.Err(); err != nil {
		return nil, nil, err
	}

	a := &entity.Assignment{
		ProjectID:  *ch.ProjectID,
		UserID:     *ch.UserID,
		Role:       *ch.Role,
		AssignedBy: entity.Ptr(p.ID),
		IsActive:   true,
		AssignedAt: c.now,
		UpdatedAt:  c.now,
	}
	if ch.IsActive != nil {
		a.IsActive = *ch.IsActive
	}
	if err := c.checkAssignable(a); err != nil {
		return nil, nil, err
	}
	if err := c.saveAssignment(a); err != nil {
		return nil, nil, err
	}
	return a, Derived{"is_active": a.IsActive}, nil
}

// UpdateAssignment changes the role tag or the active flag. Project and user
// are fixed for the life of the assignment.
func (c *Engine) UpdateAssignment(a *entity.Assignment, ch *entity.AssignmentChanges) (*entity.Assignment, Derived, error) {
	var v internal.ValidationErrors
	if ch.ProjectID != nil && *ch.ProjectID != a.ProjectID {
		v.Add("project_id", "the project of an assignment cannot change", internal.ErrCodeValidationFailed)
	}
	if ch.UserID != nil && *ch.UserID != a.UserID {
		v.Add("user_id", "the user of an assignment cannot change", internal.ErrCodeValidationFailed)
	}
	if ch.Role != nil && !ch.Role.Valid() {
		v.Add("role", fmt.Sprintf("unknown assignment role %q", *ch.Role), internal.ErrCodeValidationFailed)
	}
	if err := v.Err(); err != nil {
		return nil, nil, err
	}

	next := *a
	if ch.Role != nil {
		next.Role = *ch.Role
	}
	derived := Derived{}
	if ch.IsActive != nil {
		switch {
		case !*ch.IsActive && !a.IsActive:
			return nil, nil, internal.ErrAlreadyInactive
		case *ch.IsActive && !a.IsActive:
			next.IsActive = true
			next.AssignedAt = c.now
			if err := c.checkAssignable(&next); err != nil {
				return nil, nil, err
			}
			derived.set("assigned_at", next.AssignedAt)
		case !*ch.IsActive:
			next.IsActive = false
		}
		derived.set("is_active", next.IsActive)
	}
	next.UpdatedAt = c.now

	if err := c.saveAssignment(&next); err != nil {
		return nil, nil, err
	}
	return &next, derived, nil
}

func (c *Engine) DeactivateAssignment(a *entity.Assignment) (*entity.Assignment, error) {
	if !a.IsActive {
		return nil, internal.ErrAlreadyInactive
	}
	next := *a
	next.Deactivate(c.now)
	if err := c.saveAssignment(&next); err != nil {
		return nil, err
	}
	return &next, nil
}

// checkAssignable verifies a new or reactivated assignment: the user must be
// an active member of the project's team, and an active assignment must not
// collide with another one on the project.
func (c *Engine) checkAssignable(a *entity.Assignment) error {
	pr, err := c.project(a.ProjectID)
	if err != nil {
		return err
	}
	u, err := c.activeUser(a.UserID)
	if err != nil {
		return err
	}
	if !u.IsMemberOf(pr.TeamID) {
		return internal.ErrNotTeamMember
	}
	if !a.IsActive {
		return nil
	}
	active, err := c.HasActiveAssignment(pr.ID, u.ID)
	if err != nil {
		return err
	}
	if active {
		return internal.ErrDuplicateAssignment
	}
	return nil
}

// saveAssignment maps a unique index hit to the duplicate assignment
// violation, covering writers that raced past checkAssignable.
func (c *Engine) saveAssignment(a *entity.Assignment) error {
	err := c.tx.SaveAssignment(a)
	if store.IsConflict(err) {
		return internal.ErrDuplicateAssignment.WithCause(err)
	}
	return err
}

// ----------------- TASKS -----------------

func (c *Engine) CreateTask(p authz.Principal, ch *entity.TaskChanges) (*entity.Task, Derived, error) {
	var v internal.ValidationErrors
	if ch.ProjectID == nil {
		v.Add("project_id", "project_id is required", internal.ErrCodeValidationFailed)
	}
	required(&v, "title", ch.Title)
	validateTaskEnums(&v, ch)
	if ch.EstimatedHours != nil && *ch.EstimatedHours < 0 {
		v.Add("estimated_hours", "estimated_hours cannot be negative", internal.ErrCodeValidationFailed)
	}
	if err := v.Err(); err != nil {
		return nil, nil, err
	}

	pr, err := c.project(*ch.ProjectID)
	if err != nil {
		return nil, nil, err
	}

	t := &entity.Task{
		ProjectID: pr.ID,
		Title:     strings.TrimSpace(*ch.Title),
		Priority:  entity.PriorityMedium,
		Status:    entity.TaskTodo,
		CreatedBy: entity.Ptr(p.ID),
		CreatedAt: c.now,
		UpdatedAt: c.now,
	}
	if ch.Description != nil {
		t.Description = *ch.Description
	}
	if ch.Priority != nil {
		t.Priority = *ch.Priority
	}
	if ch.Status != nil {
		t.Status = *ch.Status
	}
	if ch.EstimatedHours != nil {
		t.EstimatedHours = *ch.EstimatedHours
	}
	t.DueDate = ch.DueDate
	if ch.AssignedTo != nil && *ch.AssignedTo != 0 {
		if err := c.checkAssignee(p, pr.ID, *ch.AssignedTo); err != nil {
			return nil, nil, err
		}
		t.AssignedTo = entity.Ptr(*ch.AssignedTo)
	}

	derived := Derived{}
	c.deriveStatus(t, "", derived)
	if err := c.tx.SaveTask(t); err != nil {
		return nil, nil, err
	}
	return t, derived, nil
}

// UpdateTask applies a change the lifecycle rules already allowed and
// re-derives the status fields.
func (c *Engine) UpdateTask(p authz.Principal, t *entity.Task, ch *entity.TaskChanges) (*entity.Task, Derived, error) {
	var v internal.ValidationErrors
	if ch.ProjectID != nil && *ch.ProjectID != t.ProjectID {
		v.Add("project_id", "a task cannot move between projects", internal.ErrCodeValidationFailed)
	}
	notBlank(&v, "title", ch.Title)
	validateTaskEnums(&v, ch)
	if ch.EstimatedHours != nil && *ch.EstimatedHours < 0 {
		v.Add("estimated_hours", "estimated_hours cannot be negative", internal.ErrCodeValidationFailed)
	}
	if err := v.Err(); err != nil {
		return nil, nil, err
	}

	next := *t
	if ch.Title != nil {
		next.Title = strings.TrimSpace(*ch.Title)
	}
	if ch.Description != nil {
		next.Description = *ch.Description
	}
	if ch.Priority != nil {
		next.Priority = *ch.Priority
	}
	if ch.EstimatedHours != nil {
		next.EstimatedHours = *ch.EstimatedHours
	}
	if ch.DueDate != nil {
		next.DueDate = ch.DueDate
	}
	if ch.AssignedTo != nil {
		if *ch.AssignedTo == 0 {
			next.AssignedTo = nil
		} else if !t.IsAssignedTo(*ch.AssignedTo) {
			if err := c.checkAssignee(p, t.ProjectID, *ch.AssignedTo); err != nil {
				return nil, nil, err
			}
			next.AssignedTo = entity.Ptr(*ch.AssignedTo)
		}
	}

	derived := Derived{}
	if ch.Status != nil {
		next.Status = *ch.Status
		c.deriveStatus(&next, t.Status, derived)
	}
	next.UpdatedAt = c.now

	if err := c.tx.SaveTask(&next); err != nil {
		return nil, nil, err
	}
	return &next, derived, nil
}

// checkAssignee requires an active user; non-admins may only hand tasks to
// users actively assigned to the project.
func (c *Engine) checkAssignee(p authz.Principal, projectID, userID int64) error {
	if _, err := c.activeUser(userID); err != nil {
		return err
	}
	if p.IsAdmin() {
		return nil
	}
	on, err := c.HasActiveAssignment(projectID, userID)
	if err != nil {
		return err
	}
	if !on {
		return internal.ErrAssigneeNotOnProject
	}
	return nil
}

// deriveStatus recomputes the status order and stamps the first start and
// the completion time.
func (c *Engine) deriveStatus(t *entity.Task, previous entity.TaskStatus, derived Derived) {
	t.StatusOrder = t.Status.Order()
	derived.set("status_order", t.StatusOrder)

	if t.Status == entity.TaskInProgress && t.StartedAt == nil {
		t.StartedAt = entity.Ptr(c.now)
		derived.set("started_at", c.now)
	}
	if t.Status == entity.TaskDone && previous != entity.TaskDone {
		t.CompletedAt = entity.Ptr(c.now)
		derived.set("completed_at", c.now)
	}
}

func validateTaskEnums(v *internal.ValidationErrors, ch *entity.TaskChanges) {
	if ch.Priority != nil && !ch.Priority.Valid() {
		v.Add("priority", fmt.Sprintf("unknown priority %q", *ch.Priority), internal.ErrCodeValidationFailed)
	}
	if ch.Status != nil && !ch.Status.Valid() {
		v.Add("status", fmt.Sprintf("unknown status %q", *ch.Status), internal.ErrCodeValidationFailed)
	}
}
