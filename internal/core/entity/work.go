package entity

import (
	"time"

	workDatamodel "github.com/frahmantamala/workforce-management/internal/core/datamodel/work"
)

type Project struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	Code         string        `json:"code"`
	Description  string        `json:"description,omitempty"`
	DepartmentID int64         `json:"department_id"`
	TeamID       int64         `json:"team_id"`
	ManagerID    *int64        `json:"manager_id,omitempty"`
	Status       ProjectStatus `json:"status"`
	StartDate    time.Time     `json:"start_date"`
	EndDate      *time.Time    `json:"end_date,omitempty"`
	CreatedBy    *int64        `json:"created_by,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func (p *Project) IsManagedBy(userID int64) bool {
	return p.ManagerID != nil && *p.ManagerID == userID
}

type Assignment struct {
	ID         int64          `json:"id"`
	ProjectID  int64          `json:"project_id"`
	UserID     int64          `json:"user_id"`
	Role       AssignmentRole `json:"role"`
	AssignedBy *int64         `json:"assigned_by,omitempty"`
	IsActive   bool           `json:"is_active"`
	AssignedAt time.Time      `json:"assigned_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func (a *Assignment) Deactivate(now time.Time) {
	a.IsActive = false
	a.UpdatedAt = now
}

type Task struct {
	ID             int64        `json:"id"`
	ProjectID      int64        `json:"project_id"`
	AssignedTo     *int64       `json:"assigned_to,omitempty"`
	Title          string       `json:"title"`
	Description    string       `json:"description,omitempty"`
	Priority       TaskPriority `json:"priority"`
	Status         TaskStatus   `json:"status"`
	StatusOrder    int          `json:"status_order"`
	EstimatedHours float64      `json:"estimated_hours"`
	DueDate        *time.Time   `json:"due_date,omitempty"`
	StartedAt      *time.Time   `json:"started_at,omitempty"`
	CompletedAt    *time.Time   `json:"completed_at,omitempty"`
	CreatedBy      *int64       `json:"created_by,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

func (t *Task) IsAssignedTo(userID int64) bool {
	return t.AssignedTo != nil && *t.AssignedTo == userID
}

func (t *Task) IsDone() bool {
	return t.Status.IsTerminal()
}

func ToProjectDataModel(p *Project) *workDatamodel.Project {
	return &workDatamodel.Project{
		ID:           p.ID,
		Name:         p.Name,
		Code:         p.Code,
		Description:  p.Description,
		DepartmentID: p.DepartmentID,
		TeamID:       p.TeamID,
		ManagerID:    p.ManagerID,
		Status:       string(p.Status),
		StartDate:    p.StartDate,
		EndDate:      p.EndDate,
		CreatedBy:    p.CreatedBy,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func FromProjectDataModel(p *workDatamodel.Project) *Project {
	return &Project{
		ID:           p.ID,
		Name:         p.Name,
		Code:         p.Code,
		Description:  p.Description,
		DepartmentID: p.DepartmentID,
		TeamID:       p.TeamID,
		ManagerID:    p.ManagerID,
		Status:       ProjectStatus(p.Status),
		StartDate:    p.StartDate,
		EndDate:      p.EndDate,
		CreatedBy:    p.CreatedBy,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func ToAssignmentDataModel(a *Assignment) *workDatamodel.Assignment {
	return &workDatamodel.Assignment{
		ID:         a.ID,
		ProjectID:  a.ProjectID,
		UserID:     a.UserID,
		Role:       string(a.Role),
		AssignedBy: a.AssignedBy,
		IsActive:   a.IsActive,
		AssignedAt: a.AssignedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

func FromAssignmentDataModel(a *workDatamodel.Assignment) *Assignment {
	return &Assignment{
		ID:         a.ID,
		ProjectID:  a.ProjectID,
		UserID:     a.UserID,
		Role:       AssignmentRole(a.Role),
		AssignedBy: a.AssignedBy,
		IsActive:   a.IsActive,
		AssignedAt: a.AssignedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

func ToTaskDataModel(t *Task) *workDatamodel.Task {
	return &workDatamodel.Task{
		ID:             t.ID,
		ProjectID:      t.ProjectID,
		AssignedTo:     t.AssignedTo,
		Title:          t.Title,
		Description:    t.Description,
		Priority:       string(t.Priority),
		Status:         string(t.Status),
		StatusOrder:    t.StatusOrder,
		EstimatedHours: t.EstimatedHours,
		DueDate:        t.DueDate,
		StartedAt:      t.StartedAt,
		CompletedAt:    t.CompletedAt,
		CreatedBy:      t.CreatedBy,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

func FromTaskDataModel(t *workDatamodel.Task) *Task {
	return &Task{
		ID:             t.ID,
		ProjectID:      t.ProjectID,
		AssignedTo:     t.AssignedTo,
		Title:          t.Title,
		Description:    t.Description,
		Priority:       TaskPriority(t.Priority),
		Status:         TaskStatus(t.Status),
		StatusOrder:    t.StatusOrder,
		EstimatedHours: t.EstimatedHours,
		DueDate:        t.DueDate,
		StartedAt:      t.StartedAt,
		CompletedAt:    t.CompletedAt,
		CreatedBy:      t.CreatedBy,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}
