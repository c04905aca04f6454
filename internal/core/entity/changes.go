package entity

import (
	"time"

	"github.com/frahmantamala/workforce-management/internal/core/role"
)

// Changes is a proposed set of field values for one record. A nil pointer
// field means the field is left untouched.
type Changes interface {
	Fields() []string
}

type DepartmentChanges struct {
	Name        *string `json:"name,omitempty"`
	Code        *string `json:"code,omitempty"`
	Description *string `json:"description,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

func (c *DepartmentChanges) Fields() []string {
	var f fieldSet
	f.add("name", c.Name != nil)
	f.add("code", c.Code != nil)
	f.add("description", c.Description != nil)
	f.add("is_active", c.IsActive != nil)
	return f
}

type TeamChanges struct {
	Name         *string `json:"name,omitempty"`
	Code         *string `json:"code,omitempty"`
	DepartmentID *int64  `json:"department_id,omitempty"`
	ManagerID    *int64  `json:"manager_id,omitempty"`
}

func (c *TeamChanges) Fields() []string {
	var f fieldSet
	f.add("name", c.Name != nil)
	f.add("code", c.Code != nil)
	f.add("department_id", c.DepartmentID != nil)
	f.add("manager_id", c.ManagerID != nil)
	return f
}

// ProjectChanges has no manager field: the manager always follows the team.
type ProjectChanges struct {
	Name         *string        `json:"name,omitempty"`
	Code         *string        `json:"code,omitempty"`
	Description  *string        `json:"description,omitempty"`
	DepartmentID *int64         `json:"department_id,omitempty"`
	TeamID       *int64         `json:"team_id,omitempty"`
	Status       *ProjectStatus `json:"status,omitempty"`
	StartDate    *time.Time     `json:"start_date,omitempty"`
	EndDate      *time.Time     `json:"end_date,omitempty"`
}

func (c *ProjectChanges) Fields() []string {
	var f fieldSet
	f.add("name", c.Name != nil)
	f.add("code", c.Code != nil)
	f.add("description", c.Description != nil)
	f.add("department_id", c.DepartmentID != nil)
	f.add("team_id", c.TeamID != nil)
	f.add("status", c.Status != nil)
	f.add("start_date", c.StartDate != nil)
	f.add("end_date", c.EndDate != nil)
	return f
}

type AssignmentChanges struct {
	ProjectID *int64          `json:"project_id,omitempty"`
	UserID    *int64          `json:"user_id,omitempty"`
	Role      *AssignmentRole `json:"role,omitempty"`
	IsActive  *bool           `json:"is_active,omitempty"`
}

func (c *AssignmentChanges) Fields() []string {
	var f fieldSet
	f.add("project_id", c.ProjectID != nil)
	f.add("user_id", c.UserID != nil)
	f.add("role", c.Role != nil)
	f.add("is_active", c.IsActive != nil)
	return f
}

// Activates reports whether the change turns the assignment on.
func (c *AssignmentChanges) Activates() bool {
	return c.IsActive != nil && *c.IsActive
}

// TaskChanges proposes task fields. AssignedTo set to 0 clears the assignee.
type TaskChanges struct {
	ProjectID      *int64        `json:"project_id,omitempty"`
	AssignedTo     *int64        `json:"assigned_to,omitempty"`
	Title          *string       `json:"title,omitempty"`
	Description    *string       `json:"description,omitempty"`
	Priority       *TaskPriority `json:"priority,omitempty"`
	Status         *TaskStatus   `json:"status,omitempty"`
	EstimatedHours *float64      `json:"estimated_hours,omitempty"`
	DueDate        *time.Time    `json:"due_date,omitempty"`
}

func (c *TaskChanges) Fields() []string {
	var f fieldSet
	f.add("project_id", c.ProjectID != nil)
	f.add("assigned_to", c.AssignedTo != nil)
	f.add("title", c.Title != nil)
	f.add("description", c.Description != nil)
	f.add("priority", c.Priority != nil)
	f.add("status", c.Status != nil)
	f.add("estimated_hours", c.EstimatedHours != nil)
	f.add("due_date", c.DueDate != nil)
	return f
}

// OnlyStatus reports whether status is the single field being changed.
func (c *TaskChanges) OnlyStatus() bool {
	fields := c.Fields()
	return len(fields) == 1 && fields[0] == "status"
}

// UserChanges proposes user fields. TeamID or DepartmentID set to 0 clears
// the reference.
type UserChanges struct {
	Email        *string    `json:"email,omitempty"`
	Name         *string    `json:"name,omitempty"`
	Password     *string    `json:"password,omitempty"`
	PasswordHash *string    `json:"-"`
	Role         *role.Role `json:"role,omitempty"`
	DepartmentID *int64     `json:"department_id,omitempty"`
	TeamID       *int64     `json:"team_id,omitempty"`
	IsActive     *bool      `json:"is_active,omitempty"`
}

func (c *UserChanges) Fields() []string {
	var f fieldSet
	f.add("email", c.Email != nil)
	f.add("name", c.Name != nil)
	f.add("password", c.Password != nil || c.PasswordHash != nil)
	f.add("role", c.Role != nil)
	f.add("department_id", c.DepartmentID != nil)
	f.add("team_id", c.TeamID != nil)
	f.add("is_active", c.IsActive != nil)
	return f
}

// OnlyProfile reports whether the change touches nothing but name and email.
func (c *UserChanges) OnlyProfile() bool {
	for _, field := range c.Fields() {
		if field != "name" && field != "email" {
			return false
		}
	}
	return true
}

// Query narrows a list operation. Zero values mean no narrowing.
type Query struct {
	ProjectID    int64 `json:"project_id,omitempty"`
	UserID       int64 `json:"user_id,omitempty"`
	TeamID       int64 `json:"team_id,omitempty"`
	DepartmentID int64 `json:"department_id,omitempty"`
	ManagerID    int64 `json:"manager_id,omitempty"`
	Active       *bool `json:"active,omitempty"`
}

type fieldSet []string

func (f *fieldSet) add(name string, present bool) {
	if present {
		*f = append(*f, name)
	}
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
