// Package store defines the transactional entity store the engine reads and
// writes through. Implementations live in store/memory and store/postgres.
package store

import (
	"context"
	"errors"

	"github.com/frahmantamala/workforce-management/internal/core/entity"
	"github.com/frahmantamala/workforce-management/internal/core/role"
)

var (
	ErrNotFound = errors.New("store: record not found")
	// ErrConflict is returned when a write breaks a unique constraint.
	ErrConflict = errors.New("store: unique constraint violated")
)

// Store runs fn inside one transaction. Returning an error from fn rolls
// back every write made through tx.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of typed reads and writes available inside a transaction.
// Save methods insert when the record ID is zero and assign the new ID.
type Tx interface {
	GetUser(id int64) (*entity.User, error)
	ListUsers(filter UserFilter) ([]*entity.User, error)
	SaveUser(u *entity.User) error
	DeleteUser(id int64) error

	GetDepartment(id int64) (*entity.Department, error)
	ListDepartments(filter DepartmentFilter) ([]*entity.Department, error)
	SaveDepartment(d *entity.Department) error

	GetTeam(id int64) (*entity.Team, error)
	ListTeams(filter TeamFilter) ([]*entity.Team, error)
	SaveTeam(t *entity.Team) error

	GetProject(id int64) (*entity.Project, error)
	ListProjects(filter ProjectFilter) ([]*entity.Project, error)
	SaveProject(p *entity.Project) error

	GetAssignment(id int64) (*entity.Assignment, error)
	ListAssignments(filter AssignmentFilter) ([]*entity.Assignment, error)
	SaveAssignment(a *entity.Assignment) error

	GetTask(id int64) (*entity.Task, error)
	ListTasks(filter TaskFilter) ([]*entity.Task, error)
	SaveTask(t *entity.Task) error
}

// Zero-valued filter fields do not narrow the result.

type UserFilter struct {
	IDs        []int64
	Email      string
	TeamID     int64
	Role       role.Role
	ActiveOnly bool
}

type DepartmentFilter struct {
	Name       string
	Code       string
	ActiveOnly bool
}

type TeamFilter struct {
	Name         string
	Code         string
	DepartmentID int64
	ManagerID    int64
	ActiveOnly   bool
}

type ProjectFilter struct {
	Code         string
	TeamID       int64
	ManagerID    int64
	DepartmentID int64
	// MemberID keeps projects where the user holds an active assignment.
	MemberID int64
}

type AssignmentFilter struct {
	ProjectID int64
	UserID    int64
	// ManagerID keeps assignments on projects managed by the user.
	ManagerID int64
	Active    *bool
}

// TaskFilter results are ordered by status order, then id.
type TaskFilter struct {
	ProjectID  int64
	AssignedTo int64
	ManagerID  int64
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
