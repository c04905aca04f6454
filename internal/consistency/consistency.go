// Package consistency enforces the structural invariants of the entity graph
// and derives the fields callers may not set themselves. Every method works
// inside the caller's store transaction, so a multi-record change either
// commits as a whole or not at all.
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

// Derived holds the field values computed by the engine rather than taken
// from the caller.
type Derived map[string]any

func (d Derived) set(field string, value any) {
	d[field] = value
}

type Engine struct {
	tx  store.Tx
	now time.Time
}

func New(tx store.Tx, now time.Time) *Engine {
	return &Engine{tx: tx, now: now}
}

// GuardSelf rejects removing one's own user record, including an update that
// deactivates it.
func GuardSelf(p authz.Principal, e entity.Type, op entity.Operation, targetID int64, ch entity.Changes) error {
	if authz.RemovesSelf(p, e, op, targetID, ch) {
		return internal.ErrSelfAction
	}
	return nil
}

// ----------------- LOOKUPS -----------------

func notFound(kind string, id int64, err error) error {
	if store.IsNotFound(err) {
		return internal.NotFoundf(kind, id)
	}
	return err
}

func (c *Engine) department(id int64) (*entity.Department, error) {
	d, err := c.tx.GetDepartment(id)
	if err != nil {
		return nil, notFound("department", id, err)
	}
	return d, nil
}

func (c *Engine) activeDepartment(id int64) (*entity.Department, error) {
	d, err := c.department(id)
	if err != nil {
		return nil, err
	}
	if !d.IsActive {
		return nil, inactive("department", id)
	}
	return d, nil
}

func (c *Engine) team(id int64) (*entity.Team, error) {
	t, err := c.tx.GetTeam(id)
	if err != nil {
		return nil, notFound("team", id, err)
	}
	return t, nil
}

func (c *Engine) activeTeam(id int64) (*entity.Team, error) {
	t, err := c.team(id)
	if err != nil {
		return nil, err
	}
	if !t.IsActive {
		return nil, inactive("team", id)
	}
	return t, nil
}

func (c *Engine) project(id int64) (*entity.Project, error) {
	p, err := c.tx.GetProject(id)
	if err != nil {
		return nil, notFound("project", id, err)
	}
	return p, nil
}

func (c *Engine) user(id int64) (*entity.User, error) {
	u, err := c.tx.GetUser(id)
	if err != nil {
		return nil, notFound("user", id, err)
	}
	return u, nil
}

func (c *Engine) activeUser(id int64) (*entity.User, error) {
	u, err := c.user(id)
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, inactive("user", id)
	}
	return u, nil
}

// HasActiveAssignment reports whether the user is actively assigned to the
// project.
func (c *Engine) HasActiveAssignment(projectID, userID int64) (bool, error) {
	active := true
	found, err := c.tx.ListAssignments(store.AssignmentFilter{ProjectID: projectID, UserID: userID, Active: &active})
	if err != nil {
		return false, err
	}
	return len(found) > 0, nil
}

// ----------------- HELPERS -----------------

func inactive(kind string, id int64) error {
	return internal.NewConstraintViolation(fmt.Sprintf("%s %d is inactive", kind, id), internal.ErrCodeInactiveReference)
}

func duplicate(field, value string) error {
	return internal.NewValidationFieldError(field, fmt.Sprintf("%s %q is already taken", field, value), internal.ErrCodeDuplicate)
}

func required(v *internal.ValidationErrors, field string, value *string) {
	if value == nil || strings.TrimSpace(*value) == "" {
		v.Add(field, field+" is required", internal.ErrCodeValidationFailed)
	}
}

func notBlank(v *internal.ValidationErrors, field string, value *string) {
	if value != nil && strings.TrimSpace(*value) == "" {
		v.Add(field, field+" cannot be blank", internal.ErrCodeValidationFailed)
	}
}

func idOf(ptr *int64) int64 {
	if ptr == nil {
		return 0
	}
	return *ptr
}

// nonZero maps a zero id onto nil, the "cleared" form of a reference.
func nonZero(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return entity.Ptr(id)
}

func sameRef(a, b *int64) bool {
	return idOf(a) == idOf(b)
}
