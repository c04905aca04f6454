package consistency

import (
	"fmt"
	"strings"

	"github.com/frahmantamala/workforce-management/internal"
	"github.com/frahmantamala/workforce-management/internal/core/entity"
	"github.com/frahmantamala/workforce-management/internal/core/role"
	"github.com/frahmantamala/workforce-management/internal/store"
)

// ----------------- USERS -----------------

// CreateUser expects the password to arrive hashed. The department is taken
// from the team when a team is given.
func (c *Engine) CreateUser(ch *entity.UserChanges) (*entity.User, Derived, error) {
	var v internal.ValidationErrors
	required(&v, "email", ch.Email)
	required(&v, "name", ch.Name)
	if ch.PasswordHash == nil || *ch.PasswordHash == "" {
		v.Add("password", "password is required", internal.ErrCodeValidationFailed)
	}
	if ch.Role != nil && !ch.Role.Valid() {
		v.Add("role", fmt.Sprintf("unknown role %q", *ch.Role), internal.ErrCodeValidationFailed)
	}
	if err := v.Err(); err != nil {
		return nil, nil, err
	}

	u := &entity.User{
		Email:        normalizeEmail(*ch.Email),
		Name:         strings.TrimSpace(*ch.Name),
		PasswordHash: *ch.PasswordHash,
		Role:         role.Employee,
		IsActive:     true,
		CreatedAt:    c.now,
		UpdatedAt:    c.now,
	}
	if ch.Role != nil {
		u.Role = *ch.Role
	}
	if ch.IsActive != nil {
		u.IsActive = *ch.IsActive
	}

	derived := Derived{"role": u.Role}
	if err := c.placeUser(u, ch.TeamID, ch.DepartmentID, derived); err != nil {
		return nil, nil, err
	}
	if err := c.uniqueEmail(u); err != nil {
		return nil, nil, err
	}
	if err := c.saveUser(u); err != nil {
		return nil, nil, err
	}
	return u, derived, nil
}

func (c *Engine) UpdateUser(u *entity.User, ch *entity.UserChanges) (*entity.User, Derived, error) {
	var v internal.ValidationErrors
	notBlank(&v, "email", ch.Email)
	notBlank(&v, "name", ch.Name)
	if ch.Role != nil && !ch.Role.Valid() {
		v.Add("role", fmt.Sprintf("unknown role %q", *ch.Role), internal.ErrCodeValidationFailed)
	}
	if err := v.Err(); err != nil {
		return nil, nil, err
	}

	next := *u
	if ch.Email != nil {
		next.Email = normalizeEmail(*ch.Email)
	}
	if ch.Name != nil {
		next.Name = strings.TrimSpace(*ch.Name)
	}
	if ch.PasswordHash != nil && *ch.PasswordHash != "" {
		next.PasswordHash = *ch.PasswordHash
	}
	if ch.Role != nil {
		next.Role = *ch.Role
	}
	if ch.IsActive != nil {
		if !*ch.IsActive && !u.IsActive {
			return nil, nil, internal.ErrAlreadyInactive
		}
		next.IsActive = *ch.IsActive
	}

	derived := Derived{}
	if ch.TeamID != nil || ch.DepartmentID != nil {
		teamID := ch.TeamID
		if teamID == nil {
			teamID = u.TeamID
		}
		if err := c.placeUser(&next, teamID, ch.DepartmentID, derived); err != nil {
			return nil, nil, err
		}
	}

	// A manager stays a manager of the same department and team while a
	// team still points at them.
	leavesManagement := next.Role != role.Manager || !next.IsActive ||
		!sameRef(next.DepartmentID, u.DepartmentID) || !sameRef(next.TeamID, u.TeamID)
	if u.Role == role.Manager && leavesManagement {
		if err := c.notManagingActiveTeam(u.ID); err != nil {
			return nil, nil, err
		}
	}
	next.UpdatedAt = c.now

	if err := c.uniqueEmail(&next); err != nil {
		return nil, nil, err
	}
	if err := c.saveUser(&next); err != nil {
		return nil, nil, err
	}
	return &next, derived, nil
}

func (c *Engine) DeactivateUser(u *entity.User) (*entity.User, error) {
	if !u.IsActive {
		return nil, internal.ErrAlreadyInactive
	}
	if err := c.notManagingActiveTeam(u.ID); err != nil {
		return nil, err
	}
	next := *u
	next.Deactivate(c.now)
	if err := c.saveUser(&next); err != nil {
		return nil, err
	}
	return &next, nil
}

// DeleteUser removes the record. Assignments and tasks keep the user id as
// history.
func (c *Engine) DeleteUser(u *entity.User) error {
	if err := c.notManagingActiveTeam(u.ID); err != nil {
		return err
	}
	if err := c.tx.DeleteUser(u.ID); err != nil {
		return notFound("user", u.ID, err)
	}
	return nil
}

// placeUser resolves team and department references. A zero id clears the
// reference; a team fixes the department.
func (c *Engine) placeUser(u *entity.User, teamID, departmentID *int64, derived Derived) error {
	if departmentID != nil {
		u.DepartmentID = nonZero(*departmentID)
	}
	if teamID != nil {
		u.TeamID = nonZero(*teamID)
	}

	if u.TeamID != nil {
		t, err := c.activeTeam(*u.TeamID)
		if err != nil {
			return err
		}
		if departmentID != nil && *departmentID != 0 && *departmentID != t.DepartmentID {
			return internal.ErrDepartmentMismatch.WithDetails(map[string]int64{
				"department_id":      *departmentID,
				"team_department_id": t.DepartmentID,
			})
		}
		if !sameRef(u.DepartmentID, &t.DepartmentID) {
			derived.set("department_id", t.DepartmentID)
		}
		u.DepartmentID = entity.Ptr(t.DepartmentID)
		return nil
	}
	if u.DepartmentID != nil {
		if _, err := c.activeDepartment(*u.DepartmentID); err != nil {
			return err
		}
	}
	return nil
}

func (c *Engine) notManagingActiveTeam(userID int64) error {
	teams, err := c.tx.ListTeams(store.TeamFilter{ManagerID: userID, ActiveOnly: true})
	if err != nil {
		return err
	}
	if len(teams) > 0 {
		return internal.NewConstraintViolation(
			fmt.Sprintf("user manages active team %d; assign a new manager first", teams[0].ID),
			internal.ErrCodeManagerOfActiveTeam,
		)
	}
	return nil
}

func (c *Engine) uniqueEmail(u *entity.User) error {
	found, err := c.tx.ListUsers(store.UserFilter{Email: u.Email})
	if err != nil {
		return err
	}
	for _, other := range found {
		if other.ID != u.ID {
			return duplicate("email", u.Email)
		}
	}
	return nil
}

// saveUser maps a unique index hit on email to the duplicate violation.
func (c *Engine) saveUser(u *entity.User) error {
	err := c.tx.SaveUser(u)
	if store.IsConflict(err) {
		return duplicate("email", u.Email)
	}
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
