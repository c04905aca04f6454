package consistency

import (
	"fmt"
	"strings"

	"github.com/frahmantamala/workforce-management/internal"
	"github.com/frahmantamala/workforce-management/internal/authz"
	"github.com/frahmantamala/workforce-management/internal/core/entity"
	"github.com/frahmantamala/workforce-management/internal/core/role"
	"github.com/frahmantamala/workforce-management/internal/store"
)

// ----------------- DEPARTMENTS -----------------

func (c *Engine) CreateDepartment(p authz.Principal, ch *entity.DepartmentChanges) (*entity.Department, Derived, error) {
	var v internal.ValidationErrors
	required(&v, "name", ch.Name)
	required(&v, "code", ch.Code)
	if err := v.Err(); err != nil {
		return nil, nil, err
	}

	d := &entity.Department{
		Name:      strings.TrimSpace(*ch.Name),
		Code:      strings.ToUpper(strings.TrimSpace(*ch.Code)),
		IsActive:  true,
		CreatedBy: entity.Ptr(p.ID),
		CreatedAt: c.now,
		UpdatedAt: c.now,
	}
	if ch.Description != nil {
		d.Description = *ch.Description
	}
	if ch.IsActive != nil {
		d.IsActive = *ch.IsActive
	}
	if err := c.uniqueDepartment(d); err != nil {
		return nil, nil, err
	}
	if err := c.tx.SaveDepartment(d); err != nil {
		return nil, nil, err
	}
	return d, Derived{"code": d.Code}, nil
}

func (c *Engine) UpdateDepartment(d *entity.Department, ch *entity.DepartmentChanges) (*entity.Department, Derived, error) {
	var v internal.ValidationErrors
	notBlank(&v, "name", ch.Name)
	notBlank(&v, "code", ch.Code)
	if err := v.Err(); err != nil {
		return nil, nil, err
	}

	next := *d
	if ch.Name != nil {
		next.Name = strings.TrimSpace(*ch.Name)
	}
	if ch.Code != nil {
		next.Code = strings.ToUpper(strings.TrimSpace(*ch.Code))
	}
	if ch.Description != nil {
		next.Description = *ch.Description
	}
	if ch.IsActive != nil {
		if !*ch.IsActive && !d.IsActive {
			return nil, nil, internal.ErrAlreadyInactive
		}
		next.IsActive = *ch.IsActive
	}
	next.UpdatedAt = c.now

	if err := c.uniqueDepartment(&next); err != nil {
		return nil, nil, err
	}
	if err := c.tx.SaveDepartment(&next); err != nil {
		return nil, nil, err
	}
	return &next, Derived{}, nil
}

func (c *Engine) DeactivateDepartment(d *entity.Department) (*entity.Department, error) {
	if !d.IsActive {
		return nil, internal.ErrAlreadyInactive
	}
	next := *d
	next.IsActive = false
	next.UpdatedAt = c.now
	if err := c.tx.SaveDepartment(&next); err != nil {
		return nil, err
	}
	return &next, nil
}

func (c *Engine) uniqueDepartment(d *entity.Department) error {
	byName, err := c.tx.ListDepartments(store.DepartmentFilter{Name: d.Name})
	if err != nil {
		return err
	}
	for _, other := range byName {
		if other.ID != d.ID {
			return duplicate("name", d.Name)
		}
	}
	byCode, err := c.tx.ListDepartments(store.DepartmentFilter{Code: d.Code})
	if err != nil {
		return err
	}
	for _, other := range byCode {
		if other.ID != d.ID {
			return duplicate("code", d.Code)
		}
	}
	return nil
}

// ----------------- TEAMS -----------------

// CreateTeam validates the team, resolves its manager and moves the manager
// onto the new team. A manager creating a team manages it unless told
// otherwise; an admin has to name the manager.
func (c *Engine) CreateTeam(p authz.Principal, ch *entity.TeamChanges) (*entity.Team, Derived, error) {
	var v internal.ValidationErrors
	required(&v, "name", ch.Name)
	required(&v, "code", ch.Code)
	if ch.DepartmentID == nil {
		v.Add("department_id", "department_id is required", internal.ErrCodeValidationFailed)
	}
	managerID := idOf(ch.ManagerID)
	if managerID == 0 && p.IsManager() {
		managerID = p.ID
	}
	if managerID == 0 {
		v.Add("manager_id", "manager_id is required", internal.ErrCodeValidationFailed)
	}
	if err := v.Err(); err != nil {
		return nil, nil, err
	}

	dept, err := c.activeDepartment(*ch.DepartmentID)
	if err != nil {
		return nil, nil, err
	}
	manager, err := c.eligibleManager(managerID, dept.ID)
	if err != nil {
		return nil, nil, err
	}
	if err := c.claimManager(p, manager, 0); err != nil {
		return nil, nil, err
	}

	t := &entity.Team{
		Name:         strings.TrimSpace(*ch.Name),
		Code:         strings.ToUpper(strings.TrimSpace(*ch.Code)),
		DepartmentID: dept.ID,
		ManagerID:    entity.Ptr(manager.ID),
		IsActive:     true,
		CreatedAt:    c.now,
		UpdatedAt:    c.now,
	}
	if err := c.uniqueTeam(t); err != nil {
		return nil, nil, err
	}
	if err := c.tx.SaveTeam(t); err != nil {
		return nil, nil, err
	}
	if err := c.moveManagerMembership(t, nil, manager); err != nil {
		return nil, nil, err
	}
	return t, Derived{"manager_id": manager.ID, "code": t.Code}, nil
}

// UpdateTeam applies the change and, when the manager changes, propagates
// the new manager to every project bound to the team.
func (c *Engine) UpdateTeam(p authz.Principal, t *entity.Team, ch *entity.TeamChanges) (*entity.Team, Derived, error) {
	var v internal.ValidationErrors
	notBlank(&v, "name", ch.Name)
	notBlank(&v, "code", ch.Code)
	if ch.ManagerID != nil && *ch.ManagerID == 0 {
		v.Add("manager_id", "a team cannot be left without a manager", internal.ErrCodeValidationFailed)
	}
	if err := v.Err(); err != nil {
		return nil, nil, err
	}

	next := *t
	if ch.Name != nil {
		next.Name = strings.TrimSpace(*ch.Name)
	}
	if ch.Code != nil {
		next.Code = strings.ToUpper(strings.TrimSpace(*ch.Code))
	}
	derived := Derived{}

	if ch.DepartmentID != nil && *ch.DepartmentID != t.DepartmentID {
		dept, err := c.activeDepartment(*ch.DepartmentID)
		if err != nil {
			return nil, nil, err
		}
		bound, err := c.tx.ListProjects(store.ProjectFilter{TeamID: t.ID})
		if err != nil {
			return nil, nil, err
		}
		if len(bound) > 0 {
			return nil, nil, internal.NewConstraintViolation("a team with projects cannot change department", internal.ErrCodeTeamHasProjects)
		}
		next.DepartmentID = dept.ID
	}

	var previous, manager *entity.User
	managerChanged := ch.ManagerID != nil && !t.IsManagedBy(*ch.ManagerID)
	managerID := idOf(t.ManagerID)
	if managerChanged {
		managerID = *ch.ManagerID
	}
	if managerID != 0 && (managerChanged || next.DepartmentID != t.DepartmentID) {
		m, err := c.eligibleManager(managerID, next.DepartmentID)
		if err != nil {
			return nil, nil, err
		}
		manager = m
	}
	if managerChanged {
		if err := c.claimManager(p, manager, t.ID); err != nil {
			return nil, nil, err
		}
		if t.ManagerID != nil {
			old, err := c.tx.GetUser(*t.ManagerID)
			if err != nil && !store.IsNotFound(err) {
				return nil, nil, err
			}
			previous = old
		}
		next.ManagerID = entity.Ptr(manager.ID)
	}
	next.UpdatedAt = c.now

	if err := c.uniqueTeam(&next); err != nil {
		return nil, nil, err
	}
	if err := c.tx.SaveTeam(&next); err != nil {
		return nil, nil, err
	}

	if managerChanged {
		if err := c.moveManagerMembership(&next, previous, manager); err != nil {
			return nil, nil, err
		}
		updated, err := c.PropagateTeamManager(next.ID, next.ManagerID)
		if err != nil {
			return nil, nil, err
		}
		derived.set("manager_id", manager.ID)
		derived.set("propagated_project_ids", updated)
	}
	return &next, derived, nil
}

func (c *Engine) DeactivateTeam(t *entity.Team) (*entity.Team, error) {
	if !t.IsActive {
		return nil, internal.ErrAlreadyInactive
	}
	next := *t
	next.Deactivate(c.now)
	if err := c.tx.SaveTeam(&next); err != nil {
		return nil, err
	}
	return &next, nil
}

// PropagateTeamManager points every project bound to the team at the given
// manager and returns the ids of the projects it rewrote. It runs in the
// caller's transaction: a failure on any project fails the whole change.
func (c *Engine) PropagateTeamManager(teamID int64, managerID *int64) ([]int64, error) {
	projects, err := c.tx.ListProjects(store.ProjectFilter{TeamID: teamID})
	if err != nil {
		return nil, err
	}
	updated := make([]int64, 0, len(projects))
	for _, p := range projects {
		if sameRef(p.ManagerID, managerID) {
			continue
		}
		p.ManagerID = nonZero(idOf(managerID))
		p.UpdatedAt = c.now
		if err := c.tx.SaveProject(p); err != nil {
			return nil, err
		}
		updated = append(updated, p.ID)
	}
	return updated, nil
}

// eligibleManager loads a user who may manage a team of the department.
func (c *Engine) eligibleManager(userID, departmentID int64) (*entity.User, error) {
	u, err := c.activeUser(userID)
	if err != nil {
		return nil, err
	}
	if u.Role != role.Manager {
		return nil, internal.NewConstraintViolation("team manager must have the MANAGER role", internal.ErrCodeInvalidManager)
	}
	if idOf(u.DepartmentID) != departmentID {
		return nil, internal.ErrDepartmentMismatch.WithDetails(map[string]int64{
			"manager_department_id": idOf(u.DepartmentID),
			"team_department_id":    departmentID,
		})
	}
	return u, nil
}

// claimManager checks that the manager can take over team teamID (0 for a
// team being created). A manager runs one active team at a time, and moving
// someone off another team takes an admin.
func (c *Engine) claimManager(p authz.Principal, manager *entity.User, teamID int64) error {
	managed, err := c.tx.ListTeams(store.TeamFilter{ManagerID: manager.ID, ActiveOnly: true})
	if err != nil {
		return err
	}
	for _, other := range managed {
		if other.ID != teamID {
			return internal.NewConstraintViolation(
				fmt.Sprintf("user %d already manages active team %d", manager.ID, other.ID),
				internal.ErrCodeManagerOfActiveTeam,
			)
		}
	}
	if manager.TeamID != nil && *manager.TeamID != teamID && !p.IsAdmin() {
		return internal.NewAuthorizationDenied("changing team membership requires an administrator", internal.ErrCodeTeamChangeForbidden)
	}
	return nil
}

// moveManagerMembership makes the new manager a member of the team and takes
// the previous manager off it.
func (c *Engine) moveManagerMembership(t *entity.Team, previous, manager *entity.User) error {
	if previous != nil && previous.ID != manager.ID && previous.IsMemberOf(t.ID) {
		previous.TeamID = nil
		previous.UpdatedAt = c.now
		if err := c.tx.SaveUser(previous); err != nil {
			return err
		}
	}
	if manager.IsMemberOf(t.ID) {
		return nil
	}
	manager.TeamID = entity.Ptr(t.ID)
	manager.UpdatedAt = c.now
	return c.tx.SaveUser(manager)
}

func (c *Engine) uniqueTeam(t *entity.Team) error {
	byName, err := c.tx.ListTeams(store.TeamFilter{Name: t.Name})
	if err != nil {
		return err
	}
	for _, other := range byName {
		if other.ID != t.ID {
			return duplicate("name", t.Name)
		}
	}
	byCode, err := c.tx.ListTeams(store.TeamFilter{Code: t.Code})
	if err != nil {
		return err
	}
	for _, other := range byCode {
		if other.ID != t.ID {
			return duplicate("code", t.Code)
		}
	}
	return nil
}
