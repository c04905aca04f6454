// Package memory provides an in-process transactional entity store. Each
// transaction works on a cloned copy of the state which replaces the shared
// state only when the transaction function succeeds.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/frahmantamala/workforce-management/internal/core/entity"
	"github.com/frahmantamala/workforce-management/internal/store"
)

// WriteHook is called before every write. A non-nil error aborts the write
// and, through it, the surrounding transaction.
type WriteHook func(kind entity.Type, id int64) error

type Option func(*Store)

func WithWriteHook(hook WriteHook) Option {
	return func(s *Store) {
		s.hook = hook
	}
}

type state struct {
	seq         int64
	users       map[int64]entity.User
	departments map[int64]entity.Department
	teams       map[int64]entity.Team
	projects    map[int64]entity.Project
	assignments map[int64]entity.Assignment
	tasks       map[int64]entity.Task
}

func newState() state {
	return state{
		users:       map[int64]entity.User{},
		departments: map[int64]entity.Department{},
		teams:       map[int64]entity.Team{},
		projects:    map[int64]entity.Project{},
		assignments: map[int64]entity.Assignment{},
		tasks:       map[int64]entity.Task{},
	}
}

// clone copies the maps. Records are plain values and pointer fields are
// never mutated in place, so a shallow copy per record is enough.
func (s state) clone() state {
	c := state{
		seq:         s.seq,
		users:       make(map[int64]entity.User, len(s.users)),
		departments: make(map[int64]entity.Department, len(s.departments)),
		teams:       make(map[int64]entity.Team, len(s.teams)),
		projects:    make(map[int64]entity.Project, len(s.projects)),
		assignments: make(map[int64]entity.Assignment, len(s.assignments)),
		tasks:       make(map[int64]entity.Task, len(s.tasks)),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.departments {
		c.departments[k] = v
	}
	for k, v := range s.teams {
		c.teams[k] = v
	}
	for k, v := range s.projects {
		c.projects[k] = v
	}
	for k, v := range s.assignments {
		c.assignments[k] = v
	}
	for k, v := range s.tasks {
		c.tasks[k] = v
	}
	return c
}

type Store struct {
	mu    sync.Mutex
	state state
	hook  WriteHook
}

func New(opts ...Option) *Store {
	s := &Store{state: newState()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetWriteHook replaces the write hook. Passing nil removes it.
func (s *Store) SetWriteHook(hook WriteHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = hook
}

// WithinTx serializes transactions, so a transaction always observes every
// previously committed one.
func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{state: s.state.clone(), hook: s.hook}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

type transaction struct {
	state state
	hook  WriteHook
}

func (tx *transaction) nextID() int64 {
	tx.state.seq++
	return tx.state.seq
}

func (tx *transaction) beforeWrite(kind entity.Type, id int64) error {
	if tx.hook == nil {
		return nil
	}
	return tx.hook(kind, id)
}

// ----------------- USERS -----------------

func (tx *transaction) GetUser(id int64) (*entity.User, error) {
	u, ok := tx.state.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (tx *transaction) ListUsers(filter store.UserFilter) ([]*entity.User, error) {
	var out []*entity.User
	for _, u := range tx.state.users {
		if len(filter.IDs) > 0 && !containsID(filter.IDs, u.ID) {
			continue
		}
		if filter.Email != "" && !strings.EqualFold(u.Email, filter.Email) {
			continue
		}
		if filter.TeamID != 0 && !u.IsMemberOf(filter.TeamID) {
			continue
		}
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.ActiveOnly && !u.IsActive {
			continue
		}
		u := u
		out = append(out, &u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (tx *transaction) SaveUser(u *entity.User) error {
	for _, other := range tx.state.users {
		if other.ID != u.ID && strings.EqualFold(other.Email, u.Email) {
			return store.ErrConflict
		}
	}
	if u.ID != 0 {
		if _, ok := tx.state.users[u.ID]; !ok {
			return store.ErrNotFound
		}
	}
	if err := tx.beforeWrite(entity.TypeUser, u.ID); err != nil {
		return err
	}
	if u.ID == 0 {
		u.ID = tx.nextID()
	}
	tx.state.users[u.ID] = *u
	return nil
}

func (tx *transaction) DeleteUser(id int64) error {
	if _, ok := tx.state.users[id]; !ok {
		return store.ErrNotFound
	}
	if err := tx.beforeWrite(entity.TypeUser, id); err != nil {
		return err
	}
	delete(tx.state.users, id)
	return nil
}

// ----------------- DEPARTMENTS -----------------

func (tx *transaction) GetDepartment(id int64) (*entity.Department, error) {
	d, ok := tx.state.departments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &d, nil
}

func (tx *transaction) ListDepartments(filter store.DepartmentFilter) ([]*entity.Department, error) {
	var out []*entity.Department
	for _, d := range tx.state.departments {
		if filter.Name != "" && d.Name != filter.Name {
			continue
		}
		if filter.Code != "" && d.Code != filter.Code {
			continue
		}
		if filter.ActiveOnly && !d.IsActive {
			continue
		}
		d := d
		out = append(out, &d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (tx *transaction) SaveDepartment(d *entity.Department) error {
	for _, other := range tx.state.departments {
		if other.ID != d.ID && (other.Name == d.Name || other.Code == d.Code) {
			return store.ErrConflict
		}
	}
	if d.ID != 0 {
		if _, ok := tx.state.departments[d.ID]; !ok {
			return store.ErrNotFound
		}
	}
	if err := tx.beforeWrite(entity.TypeDepartment, d.ID); err != nil {
		return err
	}
	if d.ID == 0 {
		d.ID = tx.nextID()
	}
	tx.state.departments[d.ID] = *d
	return nil
}

// ----------------- TEAMS -----------------

func (tx *transaction) GetTeam(id int64) (*entity.Team, error) {
	t, ok := tx.state.teams[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &t, nil
}

func (tx *transaction) ListTeams(filter store.TeamFilter) ([]*entity.Team, error) {
	var out []*entity.Team
	for _, t := range tx.state.teams {
		if filter.Name != "" && t.Name != filter.Name {
			continue
		}
		if filter.Code != "" && t.Code != filter.Code {
			continue
		}
		if filter.DepartmentID != 0 && t.DepartmentID != filter.DepartmentID {
			continue
		}
		if filter.ManagerID != 0 && !t.IsManagedBy(filter.ManagerID) {
			continue
		}
		if filter.ActiveOnly && !t.IsActive {
			continue
		}
		t := t
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (tx *transaction) SaveTeam(t *entity.Team) error {
	for _, other := range tx.state.teams {
		if other.ID != t.ID && (other.Name == t.Name || other.Code == t.Code) {
			return store.ErrConflict
		}
	}
	if t.ID != 0 {
		if _, ok := tx.state.teams[t.ID]; !ok {
			return store.ErrNotFound
		}
	}
	if err := tx.beforeWrite(entity.TypeTeam, t.ID); err != nil {
		return err
	}
	if t.ID == 0 {
		t.ID = tx.nextID()
	}
	tx.state.teams[t.ID] = *t
	return nil
}

// ----------------- PROJECTS -----------------

func (tx *transaction) GetProject(id int64) (*entity.Project, error) {
	p, ok := tx.state.projects[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (tx *transaction) ListProjects(filter store.ProjectFilter) ([]*entity.Project, error) {
	var out []*entity.Project
	for _, p := range tx.state.projects {
		if filter.Code != "" && p.Code != filter.Code {
			continue
		}
		if filter.TeamID != 0 && p.TeamID != filter.TeamID {
			continue
		}
		if filter.ManagerID != 0 && !p.IsManagedBy(filter.ManagerID) {
			continue
		}
		if filter.DepartmentID != 0 && p.DepartmentID != filter.DepartmentID {
			continue
		}
		if filter.MemberID != 0 && !tx.hasActiveAssignment(p.ID, filter.MemberID) {
			continue
		}
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (tx *transaction) SaveProject(p *entity.Project) error {
	for _, other := range tx.state.projects {
		if other.ID != p.ID && other.Code == p.Code {
			return store.ErrConflict
		}
	}
	if p.ID != 0 {
		if _, ok := tx.state.projects[p.ID]; !ok {
			return store.ErrNotFound
		}
	}
	if err := tx.beforeWrite(entity.TypeProject, p.ID); err != nil {
		return err
	}
	if p.ID == 0 {
		p.ID = tx.nextID()
	}
	tx.state.projects[p.ID] = *p
	return nil
}

// ----------------- ASSIGNMENTS -----------------

func (tx *transaction) hasActiveAssignment(projectID, userID int64) bool {
	for _, a := range tx.state.assignments {
		if a.IsActive && a.ProjectID == projectID && a.UserID == userID {
			return true
		}
	}
	return false
}

func (tx *transaction) GetAssignment(id int64) (*entity.Assignment, error) {
	a, ok := tx.state.assignments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (tx *transaction) ListAssignments(filter store.AssignmentFilter) ([]*entity.Assignment, error) {
	var out []*entity.Assignment
	for _, a := range tx.state.assignments {
		if filter.ProjectID != 0 && a.ProjectID != filter.ProjectID {
			continue
		}
		if filter.UserID != 0 && a.UserID != filter.UserID {
			continue
		}
		if filter.Active != nil && a.IsActive != *filter.Active {
			continue
		}
		if filter.ManagerID != 0 {
			p, ok := tx.state.projects[a.ProjectID]
			if !ok || !p.IsManagedBy(filter.ManagerID) {
				continue
			}
		}
		a := a
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SaveAssignment mirrors the partial unique index on active assignments.
func (tx *transaction) SaveAssignment(a *entity.Assignment) error {
	if a.IsActive {
		for _, other := range tx.state.assignments {
			if other.ID != a.ID && other.IsActive && other.ProjectID == a.ProjectID && other.UserID == a.UserID {
				return store.ErrConflict
			}
		}
	}
	if a.ID != 0 {
		if _, ok := tx.state.assignments[a.ID]; !ok {
			return store.ErrNotFound
		}
	}
	if err := tx.beforeWrite(entity.TypeAssignment, a.ID); err != nil {
		return err
	}
	if a.ID == 0 {
		a.ID = tx.nextID()
	}
	tx.state.assignments[a.ID] = *a
	return nil
}

// ----------------- TASKS -----------------

func (tx *transaction) GetTask(id int64) (*entity.Task, error) {
	t, ok := tx.state.tasks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &t, nil
}

func (tx *transaction) ListTasks(filter store.TaskFilter) ([]*entity.Task, error) {
	var out []*entity.Task
	for _, t := range tx.state.tasks {
		if filter.ProjectID != 0 && t.ProjectID != filter.ProjectID {
			continue
		}
		if filter.AssignedTo != 0 && !t.IsAssignedTo(filter.AssignedTo) {
			continue
		}
		if filter.ManagerID != 0 {
			p, ok := tx.state.projects[t.ProjectID]
			if !ok || !p.IsManagedBy(filter.ManagerID) {
				continue
			}
		}
		t := t
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StatusOrder != out[j].StatusOrder {
			return out[i].StatusOrder < out[j].StatusOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (tx *transaction) SaveTask(t *entity.Task) error {
	if t.ID != 0 {
		if _, ok := tx.state.tasks[t.ID]; !ok {
			return store.ErrNotFound
		}
	}
	if err := tx.beforeWrite(entity.TypeTask, t.ID); err != nil {
		return err
	}
	if t.ID == 0 {
		t.ID = tx.nextID()
	}
	tx.state.tasks[t.ID] = *t
	return nil
}

func containsID(ids []int64, id int64) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
