// Package work serves projects, assignments and tasks over HTTP.
package work

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/workforce-management/internal/core/entity"
	"github.com/frahmantamala/workforce-management/internal/engine"
	"github.com/frahmantamala/workforce-management/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	Engine engine.EvaluatorAPI
}

func NewHandler(ev engine.EvaluatorAPI, lg *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Engine:      ev,
	}
}

// ListProjects handles GET /projects?team_id=&department_id=&manager_id=&user_id=
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	q, err := h.query(r, "team_id", "department_id", "manager_id", "user_id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.list(w, r, entity.TypeProject, q)
}

// CreateProject handles POST /projects. The manager is taken from the team.
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var ch entity.ProjectChanges
	h.EvaluateWrite(w, r, h.Engine, entity.TypeProject, entity.OpCreate, &ch)
}

func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	var ch entity.ProjectChanges
	h.EvaluateWrite(w, r, h.Engine, entity.TypeProject, entity.OpUpdate, &ch)
}

func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	h.EvaluateByID(w, r, h.Engine, entity.TypeProject, entity.OpRead)
}

func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	h.EvaluateByID(w, r, h.Engine, entity.TypeProject, entity.OpDelete)
}

// ListProjectMembers handles GET /projects/{id}/members?status=current|history|all
func (h *Handler) ListProjectMembers(w http.ResponseWriter, r *http.Request) {
	id, err := h.PathID(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	active, err := h.ActiveFilter(r)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.list(w, r, entity.TypeAssignment, entity.Query{ProjectID: id, Active: active})
}

// ListProjectTasks handles GET /projects/{id}/tasks
func (h *Handler) ListProjectTasks(w http.ResponseWriter, r *http.Request) {
	id, err := h.PathID(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.list(w, r, entity.TypeTask, entity.Query{ProjectID: id})
}

// ListManagerProjects handles GET /managers/{id}/projects
func (h *Handler) ListManagerProjects(w http.ResponseWriter, r *http.Request) {
	id, err := h.PathID(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.list(w, r, entity.TypeProject, entity.Query{ManagerID: id})
}

// ListAssignments handles GET /assignments?project_id=&user_id=&status=
func (h *Handler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	q, err := h.query(r, "project_id", "user_id", "manager_id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	if q.Active, err = h.ActiveFilter(r); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.list(w, r, entity.TypeAssignment, q)
}

func (h *Handler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	var ch entity.AssignmentChanges
	h.EvaluateWrite(w, r, h.Engine, entity.TypeAssignment, entity.OpCreate, &ch)
}

func (h *Handler) UpdateAssignment(w http.ResponseWriter, r *http.Request) {
	var ch entity.AssignmentChanges
	h.EvaluateWrite(w, r, h.Engine, entity.TypeAssignment, entity.OpUpdate, &ch)
}

func (h *Handler) GetAssignment(w http.ResponseWriter, r *http.Request) {
	h.EvaluateByID(w, r, h.Engine, entity.TypeAssignment, entity.OpRead)
}

func (h *Handler) DeactivateAssignment(w http.ResponseWriter, r *http.Request) {
	h.EvaluateByID(w, r, h.Engine, entity.TypeAssignment, entity.OpDeactivate)
}

func (h *Handler) DeleteAssignment(w http.ResponseWriter, r *http.Request) {
	h.EvaluateByID(w, r, h.Engine, entity.TypeAssignment, entity.OpDelete)
}

// ListTasks handles GET /tasks?project_id=&user_id=&manager_id=. Tasks come
// back in status order.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	q, err := h.query(r, "project_id", "user_id", "manager_id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.list(w, r, entity.TypeTask, q)
}

func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var ch entity.TaskChanges
	h.EvaluateWrite(w, r, h.Engine, entity.TypeTask, entity.OpCreate, &ch)
}

// UpdateTask handles PATCH /tasks/{id}, including status transitions.
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var ch entity.TaskChanges
	h.EvaluateWrite(w, r, h.Engine, entity.TypeTask, entity.OpUpdate, &ch)
}

func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	h.EvaluateByID(w, r, h.Engine, entity.TypeTask, entity.OpRead)
}

func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	h.EvaluateByID(w, r, h.Engine, entity.TypeTask, entity.OpDelete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, kind entity.Type, q entity.Query) {
	h.Evaluate(w, r, h.Engine, engine.Intent{Operation: entity.OpList, Entity: kind, Query: q}, http.StatusOK)
}

// query reads the named id parameters into a Query.
func (h *Handler) query(r *http.Request, names ...string) (entity.Query, error) {
	var q entity.Query
	fields := map[string]*int64{
		"project_id":    &q.ProjectID,
		"user_id":       &q.UserID,
		"team_id":       &q.TeamID,
		"department_id": &q.DepartmentID,
		"manager_id":    &q.ManagerID,
	}
	for _, name := range names {
		id, err := h.QueryID(r, name)
		if err != nil {
			return q, err
		}
		*fields[name] = id
	}
	return q, nil
}
