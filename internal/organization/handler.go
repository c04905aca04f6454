// Package organization serves departments and teams over HTTP. Every request
// becomes an engine intent; the handler only parses and renders.
package organization

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

// ListDepartments handles GET /departments?active=
func (h *Handler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	active, err := h.QueryBool(r, "active")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.Evaluate(w, r, h.Engine, engine.Intent{
		Operation: entity.OpList,
		Entity:    entity.TypeDepartment,
		Query:     entity.Query{Active: active},
	}, http.StatusOK)
}

// CreateDepartment handles POST /departments
func (h *Handler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	var ch entity.DepartmentChanges
	h.EvaluateWrite(w, r, h.Engine, entity.TypeDepartment, entity.OpCreate, &ch)
}

// UpdateDepartment handles PATCH /departments/{id}
func (h *Handler) UpdateDepartment(w http.ResponseWriter, r *http.Request) {
	var ch entity.DepartmentChanges
	h.EvaluateWrite(w, r, h.Engine, entity.TypeDepartment, entity.OpUpdate, &ch)
}

func (h *Handler) GetDepartment(w http.ResponseWriter, r *http.Request) {
	h.EvaluateByID(w, r, h.Engine, entity.TypeDepartment, entity.OpRead)
}

func (h *Handler) DeactivateDepartment(w http.ResponseWriter, r *http.Request) {
	h.EvaluateByID(w, r, h.Engine, entity.TypeDepartment, entity.OpDeactivate)
}

func (h *Handler) DeleteDepartment(w http.ResponseWriter, r *http.Request) {
	h.EvaluateByID(w, r, h.Engine, entity.TypeDepartment, entity.OpDelete)
}

// ListTeams handles GET /teams?department_id=&manager_id=&active=
func (h *Handler) ListTeams(w http.ResponseWriter, r *http.Request) {
	var q entity.Query
	var err error
	if q.DepartmentID, err = h.QueryID(r, "department_id"); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	if q.ManagerID, err = h.QueryID(r, "manager_id"); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	if q.Active, err = h.QueryBool(r, "active"); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.Evaluate(w, r, h.Engine, engine.Intent{
		Operation: entity.OpList,
		Entity:    entity.TypeTeam,
		Query:     q,
	}, http.StatusOK)
}

// CreateTeam handles POST /teams
func (h *Handler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	var ch entity.TeamChanges
	h.EvaluateWrite(w, r, h.Engine, entity.TypeTeam, entity.OpCreate, &ch)
}

// UpdateTeam handles PATCH /teams/{id}. A manager_id change is propagated to
// every project of the team.
func (h *Handler) UpdateTeam(w http.ResponseWriter, r *http.Request) {
	var ch entity.TeamChanges
	h.EvaluateWrite(w, r, h.Engine, entity.TypeTeam, entity.OpUpdate, &ch)
}

func (h *Handler) GetTeam(w http.ResponseWriter, r *http.Request) {
	h.EvaluateByID(w, r, h.Engine, entity.TypeTeam, entity.OpRead)
}

func (h *Handler) DeactivateTeam(w http.ResponseWriter, r *http.Request) {
	h.EvaluateByID(w, r, h.Engine, entity.TypeTeam, entity.OpDeactivate)
}

func (h *Handler) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	h.EvaluateByID(w, r, h.Engine, entity.TypeTeam, entity.OpDelete)
}

// ListTeamMembers handles GET /teams/{id}/members
func (h *Handler) ListTeamMembers(w http.ResponseWriter, r *http.Request) {
	id, err := h.PathID(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.Evaluate(w, r, h.Engine, engine.Intent{
		Operation: entity.OpList,
		Entity:    entity.TypeUser,
		Query:     entity.Query{TeamID: id},
	}, http.StatusOK)
}
