package user

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/workforce-management/internal"
	"github.com/frahmantamala/workforce-management/internal/authz"
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

// GetCurrentUser handles GET /users/me
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	p, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteError(w, internal.NewUnauthorizedError("Unauthorized", internal.ErrCodeInvalidToken))
		return
	}
	h.Evaluate(w, r, h.Engine, engine.Intent{
		Operation: entity.OpRead,
		Entity:    entity.TypeUser,
		ID:        p.ID,
	}, http.StatusOK)
}

// ListUsers handles GET /users?team_id=
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	teamID, err := h.QueryID(r, "team_id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.Evaluate(w, r, h.Engine, engine.Intent{
		Operation: entity.OpList,
		Entity:    entity.TypeUser,
		Query:     entity.Query{TeamID: teamID},
	}, http.StatusOK)
}

// CreateUser handles POST /users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := h.ReadJSON(r, &req); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.Evaluate(w, r, h.Engine, engine.Intent{
		Operation: entity.OpCreate,
		Entity:    entity.TypeUser,
		Changes:   req.Changes(),
	}, http.StatusCreated)
}

// GetUser handles GET /users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	h.EvaluateByID(w, r, h.Engine, entity.TypeUser, entity.OpRead)
}

// UpdateUser handles PATCH /users/{id}
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := h.PathID(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	var req UpdateUserRequest
	if err := h.ReadJSON(r, &req); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.Evaluate(w, r, h.Engine, engine.Intent{
		Operation: entity.OpUpdate,
		Entity:    entity.TypeUser,
		ID:        id,
		Changes:   req.Changes(),
	}, http.StatusOK)
}

// DeactivateUser handles POST /users/{id}/deactivate
func (h *Handler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	h.EvaluateByID(w, r, h.Engine, entity.TypeUser, entity.OpDeactivate)
}

// DeleteUser handles DELETE /users/{id}
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	h.EvaluateByID(w, r, h.Engine, entity.TypeUser, entity.OpDelete)
}

// ListUserAssignments handles GET /users/{id}/assignments?status=current|history|all
func (h *Handler) ListUserAssignments(w http.ResponseWriter, r *http.Request) {
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
	h.Evaluate(w, r, h.Engine, engine.Intent{
		Operation: entity.OpList,
		Entity:    entity.TypeAssignment,
		Query:     entity.Query{UserID: id, Active: active},
	}, http.StatusOK)
}
