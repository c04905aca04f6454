package transport

import (
	"net/http"
	"strconv"

	"github.com/frahmantamala/workforce-management/internal"
	"github.com/frahmantamala/workforce-management/internal/authz"
	"github.com/frahmantamala/workforce-management/internal/core/entity"
	"github.com/frahmantamala/workforce-management/internal/engine"
)

// DataResponse wraps a successful engine result.
type DataResponse struct {
	Data    any                    `json:"data"`
	Derived map[string]interface{} `json:"derived,omitempty"`
}

// Evaluate runs the intent as the request's principal and writes the record
// (or records) with the given status.
func (h *BaseHandler) Evaluate(w http.ResponseWriter, r *http.Request, ev engine.EvaluatorAPI, in engine.Intent, status int) {
	p, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteError(w, internal.NewUnauthorizedError("Unauthorized", internal.ErrCodeInvalidToken))
		return
	}

	res, err := ev.Evaluate(r.Context(), p, in)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	body := DataResponse{Data: res.Record, Derived: res.Derived}
	if in.Operation == entity.OpList {
		body.Data = res.Records
	}
	h.WriteJSON(w, status, body)
}

// ActiveFilter reads ?status=current|history|all into an active flag. current
// is the default.
func (h *BaseHandler) ActiveFilter(r *http.Request) (*bool, error) {
	switch r.URL.Query().Get("status") {
	case "", "current":
		active := true
		return &active, nil
	case "history":
		active := false
		return &active, nil
	case "all":
		return nil, nil
	}
	return nil, internal.NewBadRequestError("status must be one of current, history, all")
}

// QueryBool parses an optional boolean query parameter; absent is nil.
func (h *BaseHandler) QueryBool(r *http.Request, name string) (*bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, internal.NewBadRequestError("invalid " + name + ": " + raw)
	}
	return &v, nil
}

// EvaluateWrite decodes the body into ch and evaluates a create, or an update
// of the record named by the id URL parameter.
func (h *BaseHandler) EvaluateWrite(w http.ResponseWriter, r *http.Request, ev engine.EvaluatorAPI, kind entity.Type, op entity.Operation, ch entity.Changes) {
	in := engine.Intent{Operation: op, Entity: kind, Changes: ch}
	status := http.StatusCreated
	if op != entity.OpCreate {
		id, err := h.PathID(r, "id")
		if err != nil {
			h.HandleServiceError(w, r, err)
			return
		}
		in.ID = id
		status = http.StatusOK
	}
	if err := h.ReadJSON(r, ch); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.Evaluate(w, r, ev, in, status)
}

// EvaluateByID evaluates op on the record named by the id URL parameter.
func (h *BaseHandler) EvaluateByID(w http.ResponseWriter, r *http.Request, ev engine.EvaluatorAPI, kind entity.Type, op entity.Operation) {
	id, err := h.PathID(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.Evaluate(w, r, ev, engine.Intent{Operation: op, Entity: kind, ID: id}, http.StatusOK)
}
