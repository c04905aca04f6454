// Package engine is the single entry point of the authorization and
// consistency core. Evaluate runs one intent inside one store transaction:
// policy first, then the task lifecycle, then the consistency rules.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/workforce-management/internal"
	"github.com/frahmantamala/workforce-management/internal/authz"
	"github.com/frahmantamala/workforce-management/internal/consistency"
	"github.com/frahmantamala/workforce-management/internal/core/entity"
	"github.com/frahmantamala/workforce-management/internal/core/events"
	"github.com/frahmantamala/workforce-management/internal/store"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// Intent is a validated request against one entity type.
type Intent struct {
	Operation entity.Operation `json:"operation"`
	Entity    entity.Type      `json:"entity"`
	ID        int64            `json:"id,omitempty"`
	Changes   entity.Changes   `json:"changes,omitempty"`
	Query     entity.Query     `json:"query,omitempty"`
}

// Result is the outcome of an allowed intent. Record holds the read or
// written record, Records the result of a list.
type Result struct {
	Allowed bool                       `json:"allowed"`
	Record  any                        `json:"record,omitempty"`
	Records any                        `json:"records,omitempty"`
	Derived consistency.Derived        `json:"derived,omitempty"`
	Errors  []internal.ValidationError `json:"errors,omitempty"`
}

// EvaluatorAPI is what the transport layer depends on.
type EvaluatorAPI interface {
	Evaluate(ctx context.Context, p authz.Principal, in Intent) (*Result, error)
}

type Engine struct {
	store      store.Store
	bus        *events.EventBus
	logger     *slog.Logger
	clock      func() time.Time
	bcryptCost int
}

type Option func(*Engine)

func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

func WithBCryptCost(cost int) Option {
	return func(e *Engine) {
		e.bcryptCost = cost
	}
}

// New builds an engine. bus may be nil, in which case no events are
// published.
func New(s store.Store, bus *events.EventBus, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:      s,
		bus:        bus,
		logger:     logger,
		clock:      time.Now,
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate authorizes, validates and applies the intent. A denied or invalid
// intent leaves the store untouched and returns an *internal.AppError along
// with a result whose Allowed is false.
func (e *Engine) Evaluate(ctx context.Context, p authz.Principal, in Intent) (*Result, error) {
	if err := checkIntent(in); err != nil {
		return e.fail(ctx, p, in, err)
	}
	changes, err := e.hashPassword(in.Changes)
	if err != nil {
		return e.fail(ctx, p, in, err)
	}
	in.Changes = changes

	now := e.clock().UTC()
	var (
		res     *Result
		pending []events.Event
	)
	err = e.store.WithinTx(ctx, func(tx store.Tx) error {
		run := &evaluation{
			tx:        tx,
			c:         consistency.New(tx, now),
			principal: p,
			intent:    in,
			now:       now,
		}
		var err error
		res, err = run.dispatch()
		pending = run.events
		return err
	})
	if err != nil {
		return e.fail(ctx, p, in, err)
	}

	res.Allowed = true
	e.logger.Info("intent applied",
		"user_id", p.ID,
		"operation", in.Operation,
		"entity", in.Entity,
		"id", in.ID,
		"events", len(pending))
	e.publish(ctx, pending)
	return res, nil
}

// fail normalizes err into an AppError and logs it at a level matching its
// type.
func (e *Engine) fail(ctx context.Context, p authz.Principal, in Intent, err error) (*Result, error) {
	appErr, ok := internal.IsAppError(err)
	if !ok {
		switch {
		case store.IsNotFound(err):
			appErr = internal.NotFoundf(string(in.Entity), in.ID)
		case store.IsConflict(err):
			appErr = internal.NewConstraintViolation("conflicting write", internal.ErrCodeDuplicate).WithCause(err)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			appErr = internal.NewInternalError("request cancelled", err)
		default:
			appErr = internal.NewInternalError("failed to evaluate intent", err)
		}
	}

	attrs := []any{
		"user_id", p.ID,
		"role", p.Role,
		"operation", in.Operation,
		"entity", in.Entity,
		"id", in.ID,
		"code", appErr.Code,
	}
	switch appErr.Type {
	case internal.ErrorTypeInternal:
		e.logger.ErrorContext(ctx, "intent failed", append(attrs, "error", err)...)
	case internal.ErrorTypeAuthorizationDenied:
		e.logger.WarnContext(ctx, "intent denied", append(attrs, "reason", appErr.Message)...)
	default:
		e.logger.InfoContext(ctx, "intent rejected", append(attrs, "reason", appErr.GetDetailedMessage())...)
	}

	res := &Result{Allowed: false}
	if details, ok := appErr.Details.(internal.ValidationErrors); ok {
		res.Errors = details.Errors
	}
	return res, appErr
}

func (e *Engine) publish(ctx context.Context, pending []events.Event) {
	if e.bus == nil {
		return
	}
	for _, ev := range pending {
		if err := e.bus.Publish(ctx, ev); err != nil {
			e.logger.Error("failed to publish event", "event_type", ev.EventType(), "error", err)
		}
	}
}

// hashPassword returns a copy of user changes with the plain password
// replaced by its bcrypt hash. Other changes pass through.
func (e *Engine) hashPassword(ch entity.Changes) (entity.Changes, error) {
	uc, ok := ch.(*entity.UserChanges)
	if !ok || uc == nil || uc.Password == nil {
		return ch, nil
	}
	if len(*uc.Password) < minPasswordLength {
		return nil, internal.NewValidationFieldError("password",
			fmt.Sprintf("password must be at least %d characters", minPasswordLength), internal.ErrCodeValidationFailed)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(*uc.Password), e.bcryptCost)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}
	hashed := *uc
	hashed.PasswordHash = entity.Ptr(string(hash))
	hashed.Password = nil
	return &hashed, nil
}

func checkIntent(in Intent) error {
	if !in.Entity.Valid() {
		return internal.NewBadRequestError(fmt.Sprintf("unknown entity %q", in.Entity))
	}
	if !in.Operation.Valid() {
		return internal.NewBadRequestError(fmt.Sprintf("unknown operation %q", in.Operation))
	}
	needsID := in.Operation != entity.OpCreate && in.Operation != entity.OpList
	if needsID && in.ID <= 0 {
		return internal.NewBadRequestError(fmt.Sprintf("%s requires an id", in.Operation))
	}
	if in.Operation == entity.OpCreate || in.Operation == entity.OpUpdate {
		if in.Changes == nil || !changesMatch(in.Entity, in.Changes) {
			return internal.NewBadRequestError(fmt.Sprintf("%s %s requires %s changes", in.Operation, in.Entity, in.Entity))
		}
	}
	return nil
}

func changesMatch(t entity.Type, ch entity.Changes) bool {
	switch c := ch.(type) {
	case *entity.DepartmentChanges:
		return c != nil && t == entity.TypeDepartment
	case *entity.TeamChanges:
		return c != nil && t == entity.TypeTeam
	case *entity.ProjectChanges:
		return c != nil && t == entity.TypeProject
	case *entity.AssignmentChanges:
		return c != nil && t == entity.TypeAssignment
	case *entity.TaskChanges:
		return c != nil && t == entity.TypeTask
	case *entity.UserChanges:
		return c != nil && t == entity.TypeUser
	}
	return false
}
