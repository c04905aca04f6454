package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/workforce-management/internal"
	"github.com/frahmantamala/workforce-management/internal/authz"
	"github.com/frahmantamala/workforce-management/internal/core/role"
	"github.com/frahmantamala/workforce-management/internal/transport"
)

// RBACAuthorization gates whole routes on a minimum role. Per-record rules
// stay in the engine; this only keeps clearly out-of-reach routes cheap.
type RBACAuthorization struct {
	*transport.BaseHandler
	logger *slog.Logger
}

func NewRBACAuthorization(logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{
		BaseHandler: transport.NewBaseHandler(logger),
		logger:      logger,
	}
}

// RequireRole lets through principals holding threshold or a higher role.
func (ra *RBACAuthorization) RequireRole(threshold role.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := authz.PrincipalFromContext(r.Context())
			if !ok {
				ra.logger.WarnContext(r.Context(), "authorization check failed: principal not found in context")
				ra.WriteError(w, internal.NewUnauthorizedError("Unauthorized", internal.ErrCodeInvalidToken))
				return
			}

			if !role.IsAtLeast(p.Role, threshold) {
				ra.logger.WarnContext(r.Context(), "access denied: role below threshold",
					"user_id", p.ID,
					"role", p.Role,
					"required_role", threshold)
				ra.WriteError(w, internal.NewAuthorizationDenied(
					"this route requires the "+threshold.String()+" role or above", internal.ErrCodeOutOfScope))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (ra *RBACAuthorization) RequireManager() func(http.Handler) http.Handler {
	return ra.RequireRole(role.Manager)
}

func (ra *RBACAuthorization) RequireAdmin() func(http.Handler) http.Handler {
	return ra.RequireRole(role.Admin)
}
