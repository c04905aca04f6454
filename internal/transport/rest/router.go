package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/workforce-management/internal/auth"
	"github.com/frahmantamala/workforce-management/internal/authz"
	"github.com/frahmantamala/workforce-management/internal/organization"
	"github.com/frahmantamala/workforce-management/internal/transport"
	"github.com/frahmantamala/workforce-management/internal/transport/middleware"
	"github.com/frahmantamala/workforce-management/internal/transport/swagger"
	"github.com/frahmantamala/workforce-management/internal/user"
	"github.com/frahmantamala/workforce-management/internal/work"
	"github.com/go-chi/chi"
)

// Handlers groups everything the router mounts. Validator and Health are
// optional.
type Handlers struct {
	Auth         *auth.Handler
	RBAC         *auth.RBACAuthorization
	User         *user.Handler
	Organization *organization.Handler
	Work         *work.Handler
	Health       *HealthHandler
	Validator    func(http.Handler) http.Handler
	OpenAPISpec  string
	CORSOrigins  string
}

func RegisterAllRoutes(router chi.Router, h Handlers, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.CORS(h.CORSOrigins))
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	if h.OpenAPISpec != "" {
		router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, h.OpenAPISpec)
		})
		router.Handle("/swagger/*", swagger.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		if h.Health != nil {
			r.Get("/health", h.Health.Health)
			r.Get("/ping", h.Health.Ping)
		}
		r.Group(func(vr chi.Router) {
			if h.Validator != nil {
				vr.Use(h.Validator)
			}
			mountAPI(vr, h, logger)
		})
	})
}

func mountAPI(r chi.Router, h Handlers, logger *slog.Logger) {
	r.Route("/auth", func(ar chi.Router) {
		ar.Post("/login", h.Auth.Login)
		ar.Post("/refresh", h.Auth.RefreshToken)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(h.Auth.AuthMiddleware)

		pr.Route("/users", func(ur chi.Router) {
			ur.Get("/", h.User.ListUsers)
			ur.Post("/", h.User.CreateUser)
			ur.Get("/me", h.User.GetCurrentUser)
			ur.Get("/{id}", h.User.GetUser)
			ur.Patch("/{id}", h.User.UpdateUser)
			ur.Delete("/{id}", h.User.DeleteUser)
			ur.Post("/{id}/deactivate", h.User.DeactivateUser)
			ur.Get("/{id}/assignments", h.User.ListUserAssignments)
		})

		pr.Route("/departments", func(dr chi.Router) {
			dr.Get("/", h.Organization.ListDepartments)
			dr.Post("/", h.Organization.CreateDepartment)
			dr.Get("/{id}", h.Organization.GetDepartment)
			dr.Patch("/{id}", h.Organization.UpdateDepartment)
			dr.Delete("/{id}", h.Organization.DeleteDepartment)
			dr.Post("/{id}/deactivate", h.Organization.DeactivateDepartment)
		})

		pr.Route("/teams", func(tr chi.Router) {
			tr.Get("/", h.Organization.ListTeams)
			tr.Post("/", h.Organization.CreateTeam)
			tr.Get("/{id}", h.Organization.GetTeam)
			tr.Patch("/{id}", h.Organization.UpdateTeam)
			tr.Delete("/{id}", h.Organization.DeleteTeam)
			tr.Post("/{id}/deactivate", h.Organization.DeactivateTeam)
			tr.Get("/{id}/members", h.Organization.ListTeamMembers)
		})

		pr.Route("/projects", func(pjr chi.Router) {
			pjr.Get("/", h.Work.ListProjects)
			pjr.Post("/", h.Work.CreateProject)
			pjr.Get("/{id}", h.Work.GetProject)
			pjr.Patch("/{id}", h.Work.UpdateProject)
			pjr.Delete("/{id}", h.Work.DeleteProject)
			pjr.Get("/{id}/members", h.Work.ListProjectMembers)
			pjr.Get("/{id}/tasks", h.Work.ListProjectTasks)
		})

		pr.Get("/managers/{id}/projects", h.Work.ListManagerProjects)

		pr.Route("/assignments", func(asr chi.Router) {
			asr.Get("/", h.Work.ListAssignments)
			asr.Post("/", h.Work.CreateAssignment)
			asr.Get("/{id}", h.Work.GetAssignment)
			asr.Patch("/{id}", h.Work.UpdateAssignment)
			asr.Delete("/{id}", h.Work.DeleteAssignment)
			asr.Post("/{id}/deactivate", h.Work.DeactivateAssignment)
		})

		pr.Route("/tasks", func(tkr chi.Router) {
			tkr.Get("/", h.Work.ListTasks)
			tkr.Post("/", h.Work.CreateTask)
			tkr.Get("/{id}", h.Work.GetTask)
			tkr.Patch("/{id}", h.Work.UpdateTask)
			tkr.Delete("/{id}", h.Work.DeleteTask)
		})

		pr.Group(func(admin chi.Router) {
			admin.Use(h.RBAC.RequireAdmin())
			admin.Get("/policy/matrix", policyMatrix(transport.NewBaseHandler(logger)))
		})
	})
}

func policyMatrix(base *transport.BaseHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		base.WriteJSON(w, http.StatusOK, transport.DataResponse{Data: authz.Matrix()})
	}
}
