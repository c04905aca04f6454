package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/frahmantamala/workforce-management/internal"
	"github.com/frahmantamala/workforce-management/internal/authz"
	"github.com/frahmantamala/workforce-management/internal/core/role"
	"github.com/frahmantamala/workforce-management/pkg/logger"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
)

func TestAuth(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Auth Module Suite")
}

type fakeUser struct {
	creds     Credentials
	principal authz.Principal
}

// fakeRepository keeps users by email.
type fakeRepository struct {
	users map[string]*fakeUser
}

func newFakeRepository() *fakeRepository {
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct_password"), bcrypt.MinCost)
	teamID := int64(10)
	repo := &fakeRepository{users: map[string]*fakeUser{}}
	add := func(email string, id int64, r role.Role, active bool) {
		repo.users[email] = &fakeUser{
			creds:     Credentials{UserID: id, PasswordHash: string(hash), Role: string(r), IsActive: active},
			principal: authz.Principal{ID: id, Role: r, TeamID: &teamID},
		}
	}
	add("employee@example.com", 1, role.Employee, true)
	add("manager@example.com", 2, role.Manager, true)
	add("gone@example.com", 3, role.Employee, false)
	return repo
}

func (f *fakeRepository) GetCredentials(_ context.Context, email string) (*Credentials, error) {
	u, ok := f.users[email]
	if !ok {
		return nil, internal.NewNotFoundError("user not found", internal.ErrCodeEntityNotFound)
	}
	creds := u.creds
	return &creds, nil
}

func (f *fakeRepository) GetPrincipal(_ context.Context, userID int64) (*authz.Principal, bool, error) {
	for _, u := range f.users {
		if u.creds.UserID == userID {
			p := u.principal
			return &p, u.creds.IsActive, nil
		}
	}
	return nil, false, internal.NotFoundf("user", userID)
}

var _ = ginkgo.Describe("AuthService", func() {
	var (
		ctx      context.Context
		repo     *fakeRepository
		tokenGen *JWTTokenGenerator
		service  *Service
	)

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		repo = newFakeRepository()
		tokenGen = NewJWTTokenGenerator("test-secret", 15*time.Minute, 24*time.Hour)
		service = NewService(repo, tokenGen, logger.Discard())
	})

	ginkgo.Describe("Authenticate", func() {
		ginkgo.It("returns distinct access and refresh tokens carrying id and role", func() {
			tokens, err := service.Authenticate(ctx, LoginDTO{Email: "manager@example.com", Password: "correct_password"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(tokens.AccessToken).ToNot(gomega.Equal(tokens.RefreshToken))
			gomega.Expect(tokens.ExpiresIn).To(gomega.Equal(int64(900)))

			claims, err := service.ValidateAccessToken(tokens.AccessToken)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(claims.UserID).To(gomega.Equal(int64(2)))
			gomega.Expect(claims.Role).To(gomega.Equal("MANAGER"))
		})

		ginkgo.It("rejects a wrong password and an unknown email alike", func() {
			_, err := service.Authenticate(ctx, LoginDTO{Email: "manager@example.com", Password: "nope"})
			gomega.Expect(err).To(gomega.MatchError(ErrInvalidCredentials))

			_, err = service.Authenticate(ctx, LoginDTO{Email: "who@example.com", Password: "correct_password"})
			gomega.Expect(err).To(gomega.MatchError(ErrInvalidCredentials))
		})

		ginkgo.It("rejects inactive users", func() {
			_, err := service.Authenticate(ctx, LoginDTO{Email: "gone@example.com", Password: "correct_password"})
			gomega.Expect(err).To(gomega.MatchError(ErrUserInactive))
		})

		ginkgo.It("validates the request", func() {
			_, err := service.Authenticate(ctx, LoginDTO{})
			gomega.Expect(internal.IsConstraintViolation(err)).To(gomega.BeTrue())
		})
	})

	ginkgo.Describe("tokens", func() {
		ginkgo.It("does not accept a refresh token as an access token", func() {
			tokens, err := service.Authenticate(ctx, LoginDTO{Email: "employee@example.com", Password: "correct_password"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.ValidateAccessToken(tokens.RefreshToken)
			gomega.Expect(err).To(gomega.MatchError(ErrInvalidToken))

			refreshed, err := service.RefreshTokens(ctx, tokens.RefreshToken)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(refreshed.AccessToken).ToNot(gomega.BeEmpty())

			_, err = service.RefreshTokens(ctx, tokens.AccessToken)
			gomega.Expect(err).To(gomega.MatchError(ErrInvalidToken))
		})

		ginkgo.It("reports expired tokens", func() {
			token, err := tokenGen.GenerateAccessToken(1, "EMPLOYEE")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			tokenGen.now = func() time.Time { return time.Now().Add(time.Hour) }

			_, err = tokenGen.ValidateToken(token, TokenTypeAccess)
			gomega.Expect(err).To(gomega.MatchError(ErrTokenExpired))
		})

		ginkgo.It("rejects tokens signed with another secret", func() {
			other := NewJWTTokenGenerator("other-secret", time.Minute, time.Hour)
			token, err := other.GenerateAccessToken(1, "ADMIN")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = tokenGen.ValidateToken(token, TokenTypeAccess)
			gomega.Expect(err).To(gomega.MatchError(ErrInvalidToken))
		})
	})

	ginkgo.Describe("AuthMiddleware", func() {
		var handler *Handler

		ginkgo.BeforeEach(func() {
			handler = NewHandler(service, logger.Discard())
		})

		serve := func(token string) (*httptest.ResponseRecorder, *authz.Principal) {
			var seen *authz.Principal
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				p, ok := authz.PrincipalFromContext(r.Context())
				if ok {
					seen = &p
				}
				w.WriteHeader(http.StatusNoContent)
			})
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
			if token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}
			rec := httptest.NewRecorder()
			handler.AuthMiddleware(next).ServeHTTP(rec, req)
			return rec, seen
		}

		ginkgo.It("places the principal in the context", func() {
			token, _ := tokenGen.GenerateAccessToken(2, "MANAGER")
			rec, p := serve(token)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusNoContent))
			gomega.Expect(p).ToNot(gomega.BeNil())
			gomega.Expect(p.Role).To(gomega.Equal(role.Manager))
			gomega.Expect(*p.TeamID).To(gomega.Equal(int64(10)))
		})

		ginkgo.It("answers 401 without a token", func() {
			rec, p := serve("")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(p).To(gomega.BeNil())
			gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring("INVALID_TOKEN"))
		})

		ginkgo.It("answers 403 for a deactivated user holding a valid token", func() {
			token, _ := tokenGen.GenerateAccessToken(3, "EMPLOYEE")
			rec, _ := serve(token)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
		})
	})

	ginkgo.Describe("RequireRole", func() {
		ginkgo.It("lets higher roles through and stops lower ones", func() {
			rbac := NewRBACAuthorization(logger.Discard())
			guarded := rbac.RequireManager()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			for r, status := range map[role.Role]int{
				role.Admin:    http.StatusOK,
				role.Manager:  http.StatusOK,
				role.Employee: http.StatusForbidden,
			} {
				req := httptest.NewRequest(http.MethodGet, "/", nil)
				req = req.WithContext(authz.WithPrincipal(req.Context(), authz.Principal{ID: 1, Role: r}))
				rec := httptest.NewRecorder()
				guarded.ServeHTTP(rec, req)
				gomega.Expect(rec.Code).To(gomega.Equal(status), string(r))
			}

			rec := httptest.NewRecorder()
			guarded.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", strings.NewReader("")))
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
		})
	})
})
