package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/frahmantamala/workforce-management/internal"
	"github.com/frahmantamala/workforce-management/internal/auth"
	"github.com/frahmantamala/workforce-management/internal/authz"
	"github.com/frahmantamala/workforce-management/internal/core/role"
	"github.com/jmoiron/sqlx"
)

// Repository reads credentials straight from the users table. It works on
// any driver sqlx knows the bind style of.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetCredentials(ctx context.Context, email string) (*auth.Credentials, error) {
	var creds auth.Credentials
	query := r.db.Rebind(`SELECT id, password_hash, role, is_active FROM users WHERE email = ?`)
	if err := r.db.GetContext(ctx, &creds, query, strings.ToLower(strings.TrimSpace(email))); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, internal.NewNotFoundError("user not found", internal.ErrCodeEntityNotFound)
		}
		return nil, err
	}
	return &creds, nil
}

type principalRow struct {
	ID           int64         `db:"id"`
	Role         string        `db:"role"`
	TeamID       sql.NullInt64 `db:"team_id"`
	DepartmentID sql.NullInt64 `db:"department_id"`
	IsActive     bool          `db:"is_active"`
}

func (r *Repository) GetPrincipal(ctx context.Context, userID int64) (*authz.Principal, bool, error) {
	var row principalRow
	query := r.db.Rebind(`SELECT id, role, team_id, department_id, is_active FROM users WHERE id = ?`)
	if err := r.db.GetContext(ctx, &row, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, internal.NotFoundf("user", userID)
		}
		return nil, false, err
	}

	p := &authz.Principal{ID: row.ID, Role: role.Role(row.Role)}
	if row.TeamID.Valid {
		p.TeamID = &row.TeamID.Int64
	}
	if row.DepartmentID.Valid {
		p.DepartmentID = &row.DepartmentID.Int64
	}
	return p, row.IsActive, nil
}
