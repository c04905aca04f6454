package user

import (
	"strings"

	"github.com/frahmantamala/workforce-management/internal"
	"github.com/frahmantamala/workforce-management/internal/core/entity"
	"github.com/frahmantamala/workforce-management/internal/core/role"
)

type CreateUserRequest struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	Password     string `json:"password"`
	Role         string `json:"role,omitempty"`
	DepartmentID *int64 `json:"department_id,omitempty"`
	TeamID       *int64 `json:"team_id,omitempty"`
}

func (req CreateUserRequest) Validate() error {
	var v internal.ValidationErrors
	if strings.TrimSpace(req.Email) == "" {
		v.Add("email", "email is required", internal.ErrCodeValidationFailed)
	}
	if strings.TrimSpace(req.Name) == "" {
		v.Add("name", "name is required", internal.ErrCodeValidationFailed)
	}
	if req.Password == "" {
		v.Add("password", "password is required", internal.ErrCodeValidationFailed)
	}
	if req.Role != "" && !role.Role(req.Role).Valid() {
		v.Add("role", "role must be one of ADMIN, MANAGER, EMPLOYEE", internal.ErrCodeValidationFailed)
	}
	return v.Err()
}

func (req CreateUserRequest) Changes() *entity.UserChanges {
	ch := &entity.UserChanges{
		Email:        entity.Ptr(req.Email),
		Name:         entity.Ptr(req.Name),
		Password:     entity.Ptr(req.Password),
		DepartmentID: req.DepartmentID,
		TeamID:       req.TeamID,
	}
	if req.Role != "" {
		ch.Role = entity.Ptr(role.Role(req.Role))
	}
	return ch
}

// UpdateUserRequest is a partial update; absent fields stay as they are.
type UpdateUserRequest struct {
	Email        *string `json:"email,omitempty"`
	Name         *string `json:"name,omitempty"`
	Password     *string `json:"password,omitempty"`
	Role         *string `json:"role,omitempty"`
	DepartmentID *int64  `json:"department_id,omitempty"`
	TeamID       *int64  `json:"team_id,omitempty"`
	IsActive     *bool   `json:"is_active,omitempty"`
}

func (req UpdateUserRequest) Validate() error {
	if req.Role != nil && !role.Role(*req.Role).Valid() {
		return internal.NewValidationFieldError("role", "role must be one of ADMIN, MANAGER, EMPLOYEE", internal.ErrCodeValidationFailed)
	}
	return nil
}

func (req UpdateUserRequest) Changes() *entity.UserChanges {
	ch := &entity.UserChanges{
		Email:        req.Email,
		Name:         req.Name,
		Password:     req.Password,
		DepartmentID: req.DepartmentID,
		TeamID:       req.TeamID,
		IsActive:     req.IsActive,
	}
	if req.Role != nil {
		ch.Role = entity.Ptr(role.Role(*req.Role))
	}
	return ch
}
