package auth

import (
	"strings"

	"github.com/frahmantamala/workforce-management/internal"
)

type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshTokenDTO struct {
	RefreshToken string `json:"refresh_token"`
}

func (d LoginDTO) Validate() error {
	var v internal.ValidationErrors
	if strings.TrimSpace(d.Email) == "" {
		v.Add("email", "email is required", internal.ErrCodeValidationFailed)
	}
	if d.Password == "" {
		v.Add("password", "password is required", internal.ErrCodeValidationFailed)
	}
	return v.Err()
}

func (d RefreshTokenDTO) Validate() error {
	if d.RefreshToken == "" {
		return internal.NewValidationFieldError("refresh_token", "refresh_token is required", internal.ErrCodeValidationFailed)
	}
	return nil
}
