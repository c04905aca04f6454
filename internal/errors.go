package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeAuthorizationDenied ErrorType = "AUTHORIZATION_DENIED"
	ErrorTypeConstraintViolation ErrorType = "CONSTRAINT_VIOLATION"
	ErrorTypeNotFound            ErrorType = "NOT_FOUND"
	ErrorTypeImmutableState      ErrorType = "IMMUTABLE_STATE_VIOLATION"
	ErrorTypeUnauthorized        ErrorType = "UNAUTHORIZED"
	ErrorTypeInternal            ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidRequest   ErrorCode = "INVALID_REQUEST"

	ErrCodeSelfAction          ErrorCode = "SELF_ACTION"
	ErrCodeUnsupportedOp       ErrorCode = "UNSUPPORTED_OPERATION"
	ErrCodeAdminOnly           ErrorCode = "ADMIN_ONLY"
	ErrCodeNotTeamManager      ErrorCode = "NOT_TEAM_MANAGER"
	ErrCodeNotProjectManager   ErrorCode = "NOT_PROJECT_MANAGER"
	ErrCodeNotAssignee         ErrorCode = "NOT_ASSIGNEE"
	ErrCodeRoleNotAssignable   ErrorCode = "ROLE_NOT_ASSIGNABLE"
	ErrCodeEmployeesOnly       ErrorCode = "EMPLOYEES_ONLY"
	ErrCodeTeamChangeForbidden ErrorCode = "TEAM_CHANGE_FORBIDDEN"
	ErrCodeFieldForbidden      ErrorCode = "FIELD_FORBIDDEN"
	ErrCodeTransitionDenied    ErrorCode = "TRANSITION_DENIED"
	ErrCodeReassignDenied      ErrorCode = "REASSIGN_DENIED"
	ErrCodeOutOfScope          ErrorCode = "OUT_OF_SCOPE"

	ErrCodeDuplicate            ErrorCode = "DUPLICATE"
	ErrCodeDuplicateAssignment  ErrorCode = "DUPLICATE_ACTIVE_ASSIGNMENT"
	ErrCodeDepartmentMismatch   ErrorCode = "DEPARTMENT_MISMATCH"
	ErrCodeTeamWithoutManager   ErrorCode = "TEAM_WITHOUT_MANAGER"
	ErrCodeInvalidManager       ErrorCode = "INVALID_MANAGER"
	ErrCodeNotTeamMember        ErrorCode = "NOT_TEAM_MEMBER"
	ErrCodeInactiveReference    ErrorCode = "INACTIVE_REFERENCE"
	ErrCodeInvalidDateRange     ErrorCode = "INVALID_DATE_RANGE"
	ErrCodeTeamHasProjects      ErrorCode = "TEAM_HAS_PROJECTS"
	ErrCodeManagerOfActiveTeam  ErrorCode = "MANAGER_OF_ACTIVE_TEAM"
	ErrCodeAlreadyInactive      ErrorCode = "ALREADY_INACTIVE"
	ErrCodeTaskDone             ErrorCode = "TASK_DONE"
	ErrCodeAssigneeNotOnProject ErrorCode = "ASSIGNEE_NOT_ON_PROJECT"
	ErrCodeEntityNotFound       ErrorCode = "ENTITY_NOT_FOUND"
	ErrCodeInvalidCredentials   ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeUserInactive         ErrorCode = "USER_INACTIVE"
	ErrCodeInvalidToken         ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired         ErrorCode = "TOKEN_EXPIRED"
	ErrCodeInternal             ErrorCode = "INTERNAL_ERROR"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			messages := make([]string, len(validationErrors.Errors))
			for i, err := range validationErrors.Errors {
				messages[i] = err.Message
			}
			if len(messages) > 0 {
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches another AppError with the same type and code, so sentinels work
// with errors.Is even after WithCause/WithDetails copies.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// WithCause returns a copy of the error carrying cause.
func (e *AppError) WithCause(cause error) *AppError {
	c := *e
	c.Cause = cause
	return &c
}

// WithDetails returns a copy of the error carrying details.
func (e *AppError) WithDetails(details interface{}) *AppError {
	c := *e
	c.Details = details
	return &c
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v *ValidationErrors) Add(field, message string, code ErrorCode) {
	v.Errors = append(v.Errors, ValidationError{Field: field, Message: message, Code: string(code)})
}

func (v ValidationErrors) Empty() bool {
	return len(v.Errors) == 0
}

// Err returns nil when nothing was collected.
func (v ValidationErrors) Err() error {
	if v.Empty() {
		return nil
	}
	return &AppError{
		Type:       ErrorTypeConstraintViolation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusConflict,
		Details:    v,
	}
}

func NewAuthorizationDenied(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeAuthorizationDenied,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewConstraintViolation(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConstraintViolation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	var v ValidationErrors
	v.Add(field, message, code)
	return v.Err().(*AppError)
}

func NewImmutableStateViolation(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeImmutableState,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewBadRequestError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeConstraintViolation,
		Code:       ErrCodeInvalidRequest,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       ErrCodeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NotFoundf builds a NotFound error for the named entity.
func NotFoundf(entity string, id int64) *AppError {
	return NewNotFoundError(fmt.Sprintf("%s %d not found", entity, id), ErrCodeEntityNotFound)
}

var (
	ErrSelfAction        = NewAuthorizationDenied("cannot act on yourself", ErrCodeSelfAction)
	ErrRoleNotAssignable = NewAuthorizationDenied("cannot assign this role", ErrCodeRoleNotAssignable)
	ErrEmployeesOnly     = NewAuthorizationDenied("managers can only manage employees", ErrCodeEmployeesOnly)

	ErrAlreadyInactive      = NewImmutableStateViolation("already inactive", ErrCodeAlreadyInactive)
	ErrTaskDone             = NewImmutableStateViolation("task is done and can no longer be modified", ErrCodeTaskDone)
	ErrDuplicateAssignment  = NewConstraintViolation("user already has an active assignment on this project", ErrCodeDuplicateAssignment)
	ErrDepartmentMismatch   = NewConstraintViolation("department does not match the team's department", ErrCodeDepartmentMismatch)
	ErrTeamWithoutManager   = NewConstraintViolation("team has no manager and cannot back a project", ErrCodeTeamWithoutManager)
	ErrNotTeamMember        = NewConstraintViolation("user is not a member of the project's team", ErrCodeNotTeamMember)
	ErrAssigneeNotOnProject = NewConstraintViolation("assignee has no active assignment on the project", ErrCodeAssigneeNotOnProject)

	ErrInvalidCredentials = NewUnauthorizedError("Invalid email or password", ErrCodeInvalidCredentials)
	ErrUserInactive       = NewAuthorizationDenied("User account is inactive", ErrCodeUserInactive)
	ErrInvalidToken       = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired       = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func IsType(err error, t ErrorType) bool {
	appErr, ok := IsAppError(err)
	return ok && appErr.Type == t
}

func IsAuthorizationDenied(err error) bool {
	return IsType(err, ErrorTypeAuthorizationDenied)
}

func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

func IsImmutableState(err error) bool {
	return IsType(err, ErrorTypeImmutableState)
}

// IsConstraintViolation also holds for immutable-state violations, which are
// a narrower kind of constraint violation.
func IsConstraintViolation(err error) bool {
	return IsType(err, ErrorTypeConstraintViolation) || IsImmutableState(err)
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
