package entity

import (
	"time"

	orgDatamodel "github.com/frahmantamala/workforce-management/internal/core/datamodel/organization"
)

type Department struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedBy   *int64    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Team struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Code         string    `json:"code"`
	DepartmentID int64     `json:"department_id"`
	ManagerID    *int64    `json:"manager_id,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (t *Team) IsManagedBy(userID int64) bool {
	return t.ManagerID != nil && *t.ManagerID == userID
}

func (t *Team) HasManager() bool {
	return t.ManagerID != nil && *t.ManagerID != 0
}

func (t *Team) Deactivate(now time.Time) {
	t.IsActive = false
	t.UpdatedAt = now
}

func ToDepartmentDataModel(d *Department) *orgDatamodel.Department {
	return &orgDatamodel.Department{
		ID:          d.ID,
		Name:        d.Name,
		Code:        d.Code,
		Description: d.Description,
		IsActive:    d.IsActive,
		CreatedBy:   d.CreatedBy,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func FromDepartmentDataModel(d *orgDatamodel.Department) *Department {
	return &Department{
		ID:          d.ID,
		Name:        d.Name,
		Code:        d.Code,
		Description: d.Description,
		IsActive:    d.IsActive,
		CreatedBy:   d.CreatedBy,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func ToTeamDataModel(t *Team) *orgDatamodel.Team {
	return &orgDatamodel.Team{
		ID:           t.ID,
		Name:         t.Name,
		Code:         t.Code,
		DepartmentID: t.DepartmentID,
		ManagerID:    t.ManagerID,
		IsActive:     t.IsActive,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

func FromTeamDataModel(t *orgDatamodel.Team) *Team {
	return &Team{
		ID:           t.ID,
		Name:         t.Name,
		Code:         t.Code,
		DepartmentID: t.DepartmentID,
		ManagerID:    t.ManagerID,
		IsActive:     t.IsActive,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}
