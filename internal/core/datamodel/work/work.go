package work

import "time"

type Project struct {
	ID           int64      `gorm:"primaryKey"`
	Name         string     `gorm:"column:name;not null"`
	Code         string     `gorm:"column:code;uniqueIndex;not null"`
	Description  string     `gorm:"column:description"`
	DepartmentID int64      `gorm:"column:department_id;not null;index"`
	TeamID       int64      `gorm:"column:team_id;not null;index"`
	ManagerID    *int64     `gorm:"column:manager_id;index"`
	Status       string     `gorm:"column:status;not null;index"`
	StartDate    time.Time  `gorm:"column:start_date;not null"`
	EndDate      *time.Time `gorm:"column:end_date"`
	CreatedBy    *int64     `gorm:"column:created_by"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Project) TableName() string {
	return "projects"
}

// Assignment carries a partial unique index so that at most one active row
// exists per (project_id, user_id).
type Assignment struct {
	ID         int64     `gorm:"primaryKey"`
	ProjectID  int64     `gorm:"column:project_id;not null;index:uq_assignments_active,unique,where:is_active = true"`
	UserID     int64     `gorm:"column:user_id;not null;index:uq_assignments_active,unique,where:is_active = true"`
	Role       string    `gorm:"column:role;not null"`
	AssignedBy *int64    `gorm:"column:assigned_by"`
	IsActive   bool      `gorm:"column:is_active;not null"`
	AssignedAt time.Time `gorm:"column:assigned_at;not null"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Assignment) TableName() string {
	return "assignments"
}

type Task struct {
	ID             int64      `gorm:"primaryKey"`
	ProjectID      int64      `gorm:"column:project_id;not null;index"`
	AssignedTo     *int64     `gorm:"column:assigned_to;index"`
	Title          string     `gorm:"column:title;not null"`
	Description    string     `gorm:"column:description"`
	Priority       string     `gorm:"column:priority;not null"`
	Status         string     `gorm:"column:status;not null"`
	StatusOrder    int        `gorm:"column:status_order;not null;index"`
	EstimatedHours float64    `gorm:"column:estimated_hours"`
	DueDate        *time.Time `gorm:"column:due_date"`
	StartedAt      *time.Time `gorm:"column:started_at"`
	CompletedAt    *time.Time `gorm:"column:completed_at"`
	CreatedBy      *int64     `gorm:"column:created_by"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Task) TableName() string {
	return "tasks"
}
