package entity

type ProjectStatus string

const (
	ProjectPlanned   ProjectStatus = "PLANNED"
	ProjectActive    ProjectStatus = "ACTIVE"
	ProjectOnHold    ProjectStatus = "ON_HOLD"
	ProjectCompleted ProjectStatus = "COMPLETED"
	ProjectCancelled ProjectStatus = "CANCELLED"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectPlanned, ProjectActive, ProjectOnHold, ProjectCompleted, ProjectCancelled:
		return true
	}
	return false
}

type TaskStatus string

const (
	TaskTodo       TaskStatus = "TODO"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskReview     TaskStatus = "REVIEW"
	TaskBlocked    TaskStatus = "BLOCKED"
	TaskDone       TaskStatus = "DONE"
)

// TaskStatuses is ordered by status-order.
var TaskStatuses = []TaskStatus{TaskTodo, TaskInProgress, TaskReview, TaskBlocked, TaskDone}

// Order returns the fixed list position of the status, or 0 when unknown.
func (s TaskStatus) Order() int {
	for i, known := range TaskStatuses {
		if s == known {
			return i + 1
		}
	}
	return 0
}

func (s TaskStatus) Valid() bool {
	return s.Order() > 0
}

func (s TaskStatus) IsTerminal() bool {
	return s == TaskDone
}

type TaskPriority string

const (
	PriorityHigh   TaskPriority = "HIGH"
	PriorityMedium TaskPriority = "MEDIUM"
	PriorityLow    TaskPriority = "LOW"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// AssignmentRole is the functional role a user plays on a project. It is
// unrelated to the access role of the user.
type AssignmentRole string

const (
	AssignmentProjectManager AssignmentRole = "PROJECT_MANAGER"
	AssignmentTeamLead       AssignmentRole = "TEAM_LEAD"
	AssignmentEngineer       AssignmentRole = "ENGINEER"
	AssignmentQA             AssignmentRole = "QA"
	AssignmentDesigner       AssignmentRole = "DESIGNER"
	AssignmentAnalyst        AssignmentRole = "ANALYST"
)

func (r AssignmentRole) Valid() bool {
	switch r {
	case AssignmentProjectManager, AssignmentTeamLead, AssignmentEngineer, AssignmentQA, AssignmentDesigner, AssignmentAnalyst:
		return true
	}
	return false
}
