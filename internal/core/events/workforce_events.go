package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeTeamManagerChanged    = "team.manager_changed"
	EventTypeAssignmentActivated   = "assignment.activated"
	EventTypeAssignmentDeactivated = "assignment.deactivated"
	EventTypeTaskStatusChanged     = "task.status_changed"
	EventTypeUserDeactivated       = "user.deactivated"
)

// EventTypes lists every event the engine publishes.
var EventTypes = []string{
	EventTypeTeamManagerChanged,
	EventTypeAssignmentActivated,
	EventTypeAssignmentDeactivated,
	EventTypeTaskStatusChanged,
	EventTypeUserDeactivated,
}

var descriptions = map[string]string{
	EventTypeTeamManagerChanged:    "a team's manager changed and its projects followed",
	EventTypeAssignmentActivated:   "a user was put on a project",
	EventTypeAssignmentDeactivated: "a user was taken off a project",
	EventTypeTaskStatusChanged:     "a task moved to another status",
	EventTypeUserDeactivated:       "a user account was deactivated",
}

// Describe returns a one-line description of an event type.
func Describe(eventType string) string {
	return descriptions[eventType]
}

func newBase(eventType string, at time.Time, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: at,
		Data:      data,
	}
}

type TeamManagerChangedEvent struct {
	BaseEvent
	TeamID             int64   `json:"team_id"`
	PreviousManagerID  int64   `json:"previous_manager_id,omitempty"`
	ManagerID          int64   `json:"manager_id"`
	PropagatedProjects []int64 `json:"propagated_project_ids"`
	ActorID            int64   `json:"actor_id"`
}

func NewTeamManagerChangedEvent(teamID, previousManagerID, managerID int64, projects []int64, actorID int64, at time.Time) *TeamManagerChangedEvent {
	return &TeamManagerChangedEvent{
		BaseEvent: newBase(EventTypeTeamManagerChanged, at, map[string]interface{}{
			"team_id":                teamID,
			"previous_manager_id":    previousManagerID,
			"manager_id":             managerID,
			"propagated_project_ids": projects,
			"actor_id":               actorID,
		}),
		TeamID:             teamID,
		PreviousManagerID:  previousManagerID,
		ManagerID:          managerID,
		PropagatedProjects: projects,
		ActorID:            actorID,
	}
}

type AssignmentEvent struct {
	BaseEvent
	AssignmentID int64 `json:"assignment_id"`
	ProjectID    int64 `json:"project_id"`
	UserID       int64 `json:"user_id"`
	ActorID      int64 `json:"actor_id"`
}

// NewAssignmentEvent builds an assignment.activated or
// assignment.deactivated event depending on active.
func NewAssignmentEvent(active bool, assignmentID, projectID, userID, actorID int64, at time.Time) *AssignmentEvent {
	eventType := EventTypeAssignmentDeactivated
	if active {
		eventType = EventTypeAssignmentActivated
	}
	return &AssignmentEvent{
		BaseEvent: newBase(eventType, at, map[string]interface{}{
			"assignment_id": assignmentID,
			"project_id":    projectID,
			"user_id":       userID,
			"actor_id":      actorID,
		}),
		AssignmentID: assignmentID,
		ProjectID:    projectID,
		UserID:       userID,
		ActorID:      actorID,
	}
}

type TaskStatusChangedEvent struct {
	BaseEvent
	TaskID    int64  `json:"task_id"`
	ProjectID int64  `json:"project_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	ActorID   int64  `json:"actor_id"`
}

func NewTaskStatusChangedEvent(taskID, projectID int64, from, to string, actorID int64, at time.Time) *TaskStatusChangedEvent {
	return &TaskStatusChangedEvent{
		BaseEvent: newBase(EventTypeTaskStatusChanged, at, map[string]interface{}{
			"task_id":    taskID,
			"project_id": projectID,
			"from":       from,
			"to":         to,
			"actor_id":   actorID,
		}),
		TaskID:    taskID,
		ProjectID: projectID,
		From:      from,
		To:        to,
		ActorID:   actorID,
	}
}

type UserDeactivatedEvent struct {
	BaseEvent
	UserID  int64 `json:"user_id"`
	ActorID int64 `json:"actor_id"`
}

func NewUserDeactivatedEvent(userID, actorID int64, at time.Time) *UserDeactivatedEvent {
	return &UserDeactivatedEvent{
		BaseEvent: newBase(EventTypeUserDeactivated, at, map[string]interface{}{
			"user_id":  userID,
			"actor_id": actorID,
		}),
		UserID:  userID,
		ActorID: actorID,
	}
}
