package events

import "time"

const AssignmentLifecycleTopic = "org.assignment.lifecycle.v1"

const (
	AssignmentStarted = "assignment.started"
	AssignmentEnded   = "assignment.ended"
)

const AssignmentAggregate = "org_assignment"

type AssignmentLifecycleEvent struct {
	EventType      string    `json:"event_type"`
	RequestID      string    `json:"request_id,omitempty"`
	AssignmentID   string    `json:"assignment_id"`
	PositionID     string    `json:"position_id"`
	PositionTitle  string    `json:"position_title"`
	UnitID         string    `json:"unit_id"`
	UserID         string    `json:"user_id"`
	AssignmentType string    `json:"assignment_type"`
	StartedAt      string    `json:"started_at"`
	EndedAt        *string   `json:"ended_at,omitempty"`
	EndedReason    *string   `json:"ended_reason,omitempty"`
	ActorID        string    `json:"actor_id,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}
