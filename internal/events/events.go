package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types published by this service.
const (
	EventAttemptCompleted = "assessment.attempt_completed"
	EventModuleCompleted  = "progress.module_completed"
)

// Event is the envelope for every message this service publishes.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// NewEvent builds an envelope with this service's identity stamped on it.
func NewEvent(eventType string, data any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    "assessment-service",
		Version:   "1.0",
		Timestamp: time.Now(),
		Data:      data,
	}
}

// EventPublisher publishes domain events to the message broker.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// AttemptCompletedEvent is emitted after every successful submission.
type AttemptCompletedEvent struct {
	AttemptID     uint    `json:"attempt_id"`
	UserID        string  `json:"user_id"`
	AssessmentID  uint    `json:"assessment_id"`
	ModuleID      uint    `json:"module_id"`
	Score         float64 `json:"score"`
	IsPassed      bool    `json:"is_passed"`
	AttemptNumber int     `json:"attempt_number"`
}

// ModuleCompletedEvent is emitted when a passing submission completes a
// module for a user.
type ModuleCompletedEvent struct {
	UserID       string `json:"user_id"`
	ModuleID     uint   `json:"module_id"`
	PointsEarned int    `json:"points_earned"`
}
