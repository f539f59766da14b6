// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the engine.
const (
	// Session lifecycle events
	EventSessionOpened EventType = "session.opened"
	EventSessionClosed EventType = "session.closed"

	// Estimation pipeline events
	EventDecisionIssued  EventType = "engine.decision_issued"
	EventTriggerFired    EventType = "engine.trigger_fired"
	EventOverloadFlagged EventType = "engine.overload_flagged"

	// External dependency events
	EventProfileLookupDegraded EventType = "learner.profile_lookup_degraded"
	EventArchiveWritten        EventType = "archive.written"
	EventArchiveDeferred       EventType = "archive.deferred"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// EventHandler processes a published event. Handlers must be safe for
// concurrent invocation.
type EventHandler interface {
	Handle(event Event) error

	// Name identifies the handler for logging and metrics.
	Name() string
}

// EventHandlerFunc adapts a function to the EventHandler interface.
type EventHandlerFunc struct {
	HandlerName string
	Fn          func(event Event) error
}

// Handle implements EventHandler.
func (f EventHandlerFunc) Handle(event Event) error {
	return f.Fn(event)
}

// Name implements EventHandler.
func (f EventHandlerFunc) Name() string {
	if f.HandlerName == "" {
		return "anonymous"
	}
	return f.HandlerName
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
	Version     int       `json:"version"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Session events
// ═══════════════════════════════════════════════════════════════════════════

// SessionOpenedEvent is emitted when a new learner session opens.
type SessionOpenedEvent struct {
	BaseEvent
	LearnerID string `json:"learner_id"`
	Subject   string `json:"subject"`
	Degraded  bool   `json:"degraded"`
}

// Payload implements Event interface.
func (e SessionOpenedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id": e.LearnerID,
		"subject":    e.Subject,
		"degraded":   e.Degraded,
	}
}

// NewSessionOpenedEvent creates a session-opened event.
func NewSessionOpenedEvent(sessionID, learnerID, subject string, degraded bool) SessionOpenedEvent {
	return SessionOpenedEvent{
		BaseEvent: NewBaseEvent(EventSessionOpened, sessionID),
		LearnerID: learnerID,
		Subject:   subject,
		Degraded:  degraded,
	}
}

// SessionClosedEvent is emitted after a session finalizes.
type SessionClosedEvent struct {
	BaseEvent
	LearnerID   string `json:"learner_id"`
	EventCount  int    `json:"event_count"`
	DurationSec int    `json:"duration_sec"`
}

// Payload implements Event interface.
func (e SessionClosedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id":   e.LearnerID,
		"event_count":  e.EventCount,
		"duration_sec": e.DurationSec,
	}
}

// NewSessionClosedEvent creates a session-closed event.
func NewSessionClosedEvent(sessionID, learnerID string, eventCount, durationSec int) SessionClosedEvent {
	return SessionClosedEvent{
		BaseEvent:   NewBaseEvent(EventSessionClosed, sessionID),
		LearnerID:   learnerID,
		EventCount:  eventCount,
		DurationSec: durationSec,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Pipeline events
// ═══════════════════════════════════════════════════════════════════════════

// DecisionIssuedEvent is emitted for every processed learning event.
type DecisionIssuedEvent struct {
	BaseEvent
	ProblemID        string   `json:"problem_id"`
	Actions          []string `json:"actions"`
	DifficultyChange float64  `json:"difficulty_change"`
	SupportLevel     int      `json:"support_level"`
	Degraded         bool     `json:"degraded"`
}

// Payload implements Event interface.
func (e DecisionIssuedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"problem_id":        e.ProblemID,
		"actions":           e.Actions,
		"difficulty_change": e.DifficultyChange,
		"support_level":     e.SupportLevel,
		"degraded":          e.Degraded,
	}
}

// NewDecisionIssuedEvent creates a decision-issued event.
func NewDecisionIssuedEvent(sessionID, problemID string, actions []string, difficultyChange float64, supportLevel int, degraded bool) DecisionIssuedEvent {
	return DecisionIssuedEvent{
		BaseEvent:        NewBaseEvent(EventDecisionIssued, sessionID),
		ProblemID:        problemID,
		Actions:          actions,
		DifficultyChange: difficultyChange,
		SupportLevel:     supportLevel,
		Degraded:         degraded,
	}
}

// TriggerFiredEvent is emitted when an adaptation trigger condition matches.
type TriggerFiredEvent struct {
	BaseEvent
	Trigger string `json:"trigger"`
}

// Payload implements Event interface.
func (e TriggerFiredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"trigger": e.Trigger}
}

// NewTriggerFiredEvent creates a trigger-fired event.
func NewTriggerFiredEvent(sessionID, trigger string) TriggerFiredEvent {
	return TriggerFiredEvent{
		BaseEvent: NewBaseEvent(EventTriggerFired, sessionID),
		Trigger:   trigger,
	}
}

// ProfileLookupDegradedEvent is emitted when the profile store lookup fell
// back to cached or default data.
type ProfileLookupDegradedEvent struct {
	BaseEvent
	Reason string `json:"reason"`
}

// Payload implements Event interface.
func (e ProfileLookupDegradedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"reason": e.Reason}
}

// NewProfileLookupDegradedEvent creates a profile-lookup-degraded event.
func NewProfileLookupDegradedEvent(learnerID, reason string) ProfileLookupDegradedEvent {
	return ProfileLookupDegradedEvent{
		BaseEvent: NewBaseEvent(EventProfileLookupDegraded, learnerID),
		Reason:    reason,
	}
}
