// Package audit records who did what to which resource, for the admin audit log.
package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Category groups events by the part of the platform they touch.
type Category string

const (
	CategoryVerification Category = "verification"
	CategoryCompliance   Category = "compliance"
	CategoryBooking      Category = "booking"
	CategorySecurity     Category = "security"
	CategorySystem       Category = "system"
)

// Action is the verb of an event.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionUpdate  Action = "update"
	ActionCancel  Action = "cancel"
	ActionLockout Action = "lockout"
	ActionRetry   Action = "retry"
	ActionAbandon Action = "abandon"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

var ErrIncomplete = errors.New("audit event needs an id, actor, category and action")

// Actor identifies the account an event is attributed to.
type Actor struct {
	ID    string
	Email string
	Role  string
}

// Event is one row of the audit log. Events are append-only.
type Event struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Category     Category  `json:"category"`
	Action       Action    `json:"action"`
	Severity     Severity  `json:"severity"`
	ActorID      string    `json:"actor_id"`
	ActorEmail   string    `json:"actor_email"`
	ActorRole    string    `json:"actor_role"`
	ResourceID   string    `json:"resource_id"`
	ResourceType string    `json:"resource_type"`
	Description  string    `json:"description"`
	Metadata     string    `json:"metadata"`
}

// New starts an info-level event attributed to actor.
func New(actor Actor, category Category, action Action, now time.Time) Event {
	return Event{
		ID:         uuid.New().String(),
		Timestamp:  now,
		Category:   category,
		Action:     action,
		Severity:   SeverityInfo,
		ActorID:    actor.ID,
		ActorEmail: actor.Email,
		ActorRole:  actor.Role,
	}
}

// Warning raises the event to warning severity.
func (e Event) Warning() Event {
	e.Severity = SeverityWarning
	return e
}

// On names the resource the event concerns.
func (e Event) On(resourceType, resourceID string) Event {
	e.ResourceType, e.ResourceID = resourceType, resourceID
	return e
}

func (e Event) Describe(format string, args ...any) Event {
	e.Description = fmt.Sprintf(format, args...)
	return e
}

// Meta stores fields as a JSON object. Empty values are dropped.
func (e Event) Meta(fields map[string]string) Event {
	kept := make(map[string]string, len(fields))
	for k, v := range fields {
		if v != "" {
			kept[k] = v
		}
	}
	if len(kept) == 0 {
		e.Metadata = ""
		return e
	}
	raw, _ := json.Marshal(kept)
	e.Metadata = string(raw)
	return e
}

// Validate reports ErrIncomplete when a required field is missing.
func (e Event) Validate() error {
	if e.ID == "" || e.ActorID == "" || e.Category == "" || e.Action == "" {
		return ErrIncomplete
	}
	return nil
}
