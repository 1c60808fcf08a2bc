package outbox

import (
	"encoding/json"
	"time"
)

// ActorRef identifies who triggered the event. System jobs leave UserID empty.
type ActorRef struct {
	UserID string `json:"user_id,omitempty"`
	Role   string `json:"role,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"event_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// SystemActor tags events raised by background jobs and webhooks.
func SystemActor(source string) *ActorRef {
	return &ActorRef{Role: "system:" + source}
}
