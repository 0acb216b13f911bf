package event

import (
	"reflect"
	"time"

	"github.com/google/uuid"
)

// Event wraps a dispatched payload with metadata.
type Event struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Payload   any       `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// NewEvent creates an Event named after the payload type.
func NewEvent(payload any) Event {
	return Event{
		ID:        uuid.New().String(),
		Name:      Name(payload),
		Payload:   payload,
		CreatedAt: time.Now(),
	}
}

// Name returns the bare type name of v, unwrapping pointers.
// Payloads in different packages with the same type name share listeners.
func Name(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}
