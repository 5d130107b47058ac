package event

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/larder/backend/internal/domain/inventory"
)

// envelope is the wire form of an inventory.Event
type envelope struct {
	ID         uuid.UUID           `json:"id"`
	Kind       inventory.EventKind `json:"kind"`
	OccurredAt time.Time           `json:"occurred_at"`
	ItemID     uuid.UUID           `json:"item_id"`
	LocationID uuid.UUID           `json:"location_id"`
	Payload    json.RawMessage     `json:"payload"`
}

// Marshal encodes an event as JSON
func Marshal(event inventory.Event) ([]byte, error) {
	if event.Payload == nil {
		return nil, fmt.Errorf("event %s has no payload", event.ID)
	}
	if event.Payload.Kind() != event.Kind {
		return nil, fmt.Errorf("event %s: kind %q does not match payload %q", event.ID, event.Kind, event.Payload.Kind())
	}
	return json.Marshal(event)
}

// Unmarshal decodes JSON produced by Marshal. The payload is decoded into
// the type registered for the envelope's kind.
func Unmarshal(data []byte) (inventory.Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return inventory.Event{}, fmt.Errorf("failed to unmarshal event envelope: %w", err)
	}
	target, err := inventory.NewPayload(env.Kind)
	if err != nil {
		return inventory.Event{}, err
	}
	if err := json.Unmarshal(env.Payload, target); err != nil {
		return inventory.Event{}, fmt.Errorf("failed to unmarshal %s payload: %w", env.Kind, err)
	}
	// NewPayload hands out pointers; events carry payload values
	payload, ok := reflect.ValueOf(target).Elem().Interface().(inventory.EventPayload)
	if !ok {
		return inventory.Event{}, fmt.Errorf("payload for %s does not implement EventPayload", env.Kind)
	}
	return inventory.Event{
		ID:         env.ID,
		Kind:       env.Kind,
		OccurredAt: env.OccurredAt,
		ItemID:     env.ItemID,
		LocationID: env.LocationID,
		Payload:    payload,
	}, nil
}
