package event

import (
	"encoding/json"
	"fmt"

	"github.com/erp/accounting/internal/domain/shared"
)

// Envelope is the wire form of an event crossing the service boundary
type Envelope struct {
	Type    string          `json:"type" validate:"required"`
	Version int             `json:"version" validate:"gte=0"`
	Payload json.RawMessage `json:"payload" validate:"required"`
}

// Seal wraps an event in an envelope
func (s *EventSerializer) Seal(event shared.DomainEvent) (Envelope, error) {
	payload, version, err := s.Serialize(event)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: event.EventType(), Version: version, Payload: payload}, nil
}

// Open validates an envelope and decodes its payload
func (s *EventSerializer) Open(env Envelope) (shared.DomainEvent, error) {
	if err := s.validate.Struct(env); err != nil {
		return nil, shared.NewDomainError(ErrInvalidEvent.Code, fmt.Sprintf("invalid envelope: %v", err))
	}
	return s.Deserialize(env.Type, env.Version, env.Payload)
}
