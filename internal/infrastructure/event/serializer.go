package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/erp/accounting/internal/domain/shared"
	"github.com/go-playground/validator/v10"
)

var (
	// ErrUnknownEventType is returned for event types outside the registered set
	ErrUnknownEventType = shared.NewDomainError("UNKNOWN_EVENT_TYPE", "Unknown event type")
	// ErrUnsupportedVersion is returned for schema versions newer than the registered one
	ErrUnsupportedVersion = shared.NewDomainError("UNSUPPORTED_EVENT_VERSION", "Unsupported event schema version")
	// ErrInvalidEvent is returned when a payload does not decode or fails validation
	ErrInvalidEvent = shared.NewDomainError("INVALID_EVENT", "Invalid event payload")
)

// Factory returns a new zero value of a concrete event type
type Factory func() shared.DomainEvent

type registration struct {
	version int
	factory Factory
}

// EventSerializer encodes domain events as JSON and decodes them back into
// the closed set of registered types. Each type has a current schema version;
// payloads declaring a newer version are rejected. Decoded events are checked
// against their validate tags.
type EventSerializer struct {
	mu       sync.RWMutex
	registry map[string]registration
	validate *validator.Validate
}

// NewEventSerializer creates an empty serializer
func NewEventSerializer() *EventSerializer {
	return &EventSerializer{
		registry: make(map[string]registration),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Register adds an event type at the given schema version
func (s *EventSerializer) Register(eventType string, version int, factory Factory) {
	if version < 1 {
		version = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry[eventType] = registration{version: version, factory: factory}
}

// Serialize encodes a registered event and returns its schema version
func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, int, error) {
	reg, ok := s.lookup(event.EventType())
	if !ok {
		return nil, 0, shared.NewDomainError(ErrUnknownEventType.Code, fmt.Sprintf("unknown event type: %s", event.EventType()))
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal %s: %w", event.EventType(), err)
	}
	version := reg.version
	if v, ok := event.(shared.VersionedEvent); ok && v.SchemaVersion() > 0 {
		version = v.SchemaVersion()
	}
	return payload, version, nil
}

// Deserialize decodes a payload into the registered type for eventType.
// A zero version is treated as version 1.
func (s *EventSerializer) Deserialize(eventType string, version int, data []byte) (shared.DomainEvent, error) {
	reg, ok := s.lookup(eventType)
	if !ok {
		return nil, shared.NewDomainError(ErrUnknownEventType.Code, fmt.Sprintf("unknown event type: %s", eventType))
	}
	if version == 0 {
		version = 1
	}
	if version < 1 || version > reg.version {
		return nil, shared.NewDomainError(ErrUnsupportedVersion.Code,
			fmt.Sprintf("%s schema version %d is not supported (current %d)", eventType, version, reg.version))
	}

	event := reg.factory()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(event); err != nil {
		return nil, shared.NewDomainError(ErrInvalidEvent.Code, fmt.Sprintf("decode %s: %v", eventType, err))
	}
	if event.EventType() != eventType {
		return nil, shared.NewDomainError(ErrInvalidEvent.Code,
			fmt.Sprintf("payload declares type %s, expected %s", event.EventType(), eventType))
	}
	if err := s.validate.Struct(event); err != nil {
		return nil, shared.NewDomainError(ErrInvalidEvent.Code, fmt.Sprintf("validate %s: %v", eventType, err))
	}
	return event, nil
}

// IsRegistered checks if an event type is registered
func (s *EventSerializer) IsRegistered(eventType string) bool {
	_, ok := s.lookup(eventType)
	return ok
}

// CurrentVersion returns the registered schema version, or 0 when unknown
func (s *EventSerializer) CurrentVersion(eventType string) int {
	reg, _ := s.lookup(eventType)
	return reg.version
}

// RegisteredTypes returns all registered event types, sorted
func (s *EventSerializer) RegisteredTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	types := make([]string, 0, len(s.registry))
	for t := range s.registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func (s *EventSerializer) lookup(eventType string) (registration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reg, ok := s.registry[eventType]
	return reg, ok
}
