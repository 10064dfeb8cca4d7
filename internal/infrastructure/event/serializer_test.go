package event

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/erp/accounting/internal/domain/finance"
	"github.com/erp/accounting/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serializerTestEvent struct {
	shared.BaseDomainEvent
	Data    string `json:"data"`
	Counter int    `json:"counter"`
}

func newSerializerTestEvent() *serializerTestEvent {
	return &serializerTestEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("SerializerTestEvent", "TestAggregate", uuid.New(), uuid.New(), uuid.New()),
		Data:            "test data",
		Counter:         42,
	}
}

func newTestSerializer() *EventSerializer {
	s := NewEventSerializer()
	s.Register("SerializerTestEvent", 1, func() shared.DomainEvent { return &serializerTestEvent{} })
	return s
}

func TestEventSerializer_Register(t *testing.T) {
	s := newTestSerializer()

	assert.True(t, s.IsRegistered("SerializerTestEvent"))
	assert.False(t, s.IsRegistered("UnknownEvent"))
	assert.Equal(t, 1, s.CurrentVersion("SerializerTestEvent"))
	assert.Equal(t, 0, s.CurrentVersion("UnknownEvent"))
}

func TestEventSerializer_RegisteredTypes(t *testing.T) {
	s := NewEventSerializer()
	s.Register("Event2", 1, func() shared.DomainEvent { return &serializerTestEvent{} })
	s.Register("Event1", 1, func() shared.DomainEvent { return &serializerTestEvent{} })

	assert.Equal(t, []string{"Event1", "Event2"}, s.RegisteredTypes())
}

func TestEventSerializer_Serialize(t *testing.T) {
	s := newTestSerializer()

	data, version, err := s.Serialize(newSerializerTestEvent())

	require.NoError(t, err)
	assert.Equal(t, 1, version)
	assert.Contains(t, string(data), `"data":"test data"`)
	assert.Contains(t, string(data), `"counter":42`)
}

func TestEventSerializer_Serialize_UnknownType(t *testing.T) {
	s := NewEventSerializer()

	_, _, err := s.Serialize(newSerializerTestEvent())

	assert.ErrorIs(t, err, ErrUnknownEventType)
}

func TestEventSerializer_RoundTrip(t *testing.T) {
	s := newTestSerializer()
	original := newSerializerTestEvent()

	data, version, err := s.Serialize(original)
	require.NoError(t, err)

	decoded, err := s.Deserialize("SerializerTestEvent", version, data)
	require.NoError(t, err)

	got, ok := decoded.(*serializerTestEvent)
	require.True(t, ok)
	assert.Equal(t, original.EventID(), got.EventID())
	assert.Equal(t, original.AggregateID(), got.AggregateID())
	assert.Equal(t, original.OrganizationID(), got.OrganizationID())
	assert.Equal(t, original.BranchID(), got.BranchID())
	assert.True(t, original.OccurredAt().Equal(got.OccurredAt()))
	assert.Equal(t, "test data", got.Data)
	assert.Equal(t, 42, got.Counter)
}

func TestEventSerializer_Deserialize_Errors(t *testing.T) {
	s := newTestSerializer()
	valid, _, err := s.Serialize(newSerializerTestEvent())
	require.NoError(t, err)

	missingOrg := newSerializerTestEvent()
	missingOrg.OrgID = uuid.Nil
	noOrg, _, err := s.Serialize(missingOrg)
	require.NoError(t, err)

	mislabeled := newSerializerTestEvent()
	mislabeled.Type = "SomethingElse"
	wrongType, err := json.Marshal(mislabeled)
	require.NoError(t, err)

	tests := []struct {
		name      string
		eventType string
		version   int
		data      []byte
		wantErr   error
	}{
		{"unknown type", "UnknownEvent", 1, valid, ErrUnknownEventType},
		{"newer version", "SerializerTestEvent", 2, valid, ErrUnsupportedVersion},
		{"negative version", "SerializerTestEvent", -1, valid, ErrUnsupportedVersion},
		{"invalid json", "SerializerTestEvent", 1, []byte("{not json"), ErrInvalidEvent},
		{"missing organization", "SerializerTestEvent", 1, noOrg, ErrInvalidEvent},
		{"payload type mismatch", "SerializerTestEvent", 1, wrongType, ErrInvalidEvent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Deserialize(tt.eventType, tt.version, tt.data)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEventSerializer_Deserialize_ZeroVersionIsOne(t *testing.T) {
	s := newTestSerializer()
	data, _, err := s.Serialize(newSerializerTestEvent())
	require.NoError(t, err)

	_, err = s.Deserialize("SerializerTestEvent", 0, data)
	assert.NoError(t, err)
}

func TestRegisterAllEvents(t *testing.T) {
	s := NewEventSerializer()
	RegisterAllEvents(s)

	assert.ElementsMatch(t, []string{
		"AccountPayableCreated",
		"PaymentCompleted",
		"PayableCancelled",
		"AccountReceivableCreated",
		"ReceivableReceived",
		"ReceivableCancelled",
		"BillingFinalized",
		"JournalEntryPosted",
		"JournalEntryReversed",
	}, s.RegisteredTypes())
}

func newPaymentCompletedEvent() *finance.PaymentCompletedEvent {
	payableID := uuid.New()
	return &finance.PaymentCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(finance.EventTypePaymentCompleted, finance.AggregateTypeAccountPayable,
			payableID, uuid.New(), uuid.New()),
		PayableID:  payableID,
		PaymentID:  uuid.New(),
		SupplierID: uuid.New(),
		Amount:     decimal.RequireFromString("1000.00"),
		Currency:   "BRL",
		PaidAt:     time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
		Interest:   decimal.RequireFromString("3.33"),
		Fine:       decimal.RequireFromString("20.00"),
		Discount:   decimal.Zero,
		BankFee:    decimal.Zero,
	}
}

func TestEnvelope_SealOpen(t *testing.T) {
	s := NewEventSerializer()
	RegisterAllEvents(s)
	original := newPaymentCompletedEvent()

	env, err := s.Seal(original)
	require.NoError(t, err)
	assert.Equal(t, finance.EventTypePaymentCompleted, env.Type)
	assert.Equal(t, 1, env.Version)

	wire, err := json.Marshal(env)
	require.NoError(t, err)

	var received Envelope
	require.NoError(t, json.Unmarshal(wire, &received))

	decoded, err := s.Open(received)
	require.NoError(t, err)

	got, ok := decoded.(*finance.PaymentCompletedEvent)
	require.True(t, ok)
	assert.Equal(t, original.PaymentID, got.PaymentID)
	assert.True(t, original.Amount.Equal(got.Amount))
	assert.True(t, original.Fine.Equal(got.Fine))
	assert.Equal(t, "BRL", got.Currency)
}

func TestEnvelope_Open_Invalid(t *testing.T) {
	s := NewEventSerializer()
	RegisterAllEvents(s)

	_, err := s.Open(Envelope{Type: "", Payload: json.RawMessage(`{}`)})
	assert.ErrorIs(t, err, ErrInvalidEvent)

	_, err = s.Open(Envelope{Type: finance.EventTypePaymentCompleted})
	assert.ErrorIs(t, err, ErrInvalidEvent)

	// currency must be three letters
	event := newPaymentCompletedEvent()
	event.Currency = "REAL"
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	_, err = s.Open(Envelope{Type: finance.EventTypePaymentCompleted, Version: 1, Payload: payload})
	assert.ErrorIs(t, err, ErrInvalidEvent)
}
