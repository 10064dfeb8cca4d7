package event

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/accounting/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newPublisherSerializer() *EventSerializer {
	s := NewEventSerializer()
	s.Register("TestEvent", 1, func() shared.DomainEvent { return &testEvent{} })
	return s
}

func TestOutboxPublisher_PublishWithTx(t *testing.T) {
	db, mock := setupMockDB(t)
	publisher := NewOutboxPublisher(newPublisherSerializer(), 0)
	ctx := context.Background()
	event := newTestEvent("TestEvent")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "outbox_events"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := db.Transaction(func(tx *gorm.DB) error {
		return publisher.PublishWithTx(ctx, tx, event)
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxPublisher_PublishWithTx_MultipleEvents(t *testing.T) {
	db, mock := setupMockDB(t)
	publisher := NewOutboxPublisher(newPublisherSerializer(), 3)
	ctx := context.Background()

	events := []shared.DomainEvent{
		newTestEvent("TestEvent"),
		newTestEvent("TestEvent"),
		newTestEvent("TestEvent"),
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "outbox_events"`)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	err := db.Transaction(func(tx *gorm.DB) error {
		return publisher.PublishWithTx(ctx, tx, events...)
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxPublisher_PublishWithTx_EmptyEvents(t *testing.T) {
	db, mock := setupMockDB(t)
	publisher := NewOutboxPublisher(NewEventSerializer(), 0)

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := db.Transaction(func(tx *gorm.DB) error {
		return publisher.PublishWithTx(context.Background(), tx)
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxPublisher_PublishWithTx_UnregisteredEvent(t *testing.T) {
	db, mock := setupMockDB(t)
	publisher := NewOutboxPublisher(NewEventSerializer(), 0)

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := db.Transaction(func(tx *gorm.DB) error {
		return publisher.PublishWithTx(context.Background(), tx, newTestEvent("TestEvent"))
	})

	assert.ErrorIs(t, err, ErrUnknownEventType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxPublisher_PublishWithTx_TransactionRollback(t *testing.T) {
	db, mock := setupMockDB(t)
	publisher := NewOutboxPublisher(newPublisherSerializer(), 0)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "outbox_events"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	testErr := errors.New("aggregate save failed")
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := publisher.PublishWithTx(ctx, tx, newTestEvent("TestEvent")); err != nil {
			return err
		}
		return testErr
	})

	assert.Equal(t, testErr, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxPublisher_SaveEvents(t *testing.T) {
	publisher := NewOutboxPublisher(newPublisherSerializer(), 0)

	t.Run("no events is a no-op", func(t *testing.T) {
		assert.NoError(t, publisher.SaveEvents(context.Background(), "not a tx"))
	})

	t.Run("rejects a non-gorm provider", func(t *testing.T) {
		err := publisher.SaveEvents(context.Background(), "not a tx", newTestEvent("TestEvent"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "*gorm.DB")
	})

	t.Run("writes through the given transaction", func(t *testing.T) {
		db, mock := setupMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "outbox_events"`)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := db.Transaction(func(tx *gorm.DB) error {
			return publisher.SaveEvents(context.Background(), tx, newTestEvent("TestEvent"))
		})

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
