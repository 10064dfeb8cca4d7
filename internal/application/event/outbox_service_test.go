package event

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/erp/accounting/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeOutboxRepo keeps entries in memory
type fakeOutboxRepo struct {
	entries   map[uuid.UUID]*shared.OutboxEntry
	updateErr error
	findErr   error
}

func newFakeOutboxRepo() *fakeOutboxRepo {
	return &fakeOutboxRepo{entries: make(map[uuid.UUID]*shared.OutboxEntry)}
}

func (r *fakeOutboxRepo) add(status shared.OutboxStatus, updatedAt time.Time) *shared.OutboxEntry {
	e := &shared.OutboxEntry{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		EventID:        uuid.New(),
		EventType:      "PaymentCompleted",
		SchemaVersion:  1,
		AggregateID:    uuid.New(),
		AggregateType:  "AccountPayable",
		Status:         status,
		MaxRetries:     5,
		UpdatedAt:      updatedAt,
	}
	if status == shared.OutboxStatusDead {
		e.RetryCount = 5
		e.LastError = "handler failed"
	}
	r.entries[e.ID] = e
	return e
}

func (r *fakeOutboxRepo) FindByID(_ context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	if e, ok := r.entries[id]; ok {
		return e, nil
	}
	return nil, shared.ErrNotFound
}

func (r *fakeOutboxRepo) FindDead(_ context.Context, limit int) ([]*shared.OutboxEntry, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	var dead []*shared.OutboxEntry
	for _, e := range r.entries {
		if e.Status == shared.OutboxStatusDead {
			dead = append(dead, e)
		}
	}
	sort.Slice(dead, func(i, j int) bool { return dead[i].UpdatedAt.After(dead[j].UpdatedAt) })
	if len(dead) > limit {
		dead = dead[:limit]
	}
	return dead, nil
}

func (r *fakeOutboxRepo) CountByStatus(context.Context) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, e := range r.entries {
		counts[string(e.Status)]++
	}
	return counts, nil
}

func (r *fakeOutboxRepo) Update(_ context.Context, entry *shared.OutboxEntry) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.entries[entry.ID] = entry
	return nil
}

func TestOutboxService_DeadLetters(t *testing.T) {
	repo := newFakeOutboxRepo()
	now := time.Now()
	older := repo.add(shared.OutboxStatusDead, now.Add(-time.Hour))
	newer := repo.add(shared.OutboxStatusDead, now)
	repo.add(shared.OutboxStatusSent, now)
	svc := NewOutboxService(repo, zap.NewNop())

	entries, err := svc.DeadLetters(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, newer.ID, entries[0].ID)
	assert.Equal(t, older.ID, entries[1].ID)
	assert.Equal(t, "DEAD", entries[0].Status)
	assert.Equal(t, "handler failed", entries[0].LastError)

	limited, err := svc.DeadLetters(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	t.Run("repository failure", func(t *testing.T) {
		repo.findErr = errors.New("db down")
		defer func() { repo.findErr = nil }()

		_, err := svc.DeadLetters(context.Background(), 10)
		assert.True(t, shared.HasCode(err, "INTERNAL_ERROR"))
	})
}

func TestOutboxService_RetryDeadEntry(t *testing.T) {
	ctx := context.Background()

	t.Run("dead entry is requeued", func(t *testing.T) {
		repo := newFakeOutboxRepo()
		dead := repo.add(shared.OutboxStatusDead, time.Now())
		svc := NewOutboxService(repo, zap.NewNop())

		dto, err := svc.RetryDeadEntry(ctx, dead.ID)
		require.NoError(t, err)
		assert.Equal(t, "PENDING", dto.Status)
		assert.Zero(t, dto.RetryCount)
		assert.Equal(t, shared.OutboxStatusPending, repo.entries[dead.ID].Status)
	})

	t.Run("unknown entry", func(t *testing.T) {
		svc := NewOutboxService(newFakeOutboxRepo(), zap.NewNop())

		_, err := svc.RetryDeadEntry(ctx, uuid.New())
		assert.True(t, shared.HasCode(err, "NOT_FOUND"))
	})

	t.Run("entry that is not dead", func(t *testing.T) {
		repo := newFakeOutboxRepo()
		sent := repo.add(shared.OutboxStatusSent, time.Now())
		svc := NewOutboxService(repo, zap.NewNop())

		_, err := svc.RetryDeadEntry(ctx, sent.ID)
		assert.True(t, shared.HasCode(err, "INVALID_STATE"))
	})

	t.Run("update failure", func(t *testing.T) {
		repo := newFakeOutboxRepo()
		dead := repo.add(shared.OutboxStatusDead, time.Now())
		repo.updateErr = errors.New("db down")
		svc := NewOutboxService(repo, zap.NewNop())

		_, err := svc.RetryDeadEntry(ctx, dead.ID)
		assert.True(t, shared.HasCode(err, "INTERNAL_ERROR"))
	})
}

func TestOutboxService_RetryAllDeadEntries(t *testing.T) {
	repo := newFakeOutboxRepo()
	for i := 0; i < 3; i++ {
		repo.add(shared.OutboxStatusDead, time.Now())
	}
	repo.add(shared.OutboxStatusPending, time.Now())
	svc := NewOutboxService(repo, zap.NewNop())

	count, err := svc.RetryAllDeadEntries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	stats, err := svc.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Pending)
	assert.Zero(t, stats.Dead)
}

func TestOutboxService_GetStats(t *testing.T) {
	repo := newFakeOutboxRepo()
	repo.add(shared.OutboxStatusPending, time.Now())
	repo.add(shared.OutboxStatusSent, time.Now())
	repo.add(shared.OutboxStatusSent, time.Now())
	repo.add(shared.OutboxStatusFailed, time.Now())
	repo.add(shared.OutboxStatusDead, time.Now())
	svc := NewOutboxService(repo, zap.NewNop())

	stats, err := svc.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &OutboxStatsDTO{Pending: 1, Sent: 2, Failed: 1, Dead: 1, Total: 5}, stats)
}
