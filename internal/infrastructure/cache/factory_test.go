package cache

import (
	"context"
	"testing"

	"github.com/erp/accounting/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// Nothing listens on port 1, so the ping fails fast.
var unreachableRedis = config.RedisConfig{Host: "127.0.0.1", Port: 1}

func TestIdempotencyStoreFactory_CreateStore(t *testing.T) {
	ctx := context.Background()

	t.Run("memory backend", func(t *testing.T) {
		store, err := NewIdempotencyStoreFactory(BackendMemory, config.RedisConfig{}).CreateStore(ctx)
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})

	t.Run("empty backend defaults to memory", func(t *testing.T) {
		store, err := NewIdempotencyStoreFactory("", config.RedisConfig{}).CreateStore(ctx)
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := NewIdempotencyStoreFactory("etcd", config.RedisConfig{}).CreateStore(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "etcd")
	})

	t.Run("unreachable redis without fallback", func(t *testing.T) {
		_, err := NewIdempotencyStoreFactory(BackendRedis, unreachableRedis).CreateStore(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "127.0.0.1:1")
	})

	t.Run("unreachable redis with fallback", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		factory := NewIdempotencyStoreFactory(BackendRedis, unreachableRedis,
			WithInMemoryFallback(true),
			WithLogger(zap.New(core)),
		)

		store, err := factory.CreateStore(ctx)
		require.NoError(t, err)
		defer store.Close()

		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
		assert.Equal(t, 1, logs.FilterMessageSnippet("falling back").Len())
	})
}
