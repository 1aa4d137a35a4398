package notifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdurrahmanaziz/eksporyuk-sub039/pkg/redis"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.Adapter) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	// adapter instances are cached by connection name
	adapter, err := redis.NewAdapter(t.Name(), "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func TestIdempotency_Acquire(t *testing.T) {
	ctx := context.Background()

	t.Run("first acquire succeeds and done marks delivered", func(t *testing.T) {
		_, adapter := setupTestRedis(t)
		idem := NewIdempotency(adapter, DefaultIdempotencyConfig())

		d, err := idem.Acquire(ctx, "msg-1")
		require.NoError(t, err)
		assert.Equal(t, 0, d.RetryCount)

		d.Done()

		_, err = idem.Acquire(ctx, "msg-1")
		assert.ErrorIs(t, err, ErrAlreadyDelivered)
	})

	t.Run("concurrent consumer is locked out", func(t *testing.T) {
		_, adapter := setupTestRedis(t)
		idem := NewIdempotency(adapter, DefaultIdempotencyConfig())

		_, err := idem.Acquire(ctx, "msg-2")
		require.NoError(t, err)

		_, err = idem.Acquire(ctx, "msg-2")
		assert.ErrorIs(t, err, ErrLockHeld)
	})

	t.Run("failed releases the lock and bumps the retry count", func(t *testing.T) {
		_, adapter := setupTestRedis(t)
		idem := NewIdempotency(adapter, DefaultIdempotencyConfig())

		d, err := idem.Acquire(ctx, "msg-3")
		require.NoError(t, err)
		d.Failed(errors.New("smtp timeout"))

		d, err = idem.Acquire(ctx, "msg-3")
		require.NoError(t, err)
		assert.Equal(t, 1, d.RetryCount)
	})

	t.Run("retries exhaust", func(t *testing.T) {
		_, adapter := setupTestRedis(t)
		cfg := DefaultIdempotencyConfig()
		cfg.MaxRetries = 2
		idem := NewIdempotency(adapter, cfg)

		for i := 0; i < 2; i++ {
			d, err := idem.Acquire(ctx, "msg-4")
			require.NoError(t, err)
			d.Failed(errors.New("smtp timeout"))
		}

		_, err := idem.Acquire(ctx, "msg-4")
		assert.ErrorIs(t, err, ErrDeliveryExhausted)
	})

	t.Run("lock expires on its own", func(t *testing.T) {
		mr, adapter := setupTestRedis(t)
		cfg := DefaultIdempotencyConfig()
		cfg.LockTTL = time.Second
		idem := NewIdempotency(adapter, cfg)

		_, err := idem.Acquire(ctx, "msg-5")
		require.NoError(t, err)

		mr.FastForward(2 * time.Second)

		_, err = idem.Acquire(ctx, "msg-5")
		assert.NoError(t, err)
	})
}
