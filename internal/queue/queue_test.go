package queue

import (
	"context"
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

	// unique connection name per test to dodge the global adapter cache
	adapter, err := redis.NewAdapter(t.Name()+"-"+mr.Addr(), "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func TestQueue_PublishAndConsume(t *testing.T) {
	_, adapter := setupTestRedis(t)

	q, err := New(adapter, Config{
		Name:          "test:events",
		ConsumerGroup: "test-group",
		ConsumerName:  "test-consumer",
		PollInterval:  50 * time.Millisecond,
		BatchSize:     10,
	})
	require.NoError(t, err)
	defer q.Close()

	type event struct {
		Name          string `json:"name"`
		TransactionID int64  `json:"transaction_id"`
	}

	_, err = q.PublishJSON(context.Background(), event{Name: "payment.confirmed", TransactionID: 101})
	require.NoError(t, err)

	received := make(chan event, 1)
	err = q.Consume(func(msg *Message) error {
		var e event
		if err := msg.Unmarshal(&e); err != nil {
			return err
		}
		received <- e
		return nil
	})
	require.NoError(t, err)

	select {
	case e := <-received:
		assert.Equal(t, "payment.confirmed", e.Name)
		assert.Equal(t, int64(101), e.TransactionID)
	case <-time.After(2 * time.Second):
		t.Fatal("message not received")
	}
}

func TestQueue_HandlerErrorLeavesMessagePending(t *testing.T) {
	_, adapter := setupTestRedis(t)

	q, err := New(adapter, Config{
		Name:          "test:pending",
		ConsumerGroup: "test-group",
		ConsumerName:  "test-consumer",
		PollInterval:  50 * time.Millisecond,
		BatchSize:     10,
	})
	require.NoError(t, err)
	defer q.Close()

	_, err = q.PublishJSON(context.Background(), map[string]string{"name": "payout.failed"})
	require.NoError(t, err)

	handled := make(chan struct{}, 1)
	err = q.Consume(func(msg *Message) error {
		handled <- struct{}{}
		return assert.AnError
	})
	require.NoError(t, err)

	select {
	case <-handled:
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
	q.Close()

	pending, err := adapter.XPendingExt("test:pending", "test-group", "-", "+", 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestQueue_MaxLenTrims(t *testing.T) {
	_, adapter := setupTestRedis(t)

	q, err := New(adapter, Config{
		Name:   "test:trim",
		MaxLen: 5,
	})
	require.NoError(t, err)
	defer q.Close()

	ctx := context.Background()
	for i := 0; i < 20; i++ {
		_, err := q.PublishJSON(ctx, map[string]int{"seq": i})
		require.NoError(t, err)
	}

	length, err := q.Len()
	require.NoError(t, err)
	// trimming is approximate, but bounded well under the publish count
	assert.LessOrEqual(t, length, int64(20))
	assert.GreaterOrEqual(t, length, int64(5))
}

func TestQueue_Validation(t *testing.T) {
	_, adapter := setupTestRedis(t)

	t.Run("name is required", func(t *testing.T) {
		_, err := New(adapter, Config{})
		assert.Error(t, err)
	})

	t.Run("consume needs a consumer group", func(t *testing.T) {
		q, err := New(adapter, Config{Name: "test:nogroup"})
		require.NoError(t, err)
		defer q.Close()

		err = q.Consume(func(msg *Message) error { return nil })
		assert.Error(t, err)
	})

	t.Run("consume after close", func(t *testing.T) {
		q, err := New(adapter, Config{
			Name:          "test:closed",
			ConsumerGroup: "g",
			ConsumerName:  "c",
		})
		require.NoError(t, err)
		q.Close()

		err = q.Consume(func(msg *Message) error { return nil })
		assert.ErrorIs(t, err, ErrQueueClosed)
	})
}
