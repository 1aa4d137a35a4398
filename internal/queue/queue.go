package queue

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/abdurrahmanaziz/eksporyuk-sub039/pkg/logger"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/pkg/redis"
)

var ErrQueueClosed = errors.New("queue closed")

const payloadField = "payload"

// Message is one consumed stream entry.
type Message struct {
	ID      string
	Payload []byte
}

// Unmarshal decodes the JSON payload into dst.
func (m *Message) Unmarshal(dst any) error {
	return json.Unmarshal(m.Payload, dst)
}

type Config struct {
	Name          string
	ConsumerGroup string
	ConsumerName  string
	PollInterval  time.Duration
	BatchSize     int64
	MaxLen        int64
	ClaimMinIdle  time.Duration
}

// Queue is a redis-streams backed event queue with consumer groups.
// Delivery is at-least-once; consumers must be idempotent.
type Queue struct {
	adapter redis.Adapter
	cfg     Config

	mu     sync.Mutex
	closed bool
	cancel context.CancelFunc
}

func New(adapter redis.Adapter, cfg Config) (*Queue, error) {
	if cfg.Name == "" {
		return nil, errors.New("queue name is required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 16
	}
	q := &Queue{adapter: adapter, cfg: cfg}

	if cfg.ConsumerGroup != "" {
		err := adapter.XGroupCreateMkStream(cfg.Name, cfg.ConsumerGroup, "0")
		if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
			return nil, err
		}
	}
	return q, nil
}

// PublishJSON appends v to the stream. Fire-and-forget from the
// caller's perspective; the stream is trimmed approximately at MaxLen.
func (q *Queue) PublishJSON(ctx context.Context, v any) (string, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return q.adapter.XAdd(q.cfg.Name, map[string]interface{}{payloadField: payload}, q.cfg.MaxLen)
}

// Consume starts a poll loop delivering messages to handler. A
// handler error leaves the message pending for the claim pass; nil
// acks it.
func (q *Queue) Consume(handler func(msg *Message) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	if q.cfg.ConsumerGroup == "" || q.cfg.ConsumerName == "" {
		return errors.New("consumer group and name are required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel

	go q.consumeLoop(ctx, handler)
	if q.cfg.ClaimMinIdle > 0 {
		go q.claimLoop(ctx, handler)
	}
	return nil
}

func (q *Queue) consumeLoop(ctx context.Context, handler func(msg *Message) error) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msgs, err := q.adapter.XReadGroup(
			q.cfg.ConsumerGroup, q.cfg.ConsumerName,
			q.cfg.Name, ">", q.cfg.BatchSize, q.cfg.PollInterval)
		if err != nil {
			if err != redis.NilError {
				logger.Warn("queue read failed", "queue", q.cfg.Name, "error", err)
				time.Sleep(q.cfg.PollInterval)
			}
			continue
		}
		q.dispatch(msgs, handler)
	}
}

// claimLoop re-delivers entries stuck pending on dead consumers.
func (q *Queue) claimLoop(ctx context.Context, handler func(msg *Message) error) {
	ticker := time.NewTicker(q.cfg.ClaimMinIdle)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		pending, err := q.adapter.XPendingExt(q.cfg.Name, q.cfg.ConsumerGroup, "-", "+", q.cfg.BatchSize)
		if err != nil || len(pending) == 0 {
			continue
		}
		ids := make([]string, 0, len(pending))
		for _, p := range pending {
			if p.Idle >= q.cfg.ClaimMinIdle {
				ids = append(ids, p.ID)
			}
		}
		if len(ids) == 0 {
			continue
		}
		claimed, err := q.adapter.XClaim(q.cfg.Name, q.cfg.ConsumerGroup, q.cfg.ConsumerName, q.cfg.ClaimMinIdle, ids...)
		if err != nil {
			logger.Warn("queue claim failed", "queue", q.cfg.Name, "error", err)
			continue
		}
		q.dispatch(claimed, handler)
	}
}

func (q *Queue) dispatch(msgs []redis.StreamMessage, handler func(msg *Message) error) {
	for _, m := range msgs {
		msg := &Message{ID: m.ID}
		if raw, ok := m.Values[payloadField]; ok {
			switch v := raw.(type) {
			case string:
				msg.Payload = []byte(v)
			case []byte:
				msg.Payload = v
			}
		}

		if err := handler(msg); err != nil {
			logger.Warn("queue handler failed, message left pending",
				"queue", q.cfg.Name, "message_id", msg.ID, "error", err)
			continue
		}
		if err := q.adapter.XAck(q.cfg.Name, q.cfg.ConsumerGroup, msg.ID); err != nil {
			logger.Warn("queue ack failed", "queue", q.cfg.Name, "message_id", msg.ID, "error", err)
		}
	}
}

func (q *Queue) Len() (int64, error) {
	return q.adapter.XLen(q.cfg.Name)
}

func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	if q.cancel != nil {
		q.cancel()
	}
}
