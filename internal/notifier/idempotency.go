package notifier

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/abdurrahmanaziz/eksporyuk-sub039/pkg/logger"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/pkg/redis"
)

var (
	ErrAlreadyDelivered  = errors.New("notification already delivered")
	ErrLockHeld          = errors.New("notification locked by another consumer")
	ErrDeliveryExhausted = errors.New("notification delivery retries exhausted")
)

type IdempotencyConfig struct {
	LockTTL      time.Duration
	DeliveredTTL time.Duration
	MaxRetries   int
}

func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		LockTTL:      30 * time.Second,
		DeliveredTTL: 24 * time.Hour,
		MaxRetries:   3,
	}
}

// Idempotency gives at-least-once stream delivery effectively-once
// semantics: a short SetNX lock against concurrent consumers plus a
// long-lived delivered marker against replays.
type Idempotency struct {
	redis redis.Adapter
	cfg   IdempotencyConfig
}

func NewIdempotency(adapter redis.Adapter, cfg IdempotencyConfig) *Idempotency {
	return &Idempotency{redis: adapter, cfg: cfg}
}

type delivery struct {
	MessageID  string
	RetryCount int
	svc        *Idempotency
}

func (s *Idempotency) Acquire(ctx context.Context, messageID string) (*delivery, error) {
	exists, err := s.redis.Exist("notify:done:" + messageID)
	if err != nil {
		// marker check failing should not block delivery
		logger.Warn("delivered marker check failed", "message_id", messageID, "error", err)
	} else if exists > 0 {
		return nil, ErrAlreadyDelivered
	}

	retries := s.retryCount(messageID)
	if retries >= s.cfg.MaxRetries {
		return nil, fmt.Errorf("%w: message_id=%s retries=%d", ErrDeliveryExhausted, messageID, retries)
	}

	acquired, err := s.redis.SetNX("notify:lock:"+messageID, []byte("1"), s.cfg.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire delivery lock: %w", err)
	}
	if !acquired {
		return nil, ErrLockHeld
	}
	return &delivery{MessageID: messageID, RetryCount: retries, svc: s}, nil
}

func (d *delivery) Done() {
	s := d.svc
	if err := s.redis.Set("notify:done:"+d.MessageID, []byte("1"), s.cfg.DeliveredTTL); err != nil {
		logger.Error("set delivered marker failed", "message_id", d.MessageID, "error", err)
	}
	s.redis.Del("notify:lock:" + d.MessageID)  //nolint
	s.redis.Del("notify:retry:" + d.MessageID) //nolint
}

func (d *delivery) Failed(reason error) {
	s := d.svc
	next := strconv.Itoa(d.RetryCount + 1)
	if err := s.redis.Set("notify:retry:"+d.MessageID, []byte(next), s.cfg.DeliveredTTL); err != nil {
		logger.Error("bump retry counter failed", "message_id", d.MessageID, "error", err)
	}
	s.redis.Del("notify:lock:" + d.MessageID) //nolint
	logger.Warn("notification delivery failed, will retry",
		"message_id", d.MessageID,
		"retry_count", d.RetryCount+1,
		"max_retries", s.cfg.MaxRetries,
		"reason", reason)
}

func (s *Idempotency) retryCount(messageID string) int {
	raw, err := s.redis.Get("notify:retry:" + messageID)
	if err != nil || len(raw) == 0 {
		return 0
	}
	n, _ := strconv.Atoi(string(raw))
	return n
}
