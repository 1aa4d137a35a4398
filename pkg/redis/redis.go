package redis

import (
	"context"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

var NilError = goredis.Nil

type Options = goredis.UniversalOptions

// StreamMessage is a single entry read from a redis stream.
type StreamMessage struct {
	ID     string
	Values map[string]interface{}
}

// Adapter is the subset of redis used by the engine: plain KV for
// idempotency markers and locks, streams for the event queue.
type Adapter interface {
	Set(key string, value []byte, ttl time.Duration) error
	SetNX(key string, value []byte, ttl time.Duration) (bool, error)
	Get(key string) ([]byte, error)
	Del(key string) error
	Exist(key string) (int64, error)
	Client() goredis.UniversalClient

	XAdd(key string, values map[string]interface{}, maxLen int64) (string, error)
	XReadGroup(group, consumer, key, id string, count int64, block time.Duration) ([]StreamMessage, error)
	XAck(key, group string, ids ...string) error
	XGroupCreateMkStream(key, group, start string) error
	XLen(key string) (int64, error)
	XPendingExt(key, group, start, end string, count int64) ([]goredis.XPendingExt, error)
	XClaim(key, group, consumer string, minIdle time.Duration, ids ...string) ([]StreamMessage, error)
}

type adapter struct {
	prefix string
	conn   goredis.UniversalClient
	name   string
}

var (
	instLock  sync.RWMutex
	instances map[string]Adapter
)

func NewAdapter(connName, keysPrefix string, opts *goredis.UniversalOptions) (Adapter, error) {
	instLock.RLock()
	if a, ok := instances[connName]; ok {
		instLock.RUnlock()
		return a, nil
	}
	instLock.RUnlock()

	c := goredis.NewUniversalClient(opts)
	if cmd := c.Ping(context.Background()); cmd.Err() != nil {
		return nil, cmd.Err()
	}

	a := &adapter{conn: c, prefix: keysPrefix, name: connName}

	instLock.Lock()
	if instances == nil {
		instances = make(map[string]Adapter)
	}
	instances[connName] = a
	instLock.Unlock()

	return a, nil
}

func (a *adapter) key(k string) string {
	if a.prefix == "" {
		return k
	}
	return a.prefix + ":" + k
}

func (a *adapter) Client() goredis.UniversalClient { return a.conn }

func (a *adapter) Set(key string, value []byte, ttl time.Duration) error {
	return a.conn.Set(context.Background(), a.key(key), value, ttl).Err()
}

func (a *adapter) SetNX(key string, value []byte, ttl time.Duration) (bool, error) {
	return a.conn.SetNX(context.Background(), a.key(key), value, ttl).Result()
}

func (a *adapter) Get(key string) ([]byte, error) {
	return a.conn.Get(context.Background(), a.key(key)).Bytes()
}

func (a *adapter) Del(key string) error {
	return a.conn.Del(context.Background(), a.key(key)).Err()
}

func (a *adapter) Exist(key string) (int64, error) {
	return a.conn.Exists(context.Background(), a.key(key)).Result()
}

func (a *adapter) XAdd(key string, values map[string]interface{}, maxLen int64) (string, error) {
	args := &goredis.XAddArgs{
		Stream: a.key(key),
		Values: values,
	}
	if maxLen > 0 {
		args.MaxLen = maxLen
		args.Approx = true
	}
	return a.conn.XAdd(context.Background(), args).Result()
}

func (a *adapter) XReadGroup(group, consumer, key, id string, count int64, block time.Duration) ([]StreamMessage, error) {
	res, err := a.conn.XReadGroup(context.Background(), &goredis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{a.key(key), id},
		Count:    count,
		Block:    block,
	}).Result()
	if err != nil {
		return nil, err
	}
	var out []StreamMessage
	for _, stream := range res {
		for _, m := range stream.Messages {
			out = append(out, StreamMessage{ID: m.ID, Values: m.Values})
		}
	}
	return out, nil
}

func (a *adapter) XAck(key, group string, ids ...string) error {
	return a.conn.XAck(context.Background(), a.key(key), group, ids...).Err()
}

func (a *adapter) XGroupCreateMkStream(key, group, start string) error {
	return a.conn.XGroupCreateMkStream(context.Background(), a.key(key), group, start).Err()
}

func (a *adapter) XLen(key string) (int64, error) {
	return a.conn.XLen(context.Background(), a.key(key)).Result()
}

func (a *adapter) XPendingExt(key, group, start, end string, count int64) ([]goredis.XPendingExt, error) {
	return a.conn.XPendingExt(context.Background(), &goredis.XPendingExtArgs{
		Stream: a.key(key),
		Group:  group,
		Start:  start,
		End:    end,
		Count:  count,
	}).Result()
}

func (a *adapter) XClaim(key, group, consumer string, minIdle time.Duration, ids ...string) ([]StreamMessage, error) {
	res, err := a.conn.XClaim(context.Background(), &goredis.XClaimArgs{
		Stream:   a.key(key),
		Group:    group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Messages: ids,
	}).Result()
	if err != nil {
		return nil, err
	}
	var out []StreamMessage
	for _, m := range res {
		out = append(out, StreamMessage{ID: m.ID, Values: m.Values})
	}
	return out, nil
}
