package alarm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	dueKey     = "alarms:due"
	payloadKey = "alarms:payload"
)

// RedisQueue keeps alarms in a sorted set scored by fire time (unix ms)
// with the JSON payloads in a hash. Several servers can share one
// queue: an alarm belongs to whoever removes it from the set first.
type RedisQueue struct {
	rdb *redis.Client
}

func NewRedisQueue(rdb *redis.Client) *RedisQueue {
	return &RedisQueue{rdb: rdb}
}

func (q *RedisQueue) Schedule(ctx context.Context, a Alarm) error {
	b, err := json.Marshal(a)
	if err != nil {
		return err
	}
	_, err = q.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, payloadKey, a.ID, b)
		p.ZAdd(ctx, dueKey, redis.Z{Score: float64(a.FireAt.UnixMilli()), Member: a.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("schedule alarm %s: %w", a.ID, err)
	}
	return nil
}

func (q *RedisQueue) Cancel(ctx context.Context, id string) error {
	_, err := q.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZRem(ctx, dueKey, id)
		p.HDel(ctx, payloadKey, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("cancel alarm %s: %w", id, err)
	}
	return nil
}

// Lookup reads the payload of a pending alarm. The payload is removed
// when the alarm is claimed or cancelled.
func (q *RedisQueue) Lookup(ctx context.Context, id string) (Alarm, bool, error) {
	raw, err := q.rdb.HGet(ctx, payloadKey, id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Alarm{}, false, nil
	}
	if err != nil {
		return Alarm{}, false, fmt.Errorf("lookup alarm %s: %w", id, err)
	}
	var a Alarm
	if err := json.Unmarshal(raw, &a); err != nil {
		return Alarm{}, false, err
	}
	return a, true, nil
}

// Due claims up to limit alarms due at now. Members lost to another
// server or missing their payload do not count toward limit: Due keeps
// reading until it has limit alarms or the due range is exhausted.
func (q *RedisQueue) Due(ctx context.Context, now time.Time, limit int) ([]Alarm, error) {
	var out []Alarm
	for {
		want := limit - len(out)
		if limit <= 0 {
			want = 0
		}
		ids, err := q.rdb.ZRangeByScore(ctx, dueKey, &redis.ZRangeBy{
			Min:   "-inf",
			Max:   strconv.FormatInt(now.UnixMilli(), 10),
			Count: int64(want),
		}).Result()
		if err != nil {
			return out, fmt.Errorf("due alarms: %w", err)
		}
		got, err := q.claim(ctx, ids)
		out = append(out, got...)
		if err != nil {
			return out, err
		}
		if limit <= 0 || len(ids) < want || len(out) >= limit {
			return out, nil
		}
	}
}

// claim removes each id from the due set and returns the payloads of
// the ones this call won.
func (q *RedisQueue) claim(ctx context.Context, ids []string) ([]Alarm, error) {
	var out []Alarm
	for _, id := range ids {
		// claim
		n, err := q.rdb.ZRem(ctx, dueKey, id).Result()
		if err != nil {
			return out, err
		}
		if n == 0 {
			continue
		}
		raw, err := q.rdb.HGet(ctx, payloadKey, id).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return out, err
		}
		q.rdb.HDel(ctx, payloadKey, id)

		var a Alarm
		if err := json.Unmarshal(raw, &a); err != nil {
			log.Printf("alarm: drop %s: %v", id, err)
			continue
		}
		out = append(out, a)
	}
	return out, nil
}
