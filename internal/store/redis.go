package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"subcon/internal/logging"
)

// RedisStore keeps each record under its own key and indexes ids in sorted
// sets scored by creation time, one per kind plus one for all records.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, opts *redis.Options, prefix string) (*RedisStore, error) {
	if prefix == "" {
		prefix = "subcon"
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}
	logging.Store("RedisStore ready at %s (prefix %s)", opts.Addr, prefix)
	return &RedisStore{client: client, prefix: prefix}, nil
}

func (s *RedisStore) recordKey(id string) string {
	return fmt.Sprintf("%s:record:%s", s.prefix, id)
}

func (s *RedisStore) indexKey(kind Kind) string {
	if kind == "" {
		return s.prefix + ":records:all"
	}
	return fmt.Sprintf("%s:records:%s", s.prefix, kind)
}

// Put writes the record and its index entries in one transaction.
func (s *RedisStore) Put(ctx context.Context, rec Record) error {
	data, err := Encode(rec)
	if err != nil {
		return err
	}
	score := float64(rec.CreatedAt.UnixMilli())
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.recordKey(rec.ID), data, 0)
		pipe.ZAdd(ctx, s.indexKey(rec.Kind), redis.Z{Score: score, Member: rec.ID})
		pipe.ZAdd(ctx, s.indexKey(""), redis.Z{Score: score, Member: rec.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("store record %s: %w", rec.ID, err)
	}
	logging.StoreDebug("stored record %s in redis (%d turns)", rec.ID, rec.Len())
	return nil
}

// Get loads one record.
func (s *RedisStore) Get(ctx context.Context, id string) (Record, error) {
	data, err := s.client.Get(ctx, s.recordKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("get record %s: %w", id, err)
	}
	return Decode(data, id, time.Time{})
}

// List returns records newest first.
func (s *RedisStore) List(ctx context.Context, kind Kind, limit int) ([]Record, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := s.client.ZRevRange(ctx, s.indexKey(kind), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.recordKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}

	records := make([]Record, 0, len(values))
	for i, v := range values {
		payload, ok := v.(string)
		if !ok {
			logging.Get(logging.CategoryStore).Warn("index entry %s has no record", ids[i])
			continue
		}
		rec, err := Decode([]byte(payload), ids[i], time.Time{})
		if err != nil {
			logging.Get(logging.CategoryStore).Warn("skipping unreadable record %s: %v", ids[i], err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
