package cache

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisBackend keeps each entry in a hash at "lawcards:cache:<partition>:<key>".
type RedisBackend struct {
	client *redis.Client
	prefix string
}

func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client, prefix: "lawcards:cache:"}
}

func (b *RedisBackend) hashKey(p Partition, key string) string {
	return b.prefix + string(p) + ":" + key
}

// Put replaces the hash inside MULTI/EXEC so readers see either the old or
// the new entry.
func (b *RedisBackend) Put(ctx context.Context, e Entry) error {
	k := b.hashKey(e.Partition, e.Key)
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k)
		pipe.HSet(ctx, k,
			"payload", string(e.Payload),
			"timestamp_ms", e.TimestampMs,
			"format_version", e.FormatVersion,
			"derived_count", e.DerivedCount,
			"size_bytes", e.SizeBytes,
		)
		pipe.SAdd(ctx, b.prefix+string(e.Partition), e.Key)
		return nil
	})
	return err
}

func (b *RedisBackend) Get(ctx context.Context, p Partition, key string) (Entry, bool, error) {
	m, err := b.client.HGetAll(ctx, b.hashKey(p, key)).Result()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	if len(m) == 0 {
		return Entry{}, false, nil
	}
	e := Entry{Partition: p, Key: key, Payload: []byte(m["payload"]), FormatVersion: m["format_version"]}
	if e.TimestampMs, err = strconv.ParseInt(m["timestamp_ms"], 10, 64); err != nil {
		return Entry{}, false, err
	}
	e.DerivedCount, _ = strconv.Atoi(m["derived_count"])
	e.SizeBytes, _ = strconv.ParseInt(m["size_bytes"], 10, 64)
	return e, true, nil
}

func (b *RedisBackend) Clear(ctx context.Context, parts ...Partition) error {
	var keys []string
	for _, p := range parts {
		members, err := b.client.SMembers(ctx, b.prefix+string(p)).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		for _, m := range members {
			keys = append(keys, b.hashKey(p, m))
		}
		keys = append(keys, b.prefix+string(p))
	}
	if len(keys) == 0 {
		return nil
	}
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		return nil
	})
	return err
}

func (b *RedisBackend) Close() error { return b.client.Close() }
