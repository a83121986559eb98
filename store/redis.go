package store

import (
	"context"
	"encoding/json"
	"path"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
)

// The redis store keeps each transcript as a JSON value,
// and indexes the transcript IDs in a sorted set scored by the creation time.
// The keys namespace is organized as follows:
// - `/<prefix>/transcripts/items/<id>` for the transcript
// - `/<prefix>/transcripts/index` for the sorted set of transcript IDs

type redisStore struct {
	client     *redis.Client
	prefix     string
	maxEntries int
}

// NewRedisStore returns the store backed by Redis.
// When maxEntries is positive, the oldest transcripts are evicted above the limit.
func NewRedisStore(client *redis.Client, prefix string, maxEntries int) TranscriptStore {
	return &redisStore{
		client:     client,
		prefix:     prefix,
		maxEntries: maxEntries,
	}
}

func (m *redisStore) itemKey(id string) string {
	return path.Join("/", m.prefix, "transcripts", "items", id)
}

func (m *redisStore) indexKey() string {
	return path.Join("/", m.prefix, "transcripts", "index")
}

func (m *redisStore) Save(ctx context.Context, t *Transcript) error {
	if t.ID == "" {
		return errors.New("transcript ID is required")
	}
	data, err := json.Marshal(t)
	if err != nil {
		return errors.Wrap(err, "failed to marshal transcript")
	}

	pipe := m.client.TxPipeline()
	pipe.Set(ctx, m.itemKey(t.ID), data, 0)
	pipe.ZAdd(ctx, m.indexKey(), redis.Z{
		Score:  float64(t.CreatedAt.UnixNano()),
		Member: t.ID,
	})
	if _, err = pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to store transcript in Redis")
	}

	if m.maxEntries > 0 {
		evicted, err := m.client.ZRevRange(ctx, m.indexKey(), int64(m.maxEntries), -1).Result()
		if err != nil {
			return errors.Wrap(err, "failed to list transcripts from Redis")
		}
		if err = m.remove(ctx, evicted...); err != nil {
			return err
		}
		if len(evicted) > 0 {
			logger.ContextKV(ctx, xlog.DEBUG,
				"status", "evicted",
				"count", len(evicted))
		}
	}
	return nil
}

func (m *redisStore) Get(ctx context.Context, id string) (*Transcript, error) {
	data, err := m.client.Get(ctx, m.itemKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get transcript from Redis")
	}

	t := new(Transcript)
	if err = json.Unmarshal([]byte(data), t); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal transcript")
	}
	return t, nil
}

func (m *redisStore) List(ctx context.Context, limit int) ([]*Transcript, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := m.client.ZRevRange(ctx, m.indexKey(), 0, stop).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to list transcripts from Redis")
	}

	list := make([]*Transcript, 0, len(ids))
	for _, id := range ids {
		t, err := m.Get(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// expired item of a stale index entry
				continue
			}
			return nil, err
		}
		list = append(list, t)
	}
	return list, nil
}

func (m *redisStore) Delete(ctx context.Context, id string) error {
	return m.remove(ctx, id)
}

func (m *redisStore) Cleanup(ctx context.Context, olderThan time.Duration) (uint32, error) {
	cutoff := TimeNowFn().Add(-olderThan).UnixNano()
	ids, err := m.client.ZRangeByScore(ctx, m.indexKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff, 10),
	}).Result()
	if err != nil {
		return 0, errors.Wrap(err, "failed to list transcripts from Redis")
	}

	if err = m.remove(ctx, ids...); err != nil {
		return 0, err
	}
	return uint32(len(ids)), nil
}

func (m *redisStore) remove(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	keys := make([]string, 0, len(ids))
	members := make([]any, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, m.itemKey(id))
		members = append(members, id)
	}

	pipe := m.client.TxPipeline()
	pipe.Del(ctx, keys...)
	pipe.ZRem(ctx, m.indexKey(), members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to delete transcripts from Redis")
	}
	return nil
}
