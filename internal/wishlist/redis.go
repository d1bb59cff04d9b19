package wishlist

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
)

// RedisStore persists one session's wishlist in a Redis hash, so saved
// items survive a service restart. The hash is keyed by product id;
// HSETNX gives the idempotent-add semantics for free, and a per-session
// sequence counter records insertion order.
type RedisStore struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

var _ Store = (*RedisStore)(nil)

// redisEntry is the stored envelope: the item plus its insertion
// sequence number.
type redisEntry struct {
	Seq  int64 `json:"seq"`
	Item Item  `json:"item"`
}

// NewRedisStore returns a Store for the given session backed by rdb.
// Keys expire after ttl of inactivity; every mutation refreshes it.
func NewRedisStore(rdb *redis.Client, sessionID string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		rdb: rdb,
		key: "wishlist:" + sessionID,
		ttl: ttl,
	}
}

func (s *RedisStore) seqKey() string {
	return s.key + ":seq"
}

// Add inserts item unless an entry with the same id already exists.
// The existence check and insert are a single HSETNX, so concurrent
// adds of the same id cannot both win.
func (s *RedisStore) Add(ctx context.Context, item Item) error {
	seq, err := s.rdb.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return errors.Wrap(err, "next wishlist sequence")
	}

	payload, err := json.Marshal(redisEntry{Seq: seq, Item: item})
	if err != nil {
		return errors.Wrap(err, "encode wishlist item")
	}

	if err := s.rdb.HSetNX(ctx, s.key, strconv.Itoa(item.ID), payload).Err(); err != nil {
		return errors.Wrap(err, "store wishlist item")
	}
	return s.touch(ctx)
}

// Remove deletes the entry with the given id, if present.
func (s *RedisStore) Remove(ctx context.Context, id int) error {
	if err := s.rdb.HDel(ctx, s.key, strconv.Itoa(id)).Err(); err != nil {
		return errors.Wrap(err, "remove wishlist item")
	}
	return s.touch(ctx)
}

// Contains reports whether an entry with the given id exists.
func (s *RedisStore) Contains(ctx context.Context, id int) (bool, error) {
	ok, err := s.rdb.HExists(ctx, s.key, strconv.Itoa(id)).Result()
	if err != nil {
		return false, errors.Wrap(err, "check wishlist item")
	}
	return ok, nil
}

// Clear empties the wishlist unconditionally.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.key, s.seqKey()).Err(); err != nil {
		return errors.Wrap(err, "clear wishlist")
	}
	return nil
}

// Items returns the saved entries in insertion order.
func (s *RedisStore) Items(ctx context.Context) ([]Item, error) {
	raw, err := s.rdb.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, errors.Wrap(err, "load wishlist")
	}

	entries := make([]redisEntry, 0, len(raw))
	for _, v := range raw {
		var e redisEntry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			return nil, errors.Wrap(err, "decode wishlist item")
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Seq < entries[j].Seq })

	items := make([]Item, len(entries))
	for i, e := range entries {
		items[i] = e.Item
	}
	return items, nil
}

// touch refreshes the session TTL after a mutation.
func (s *RedisStore) touch(ctx context.Context) error {
	if s.ttl <= 0 {
		return nil
	}
	if err := s.rdb.Expire(ctx, s.key, s.ttl).Err(); err != nil {
		return errors.Wrap(err, "refresh wishlist ttl")
	}
	if err := s.rdb.Expire(ctx, s.seqKey(), s.ttl).Err(); err != nil {
		return errors.Wrap(err, "refresh wishlist ttl")
	}
	return nil
}
