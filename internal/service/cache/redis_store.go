package cache

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "agencylens:cache:"

// RedisStore keeps each entry as one JSON string. SET replaces the value
// atomically and the key expires on its own shortly after the TTL.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func redisKey(companyID, dataType string) string {
	if companyID == "" {
		companyID = "all"
	}
	return keyPrefix + dataType + ":" + companyID
}

func (s *RedisStore) Get(ctx context.Context, companyID, dataType string) (*Entry, error) {
	raw, err := s.rdb.Get(ctx, redisKey(companyID, dataType)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *RedisStore) Put(ctx context.Context, entry *Entry, ttl time.Duration) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	// keep the key a little past the ttl so expiry is still decided by Service
	return s.rdb.Set(ctx, redisKey(entry.CompanyID, entry.DataType), raw, ttl+time.Minute).Err()
}

func (s *RedisStore) Delete(ctx context.Context, companyID, dataType string) error {
	return s.rdb.Del(ctx, redisKey(companyID, dataType)).Err()
}

func (s *RedisStore) Clear(ctx context.Context) (int64, error) {
	var deleted int64
	iter := s.rdb.Scan(ctx, 0, keyPrefix+"*", 500).Iterator()
	batch := make([]string, 0, 500)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := s.rdb.Del(ctx, batch...).Result()
		deleted += n
		batch = batch[:0]
		return err
	}
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, err
	}
	return deleted, flush()
}

// EvictOlderThan is a no-op; redis expires keys itself
func (s *RedisStore) EvictOlderThan(context.Context, time.Time) (int64, error) {
	return 0, nil
}
