package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"iinfinder/internal/cache/models"
	"iinfinder/internal/iin"
	"iinfinder/internal/registry"
)

const (
	screeningPrefix    = "iinfinder:cache:screening:"
	confirmationPrefix = "iinfinder:cache:confirmation:"
	scanBatch          = 256
)

// RedisStore keeps one sorted set per cache key, scored by creation time in
// microseconds. Keys carry an EXPIRE of the level's TTL so idle keys vanish
// even without a sweep.
type RedisStore struct {
	client          *redis.Client
	screeningTTL    time.Duration
	confirmationTTL time.Duration
}

func NewRedisStore(client *redis.Client, screeningTTL, confirmationTTL time.Duration) *RedisStore {
	return &RedisStore{client: client, screeningTTL: screeningTTL, confirmationTTL: confirmationTTL}
}

type screeningMember struct {
	ID      string                     `json:"id"`
	Records []registry.ScreeningRecord `json:"records"`
}

type confirmationMember struct {
	ID       string                        `json:"id"`
	Found    []registry.ConfirmationRecord `json:"found"`
	Leftover []iin.ID                      `json:"leftover"`
}

func (s *RedisStore) InsertScreening(ctx context.Context, key models.ScreeningKey, entry models.ScreeningEntry) error {
	payload, err := json.Marshal(screeningMember{ID: uuid.NewString(), Records: entry.Records})
	if err != nil {
		return fmt.Errorf("encode screening entry: %w", err)
	}
	return s.insert(ctx, screeningPrefix+key.String(), payload, entry.CreatedAt, s.screeningTTL)
}

func (s *RedisStore) LatestScreening(ctx context.Context, key models.ScreeningKey, notBefore time.Time) (*models.ScreeningEntry, error) {
	raw, createdAt, err := s.latest(ctx, screeningPrefix+key.String(), notBefore)
	if err != nil {
		return nil, err
	}
	var m screeningMember
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("decode screening entry: %w", err)
	}
	return &models.ScreeningEntry{Records: m.Records, CreatedAt: createdAt}, nil
}

func (s *RedisStore) InsertConfirmation(ctx context.Context, key models.ConfirmationKey, entry models.ConfirmationEntry) error {
	payload, err := json.Marshal(confirmationMember{
		ID:       uuid.NewString(),
		Found:    nonNil(entry.Found),
		Leftover: nonNil(entry.Leftover),
	})
	if err != nil {
		return fmt.Errorf("encode confirmation entry: %w", err)
	}
	return s.insert(ctx, confirmationPrefix+key.String(), payload, entry.CreatedAt, s.confirmationTTL)
}

func (s *RedisStore) LatestConfirmation(ctx context.Context, key models.ConfirmationKey, notBefore time.Time) (*models.ConfirmationEntry, error) {
	raw, createdAt, err := s.latest(ctx, confirmationPrefix+key.String(), notBefore)
	if err != nil {
		return nil, err
	}
	var m confirmationMember
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("decode confirmation entry: %w", err)
	}
	return &models.ConfirmationEntry{Found: m.Found, Leftover: m.Leftover, CreatedAt: createdAt}, nil
}

func (s *RedisStore) RemoveCreatedBefore(ctx context.Context, level models.Level, cutoff time.Time) (int64, error) {
	var prefix string
	switch level {
	case models.LevelScreening:
		prefix = screeningPrefix
	case models.LevelConfirmation:
		prefix = confirmationPrefix
	default:
		return 0, fmt.Errorf("unknown cache level %q", level)
	}

	cutoffScore := strconv.FormatInt(toMicros(cutoff), 10)
	var removed int64
	iter := s.client.Scan(ctx, 0, prefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		n, err := s.client.ZRemRangeByScore(ctx, iter.Val(), "-inf", cutoffScore).Result()
		if err != nil {
			return removed, fmt.Errorf("remove expired %s entries: %w", level, err)
		}
		removed += n
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("scan %s keys: %w", level, err)
	}
	return removed, nil
}

func (s *RedisStore) insert(ctx context.Context, key string, payload []byte, createdAt time.Time, ttl time.Duration) error {
	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(toMicros(createdAt)), Member: string(payload)})
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("insert cache entry: %w", err)
	}
	return nil
}

func (s *RedisStore) latest(ctx context.Context, key string, notBefore time.Time) (string, time.Time, error) {
	res, err := s.client.ZRevRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{
		Max:   "+inf",
		Min:   "(" + strconv.FormatInt(toMicros(notBefore), 10),
		Count: 1,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", time.Time{}, fmt.Errorf("find cache entry: %w", err)
	}
	if len(res) == 0 {
		return "", time.Time{}, models.ErrNotFound
	}
	member, ok := res[0].Member.(string)
	if !ok {
		return "", time.Time{}, fmt.Errorf("find cache entry: unexpected member type %T", res[0].Member)
	}
	return member, fromMicros(int64(res[0].Score)), nil
}
