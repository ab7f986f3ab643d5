package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/campfinder-assistant/server/internal/agent/model"
	errx "github.com/campfinder-assistant/server/internal/core/error"
	logx "github.com/campfinder-assistant/server/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "session:"
	stateKeySuffix   = ":state"
	historyKeySuffix = ":history"
	sweepScanCount   = 200
)

// RedisSessionStore shares sessions between instances. Keys also carry a TTL so a
// stopped reaper never leaks state forever.
type RedisSessionStore struct {
	rdb          redis.Cmdable
	ttl          time.Duration
	historyLimit int
}

func NewRedisSessionStore(rdb redis.Cmdable, ttl time.Duration, historyLimit int) *RedisSessionStore {
	if historyLimit <= 0 {
		historyLimit = model.DefaultHistoryLimit
	}
	return &RedisSessionStore{rdb: rdb, ttl: ttl, historyLimit: historyLimit}
}

func (r *RedisSessionStore) stateKey(userID string) string {
	return fmt.Sprintf("%s%s%s", sessionKeyPrefix, userID, stateKeySuffix)
}

func (r *RedisSessionStore) historyKey(userID string) string {
	return fmt.Sprintf("%s%s%s", sessionKeyPrefix, userID, historyKeySuffix)
}

func (r *RedisSessionStore) Get(ctx context.Context, userID string) (*model.ConversationSession, error) {
	key := r.stateKey(userID)
	raw, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrSessionNotFound
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load session from redis")
		return nil, errx.WrapRedis(err)
	}

	var s model.ConversationSession
	if err := json.Unmarshal(raw, &s); err != nil {
		logx.Error().Err(err).Str("user_id", userID).Msg("failed to unmarshal session")
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &s, nil
}

func (r *RedisSessionStore) Put(ctx context.Context, session *model.ConversationSession) error {
	b, err := json.Marshal(session)
	if err != nil {
		logx.Error().Err(err).Str("user_id", session.UserID).Msg("failed to marshal session")
		return fmt.Errorf("marshal session: %w", err)
	}
	key := r.stateKey(session.UserID)
	if err := r.rdb.Set(ctx, key, b, r.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to store session in redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisSessionStore) Delete(ctx context.Context, userID string) error {
	if err := r.rdb.Del(ctx, r.stateKey(userID), r.historyKey(userID)).Err(); err != nil {
		logx.Error().Err(err).Str("user_id", userID).Msg("failed to delete session from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

// Sweep walks state keys with SCAN so it never blocks the server like KEYS would.
func (r *RedisSessionStore) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	removed := 0
	var cursor uint64
	for {
		keys, next, err := r.rdb.Scan(ctx, cursor, sessionKeyPrefix+"*"+stateKeySuffix, sweepScanCount).Result()
		if err != nil {
			logx.Error().Err(err).Msg("failed to scan session keys")
			return removed, errx.WrapRedis(err)
		}

		for _, key := range keys {
			userID := strings.TrimSuffix(strings.TrimPrefix(key, sessionKeyPrefix), stateKeySuffix)
			s, err := r.Get(ctx, userID)
			if errors.Is(err, model.ErrSessionNotFound) {
				continue
			}
			if err != nil {
				logx.Warn().Err(err).Str("key", key).Msg("skipping unreadable session during sweep")
				continue
			}
			if !s.LastActivityAt.Before(cutoff) {
				continue
			}
			if err := r.Delete(ctx, userID); err != nil {
				return removed, err
			}
			removed++
		}

		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

func (r *RedisSessionStore) AppendHistory(ctx context.Context, userID string, entries ...model.HistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	values := make([]any, 0, len(entries))
	for _, e := range entries {
		b, err := json.Marshal(e)
		if err != nil {
			logx.Error().Err(err).Str("user_id", userID).Msg("failed to marshal history entry")
			return fmt.Errorf("marshal history entry: %w", err)
		}
		values = append(values, b)
	}

	key := r.historyKey(userID)
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		pipe.LTrim(ctx, key, int64(-r.historyLimit), -1)
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to append history to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisSessionStore) History(ctx context.Context, userID string, limit int) ([]model.HistoryEntry, error) {
	key := r.historyKey(userID)
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}

	rows, err := r.rdb.LRange(ctx, key, start, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []model.HistoryEntry{}, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load history from redis")
		return nil, errx.WrapRedis(err)
	}

	entries := make([]model.HistoryEntry, 0, len(rows))
	for i, s := range rows {
		var e model.HistoryEntry
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			logx.Error().Err(err).Str("user_id", userID).Int("index", i).Msg("failed to unmarshal history entry")
			return nil, fmt.Errorf("unmarshal history entry at index %d: %w", i, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

var _ model.SessionStore = (*RedisSessionStore)(nil)
