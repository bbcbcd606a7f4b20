package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/M0hammadUsman/listingchat/internal/common"
	"github.com/M0hammadUsman/listingchat/internal/domain"
	"github.com/redis/go-redis/v9"
)

var (
	_ domain.UnreadCache = (*UnreadCache)(nil)
	_ domain.UnreadCache = Noop{}
)

const (
	unreadKeyPrefix = "listingchat:unread:"
	// present in every cached hash so a user with zero unread is still a cache hit
	sentinelField   = "_"
	watermarkPrefix = "w:"
)

func NewRedisClient(cfg *common.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// UnreadCache keeps each user's unread state as a hash of conversation id -> count, with the
// conversation's watermark under watermarkPrefix + conversation id
type UnreadCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewUnreadCache(rdb *redis.Client, ttl time.Duration) *UnreadCache {
	return &UnreadCache{rdb: rdb, ttl: ttl}
}

func unreadKey(usrID string) string {
	return unreadKeyPrefix + usrID
}

func (c *UnreadCache) Get(ctx context.Context, usrID string) (*domain.UnreadState, bool, error) {
	fields, err := c.rdb.HGetAll(ctx, unreadKey(usrID)).Result()
	if err != nil {
		return nil, false, err
	}
	if _, ok := fields[sentinelField]; !ok {
		return nil, false, nil
	}
	state := domain.NewUnreadState()
	for field, v := range fields {
		if field == sentinelField {
			continue
		}
		if convID, ok := strings.CutPrefix(field, watermarkPrefix); ok {
			ts, err := time.Parse(time.RFC3339Nano, v)
			if err != nil {
				return nil, false, fmt.Errorf("corrupt unread watermark for %v: %w", convID, err)
			}
			state.Watermarks[convID] = ts
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, false, fmt.Errorf("corrupt unread count for %v: %w", field, err)
		}
		state.Counts[field] = n
	}
	return state, true, nil
}

func (c *UnreadCache) Set(ctx context.Context, usrID string, state *domain.UnreadState) error {
	key := unreadKey(usrID)
	values := make([]any, 0, 2+(len(state.Counts)+len(state.Watermarks))*2)
	values = append(values, sentinelField, 1)
	for convID, n := range state.Counts {
		if n > 0 {
			values = append(values, convID, n)
		}
	}
	for convID, ts := range state.Watermarks {
		values = append(values, watermarkPrefix+convID, ts.UTC().Format(time.RFC3339Nano))
	}
	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, values...)
	pipe.Expire(ctx, key, c.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (c *UnreadCache) Invalidate(ctx context.Context, usrIDs ...string) error {
	if len(usrIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(usrIDs))
	for _, id := range usrIDs {
		keys = append(keys, unreadKey(id))
	}
	err := c.rdb.Del(ctx, keys...).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// Noop never hits, used when no Redis is configured
type Noop struct{}

func (Noop) Get(context.Context, string) (*domain.UnreadState, bool, error) { return nil, false, nil }

func (Noop) Set(context.Context, string, *domain.UnreadState) error { return nil }

func (Noop) Invalidate(context.Context, ...string) error { return nil }
