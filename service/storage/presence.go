package storage

import (
	"context"
	"strconv"
	"time"

	"PPGateway/logger"
	redisutil "PPGateway/service/storage/redis"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Presence mirrors user online state into redis so sibling services can see
// which gateway node holds a user. Key per user, value is the node id, TTL
// bounds staleness if the gateway dies without cleaning up.
//
// Mirroring is best effort: redis failures are logged, never propagated into
// registry operations.
type Presence struct {
	ttl time.Duration
}

func NewPresence(ttl time.Duration) *Presence {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Presence{ttl: ttl}
}

func presenceKey(userID int64) string {
	return "gw:presence:" + strconv.FormatInt(userID, 10)
}

func (p *Presence) UserOnline(userID int64, nodeID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := redisutil.GetRedis().Set(ctx, presenceKey(userID), nodeID, p.ttl).Err(); err != nil {
		logger.Errorf("[presence] online user=%d: %v", userID, err)
	}
}

func (p *Presence) UserOffline(userID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := redisutil.GetRedis().Del(ctx, presenceKey(userID)).Err(); err != nil {
		logger.Errorf("[presence] offline user=%d: %v", userID, err)
	}
}

// Lookup reports the node currently holding the user, if any.
func (p *Presence) Lookup(ctx context.Context, userID int64) (nodeID string, online bool, err error) {
	val, err := redisutil.GetRedis().Get(ctx, presenceKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "presence lookup")
	}
	return val, true, nil
}
