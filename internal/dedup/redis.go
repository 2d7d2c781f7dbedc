package dedup

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisWindow shares the suppression window between monitor replicas. Applied
// fingerprints are stored as keys that expire after the window.
type RedisWindow struct {
	client  redis.Cmdable
	prefix  string
	window  time.Duration
	timeout time.Duration
	// local mirrors every record so lookups keep working while redis is down.
	local  *Window
	logger *zap.Logger
}

func NewRedisWindow(client redis.Cmdable, prefix string, window time.Duration, logger *zap.Logger) *RedisWindow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisWindow{
		client:  client,
		prefix:  prefix,
		window:  window,
		timeout: 500 * time.Millisecond,
		local:   NewWindow(window),
		logger:  logger.Named("dedup"),
	}
}

func (r *RedisWindow) redisKey(key string, payload any) string {
	return r.prefix + fingerprintHex(Fingerprint(key, payload))
}

// Seen falls back to the in-process window when redis is unreachable.
func (r *RedisWindow) Seen(key string, payload any) bool {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	n, err := r.client.Exists(ctx, r.redisKey(key, payload)).Result()
	if err != nil {
		r.logger.Warn("Redis dedup unavailable, using local window", zap.String("key", key), zap.Error(err))
		return r.local.Seen(key, payload)
	}
	return n > 0
}

// Record stores the fingerprint in redis and in the local mirror.
func (r *RedisWindow) Record(key string, payload any) {
	r.local.Record(key, payload)

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.client.Set(ctx, r.redisKey(key, payload), 1, r.window).Err(); err != nil {
		r.logger.Warn("Redis dedup record failed", zap.String("key", key), zap.Error(err))
	}
}
