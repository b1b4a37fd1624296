package pingcache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPingPrefix = "matchcast:ping:"

// Redis shares measured ping times across instances. Entries carry a TTL
// so a host that drops out of the sweep falls back to the default ping.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

func NewRedis(client *redis.Client, ttl time.Duration, log *slog.Logger) *Redis {
	return &Redis{client: client, ttl: ttl, log: log}
}

func (r *Redis) Get(ctx context.Context, host string) (time.Duration, bool) {
	nanos, err := r.client.Get(ctx, redisPingPrefix+host).Int64()
	if err != nil {
		if err != redis.Nil {
			r.log.Warn("reading ping cache", "host", host, "error", err)
		}
		return 0, false
	}
	return time.Duration(nanos), true
}

func (r *Redis) Set(ctx context.Context, host string, rtt time.Duration) {
	if err := r.client.Set(ctx, redisPingPrefix+host, int64(rtt), r.ttl).Err(); err != nil {
		r.log.Warn("writing ping cache", "host", host, "error", err)
	}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
