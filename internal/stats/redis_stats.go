package stats

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const statusCountsKey = "requests:status_counts"

// RedisStats reads the marketplace view maintained by cmd/consumer. The
// data path never touches this; only the stats endpoint does.
type RedisStats struct {
	client *redis.Client
}

func NewRedisStats(addr, password string) *RedisStats {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisStats{client: c}
}

// StatusCounts returns the number of requests currently in each status,
// as last observed by the view consumer.
func (r *RedisStats) StatusCounts(ctx context.Context) (map[string]int64, error) {
	raw, err := r.client.HGetAll(ctx, statusCountsKey).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(raw))
	for status, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		out[status] = n
	}
	return out, nil
}

func (r *RedisStats) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStats) Close() error { return r.client.Close() }
