package mitigation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/wardnet/wardnet/pkg/metrics"
)

// RedisSink adapts the teacher's Get/Set/Clear-with-TTL mitigation shape to
// record filtered IPs into a Redis set shared across replicas, so operators
// running several WardNet nodes behind one Redis see a cluster-wide
// filtered-IP view. This is visibility, not actuation — nothing here blocks
// traffic; it is the optional bookkeeping layer described in SPEC_FULL.md §4.8.
type RedisSink struct {
	rdb *redis.Client
	as  string
	ttl time.Duration
}

func NewRedisSink(rdb *redis.Client, asName string, ttl time.Duration) *RedisSink {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisSink{rdb: rdb, as: asName, ttl: ttl}
}

func (s *RedisSink) key() string {
	return fmt.Sprintf("wn:filtered:%s", s.as)
}

// Filter adds ips to the shared filtered-IP set and refreshes its TTL.
// Errors are logged and swallowed — mitigation bookkeeping is best-effort,
// matching the fire-and-forget error policy the system applies to the bus.
func (s *RedisSink) Filter(ips []string) {
	if len(ips) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	members := make([]interface{}, len(ips))
	for i, ip := range ips {
		members[i] = ip
	}

	key := s.key()
	pipe := s.rdb.Pipeline()
	pipe.SAdd(ctx, key, members...)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("mitigation_redis_sink_failed")
		return
	}
	metrics.MitigationFilterTotal.WithLabelValues("redis").Add(float64(len(ips)))
}

// Members returns the current filtered-IP set. No admin HTTP route calls it.
func (s *RedisSink) Members(ctx context.Context) ([]string, error) {
	return s.rdb.SMembers(ctx, s.key()).Result()
}
