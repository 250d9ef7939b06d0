package notify

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisStreamSink appends notifications to a Redis stream consumed by the
// delivery service.
type RedisStreamSink struct {
	rdb    redis.UniversalClient
	stream string
	maxLen int64
}

func NewRedisStreamSink(rdb redis.UniversalClient, stream string) *RedisStreamSink {
	return &RedisStreamSink{rdb: rdb, stream: stream, maxLen: 100000}
}

func (s *RedisStreamSink) Notify(ctx context.Context, n Notification) error {
	meta, err := json.Marshal(n.Metadata)
	if err != nil {
		return err
	}
	return s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{
			"employee_id": strconv.FormatUint(uint64(n.EmployeeID), 10),
			"tenant_id":   strconv.FormatUint(uint64(n.TenantID), 10),
			"severity":    n.Severity,
			"category":    n.Category,
			"title":       n.Title,
			"message":     n.Message,
			"meta":        string(meta),
			"ts":          strconv.FormatInt(n.CreatedAt.UnixMilli(), 10),
		},
	}).Err()
}
