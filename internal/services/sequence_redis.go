package services

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

const defaultCounterKey = "facturas:invoice_number"

// incrAtLeast increments the counter and lifts it to ARGV[1] if it lags
// behind the stored invoices.
var incrAtLeast = redis.NewScript(`
local v = redis.call('INCR', KEYS[1])
local floor = tonumber(ARGV[1])
if v < floor then
	redis.call('SET', KEYS[1], floor)
	v = floor
end
return v
`)

// RedisCounter is a Counter shared by every server instance.
type RedisCounter struct {
	client *redis.Client
	key    string
}

var _ Counter = (*RedisCounter)(nil)

func NewRedisCounter(client *redis.Client, key string) *RedisCounter {
	if key == "" {
		key = defaultCounterKey
	}
	return &RedisCounter{client: client, key: key}
}

func (c *RedisCounter) Next(ctx context.Context, floor int) (int, error) {
	n, err := incrAtLeast.Run(ctx, c.client, []string{c.key}, floor).Int()
	if err != nil {
		return 0, errors.Wrap(err, "redis invoice counter")
	}
	return n, nil
}
