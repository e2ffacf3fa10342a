package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robertarktes/studio-bookings/internal/domain"
)

type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Client() *redis.Client {
	return c.client
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func dateLockKey(date string) string {
	return "booking:date-lock:" + date
}

// LockDate takes the per-date submission lock. It reports false when another
// holder owns it.
func (c *Cache) LockDate(ctx context.Context, date, token string, ttl time.Duration) (bool, error) {
	res := c.client.SetNX(ctx, dateLockKey(date), token, ttl)
	if err := res.Err(); err != nil {
		return false, domain.Unavailable(err, "lock date")
	}
	return res.Val(), nil
}

// unlockScript deletes the key only while it still holds our token, so an
// expired lock taken over by another request is left alone.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (c *Cache) UnlockDate(ctx context.Context, date, token string) error {
	err := unlockScript.Run(ctx, c.client, []string{dateLockKey(date)}, token).Err()
	return domain.Unavailable(err, "unlock date")
}
