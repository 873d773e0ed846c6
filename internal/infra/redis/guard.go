package redis

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"notiplay/internal/domain"
)

// releaseScript deletes the key only while it still holds our token, so a release
// after expiry cannot drop another holder's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Guard is an app.InFlightGuard shared by every instance behind the same Redis. The
// ttl bounds how long a crashed holder can block a key.
type Guard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewGuard(client *redis.Client, ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Guard{client: client, ttl: ttl}
}

func (g *Guard) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, g.key(key), token, g.ttl).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "acquire %s", key)
	}
	if !ok {
		return nil, domain.ErrInFlight
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// best-effort; the ttl clears it otherwise
			_ = releaseScript.Run(context.Background(), g.client, []string{g.key(key)}, token).Err()
		})
	}, nil
}

func (g *Guard) key(key string) string {
	return "inflight:" + key
}
