package sesslock

import (
	"context"
	"log"
	"time"

	"github.com/Abraxas-365/craftable/errx"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/dialogo-labs/dialogo/flow"
	"github.com/dialogo-labs/dialogo/pkg/kernel"
)

const lockKeyPrefix = "dialogo:turnlock:"

// RedisSessionLocker serializa los turnos de una misma sesión con un lock
// SETNX por sesión. The TTL guards against a crashed worker holding the
// lock forever; release checks ownership so an expired holder cannot drop
// the next turn's lock.
type RedisSessionLocker struct {
	client *redis.Client
	ttl    time.Duration
}

var _ flow.SessionLocker = (*RedisSessionLocker)(nil)

// releaseScript deletes the lock only when the stored token still belongs
// to this holder.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

func NewRedisSessionLocker(client *redis.Client, ttl time.Duration) *RedisSessionLocker {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &RedisSessionLocker{client: client, ttl: ttl}
}

func (l *RedisSessionLocker) Acquire(ctx context.Context, sessionID kernel.SessionID) (func(), error) {
	key := lockKeyPrefix + sessionID.String()
	token := uuid.New().String()

	acquired, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, errx.Wrap(err, "failed to acquire session lock", errx.TypeInternal).
			WithDetail("session_id", sessionID.String())
	}
	if !acquired {
		return nil, flow.ErrTurnInProgress().
			WithDetail("session_id", sessionID.String())
	}

	release := func() {
		// Releases run even when the caller's context is already done.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
			log.Printf("⚠️ failed to release session lock %s: %v", key, err)
		}
	}

	return release, nil
}
