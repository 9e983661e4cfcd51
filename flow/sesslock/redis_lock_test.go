package sesslock_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dialogo-labs/dialogo/flow/sesslock"
	"github.com/dialogo-labs/dialogo/pkg/kernel"
)

func newTestLocker(t *testing.T) (*sesslock.RedisSessionLocker, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return sesslock.NewRedisSessionLocker(client, time.Minute), mr
}

func TestAcquire_SerializesSameSession(t *testing.T) {
	locker, _ := newTestLocker(t)
	sessionID := kernel.NewSessionID("sess-1")

	release, err := locker.Acquire(context.Background(), sessionID)
	require.NoError(t, err)
	require.NotNil(t, release)

	// second turn for the same session is rejected while held
	_, err = locker.Acquire(context.Background(), sessionID)
	assert.Error(t, err)

	release()

	release2, err := locker.Acquire(context.Background(), sessionID)
	require.NoError(t, err)
	release2()
}

func TestAcquire_IndependentSessions(t *testing.T) {
	locker, _ := newTestLocker(t)

	release1, err := locker.Acquire(context.Background(), kernel.NewSessionID("sess-1"))
	require.NoError(t, err)
	defer release1()

	release2, err := locker.Acquire(context.Background(), kernel.NewSessionID("sess-2"))
	require.NoError(t, err)
	defer release2()
}

func TestRelease_DoesNotDropNextHoldersLock(t *testing.T) {
	locker, mr := newTestLocker(t)
	sessionID := kernel.NewSessionID("sess-1")

	staleRelease, err := locker.Acquire(context.Background(), sessionID)
	require.NoError(t, err)

	// simulate TTL expiry of the first holder, then a new turn takes over
	mr.FastForward(2 * time.Minute)

	freshRelease, err := locker.Acquire(context.Background(), sessionID)
	require.NoError(t, err)
	defer freshRelease()

	// stale holder releasing must not free the fresh holder's lock
	staleRelease()

	_, err = locker.Acquire(context.Background(), sessionID)
	assert.Error(t, err)
}
