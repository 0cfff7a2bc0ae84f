package redis_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/anamnesis/pkg/adapters/redis"
	"github.com/aretw0/anamnesis/pkg/domain"
	"github.com/aretw0/anamnesis/pkg/session"
)

func TestRedisLocker_LockUnlock(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:lock:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "resource1", 5*time.Second)
	require.NoError(t, err)
	require.NotNil(t, unlock)

	assert.True(t, mr.Exists("test:lock:lock:resource1"), "Lock key should be set in Redis")

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("test:lock:lock:resource1"), "Lock key should be removed after unlock")
}

func TestRedisLocker_Contention(t *testing.T) {
	_, client := newClient(t)
	locker1 := redis.NewLocker(client, "test:lock:")
	locker2 := redis.NewLocker(client, "test:lock:")
	ctx := context.Background()
	key := "shared-resource"

	unlock1, err := locker1.Lock(ctx, key, 5*time.Second)
	require.NoError(t, err)

	ctxTimeout, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = locker2.Lock(ctxTimeout, key, 5*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, time.Since(start), 250*time.Millisecond)

	require.NoError(t, unlock1(ctx))

	unlock2, err := locker2.Lock(ctx, key, 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}

func TestRedisLocker_StaleUnlockKeepsNewOwner(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlockOld, err := locker.Lock(ctx, "k", time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	unlockNew, err := locker.Lock(ctx, "k", 5*time.Second)
	require.NoError(t, err)

	require.NoError(t, unlockOld(ctx))
	assert.True(t, mr.Exists("test:lock:k"), "expired owner must not release the new lock")
	require.NoError(t, unlockNew(ctx))
}

func TestRedisLocker_WithManager(t *testing.T) {
	_, client := newClient(t)
	store := redis.NewFromClient(client)
	locker := redis.NewLocker(client, store.Prefix())

	// Two managers share the store and locker, like two replicas.
	replicaA := session.NewManager(store, session.WithLocker(locker), session.WithLockTimeout(5*time.Second))
	replicaB := session.NewManager(store, session.WithLocker(locker), session.WithLockTimeout(5*time.Second))
	ctx := context.Background()

	c, err := replicaA.Create(ctx, "p", "d", domain.DecisionNode{ID: "q1", Question: "q1?", Yes: "a", No: "b"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		mgr := replicaA
		if i%2 == 1 {
			mgr = replicaB
		}
		wg.Add(1)
		go func(mgr *session.Manager) {
			defer wg.Done()
			_, err := mgr.Update(ctx, c.ID, func(c *domain.Consultation) (*domain.Consultation, error) {
				c.History = append(c.History, domain.HistoryEntry{Ordinal: len(c.History) + 1, NodeID: "q1", Answer: domain.AnswerYes})
				return c, nil
			})
			assert.NoError(t, err)
		}(mgr)
	}
	wg.Wait()

	got, err := replicaA.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, got.History, 10)
	assert.Equal(t, int64(11), got.Version)
}
