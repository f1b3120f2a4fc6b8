package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTTL = 40 * time.Second

func newRedisStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb, testTTL), mr
}

func TestStoreLifecycleKeepsTTL(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &Record{RequestID: "r-1", EmailID: "a@b.com", Status: StatusQueued}))
	assert.Equal(t, testTTL, mr.TTL(resetKey("r-1")))

	require.NoError(t, store.MarkRunning(ctx, "r-1"))
	require.NoError(t, store.MarkSent(ctx, "r-1"))

	record, err := store.Get(ctx, "r-1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, StatusSent, record.Status)
	assert.Equal(t, 1, record.Attempts)
	assert.Equal(t, "a@b.com", record.EmailID)
	assert.Nil(t, record.Error)
	assert.False(t, record.CreatedAt.IsZero())
	assert.True(t, record.CreatedAt.Add(testTTL).Equal(record.ExpiresAt))
	assert.Equal(t, testTTL, mr.TTL(resetKey("r-1")))
}

func TestStoreMarkFailed(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &Record{RequestID: "r-2", EmailID: "a@b.com", Status: StatusQueued}))
	require.NoError(t, store.MarkRunning(ctx, "r-2"))
	require.NoError(t, store.MarkFailed(ctx, "r-2", &ErrorInfo{Code: "DELIVERY_FAILED", Message: "smtp down"}))

	record, err := store.Get(ctx, "r-2")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, record.Status)
	require.NotNil(t, record.Error)
	assert.Equal(t, "DELIVERY_FAILED", record.Error.Code)
}

func TestStoreMissingRecord(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	record, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, record)

	assert.ErrorIs(t, store.MarkRunning(ctx, "missing"), ErrNotFound)
	assert.ErrorIs(t, store.MarkSent(ctx, "missing"), ErrNotFound)
	assert.ErrorIs(t, store.MarkFailed(ctx, "missing", nil), ErrNotFound)

	_, err = store.Get(ctx, "")
	assert.Error(t, err)
	assert.Error(t, store.Upsert(ctx, nil))
}

func TestStoreRecordExpires(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &Record{RequestID: "r-3", EmailID: "a@b.com", Status: StatusQueued}))
	mr.FastForward(testTTL + time.Second)

	record, err := store.Get(ctx, "r-3")
	require.NoError(t, err)
	assert.Nil(t, record)
	assert.ErrorIs(t, store.MarkRunning(ctx, "r-3"), ErrNotFound)
}

func TestStoreConcurrentUpdates(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, &Record{RequestID: "r-4", EmailID: "a@b.com", Status: StatusQueued}))

	// 競合で失敗するのは他の更新が成功したときだけなので、3 並列なら再試行回数に収まる
	const workers = 3
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.MarkRunning(ctx, "r-4")
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	record, err := store.Get(ctx, "r-4")
	require.NoError(t, err)
	assert.Equal(t, workers, record.Attempts)
	assert.Equal(t, StatusRunning, record.Status)
}
