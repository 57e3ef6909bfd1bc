package cache

import (
	"context"
	"errors"
	"ithakabot/internal/model"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestSessionCacheRoundTrip(t *testing.T) {
	mr, client := newTestRedis(t)
	c := NewSessionCache(client, time.Minute)
	ctx := context.Background()

	got, err := c.Get(ctx, "conv-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	sess := model.NewWizardSession("s-1", "conv-1", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	sess.Answers["email"] = model.TextAnswer("a@b.com")
	require.NoError(t, c.Set(ctx, sess))
	assert.True(t, mr.Exists("session:conv:conv-1"))

	got, err = c.Get(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", got.Answers["email"].Text)

	mr.FastForward(2 * time.Minute)
	got, err = c.Get(ctx, "conv-1")
	require.NoError(t, err)
	assert.Nil(t, got, "entry expires after ttl")
}

// memoryStore is a SessionStore with a version check and call counters
type memoryStore struct {
	mu       sync.Mutex
	sessions map[string]*model.WizardSession
	loads    int
	saveErr  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sessions: make(map[string]*model.WizardSession)}
}

func (m *memoryStore) LoadByConversation(ctx context.Context, conversationID string) (*model.WizardSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if s, ok := m.sessions[conversationID]; ok {
		return s.Clone(), nil
	}
	return nil, nil
}

func (m *memoryStore) Save(ctx context.Context, session *model.WizardSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	session.Version++
	m.sessions[session.ConversationID] = session.Clone()
	return nil
}

func TestCachedStoreReadsThrough(t *testing.T) {
	_, client := newTestRedis(t)
	store := newMemoryStore()
	cached := NewCachedSessionStore(store, NewSessionCache(client, time.Minute), nil)
	ctx := context.Background()

	sess := model.NewWizardSession("s-1", "conv-1", time.Now().UTC())
	store.sessions["conv-1"] = sess

	first, err := cached.LoadByConversation(ctx, "conv-1")
	require.NoError(t, err)
	second, err := cached.LoadByConversation(ctx, "conv-1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, store.loads)
}

func TestCachedStoreWritesThrough(t *testing.T) {
	_, client := newTestRedis(t)
	store := newMemoryStore()
	sc := NewSessionCache(client, time.Minute)
	cached := NewCachedSessionStore(store, sc, nil)
	ctx := context.Background()

	sess := model.NewWizardSession("s-1", "conv-1", time.Now().UTC())
	require.NoError(t, cached.Save(ctx, sess))

	got, err := sc.Get(ctx, "conv-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.Version)
}

func TestCachedStoreEvictsOnFailedSave(t *testing.T) {
	_, client := newTestRedis(t)
	store := newMemoryStore()
	sc := NewSessionCache(client, time.Minute)
	cached := NewCachedSessionStore(store, sc, nil)
	ctx := context.Background()

	sess := model.NewWizardSession("s-1", "conv-1", time.Now().UTC())
	require.NoError(t, cached.Save(ctx, sess))

	store.saveErr = errors.New("conflict")
	assert.Error(t, cached.Save(ctx, sess))

	got, err := sc.Get(ctx, "conv-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCachedStoreSurvivesCacheOutage(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })
	store := newMemoryStore()
	store.sessions["conv-1"] = model.NewWizardSession("s-1", "conv-1", time.Now().UTC())
	cached := NewCachedSessionStore(store, NewSessionCache(client, time.Minute), nil)

	got, err := cached.LoadByConversation(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "s-1", got.ID)
}

func testLockerSerializes(t *testing.T, locker ConversationLocker) {
	t.Helper()
	var active, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), "conv-1")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&active, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&active, -1)
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), peak)
}

func testLockerTimesOut(t *testing.T, locker ConversationLocker) {
	t.Helper()
	unlock, err := locker.Lock(context.Background(), "conv-2")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "conv-2")
	assert.ErrorIs(t, err, ErrLockTimeout)

	// Other conversations are unaffected
	other, err := locker.Lock(context.Background(), "conv-3")
	require.NoError(t, err)
	other()
}

func TestLocalLocker(t *testing.T) {
	testLockerSerializes(t, NewLocalLocker())
	testLockerTimesOut(t, NewLocalLocker())
}

func TestRedisLocker(t *testing.T) {
	_, client := newTestRedis(t)
	locker := NewRedisLocker(client, time.Second)

	testLockerSerializes(t, locker)
	testLockerTimesOut(t, locker)
}

func TestRedisLockerReleaseKeepsForeignLock(t *testing.T) {
	mr, client := newTestRedis(t)
	locker := NewRedisLocker(client, time.Second)

	unlock, err := locker.Lock(context.Background(), "conv-1")
	require.NoError(t, err)

	// Lock expired and was taken by someone else
	require.NoError(t, mr.Set("lock:conv:conv-1", "other-holder"))
	unlock()

	v, err := mr.Get("lock:conv:conv-1")
	require.NoError(t, err)
	assert.Equal(t, "other-holder", v)
}
