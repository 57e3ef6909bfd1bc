package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockTimeout = errors.New("conversation is busy")

// ConversationLocker serializes message handling per conversation. The
// returned func releases the lock and is safe to call once.
type ConversationLocker interface {
	Lock(ctx context.Context, conversationID string) (func(), error)
}

// releaseScript deletes the key only if this holder still owns it
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisLocker struct {
	client *redis.Client
	ttl    time.Duration
	poll   time.Duration
}

// NewRedisLocker locks across processes. ttl bounds how long a crashed
// holder can block a conversation.
func NewRedisLocker(client *redis.Client, ttl time.Duration) ConversationLocker {
	return &redisLocker{
		client: client,
		ttl:    ttl,
		poll:   50 * time.Millisecond,
	}
}

func (l *redisLocker) key(conversationID string) string {
	return fmt.Sprintf("lock:conv:%s", conversationID)
}

func (l *redisLocker) Lock(ctx context.Context, conversationID string) (func(), error) {
	key := l.key(conversationID)
	token := uuid.New().String()

	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			var once sync.Once
			return func() {
				once.Do(func() {
					// Release must outlive a cancelled request context
					releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
					defer cancel()
					releaseScript.Run(releaseCtx, l.client, []string{key}, token)
				})
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, conversationID)
		case <-ticker.C:
		}
	}
}

type localLocker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewLocalLocker locks within one process
func NewLocalLocker() ConversationLocker {
	return &localLocker{locks: make(map[string]chan struct{})}
}

func (l *localLocker) Lock(ctx context.Context, conversationID string) (func(), error) {
	for {
		l.mu.Lock()
		held, busy := l.locks[conversationID]
		if !busy {
			done := make(chan struct{})
			l.locks[conversationID] = done
			l.mu.Unlock()

			var once sync.Once
			return func() {
				once.Do(func() {
					l.mu.Lock()
					delete(l.locks, conversationID)
					l.mu.Unlock()
					close(done)
				})
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-held:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, conversationID)
		}
	}
}
