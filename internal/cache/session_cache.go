package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"ithakabot/internal/model"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionCache keeps the latest session of each conversation in Redis
type SessionCache interface {
	Set(ctx context.Context, session *model.WizardSession) error
	Get(ctx context.Context, conversationID string) (*model.WizardSession, error)
	Delete(ctx context.Context, conversationID string) error
}

type sessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionCache(client *redis.Client, ttl time.Duration) SessionCache {
	return &sessionCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *sessionCache) key(conversationID string) string {
	return fmt.Sprintf("session:conv:%s", conversationID)
}

func (c *sessionCache) Set(ctx context.Context, session *model.WizardSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(session.ConversationID), data, c.ttl).Err()
}

func (c *sessionCache) Get(ctx context.Context, conversationID string) (*model.WizardSession, error) {
	data, err := c.client.Get(ctx, c.key(conversationID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var session model.WizardSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *sessionCache) Delete(ctx context.Context, conversationID string) error {
	return c.client.Del(ctx, c.key(conversationID)).Err()
}
