package cache

import (
	"context"
	"ithakabot/internal/model"
	"ithakabot/internal/repository"

	"go.uber.org/zap"
)

// CachedSessionStore reads sessions through the cache and writes through to
// the backing store. The cache is never authoritative: its errors are logged
// and the store is used instead.
type CachedSessionStore struct {
	store  repository.SessionStore
	cache  SessionCache
	logger *zap.Logger
}

func NewCachedSessionStore(store repository.SessionStore, cache SessionCache, logger *zap.Logger) *CachedSessionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedSessionStore{store: store, cache: cache, logger: logger}
}

func (s *CachedSessionStore) LoadByConversation(ctx context.Context, conversationID string) (*model.WizardSession, error) {
	cached, err := s.cache.Get(ctx, conversationID)
	if err != nil {
		s.logger.Warn("session cache read failed", zap.String("conversation", conversationID), zap.Error(err))
	}
	if cached != nil {
		return cached, nil
	}

	session, err := s.store.LoadByConversation(ctx, conversationID)
	if err != nil || session == nil {
		return session, err
	}
	if err := s.cache.Set(ctx, session); err != nil {
		s.logger.Warn("session cache fill failed", zap.String("conversation", conversationID), zap.Error(err))
	}
	return session, nil
}

func (s *CachedSessionStore) Save(ctx context.Context, session *model.WizardSession) error {
	if err := s.store.Save(ctx, session); err != nil {
		// Drop the entry so the next read sees the stored version
		if derr := s.cache.Delete(ctx, session.ConversationID); derr != nil {
			s.logger.Warn("session cache evict failed", zap.String("conversation", session.ConversationID), zap.Error(derr))
		}
		return err
	}
	if err := s.cache.Set(ctx, session); err != nil {
		s.logger.Warn("session cache write failed", zap.String("conversation", session.ConversationID), zap.Error(err))
		_ = s.cache.Delete(ctx, session.ConversationID)
	}
	return nil
}
