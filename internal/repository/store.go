package repository

import (
	"context"
	"errors"
	"ithakabot/internal/model"
)

// ErrVersionConflict means the session changed since it was loaded
var ErrVersionConflict = errors.New("session version conflict")

const defaultListLimit = 50

// SessionStore persists wizard sessions. LoadByConversation returns the most
// recently created session, or nil when the conversation has none.
type SessionStore interface {
	LoadByConversation(ctx context.Context, conversationID string) (*model.WizardSession, error)
	// Save writes the session if its Version still matches the stored one,
	// then increments Version in place
	Save(ctx context.Context, session *model.WizardSession) error
}

// ApplicationStore persists completed applications
type ApplicationStore interface {
	// Store keeps the first record written for a session and returns it, so
	// retries after a failed session save never duplicate an application
	Store(ctx context.Context, record *model.ApplicationRecord) (*model.ApplicationRecord, error)
	GetByID(ctx context.Context, id string) (*model.ApplicationRecord, error)
	List(ctx context.Context, filter model.ApplicationFilter) ([]*model.ApplicationRecord, error)
}

func listLimit(f model.ApplicationFilter) int64 {
	if f.Limit <= 0 || f.Limit > 500 {
		return defaultListLimit
	}
	return f.Limit
}
