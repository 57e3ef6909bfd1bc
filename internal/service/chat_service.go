package service

import (
	"context"
	"errors"
	"ithakabot/internal/cache"
	"ithakabot/internal/metrics"
	"ithakabot/internal/model"
	"ithakabot/internal/repository"
	"strings"
	"time"

	"go.uber.org/zap"
)

var ErrMissingConversation = errors.New("conversation id is required")

// WebSocket message types
const (
	MsgReply                = "reply"
	MsgApplicationCompleted = "application_completed"
)

const notifyTimeout = 5 * time.Second

// ChatService runs one applicant message end to end: lock the conversation,
// load its session, advance the wizard, persist, and notify on completion.
type ChatService struct {
	wizard       *WizardService
	sessions     repository.SessionStore
	applications repository.ApplicationStore
	locker       cache.ConversationLocker
	notifier     Notifier
	broadcaster  Broadcaster
	logger       *zap.Logger
	metrics      *metrics.Metrics
}

// NewChatService creates a new chat service
func NewChatService(wizard *WizardService, sessions repository.SessionStore, applications repository.ApplicationStore,
	locker cache.ConversationLocker, notifier Notifier, logger *zap.Logger, m *metrics.Metrics) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		wizard:       wizard,
		sessions:     sessions,
		applications: applications,
		locker:       locker,
		notifier:     notifier,
		logger:       logger,
		metrics:      m,
	}
}

// SetBroadcaster sets the WebSocket broadcaster (called after hub is created)
func (s *ChatService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// HandleMessage processes one applicant message. Storage failures are
// reported to the applicant as a retryable problem and leave the stored
// session untouched.
func (s *ChatService) HandleMessage(ctx context.Context, conversationID, text string) (*model.Reply, error) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return nil, ErrMissingConversation
	}
	log := s.logger.With(zap.String("conversation", conversationID))

	unlock, err := s.locker.Lock(ctx, conversationID)
	if err != nil {
		log.Warn("conversation lock failed", zap.Error(err))
		return s.technicalReply(conversationID, "lock"), nil
	}
	defer unlock()

	current, err := s.sessions.LoadByConversation(ctx, conversationID)
	if err != nil {
		log.Error("load session failed", zap.Error(err))
		return s.technicalReply(conversationID, "load"), nil
	}

	var res *AdvanceResult
	switch {
	case current == nil:
		res, err = s.wizard.Advance(ctx, s.wizard.NewSession(conversationID), text)
	case current.Status.IsTerminal() && ParseCommand(text) == CommandRestart:
		res = s.wizard.Restart(current)
	default:
		res, err = s.wizard.Advance(ctx, current, text)
	}
	if err != nil {
		return nil, err
	}

	var stored *model.ApplicationRecord
	if res.Record != nil {
		stored, err = s.applications.Store(ctx, res.Record)
		if err != nil {
			log.Error("store application failed", zap.String("session", res.Session.ID), zap.Error(err))
			return s.technicalReply(conversationID, "store_application"), nil
		}
	}

	if res.Transition != TransitionClosed {
		if err := s.sessions.Save(ctx, res.Session); err != nil {
			log.Error("save session failed",
				zap.String("session", res.Session.ID),
				zap.Bool("conflict", errors.Is(err, repository.ErrVersionConflict)),
				zap.Error(err),
			)
			return s.technicalReply(conversationID, "save"), nil
		}
	}

	log.Debug("advanced",
		zap.String("session", res.Session.ID),
		zap.String("transition", res.Transition),
		zap.Int("question", res.Session.CurrentQuestion),
	)

	reply := &model.Reply{
		ConversationID: conversationID,
		SessionID:      res.Session.ID,
		Response:       res.Response,
		Status:         res.Session.Status,
		Question:       res.Session.CurrentQuestion,
		Completed:      res.Completed,
	}
	if stored != nil {
		reply.ApplicationID = stored.ID
		s.announce(stored)
	}
	return reply, nil
}

// Session returns the latest session of a conversation, or nil
func (s *ChatService) Session(ctx context.Context, conversationID string) (*model.WizardSession, error) {
	return s.sessions.LoadByConversation(ctx, conversationID)
}

// announce notifies the applicant and admin dashboards. Failures are logged
// and never undo the completion.
func (s *ChatService) announce(record *model.ApplicationRecord) {
	if s.broadcaster != nil {
		s.broadcaster.BroadcastToAdmins(MsgApplicationCompleted, record)
	}

	email := record.Field("email")
	if s.notifier == nil || email == "" {
		return
	}
	// Detached so a client disconnect does not drop the notification
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := s.notifier.NotifyCompletion(ctx, email, FirstName(record.Field("full_name"))); err != nil {
		s.logger.Warn("completion notification failed",
			zap.String("application", record.ID),
			zap.Error(err),
		)
	}
}

func (s *ChatService) technicalReply(conversationID, op string) *model.Reply {
	s.metrics.StorageFailure(op)
	return &model.Reply{
		ConversationID: conversationID,
		Response:       msgTechnicalProblem,
	}
}
