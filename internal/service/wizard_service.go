package service

import (
	"context"
	"errors"
	"ithakabot/internal/catalog"
	"ithakabot/internal/metrics"
	"ithakabot/internal/model"
	"ithakabot/internal/validator"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrNoSession = errors.New("no wizard session")

// Transition kinds, also used as metric labels
const (
	TransitionStart       = "start"
	TransitionResume      = "resume"
	TransitionAnswer      = "answer"
	TransitionInvalid     = "validation_error"
	TransitionConfirm     = "confirmation"
	TransitionImprove     = "improvement"
	TransitionKeep        = "improvement_kept"
	TransitionCap         = "improvement_cap"
	TransitionBack        = "back"
	TransitionPause       = "pause"
	TransitionCancel      = "cancel"
	TransitionComplete    = "complete"
	TransitionRestart     = "restart"
	TransitionClosed      = "closed"
	TransitionCorrupted   = "corrupted"
	TransitionRetryAnswer = "retry_answer"
)

// Extractor is the AI-assisted validation step
type Extractor interface {
	Extract(ctx context.Context, q *model.QuestionDefinition, raw string) model.Extraction
}

// Evaluator is the rubric gate for evaluative answers
type Evaluator interface {
	Evaluate(ctx context.Context, q *model.QuestionDefinition, answer string, prior map[string]model.AnswerValue) model.Assessment
}

// AdvanceResult is the outcome of one applicant message
type AdvanceResult struct {
	Response   string
	Session    *model.WizardSession
	Transition string
	Completed  bool
	Record     *model.ApplicationRecord // Set only on the completing transition
}

// WizardService drives a session through the question catalog. It holds no
// per-session state; every call works on a copy of the session passed in.
type WizardService struct {
	catalog         *catalog.Catalog
	extractor       Extractor
	evaluator       Evaluator
	maxImprovements int
	logger          *zap.Logger
	metrics         *metrics.Metrics
	now             func() time.Time
	newID           func() string
}

// NewWizardService creates a wizard over cat. maxImprovements is how many
// times a rejected evaluative answer is sent back before it is kept as is.
func NewWizardService(cat *catalog.Catalog, extractor Extractor, evaluator Evaluator, maxImprovements int, logger *zap.Logger, m *metrics.Metrics) *WizardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WizardService{
		catalog:         cat,
		extractor:       extractor,
		evaluator:       evaluator,
		maxImprovements: maxImprovements,
		logger:          logger,
		metrics:         m,
		now:             func() time.Time { return time.Now().UTC() },
		newID:           func() string { return uuid.New().String() },
	}
}

// NewSession creates an unstarted session for a conversation
func (s *WizardService) NewSession(conversationID string) *model.WizardSession {
	return model.NewWizardSession(s.newID(), conversationID, s.now())
}

// Advance applies one applicant message to current and returns the reply
// and the successor session. current is never modified.
func (s *WizardService) Advance(ctx context.Context, current *model.WizardSession, message string) (*AdvanceResult, error) {
	if current == nil {
		return nil, ErrNoSession
	}
	sess := current.Clone()
	if sess.Answers == nil {
		sess.Answers = make(map[string]model.AnswerValue)
	}

	if sess.Status.IsTerminal() {
		return s.result(sess, TransitionClosed, closedMessage(sess.Status)), nil
	}
	if reason := s.corruption(sess); reason != "" {
		s.logger.Error("closing corrupted session",
			zap.String("session", sess.ID),
			zap.String("reason", reason),
			zap.Int("cursor", sess.CurrentQuestion),
			zap.String("status", string(sess.Status)),
		)
		sess.Status = model.SessionCancelled
		sess.ClearPending()
		return s.result(sess, TransitionCorrupted, msgCorrupted), nil
	}

	switch ParseCommand(message) {
	case CommandCancel:
		return s.cancel(sess), nil
	case CommandBack:
		return s.back(sess), nil
	case CommandSave:
		sess.Status = model.SessionPaused
		return s.result(sess, TransitionPause, msgPaused), nil
	}

	switch sess.Status {
	case model.SessionStarting:
		sess.Status = model.SessionActive
		return s.present(sess, TransitionStart, ""), nil
	case model.SessionPaused:
		sess.Status = model.SessionActive
		return s.present(sess, TransitionResume, msgResumed), nil
	}

	q, ok := s.catalog.Get(sess.CurrentQuestion)
	if !ok || !s.catalog.IsApplicable(q.Number, sess.Answers) {
		// Cursor at the end or on a skipped question
		return s.present(sess, TransitionAnswer, ""), nil
	}

	switch {
	case sess.PendingConfirmation != nil:
		return s.confirm(ctx, sess, q, message), nil
	case sess.PendingImprovement != nil:
		return s.improve(ctx, sess, q, message), nil
	}
	return s.answer(ctx, sess, q, message, 0), nil
}

// Restart opens a successor for a terminal session. A cancelled session's
// answers carry over and the wizard resumes at the first unanswered
// question; a completed one starts from scratch.
func (s *WizardService) Restart(previous *model.WizardSession) *AdvanceResult {
	sess := s.NewSession(previous.ConversationID)
	sess.Status = model.SessionActive
	prefix := ""

	if previous.Status == model.SessionCancelled {
		for k, v := range previous.Clone().Answers {
			sess.Answers[k] = v
		}
		s.catalog.Prune(sess.Answers)
		sess.ResumedFrom = previous.ID
		sess.CurrentQuestion = s.catalog.FirstUnanswered(sess.Answers)
		if len(sess.Answers) > 0 {
			prefix = msgRestartedFromCancel
		}
	}
	return s.present(sess, TransitionRestart, prefix)
}

// corruption explains why a non-terminal session cannot continue, or
// returns "" when it is sound
func (s *WizardService) corruption(sess *model.WizardSession) string {
	if !sess.Status.IsKnown() {
		return "unknown status"
	}
	if _, ok := s.catalog.Get(sess.CurrentQuestion); !ok && sess.CurrentQuestion != s.catalog.PastEnd() {
		return "cursor outside catalog"
	}
	if sess.PendingConfirmation != nil && sess.PendingImprovement != nil {
		return "both pending states set"
	}
	return ""
}

// answer runs the validation pipeline: mechanical rule, assisted
// extraction, then the evaluation gate
func (s *WizardService) answer(ctx context.Context, sess *model.WizardSession, q *model.QuestionDefinition, message string, attempts int) *AdvanceResult {
	res := validator.Validate(validator.RuleFor(q), message)
	if !res.OK {
		s.metrics.ValidationFailure(string(q.Validation))
		return s.result(sess, TransitionInvalid, validationErrorMessage(res.Error, renderQuestion(q, s.catalog.First())))
	}

	value := res.Normalized
	if q.Assist != nil && s.extractor != nil {
		ext := s.extractor.Extract(ctx, q, value.Text)
		switch ext.Outcome {
		case model.ExtractionRejected:
			s.metrics.ValidationFailure("assist")
			return s.result(sess, TransitionInvalid, validationErrorMessage(ext.Reason, renderQuestion(q, s.catalog.First())))
		case model.ExtractionNeedsConfirmation:
			sess.PendingImprovement = nil
			sess.PendingConfirmation = &model.PendingConfirmation{
				RawAnswer:     value.Text,
				ProposedValue: ext.Value,
				Attempts:      attempts,
			}
			return s.result(sess, TransitionConfirm, confirmationMessage(sess.PendingConfirmation))
		default:
			value = model.TextAnswer(ext.Value)
		}
	}

	return s.gate(ctx, sess, q, value, attempts)
}

// gate sends evaluative answers through the rubric and commits the rest
func (s *WizardService) gate(ctx context.Context, sess *model.WizardSession, q *model.QuestionDefinition, value model.AnswerValue, attempts int) *AdvanceResult {
	if !q.IsEvaluative() || s.evaluator == nil {
		return s.commit(sess, q, value, TransitionAnswer, "")
	}

	a := s.evaluator.Evaluate(ctx, q, value.Text, sess.Answers)
	if a.Acceptable {
		return s.commit(sess, q, value, TransitionAnswer, "")
	}

	attempts++
	if attempts > s.maxImprovements {
		s.logger.Info("improvement cap reached, keeping answer",
			zap.String("session", sess.ID),
			zap.Int("question", q.Number),
			zap.Int("attempts", attempts),
		)
		return s.commit(sess, q, value, TransitionCap, msgCapReached)
	}

	sess.PendingConfirmation = nil
	sess.PendingImprovement = &model.PendingImprovement{
		RawAnswer:   value.Text,
		Feedback:    a.Feedback,
		Suggestions: a.Suggestions,
		Score:       a.Score,
		Attempts:    attempts,
	}
	return s.result(sess, TransitionImprove, improvementMessage(sess.PendingImprovement))
}

func (s *WizardService) confirm(ctx context.Context, sess *model.WizardSession, q *model.QuestionDefinition, message string) *AdvanceResult {
	p := sess.PendingConfirmation
	sess.PendingConfirmation = nil

	switch parseConfirmation(message) {
	case confirmYes:
		return s.gate(ctx, sess, q, model.TextAnswer(p.ProposedValue), p.Attempts)
	case confirmNo:
		return s.present(sess, TransitionRetryAnswer, msgRetryAnswer)
	}
	// Anything else is a corrected answer
	return s.answer(ctx, sess, q, message, p.Attempts)
}

func (s *WizardService) improve(ctx context.Context, sess *model.WizardSession, q *model.QuestionDefinition, message string) *AdvanceResult {
	p := sess.PendingImprovement
	if ParseCommand(message) == CommandContinue {
		return s.commit(sess, q, model.TextAnswer(p.RawAnswer), TransitionKeep, "")
	}
	// A replacement that fails validation keeps the pending answer available
	return s.answer(ctx, sess, q, message, p.Attempts)
}

// commit stores value, drops answers made inapplicable by it and moves on
func (s *WizardService) commit(sess *model.WizardSession, q *model.QuestionDefinition, value model.AnswerValue, transition, prefix string) *AdvanceResult {
	sess.Answers[q.FieldName] = value
	sess.ClearPending()
	if removed := s.catalog.Prune(sess.Answers); len(removed) > 0 {
		s.logger.Debug("pruned answers", zap.String("session", sess.ID), zap.Strings("fields", removed))
	}
	sess.CurrentQuestion = s.catalog.NextApplicable(q.Number, sess.Answers)
	return s.present(sess, transition, prefix)
}

func (s *WizardService) back(sess *model.WizardSession) *AdvanceResult {
	sess.ClearPending()
	sess.Status = model.SessionActive

	prev := s.catalog.PrevApplicable(sess.CurrentQuestion, sess.Answers)
	if prev == 0 {
		q, _ := s.catalog.Get(s.catalog.First())
		sess.CurrentQuestion = q.Number
		return s.result(sess, TransitionBack, msgAlreadyFirst+renderQuestion(q, s.catalog.First()))
	}
	sess.CurrentQuestion = prev
	return s.present(sess, TransitionBack, "")
}

func (s *WizardService) cancel(sess *model.WizardSession) *AdvanceResult {
	sess.ClearPending()
	sess.Status = model.SessionCancelled
	return s.result(sess, TransitionCancel, msgCancelled)
}

// present shows whatever the session is waiting on: a pending prompt, the
// question under the cursor, or completion when nothing is left
func (s *WizardService) present(sess *model.WizardSession, transition, prefix string) *AdvanceResult {
	switch {
	case sess.PendingConfirmation != nil:
		return s.result(sess, transition, prefix+confirmationMessage(sess.PendingConfirmation))
	case sess.PendingImprovement != nil:
		return s.result(sess, transition, prefix+improvementMessage(sess.PendingImprovement))
	}

	n := sess.CurrentQuestion
	if !s.catalog.IsApplicable(n, sess.Answers) {
		n = s.catalog.NextApplicable(n, sess.Answers)
	}
	q, ok := s.catalog.Get(n)
	if !ok {
		return s.complete(sess, prefix)
	}
	sess.CurrentQuestion = n
	return s.result(sess, transition, prefix+renderQuestion(q, s.catalog.First()))
}

func (s *WizardService) complete(sess *model.WizardSession, prefix string) *AdvanceResult {
	sess.Status = model.SessionCompleted
	sess.CurrentQuestion = s.catalog.PastEnd()
	sess.ClearPending()

	record := &model.ApplicationRecord{
		ID:             s.newID(),
		SessionID:      sess.ID,
		ConversationID: sess.ConversationID,
		Path:           s.pathOf(sess.Answers),
		Answers:        sess.Clone().Answers,
		SubmittedAt:    s.now(),
	}
	s.metrics.Completed(string(record.Path))

	res := s.result(sess, TransitionComplete, prefix+completionMessage(record.Path))
	res.Record = record
	return res
}

// pathOf is full when any evaluative question was answered
func (s *WizardService) pathOf(answers map[string]model.AnswerValue) model.ApplicationPath {
	for _, q := range s.catalog.Questions() {
		if _, ok := answers[q.FieldName]; ok && q.IsEvaluative() {
			return model.PathFull
		}
	}
	return model.PathBasic
}

func (s *WizardService) result(sess *model.WizardSession, transition, response string) *AdvanceResult {
	s.metrics.Transition(transition)
	sess.UpdatedAt = s.now()
	return &AdvanceResult{
		Response:   response,
		Session:    sess,
		Transition: transition,
		Completed:  sess.Status == model.SessionCompleted,
	}
}
