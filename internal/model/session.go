package model

import "time"

type SessionStatus string

const (
	SessionStarting  SessionStatus = "STARTING"
	SessionActive    SessionStatus = "ACTIVE"
	SessionPaused    SessionStatus = "PAUSED"
	SessionCompleted SessionStatus = "COMPLETED"
	SessionCancelled SessionStatus = "CANCELLED"
)

// IsTerminal reports whether the session accepts no further answers
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionCancelled
}

// IsKnown reports whether s is one of the defined statuses
func (s SessionStatus) IsKnown() bool {
	switch s {
	case SessionStarting, SessionActive, SessionPaused, SessionCompleted, SessionCancelled:
		return true
	}
	return false
}

// PendingImprovement holds a rejected evaluative answer awaiting a decision
type PendingImprovement struct {
	RawAnswer   string   `json:"rawAnswer" bson:"rawAnswer"`
	Feedback    string   `json:"feedback" bson:"feedback"`
	Suggestions []string `json:"suggestions,omitempty" bson:"suggestions,omitempty"`
	Score       float64  `json:"score" bson:"score"`
	Attempts    int      `json:"attempts" bson:"attempts"` // Rejected submissions so far
}

// PendingConfirmation holds an extracted value the user must confirm
type PendingConfirmation struct {
	RawAnswer     string `json:"rawAnswer" bson:"rawAnswer"`
	ProposedValue string `json:"proposedValue" bson:"proposedValue"`
	Attempts      int    `json:"attempts,omitempty" bson:"attempts,omitempty"` // Carried over from a pending improvement
}

// WizardSession is the persisted progress of one applicant conversation
type WizardSession struct {
	ID                  string                 `json:"id" bson:"_id"`
	ConversationID      string                 `json:"conversationId" bson:"conversationId"`
	CurrentQuestion     int                    `json:"currentQuestion" bson:"currentQuestion"`
	Answers             map[string]AnswerValue `json:"answers" bson:"answers"`
	Status              SessionStatus          `json:"status" bson:"status"`
	PendingImprovement  *PendingImprovement    `json:"pendingImprovement,omitempty" bson:"pendingImprovement,omitempty"`
	PendingConfirmation *PendingConfirmation   `json:"pendingConfirmation,omitempty" bson:"pendingConfirmation,omitempty"`
	ResumedFrom         string                 `json:"resumedFrom,omitempty" bson:"resumedFrom,omitempty"`
	Version             int64                  `json:"version" bson:"version"`
	CreatedAt           time.Time              `json:"createdAt" bson:"createdAt"`
	UpdatedAt           time.Time              `json:"updatedAt" bson:"updatedAt"`
}

// NewWizardSession creates a fresh session positioned before the first question
func NewWizardSession(id, conversationID string, now time.Time) *WizardSession {
	return &WizardSession{
		ID:              id,
		ConversationID:  conversationID,
		CurrentQuestion: 1,
		Answers:         make(map[string]AnswerValue),
		Status:          SessionStarting,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// ClearPending drops both pending sub-states
func (s *WizardSession) ClearPending() {
	s.PendingImprovement = nil
	s.PendingConfirmation = nil
}

// Clone returns a deep copy
func (s *WizardSession) Clone() *WizardSession {
	if s == nil {
		return nil
	}
	c := *s
	c.Answers = make(map[string]AnswerValue, len(s.Answers))
	for k, v := range s.Answers {
		c.Answers[k] = v.clone()
	}
	if s.PendingImprovement != nil {
		p := *s.PendingImprovement
		p.Suggestions = append([]string(nil), s.PendingImprovement.Suggestions...)
		c.PendingImprovement = &p
	}
	if s.PendingConfirmation != nil {
		p := *s.PendingConfirmation
		c.PendingConfirmation = &p
	}
	return &c
}
