package model

import "time"

// ApplicationPath tells which branch of the wizard produced the record
type ApplicationPath string

const (
	PathBasic ApplicationPath = "basic" // Registered without a venture idea
	PathFull  ApplicationPath = "full"
)

// ApplicationRecord is the immutable snapshot emitted on completion
type ApplicationRecord struct {
	ID             string                 `json:"id" bson:"_id"`
	SessionID      string                 `json:"sessionId" bson:"sessionId"`
	ConversationID string                 `json:"conversationId" bson:"conversationId"`
	Path           ApplicationPath        `json:"path" bson:"path"`
	Answers        map[string]AnswerValue `json:"answers" bson:"answers"`
	SubmittedAt    time.Time              `json:"submittedAt" bson:"submittedAt"`
}

// Field returns the text of an answer, or "" when absent
func (r *ApplicationRecord) Field(name string) string {
	return r.Answers[name].String()
}

// ApplicationFilter narrows admin listings
type ApplicationFilter struct {
	Path  ApplicationPath `json:"path,omitempty"`
	Limit int64           `json:"limit,omitempty"`
}
