package model

// MessageRequest is an inbound applicant message
type MessageRequest struct {
	Text string `json:"text"`
}

// Reply is what the applicant sees after one message
type Reply struct {
	ConversationID string        `json:"conversationId"`
	SessionID      string        `json:"sessionId,omitempty"`
	Response       string        `json:"response"`
	Status         SessionStatus `json:"status,omitempty"`
	Question       int           `json:"currentQuestion,omitempty"`
	Completed      bool          `json:"completed"`
	ApplicationID  string        `json:"applicationId,omitempty"`
}
