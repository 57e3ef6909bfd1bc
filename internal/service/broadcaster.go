package service

import "context"

// Broadcaster pushes events to WebSocket clients (avoids import cycle)
type Broadcaster interface {
	BroadcastToConversation(conversationID string, msgType string, payload interface{})
	BroadcastToAdmins(msgType string, payload interface{})
}

// Notifier tells the applicant their application was received
type Notifier interface {
	NotifyCompletion(ctx context.Context, email, name string) error
}
