// Package notify delivers the "application completed" event to the
// applicant-facing channels that send confirmation emails.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
)

// CompletionEvent is published once per completed application
type CompletionEvent struct {
	Email  string    `json:"email"`
	Name   string    `json:"name"`
	SentAt time.Time `json:"sentAt"`
}

// Publisher is the subset of jetstream.JetStream used here
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSNotifier publishes completion events to a JetStream subject
type NATSNotifier struct {
	js      Publisher
	subject string
	now     func() time.Time
}

func NewNATSNotifier(js Publisher, subject string) *NATSNotifier {
	return &NATSNotifier{
		js:      js,
		subject: subject,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (n *NATSNotifier) NotifyCompletion(ctx context.Context, email, name string) error {
	data, err := json.Marshal(CompletionEvent{Email: email, Name: name, SentAt: n.now()})
	if err != nil {
		return fmt.Errorf("marshal completion event: %w", err)
	}
	if _, err := n.js.Publish(ctx, n.subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", n.subject, err)
	}
	return nil
}

// LogNotifier only logs; used when no broker is configured
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyCompletion(ctx context.Context, email, name string) error {
	n.logger.Info("application completed",
		zap.String("email", email),
		zap.String("name", name),
	)
	return nil
}
