package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakePublisher struct {
	subject string
	data    []byte
	err     error
}

func (f *fakePublisher) Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.subject = subject
	f.data = data
	return &jetstream.PubAck{Stream: "INTAKE", Sequence: 1}, nil
}

func TestNATSNotifierPublishesEvent(t *testing.T) {
	pub := &fakePublisher{}
	n := NewNATSNotifier(pub, "intake.application.completed")
	n.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }

	require.NoError(t, n.NotifyCompletion(context.Background(), "ana@example.com", "Ana"))
	assert.Equal(t, "intake.application.completed", pub.subject)

	var ev CompletionEvent
	require.NoError(t, json.Unmarshal(pub.data, &ev))
	assert.Equal(t, CompletionEvent{Email: "ana@example.com", Name: "Ana", SentAt: n.now()}, ev)
}

func TestNATSNotifierWrapsErrors(t *testing.T) {
	cause := errors.New("no responders")
	n := NewNATSNotifier(&fakePublisher{err: cause}, "subj")

	err := n.NotifyCompletion(context.Background(), "a@b.com", "A")
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "subj")
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewLogNotifier(zap.New(core))

	require.NoError(t, n.NotifyCompletion(context.Background(), "a@b.com", "Ana"))
	entries := logs.FilterMessage("application completed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "a@b.com", entries[0].ContextMap()["email"])
}
