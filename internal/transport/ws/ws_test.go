package ws

import (
	"context"
	"encoding/json"
	"errors"
	"ithakabot/internal/model"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type echoChat struct {
	mu    sync.Mutex
	texts []string
}

func (c *echoChat) HandleMessage(ctx context.Context, conversationID, text string) (*model.Reply, error) {
	c.mu.Lock()
	c.texts = append(c.texts, text)
	c.mu.Unlock()
	if text == "boom" {
		return nil, errors.New("boom")
	}
	return &model.Reply{ConversationID: conversationID, Response: "eco: " + text}, nil
}

type staticTokens struct{}

func (staticTokens) ValidateAdminToken(token string) (*model.AdminClaims, error) {
	if token != "good" {
		return nil, errors.New("invalid token")
	}
	return &model.AdminClaims{AdminID: "admin_1"}, nil
}

type wsFixture struct {
	hub    *Hub
	server *httptest.Server
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	hub := NewHub(nil)
	h := NewHandler(hub, &echoChat{}, staticTokens{}, nil)

	r := mux.NewRouter()
	r.HandleFunc("/v1/ws/conversations/{conversationId}", h.ConversationWS)
	r.HandleFunc("/v1/ws/admin", h.AdminWS)

	return &wsFixture{hub: hub, server: httptest.NewServer(r)}
}

func (f *wsFixture) close() {
	f.server.Close()
	f.hub.Stop()
}

func (f *wsFixture) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func (f *wsFixture) waitConnections(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return f.hub.Connections() == n }, 2*time.Second, 10*time.Millisecond)
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestConversationReplyReachesEveryDevice(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	f := newWSFixture(t)
	defer f.close()

	phone := f.dial(t, "/v1/ws/conversations/conv-1")
	laptop := f.dial(t, "/v1/ws/conversations/conv-1")
	other := f.dial(t, "/v1/ws/conversations/conv-2")
	f.waitConnections(t, 3)

	require.NoError(t, phone.WriteJSON(model.MessageRequest{Text: "hola"}))

	for _, c := range []*websocket.Conn{phone, laptop} {
		msg := readMessage(t, c)
		assert.Equal(t, MsgReply, msg.Type)
		var reply model.Reply
		require.NoError(t, json.Unmarshal(msg.Payload, &reply))
		assert.Equal(t, "eco: hola", reply.Response)
		assert.Equal(t, "conv-1", reply.ConversationID)
	}

	// conv-2 sees nothing
	other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := other.ReadMessage()
	assert.Error(t, err)

	phone.Close()
	laptop.Close()
	other.Close()
	f.waitConnections(t, 0)
}

func TestConversationErrors(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	f := newWSFixture(t)
	defer f.close()

	conn := f.dial(t, "/v1/ws/conversations/conv-1")
	f.waitConnections(t, 1)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	assert.Equal(t, MsgError, readMessage(t, conn).Type)

	require.NoError(t, conn.WriteJSON(model.MessageRequest{Text: "boom"}))
	assert.Equal(t, MsgError, readMessage(t, conn).Type)

	conn.Close()
	f.waitConnections(t, 0)
}

func TestAdminReceivesCompletions(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	f := newWSFixture(t)
	defer f.close()

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/v1/ws/admin?token=bad"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
	resp.Body.Close()

	admin := f.dial(t, "/v1/ws/admin?token=good")
	applicant := f.dial(t, "/v1/ws/conversations/conv-1")
	f.waitConnections(t, 2)

	f.hub.BroadcastToAdmins(string(MsgApplicationCompleted), &model.ApplicationRecord{ID: "app-1", Path: model.PathBasic})

	msg := readMessage(t, admin)
	assert.Equal(t, MsgApplicationCompleted, msg.Type)
	var record model.ApplicationRecord
	require.NoError(t, json.Unmarshal(msg.Payload, &record))
	assert.Equal(t, "app-1", record.ID)

	applicant.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = applicant.ReadMessage()
	assert.Error(t, err)

	admin.Close()
	applicant.Close()
	f.waitConnections(t, 0)
}

func TestStopClosesConnections(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	f := newWSFixture(t)

	conn := f.dial(t, "/v1/ws/conversations/conv-1")
	f.waitConnections(t, 1)

	f.hub.Stop()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	conn.Close()

	// Broadcasting after stop does not block
	f.hub.BroadcastToConversation("conv-1", string(MsgReply), "late")
	f.server.Close()
}
