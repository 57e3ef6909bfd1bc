package ws

import (
	"context"
	"encoding/json"
	"ithakabot/internal/model"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 << 10
	handleTimeout  = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for dev
	},
}

// MessageHandler runs one applicant message through the wizard
type MessageHandler interface {
	HandleMessage(ctx context.Context, conversationID, text string) (*model.Reply, error)
}

// TokenValidator checks admin JWTs
type TokenValidator interface {
	ValidateAdminToken(token string) (*model.AdminClaims, error)
}

// Handler handles WebSocket connections
type Handler struct {
	hub    *Hub
	chat   MessageHandler
	auth   TokenValidator
	logger *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, chat MessageHandler, auth TokenValidator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		hub:    hub,
		chat:   chat,
		auth:   auth,
		logger: logger,
	}
}

// ConversationWS handles GET /v1/ws/conversations/{conversationId}
func (h *Handler) ConversationWS(w http.ResponseWriter, r *http.Request) {
	conversationID := strings.TrimSpace(mux.Vars(r)["conversationId"])
	if conversationID == "" {
		http.Error(w, "missing conversation", http.StatusBadRequest)
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	conn := &Connection{
		ConversationID: conversationID,
		Send:           make(chan []byte, 256),
	}
	if !h.hub.Register(conn) {
		wsConn.Close()
		return
	}

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn, h.handleText)
}

// AdminWS handles GET /v1/ws/admin?token=...
func (h *Handler) AdminWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.auth.ValidateAdminToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	conn := &Connection{
		IsAdmin: true,
		Send:    make(chan []byte, 256),
	}
	if !h.hub.Register(conn) {
		wsConn.Close()
		return
	}

	h.logger.Info("admin connected", zap.String("admin", claims.AdminID))

	go h.writePump(wsConn, conn)
	// Admin sockets are receive only
	go h.readPump(wsConn, conn, nil)
}

// handleText answers one applicant frame. The reply goes to every device
// on the conversation so parallel tabs stay in sync.
func (h *Handler) handleText(conn *Connection, data []byte) {
	var req model.MessageRequest
	if err := json.Unmarshal(data, &req); err != nil {
		h.hub.BroadcastToConversation(conn.ConversationID, string(MsgError), map[string]string{"error": "invalid message"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	reply, err := h.chat.HandleMessage(ctx, conn.ConversationID, req.Text)
	if err != nil {
		h.logger.Error("handle message failed", zap.String("conversation", conn.ConversationID), zap.Error(err))
		h.hub.BroadcastToConversation(conn.ConversationID, string(MsgError), map[string]string{"error": err.Error()})
		return
	}
	h.hub.BroadcastToConversation(conn.ConversationID, string(MsgReply), reply)
}

func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection, onText func(*Connection, []byte)) {
	defer func() {
		h.hub.Unregister(conn)
		wsConn.Close()
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("websocket closed", zap.Error(err))
			}
			break
		}
		if onText != nil {
			onText(conn, data)
		}
	}
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := wsConn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
