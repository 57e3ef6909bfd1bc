package ws

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Applicant message types
const (
	MsgReply MessageType = "reply"
	MsgError MessageType = "error"
)

// Admin message types
const (
	MsgApplicationCompleted MessageType = "application_completed"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Connection represents a WebSocket connection
type Connection struct {
	ConversationID string // Empty for admin connections
	IsAdmin        bool
	Send           chan []byte
}

// BroadcastMessage is a message to broadcast
type BroadcastMessage struct {
	ConversationID string
	ToAdmins       bool
	Data           []byte
}

// Hub fans replies out to every device open on a conversation and
// completion events to admin dashboards.
type Hub struct {
	conversations map[string]map[*Connection]struct{}
	admins        map[*Connection]struct{}

	mu sync.RWMutex

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage
	done       chan struct{}
	stopOnce   sync.Once
	stopped    chan struct{}

	logger *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		conversations: make(map[string]map[*Connection]struct{}),
		admins:        make(map[*Connection]struct{}),
		register:      make(chan *Connection),
		unregister:    make(chan *Connection),
		broadcast:     make(chan *BroadcastMessage, 256),
		done:          make(chan struct{}),
		stopped:       make(chan struct{}),
		logger:        logger,
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	defer close(h.stopped)
	for {
		select {
		case <-h.done:
			h.closeAll()
			return

		case conn := <-h.register:
			h.mu.Lock()
			if conn.IsAdmin {
				h.admins[conn] = struct{}{}
			} else {
				if h.conversations[conn.ConversationID] == nil {
					h.conversations[conn.ConversationID] = make(map[*Connection]struct{})
				}
				h.conversations[conn.ConversationID][conn] = struct{}{}
			}
			h.mu.Unlock()
			h.logger.Debug("connection registered", zap.String("conversation", conn.ConversationID), zap.Bool("admin", conn.IsAdmin))

		case conn := <-h.unregister:
			h.mu.Lock()
			h.remove(conn)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			targets := h.admins
			if !msg.ToAdmins {
				targets = h.conversations[msg.ConversationID]
			}
			for conn := range targets {
				select {
				case conn.Send <- msg.Data:
				default:
					// Drop message if buffer full
					h.logger.Warn("dropping websocket message", zap.String("conversation", conn.ConversationID))
				}
			}
			h.mu.RUnlock()
		}
	}
}

// remove must be called with mu held
func (h *Hub) remove(conn *Connection) {
	if conn.IsAdmin {
		if _, ok := h.admins[conn]; ok {
			delete(h.admins, conn)
			close(conn.Send)
		}
		return
	}
	conns, ok := h.conversations[conn.ConversationID]
	if !ok {
		return
	}
	if _, ok := conns[conn]; ok {
		delete(conns, conn)
		close(conn.Send)
	}
	if len(conns) == 0 {
		delete(h.conversations, conn.ConversationID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.admins {
		h.remove(conn)
	}
	for _, conns := range h.conversations {
		for conn := range conns {
			h.remove(conn)
		}
	}
}

// Register adds a connection. It is a no-op once the hub is stopped.
func (h *Hub) Register(conn *Connection) bool {
	select {
	case h.register <- conn:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Stop closes every connection and ends the hub goroutine
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
	<-h.stopped
}

// Connections counts open connections
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := len(h.admins)
	for _, conns := range h.conversations {
		n += len(conns)
	}
	return n
}

// BroadcastToConversation sends a message to every device on a conversation (implements service.Broadcaster)
func (h *Hub) BroadcastToConversation(conversationID string, msgType string, payload interface{}) {
	h.send(&BroadcastMessage{ConversationID: conversationID}, msgType, payload)
}

// BroadcastToAdmins sends a message to every admin dashboard (implements service.Broadcaster)
func (h *Hub) BroadcastToAdmins(msgType string, payload interface{}) {
	h.send(&BroadcastMessage{ToAdmins: true}, msgType, payload)
}

func (h *Hub) send(msg *BroadcastMessage, msgType string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("marshal websocket payload", zap.String("type", msgType), zap.Error(err))
		return
	}
	msg.Data, _ = json.Marshal(&Message{Type: MessageType(msgType), Payload: raw})

	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}
