package handler

import (
	"encoding/json"
	"errors"
	"ithakabot/internal/model"
	"ithakabot/internal/service"
	"net/http"

	"github.com/gorilla/mux"
)

const maxMessageBytes = 16 << 10

// ConversationHandler handles applicant chat endpoints
type ConversationHandler struct {
	chatSvc *service.ChatService
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(chatSvc *service.ChatService) *ConversationHandler {
	return &ConversationHandler{chatSvc: chatSvc}
}

// SendMessage handles POST /v1/conversations/{conversationId}/messages
func (h *ConversationHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	conversationID := mux.Vars(r)["conversationId"]

	var req model.MessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := h.chatSvc.HandleMessage(r.Context(), conversationID, req.Text)
	if err != nil {
		if errors.Is(err, service.ErrMissingConversation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

// GetSession handles GET /v1/conversations/{conversationId}/session
func (h *ConversationHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	conversationID := mux.Vars(r)["conversationId"]

	session, err := h.chatSvc.Session(r.Context(), conversationID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if session == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	writeJSON(w, http.StatusOK, session)
}
