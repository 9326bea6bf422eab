package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"roomchat/internal/domain"
	"roomchat/internal/middleware"
	"roomchat/internal/service"

	"github.com/go-chi/chi/v5"
)

// RoomHandler serves the fixed room catalog, room history, and message posts.
type RoomHandler struct {
	chatService *service.ChatService
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(chatService *service.ChatService) *RoomHandler {
	return &RoomHandler{
		chatService: chatService,
	}
}

// PostMessageRequest represents a send-message request. The sender never
// appears here; it comes from the verified session.
type PostMessageRequest struct {
	Body string `json:"body"`
}

// List returns the fixed room catalog
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"rooms": h.chatService.ListRooms(),
	})
}

// GetMessages returns the full history of a room, oldest first
func (h *RoomHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "room")

	messages, err := h.chatService.GetHistory(r.Context(), room)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRoom) {
			http.Error(w, `{"error":"Room not found"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"error":"Failed to retrieve messages"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"messages": messages,
	})
}

// PostMessage stores a message and broadcasts it to the room's live viewers.
// Responds with the stored message for optimistic UI confirmation.
func (h *RoomHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	sender, ok := middleware.GetUsername(r.Context())
	if !ok {
		http.Error(w, `{"error":"Not authenticated"}`, http.StatusUnauthorized)
		return
	}

	room := chi.URLParam(r, "room")

	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"Invalid request body"}`, http.StatusBadRequest)
		return
	}

	msg, err := h.chatService.PostMessage(r.Context(), room, sender, req.Body)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidRoom):
			http.Error(w, `{"error":"Room not found"}`, http.StatusNotFound)
		case errors.Is(err, domain.ErrUnauthorized):
			http.Error(w, `{"error":"Not authenticated"}`, http.StatusUnauthorized)
		case errors.Is(err, domain.ErrInvalidBody), errors.Is(err, domain.ErrInvalidSender):
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		default:
			http.Error(w, `{"error":"Failed to send message"}`, http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(msg)
}
