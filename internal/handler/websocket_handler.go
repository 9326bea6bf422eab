package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"roomchat/internal/domain"
	"roomchat/internal/middleware"
	"roomchat/internal/service"
	ws "roomchat/internal/websocket"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// WebSocketHandler upgrades connections and joins them to a room's live feed.
type WebSocketHandler struct {
	chatService *service.ChatService
	authService *service.AuthService
	upgrader    websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(chatService *service.ChatService, authService *service.AuthService, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		chatService: chatService,
		authService: authService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// originChecker accepts same-origin requests (no Origin header) and origins
// from the configured allow list.
func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowedOrigins {
			if o == origin || o == "*" {
				return true
			}
		}
		return false
	}
}

// HandleConnection authenticates, subscribes the caller to the requested
// room, and starts the client pumps. Auth is handled here rather than in
// middleware so the token can also arrive as a query parameter (the browser
// WebSocket API cannot set headers).
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	token := ""
	if cookie, err := r.Cookie(middleware.SessionCookie); err == nil {
		token = cookie.Value
	} else if qp := r.URL.Query().Get("token"); qp != "" {
		token = qp
	}
	if token == "" {
		http.Error(w, `{"error":"Not authenticated"}`, http.StatusUnauthorized)
		return
	}

	session, err := h.authService.VerifySession(r.Context(), token)
	if err != nil {
		http.Error(w, `{"error":"Invalid or expired session"}`, http.StatusUnauthorized)
		return
	}

	room := chi.URLParam(r, "room")
	sub, err := h.chatService.JoinRoom(room)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRoom) {
			http.Error(w, `{"error":"Room not found"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"error":"Failed to join room"}`, http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		sub.Close()
		slog.Warn("websocket upgrade failed",
			slog.String("error", err.Error()),
			slog.String("room", room))
		return
	}

	slog.Info("client joined room",
		slog.String("user", session.Username),
		slog.String("room", room))

	// The request context dies when this handler returns; the client
	// lives until the connection drops.
	client := ws.NewClient(context.Background(), conn, sub, session.Username, h.chatService)

	go client.WritePump()
	go client.ReadPump()
}
