// Package websocket bridges hub subscriptions to gorilla websocket
// connections: the read pump turns client frames into posts, the write pump
// drains the subscription stream to the socket.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"roomchat/internal/domain"
	"roomchat/internal/hub"
	"roomchat/internal/service"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second // Must be less than pongWait
	maxMessageSize = 2048
)

// Client is one authenticated websocket connection viewing a single room.
type Client struct {
	conn     *websocket.Conn
	sub      *hub.Subscription
	username string
	chat     *service.ChatService

	writeMu   sync.Mutex
	closed    atomic.Bool
	ctx       context.Context
	ctxCancel context.CancelFunc
}

// ClientMessage is the frame a client sends to post into the room.
type ClientMessage struct {
	Body string `json:"body"`
}

// ServerMessage is the frame pushed to clients.
type ServerMessage struct {
	Type      string     `json:"type"` // "message" or "error"
	ID        int64      `json:"id,omitempty"`
	Room      string     `json:"room,omitempty"`
	Sender    string     `json:"sender,omitempty"`
	Body      string     `json:"body,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// NewClient wires a connection to a live room subscription. username is the
// verified identity established by the auth layer.
func NewClient(ctx context.Context, conn *websocket.Conn, sub *hub.Subscription, username string, chat *service.ChatService) *Client {
	clientCtx, cancel := context.WithCancel(ctx)

	return &Client{
		conn:      conn,
		sub:       sub,
		username:  username,
		chat:      chat,
		ctx:       clientCtx,
		ctxCancel: cancel,
	}
}

// ReadPump reads frames from the connection and posts them through the chat
// service. It owns connection teardown: when it returns, the subscription is
// released and no further deliveries reach this client.
func (c *Client) ReadPump() {
	defer func() {
		c.ctxCancel()
		c.sub.Close()
		c.closeConnection()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		slog.Warn("failed to set read deadline",
			slog.String("error", err.Error()),
			slog.String("user", c.username),
			slog.String("room", c.sub.Room()))
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket error",
					slog.String("error", err.Error()),
					slog.String("user", c.username))
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("invalid message format",
				slog.String("error", err.Error()),
				slog.String("user", c.username))
			continue
		}

		ctx, cancel := context.WithTimeout(c.ctx, 5*time.Second)
		_, err = c.chat.PostMessage(ctx, c.sub.Room(), c.username, msg.Body)
		cancel()
		if err != nil {
			c.sendError(err)
			continue
		}
		// Delivery back to this client happens through its subscription,
		// like every other viewer of the room.
	}
}

// WritePump pumps messages from the subscription to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for {
		select {
		case msg, ok := <-c.sub.Messages():
			if !ok {
				// Unsubscribed, dropped on overflow, or hub shutdown
				_ = c.writeMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(serverMessage(msg))
			if err != nil {
				slog.Error("failed to marshal message frame",
					slog.String("error", err.Error()),
					slog.Int64("message_id", msg.ID))
				continue
			}
			if err := c.writeMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.writeMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func serverMessage(msg *domain.Message) ServerMessage {
	created := msg.CreatedAt
	return ServerMessage{
		Type:      "message",
		ID:        msg.ID,
		Room:      msg.Room,
		Sender:    msg.Sender,
		Body:      msg.Body,
		CreatedAt: &created,
	}
}

// sendError reports a rejected post back to this client only.
func (c *Client) sendError(err error) {
	frame := ServerMessage{Type: "error", Error: publicError(err)}
	data, marshalErr := json.Marshal(frame)
	if marshalErr != nil {
		slog.Error("failed to marshal error frame", slog.String("error", marshalErr.Error()))
		return
	}
	if writeErr := c.writeMessage(websocket.TextMessage, data); writeErr != nil {
		slog.Warn("failed to deliver error frame",
			slog.String("error", writeErr.Error()),
			slog.String("user", c.username))
	}
}

// publicError maps internal errors to client-safe text.
func publicError(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidBody):
		return domain.ErrInvalidBody.Error()
	case errors.Is(err, domain.ErrInvalidRoom):
		return domain.ErrInvalidRoom.Error()
	case errors.Is(err, domain.ErrUnauthorized):
		return domain.ErrUnauthorized.Error()
	default:
		return "failed to send message"
	}
}

// writeMessage writes a frame in a thread-safe manner.
func (c *Client) writeMessage(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed.Load() {
		return websocket.ErrCloseSent
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

// closeConnection safely closes the websocket connection.
func (c *Client) closeConnection() {
	if c.closed.CompareAndSwap(false, true) {
		c.writeMu.Lock()
		c.conn.Close()
		c.writeMu.Unlock()
	}
}
