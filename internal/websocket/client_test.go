package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"roomchat/internal/domain"
	"roomchat/internal/hub"
	"roomchat/internal/registry"
	"roomchat/internal/service"
	"roomchat/internal/testutil"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRoomNames = []string{"devops", "cloud computing", "covid19", "sports", "nodeJS"}

type clientFixture struct {
	chat *service.ChatService
	repo *testutil.MockMessageRepository
	hub  *hub.Hub
}

func newClientFixture(t *testing.T) *clientFixture {
	t.Helper()

	repo := testutil.NewMockMessageRepository(testRoomNames...)
	rooms := registry.New(testRoomNames)
	h := hub.New(rooms)
	t.Cleanup(h.Shutdown)

	return &clientFixture{
		chat: service.NewChatService(repo, rooms, h, nil),
		repo: repo,
		hub:  h,
	}
}

// dialTestServer starts a websocket server running serverFn and returns the
// client side of the connection.
func dialTestServer(t *testing.T, serverFn func(conn *websocket.Conn)) *websocket.Conn {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		serverFn(conn)
	}))
	t.Cleanup(server.Close)

	wsURL := "ws" + server.URL[4:]
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWritePump_DeliversBroadcasts(t *testing.T) {
	fix := newClientFixture(t)

	received := make(chan []byte, 10)
	conn := dialTestServer(t, func(conn *websocket.Conn) {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			received <- msg
		}
	})

	sub, err := fix.hub.Subscribe("devops")
	require.NoError(t, err)

	client := NewClient(context.Background(), conn, sub, "alice", fix.chat)
	go client.WritePump()

	now := time.Now()
	fix.hub.Publish("devops", &domain.Message{
		ID:        7,
		Room:      "devops",
		Sender:    "bob",
		Body:      "hello",
		CreatedAt: now,
	})

	select {
	case data := <-received:
		var frame ServerMessage
		require.NoError(t, json.Unmarshal(data, &frame))
		assert.Equal(t, "message", frame.Type)
		assert.Equal(t, int64(7), frame.ID)
		assert.Equal(t, "devops", frame.Room)
		assert.Equal(t, "bob", frame.Sender)
		assert.Equal(t, "hello", frame.Body)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for broadcast frame")
	}
}

func TestReadPump_PostsToRoom(t *testing.T) {
	fix := newClientFixture(t)

	conn := dialTestServer(t, func(conn *websocket.Conn) {
		frame, _ := json.Marshal(ClientMessage{Body: "hello from ws"})
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return
		}
		// Give the client a moment to process, then hang up
		time.Sleep(100 * time.Millisecond)
	})

	sub, err := fix.hub.Subscribe("devops")
	require.NoError(t, err)

	client := NewClient(context.Background(), conn, sub, "alice", fix.chat)

	done := make(chan struct{})
	go func() {
		client.ReadPump()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("read pump did not exit after server hangup")
	}

	require.Equal(t, 1, fix.repo.Count("devops"))
	assert.Equal(t, "alice", fix.repo.Messages[0].Sender)
	assert.Equal(t, "hello from ws", fix.repo.Messages[0].Body)
}

func TestReadPump_RejectedPostSendsErrorFrame(t *testing.T) {
	fix := newClientFixture(t)

	received := make(chan []byte, 10)
	conn := dialTestServer(t, func(conn *websocket.Conn) {
		frame, _ := json.Marshal(ClientMessage{Body: ""})
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return
		}
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			received <- msg
		}
	})

	sub, err := fix.hub.Subscribe("devops")
	require.NoError(t, err)

	client := NewClient(context.Background(), conn, sub, "alice", fix.chat)
	go client.ReadPump()

	select {
	case data := <-received:
		var frame ServerMessage
		require.NoError(t, json.Unmarshal(data, &frame))
		assert.Equal(t, "error", frame.Type)
		assert.NotEmpty(t, frame.Error)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for error frame")
	}

	assert.Equal(t, 0, fix.repo.Count("devops"))
}

func TestClient_CloseConnection_Idempotent(t *testing.T) {
	fix := newClientFixture(t)

	conn := dialTestServer(t, func(conn *websocket.Conn) {
		time.Sleep(100 * time.Millisecond)
	})

	sub, err := fix.hub.Subscribe("devops")
	require.NoError(t, err)

	client := NewClient(context.Background(), conn, sub, "alice", fix.chat)

	client.closeConnection()
	client.closeConnection()
	client.closeConnection()

	assert.True(t, client.closed.Load())
}

func TestClient_WriteMessage_ThreadSafe(t *testing.T) {
	fix := newClientFixture(t)

	conn := dialTestServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	sub, err := fix.hub.Subscribe("devops")
	require.NoError(t, err)

	client := NewClient(context.Background(), conn, sub, "alice", fix.chat)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				_ = client.writeMessage(websocket.TextMessage, []byte("test"))
			}
		}()
	}
	wg.Wait()
}

func TestClient_ContextCancellation(t *testing.T) {
	fix := newClientFixture(t)

	conn := dialTestServer(t, func(conn *websocket.Conn) {
		time.Sleep(500 * time.Millisecond)
	})

	sub, err := fix.hub.Subscribe("devops")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	client := NewClient(ctx, conn, sub, "alice", fix.chat)

	cancel()

	select {
	case <-client.ctx.Done():
	case <-time.After(time.Second):
		t.Error("client context should be cancelled after parent cancel")
	}
}

func TestClientMessage_JSON(t *testing.T) {
	var msg ClientMessage
	require.NoError(t, json.Unmarshal([]byte(`{"body":"hello"}`), &msg))
	assert.Equal(t, "hello", msg.Body)

	assert.Error(t, json.Unmarshal([]byte(`{invalid}`), &msg))
}

func TestServerMessage_JSON(t *testing.T) {
	now := time.Now()
	frame := ServerMessage{
		Type:      "message",
		ID:        3,
		Room:      "devops",
		Sender:    "alice",
		Body:      "hi",
		CreatedAt: &now,
	}

	data, err := json.Marshal(frame)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"message"`)
	assert.NotContains(t, string(data), "error")

	errFrame := ServerMessage{Type: "error", Error: "message body must be 1-1000 bytes"}
	data, err = json.Marshal(errFrame)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"id"`)
	assert.Contains(t, string(data), `"error"`)
}
