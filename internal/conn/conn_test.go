package conn

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/lcampos/visor/internal/protocol"
)

// recordingSink funnels sink callbacks into channels for assertions.
type recordingSink struct {
	opened   chan struct{}
	failed   chan error
	messages chan protocol.Incoming
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		opened:   make(chan struct{}, 4),
		failed:   make(chan error, 4),
		messages: make(chan protocol.Incoming, 16),
	}
}

func (s *recordingSink) ConnOpened()                           { s.opened <- struct{}{} }
func (s *recordingSink) ConnFailed(err error)                  { s.failed <- err }
func (s *recordingSink) MessageReceived(msg protocol.Incoming) { s.messages <- msg }

// echoAnswerServer upgrades each client and answers every text message with
// a canned llm_answer.
func echoAnswerServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
			reply := `{"type":"llm_answer","text":"echo"}`
			if err := ws.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
				return
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestEnsureConnectedOpensOnce(t *testing.T) {
	server := echoAnswerServer(t)
	defer server.Close()

	sink := newRecordingSink()
	manager := NewManager(Options{URL: wsURL(server), DialTimeout: time.Second}, nil, sink)
	defer manager.Close("test done")

	require.False(t, manager.EnsureConnected(context.Background()))

	select {
	case <-sink.opened:
	case <-time.After(2 * time.Second):
		t.Fatal("connection never opened")
	}

	require.True(t, manager.Connected())
	require.True(t, manager.EnsureConnected(context.Background()))
}

func TestSendAndReceive(t *testing.T) {
	server := echoAnswerServer(t)
	defer server.Close()

	sink := newRecordingSink()
	manager := NewManager(Options{URL: wsURL(server), DialTimeout: time.Second}, nil, sink)
	defer manager.Close("test done")

	manager.EnsureConnected(context.Background())
	<-sink.opened

	payload, err := protocol.EncodeQuestion([]byte("img"), "what is this?")
	require.NoError(t, err)
	require.NoError(t, manager.Send(payload))

	select {
	case msg := <-sink.messages:
		require.Equal(t, protocol.KindAnswer, msg.Kind)
		require.Equal(t, "echo", msg.Answer)
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestSendWithoutConnection(t *testing.T) {
	sink := newRecordingSink()
	manager := NewManager(Options{URL: "ws://127.0.0.1:1/ws", DialTimeout: time.Second}, nil, sink)

	err := manager.Send([]byte(`{"type":"detection","image":""}`))
	require.ErrorIs(t, err, ErrNotConnected)
	require.Empty(t, sink.failed)
}

func TestDialFailureEmitsConnFailedOnce(t *testing.T) {
	sink := newRecordingSink()
	manager := NewManager(Options{
		URL:         "ws://127.0.0.1:1/ws",
		DialTimeout: 200 * time.Millisecond,
	}, nil, sink)

	require.False(t, manager.EnsureConnected(context.Background()))

	select {
	case err := <-sink.failed:
		require.Error(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("dial failure never surfaced")
	}

	require.False(t, manager.Connected())
	require.Empty(t, sink.opened)

	// A fresh cycle is allowed after failure.
	require.False(t, manager.EnsureConnected(context.Background()))
	select {
	case err := <-sink.failed:
		require.Error(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("second dial cycle never surfaced")
	}
}

func TestCloseIsGracefulAndSilent(t *testing.T) {
	server := echoAnswerServer(t)
	defer server.Close()

	sink := newRecordingSink()
	manager := NewManager(Options{URL: wsURL(server), DialTimeout: time.Second}, nil, sink)

	manager.EnsureConnected(context.Background())
	<-sink.opened

	manager.Close("shutting down")
	manager.Close("shutting down")
	require.False(t, manager.Connected())

	// The read pump must not report our own close as a failure.
	select {
	case err := <-sink.failed:
		t.Fatalf("unexpected failure event: %v", err)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestServerDropEmitsConnFailed(t *testing.T) {
	upgrader := websocket.Upgrader{}
	drop := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		<-drop
		_ = ws.Close()
	}))
	defer server.Close()

	sink := newRecordingSink()
	manager := NewManager(Options{URL: wsURL(server), DialTimeout: time.Second}, nil, sink)

	manager.EnsureConnected(context.Background())
	<-sink.opened
	close(drop)

	select {
	case err := <-sink.failed:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server drop never surfaced")
	}
	require.False(t, manager.Connected())
}
