// Package conn owns the one logical WebSocket connection to the inference
// server: lazy connect, best-effort send, graceful close, failure surfacing.
package conn

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lcampos/visor/internal/protocol"
)

// ErrNotConnected marks a send attempted with no open connection. Streaming
// callers drop the frame; the question flow calls EnsureConnected first.
var ErrNotConnected = errors.New("no open connection")

// Sink receives connection lifecycle events and parsed server messages.
// Calls arrive on the manager's dial and read goroutines; implementations
// forward them into their own serialization context.
type Sink interface {
	ConnOpened()
	ConnFailed(err error)
	MessageReceived(msg protocol.Incoming)
}

// Options tunes dialing behavior.
type Options struct {
	URL         string
	DialTimeout time.Duration

	// MaxDialElapsed bounds one EnsureConnected retry cycle. Zero disables
	// retrying: a single failed dial ends the cycle.
	MaxDialElapsed time.Duration
}

// Manager owns at most one live connection. All methods are safe for
// concurrent use.
type Manager struct {
	opts   Options
	logger *slog.Logger
	sink   Sink

	mu      sync.Mutex
	ws      *websocket.Conn
	dialing bool
}

// NewManager builds a manager; no connection is opened until
// EnsureConnected is called.
func NewManager(opts Options, logger *slog.Logger, sink Sink) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{opts: opts, logger: logger, sink: sink}
}

// EnsureConnected reports whether a live connection already exists. When it
// does not, a dial cycle is started in the background (idempotent while one
// is running) and completion is reported through the sink.
func (m *Manager) EnsureConnected(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ws != nil {
		return true
	}
	if !m.dialing {
		m.dialing = true
		go m.dial(ctx)
	}
	return false
}

// Connected reports whether a live connection exists.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ws != nil
}

// Send writes one text message on the open connection. With no connection
// it returns ErrNotConnected without side effects; a write failure tears
// the connection down and surfaces ConnFailed.
func (m *Manager) Send(payload []byte) error {
	m.mu.Lock()
	ws := m.ws
	if ws == nil {
		m.mu.Unlock()
		return ErrNotConnected
	}
	err := ws.WriteMessage(websocket.TextMessage, payload)
	if err != nil {
		m.ws = nil
	}
	m.mu.Unlock()

	if err != nil {
		m.logger.Error("send failed", "error", err.Error())
		_ = ws.Close()
		m.sink.ConnFailed(err)
		return err
	}
	return nil
}

// Close shuts the connection down gracefully with close code 1000. Safe to
// call repeatedly; the read pump exits without emitting a failure.
func (m *Manager) Close(reason string) {
	m.mu.Lock()
	ws := m.ws
	m.ws = nil
	m.mu.Unlock()

	if ws == nil {
		return
	}

	deadline := time.Now().Add(time.Second)
	_ = ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason),
		deadline,
	)
	_ = ws.Close()
}

// dial runs one bounded connect cycle and reports its outcome exactly once.
func (m *Manager) dial(ctx context.Context) {
	connID := uuid.NewString()
	logger := m.logger.With("conn_id", connID)

	var ws *websocket.Conn
	operation := func() error {
		dialer := websocket.Dialer{HandshakeTimeout: m.opts.DialTimeout}
		c, _, err := dialer.DialContext(ctx, m.opts.URL, nil)
		if err != nil {
			logger.Warn("dial attempt failed", "url", m.opts.URL, "error", err.Error())
			return err
		}
		ws = c
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(m.dialPolicy(), ctx))

	m.mu.Lock()
	m.dialing = false
	if err == nil {
		m.ws = ws
	}
	m.mu.Unlock()

	if err != nil {
		logger.Error("connect cycle failed", "url", m.opts.URL, "error", err.Error())
		m.sink.ConnFailed(err)
		return
	}

	logger.Info("connected", "url", m.opts.URL)
	go m.readPump(ws, logger)
	m.sink.ConnOpened()
}

func (m *Manager) dialPolicy() backoff.BackOff {
	if m.opts.MaxDialElapsed <= 0 {
		return &backoff.StopBackOff{}
	}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxElapsedTime = m.opts.MaxDialElapsed
	return policy
}

// readPump delivers parsed messages in receipt order until the connection
// dies. Messages that fail to parse are dropped and logged, never fatal.
func (m *Manager) readPump(ws *websocket.Conn, logger *slog.Logger) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			m.mu.Lock()
			current := m.ws == ws
			if current {
				m.ws = nil
			}
			m.mu.Unlock()

			// A pump made stale by Close or by a send failure exits
			// silently; its failure was either intentional or already
			// reported.
			if current {
				logger.Error("connection lost", "error", err.Error())
				_ = ws.Close()
				m.sink.ConnFailed(err)
			}
			return
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			logger.Warn("dropping malformed message", "error", err.Error())
			continue
		}
		m.sink.MessageReceived(msg)
	}
}
