// Package session coordinates the visual-query interaction lifecycle: it
// owns all session state and sequences detection streaming, trigger
// confirmation, and the voice-triggered question flow.
package session

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/lcampos/visor/internal/camera"
	"github.com/lcampos/visor/internal/cues"
	"github.com/lcampos/visor/internal/frame"
	"github.com/lcampos/visor/internal/fsm"
	"github.com/lcampos/visor/internal/ipc"
	"github.com/lcampos/visor/internal/labels"
	"github.com/lcampos/visor/internal/overlay"
	"github.com/lcampos/visor/internal/protocol"
	"github.com/lcampos/visor/internal/throttle"
	"github.com/lcampos/visor/internal/voice"
)

// Connector is the session-facing subset of connection-manager behavior.
type Connector interface {
	EnsureConnected(ctx context.Context) bool
	Send(payload []byte) error
	Close(reason string)
}

// Settings carries the interaction tunables resolved from configuration.
type Settings struct {
	RequiredLabels []string
	Prompt         string
	DescribePhrase string
	ConfirmPhrase  string
	SettleDelay    time.Duration
	MessageTimeout time.Duration
	AnswerTimeout  time.Duration
}

// Events consumed by the single serialized loop. All state mutation happens
// there; other goroutines only post.
type event interface{ isEvent() }

type cmdStart struct{}
type cmdStop struct{}
type cmdAsk struct{}
type evtPhrase struct{ phrase string }
type evtOpened struct{}
type evtFailed struct{ err error }
type evtMessage struct{ msg protocol.Incoming }
type evtSettled struct{}

func (cmdStart) isEvent()   {}
func (cmdStop) isEvent()    {}
func (cmdAsk) isEvent()     {}
func (evtPhrase) isEvent()  {}
func (evtOpened) isEvent()  {}
func (evtFailed) isEvent()  {}
func (evtMessage) isEvent() {}
func (evtSettled) isEvent() {}

// Controller orchestrates session state transitions and side effects.
type Controller struct {
	logger    *slog.Logger
	settings  Settings
	matcher   voice.Matcher
	connector Connector
	codec     frame.Codec
	renderer  *overlay.Renderer
	table     labels.Table
	presenter Presenter
	cue       cues.Player
	camera    camera.Source
	clock     clock.Clock

	gate throttle.Gate

	mu    sync.RWMutex
	state fsm.State

	// accepting mirrors "state accepts streamed frames" for the camera
	// pump's hot path; only the loop writes it.
	accepting atomic.Bool

	events   chan event
	done     chan struct{}
	quit     chan struct{}
	quitOnce sync.Once

	// Loop-owned; never touched outside handle().
	capturedFrame   image.Image
	pendingQuestion bool
}

// NewController constructs a session controller with safe default fallbacks.
func NewController(
	logger *slog.Logger,
	settings Settings,
	connector Connector,
	codec frame.Codec,
	renderer *overlay.Renderer,
	table labels.Table,
	presenter Presenter,
	cue cues.Player,
	source camera.Source,
	clk clock.Clock,
) *Controller {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if presenter == nil {
		presenter = noopPresenter{}
	}
	if cue == nil {
		cue = cues.Noop{}
	}
	if clk == nil {
		clk = clock.New()
	}

	return &Controller{
		logger:    logger,
		settings:  settings,
		matcher:   voice.NewMatcher(settings.DescribePhrase, settings.ConfirmPhrase),
		connector: connector,
		codec:     codec,
		renderer:  renderer,
		table:     table,
		presenter: presenter,
		cue:       cue,
		camera:    source,
		clock:     clk,
		state:     fsm.StateIdle,
		events:    make(chan event, 16),
		done:      make(chan struct{}),
		quit:      make(chan struct{}),
	}
}

// State returns the current state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Run executes the serialized event loop until context cancellation or a
// quit command.
func (c *Controller) Run(ctx context.Context) {
	defer close(c.done)
	defer c.connector.Close("session closing")
	defer c.accepting.Store(false)

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.quit:
			return
		case ev := <-c.events:
			c.handle(ctx, ev)
		}
	}
}

// OfferFrame submits one camera frame to the detection stream. Called on
// the camera pump goroutine; frames are dropped (never queued) when the
// session is not detecting, a round trip is in flight, or no connection
// exists.
func (c *Controller) OfferFrame(img image.Image) {
	if !c.accepting.Load() {
		return
	}
	if !c.gate.TryAcquire() {
		return
	}

	compressed, err := c.codec.EncodeDetection(img)
	if err != nil {
		c.gate.Release()
		c.logger.Warn("frame encode failed", "error", err.Error())
		return
	}
	payload, err := protocol.EncodeDetectionFrame(compressed)
	if err != nil {
		c.gate.Release()
		c.logger.Warn("frame serialize failed", "error", err.Error())
		return
	}
	if err := c.connector.Send(payload); err != nil {
		// Best-effort streaming: the frame is dropped, the slot freed.
		c.gate.Release()
	}
}

// ConnOpened implements conn.Sink.
func (c *Controller) ConnOpened() { c.post(evtOpened{}) }

// ConnFailed implements conn.Sink.
func (c *Controller) ConnFailed(err error) { c.post(evtFailed{err: err}) }

// MessageReceived implements conn.Sink.
func (c *Controller) MessageReceived(msg protocol.Incoming) { c.post(evtMessage{msg: msg}) }

// OnPhrase feeds one recognized voice phrase into the session.
func (c *Controller) OnPhrase(phrase string) { c.post(evtPhrase{phrase: phrase}) }

// Handle serves IPC commands for the active owner session.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	state := c.State()
	switch req.Command {
	case ipc.CommandStatus:
		return ipc.Response{OK: true, State: string(state), Message: "status", Phrases: c.matcher.Phrases()}
	case ipc.CommandStart:
		if state != fsm.StateIdle {
			return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot start from state %s", state)}
		}
		return c.postCommand(cmdStart{}, state, "detection starting")
	case ipc.CommandStop:
		switch {
		case fsm.Detecting(state):
			return c.postCommand(cmdStop{}, state, "detection stopping")
		case state == fsm.StateAwaitingVoice, state == fsm.StateAwaitingAnswer:
			return c.postCommand(cmdStop{}, state, "question cancelled")
		default:
			return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot stop from state %s", state)}
		}
	case ipc.CommandAsk:
		switch state {
		case fsm.StateCapturing, fsm.StateAwaitingVoice, fsm.StateAwaitingAnswer:
			return ipc.Response{OK: false, State: string(state), Error: "question already in progress"}
		}
		return c.postCommand(cmdAsk{}, state, "capturing frame")
	case ipc.CommandPhrase:
		if req.Phrase == "" {
			return ipc.Response{OK: false, State: string(state), Error: "phrase command requires a phrase"}
		}
		return c.postCommand(evtPhrase{phrase: req.Phrase}, state, "phrase accepted")
	case ipc.CommandQuit:
		c.quitOnce.Do(func() { close(c.quit) })
		return ipc.Response{OK: true, State: string(state), Message: "shutting down"}
	default:
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

func (c *Controller) postCommand(ev event, state fsm.State, message string) ipc.Response {
	select {
	case c.events <- ev:
		return ipc.Response{OK: true, State: string(state), Message: message}
	default:
		return ipc.Response{OK: false, State: string(state), Error: "session busy"}
	}
}

// post delivers an event in arrival order, giving up once the loop exits.
func (c *Controller) post(ev event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

// transition applies one FSM event and refreshes the accepting mirror. The
// mirror is updated under the lock so a state observed as detecting always
// accepts frames.
func (c *Controller) transition(ev fsm.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fsm.Transition(c.state, ev)
	if err != nil {
		return err
	}
	c.state = next
	c.accepting.Store(fsm.Detecting(next))
	return nil
}

func (c *Controller) handle(ctx context.Context, ev event) {
	switch ev := ev.(type) {
	case cmdStart:
		c.handleStart(ctx)
	case cmdStop:
		c.handleStop()
	case cmdAsk:
		c.handleAsk()
	case evtPhrase:
		c.handlePhrase(ctx, ev.phrase)
	case evtOpened:
		c.handleOpened()
	case evtFailed:
		c.handleFailed(ev.err)
	case evtMessage:
		c.handleMessage(ev.msg)
	case evtSettled:
		c.handleSettled()
	}
}

func (c *Controller) handleStart(ctx context.Context) {
	if err := c.transition(fsm.EventStart); err != nil {
		c.logger.Warn("start ignored", "error", err.Error())
		return
	}
	c.logger.Info("detection started")
	c.connector.EnsureConnected(ctx)
}

// handleStop ends whichever flow is active: detection streaming, or a
// question that is armed or awaiting its answer.
func (c *Controller) handleStop() {
	state := c.State()
	if err := c.transition(fsm.EventStop); err != nil {
		c.logger.Warn("stop ignored", "error", err.Error())
		return
	}

	if state == fsm.StateAwaitingVoice || state == fsm.StateAwaitingAnswer {
		c.capturedFrame = nil
		c.pendingQuestion = false
		if state == fsm.StateAwaitingAnswer {
			c.presenter.HideLoading()
		}
		c.logger.Info("question cancelled")
		return
	}

	c.logger.Info("detection stopped")
	c.presenter.ClearOverlay()
	c.presenter.HideAffordance()
}

func (c *Controller) handleAsk() {
	if err := c.transition(fsm.EventAsk); err != nil {
		c.logger.Warn("ask ignored", "error", err.Error())
		return
	}

	img, ok := c.camera.CurrentFrame()
	if !ok {
		// No frame, no voice trigger: abort the attempt entirely.
		c.presenter.ShowMessage("Camera not ready yet.", c.settings.MessageTimeout)
		_ = c.transition(fsm.EventAbort)
		c.logger.Warn("ask aborted: camera not ready")
		return
	}

	c.capturedFrame = img
	_ = c.transition(fsm.EventArmed)
	c.presenter.ShowMessage(fmt.Sprintf("Please say %q", c.settings.DescribePhrase), c.settings.MessageTimeout)
	c.logger.Info("voice trigger armed")
}

func (c *Controller) handlePhrase(ctx context.Context, phrase string) {
	switch c.matcher.Match(phrase) {
	case voice.KindConfirm:
		// Accepted in any state; acknowledges without transitioning.
		c.cue.Confirm()
		c.logger.Info("confirm phrase received")
	case voice.KindDescribe:
		if c.State() != fsm.StateAwaitingVoice {
			c.logger.Info("describe phrase ignored", "state", string(c.State()))
			return
		}
		_ = c.transition(fsm.EventDescribe)
		c.presenter.ShowLoading()
		if c.connector.EnsureConnected(ctx) {
			c.sendQuestion()
			return
		}
		// Connect just initiated; send after it opens and settles.
		c.pendingQuestion = true
	default:
		c.logger.Info("unmatched phrase ignored", "phrase", phrase)
	}
}

func (c *Controller) handleOpened() {
	c.logger.Info("connection open")
	if !c.pendingQuestion {
		return
	}
	c.pendingQuestion = false
	if c.settings.SettleDelay <= 0 {
		c.handleSettled()
		return
	}
	c.clock.AfterFunc(c.settings.SettleDelay, func() { c.post(evtSettled{}) })
}

func (c *Controller) handleSettled() {
	if c.State() != fsm.StateAwaitingAnswer {
		return
	}
	c.sendQuestion()
}

// sendQuestion serializes the captured frame with the fixed prompt and
// sends it. Loop-only.
func (c *Controller) sendQuestion() {
	img := c.capturedFrame
	if img == nil {
		c.failQuestion("No frame captured.")
		return
	}

	compressed, err := c.codec.EncodeQuestion(img)
	if err != nil {
		c.logger.Error("question frame encode failed", "error", err.Error())
		c.failQuestion("Could not prepare the captured frame.")
		return
	}
	payload, err := protocol.EncodeQuestion(compressed, c.settings.Prompt)
	if err != nil {
		c.logger.Error("question serialize failed", "error", err.Error())
		c.failQuestion("Could not prepare the question.")
		return
	}
	if err := c.connector.Send(payload); err != nil {
		c.logger.Error("question send failed", "error", err.Error())
		c.failQuestion("Connection to server failed.")
		return
	}
	c.logger.Info("question sent", "prompt", c.settings.Prompt)
}

func (c *Controller) failQuestion(message string) {
	c.presenter.HideLoading()
	c.presenter.ShowMessage(message, c.settings.MessageTimeout)
	c.capturedFrame = nil
	c.pendingQuestion = false
	_ = c.transition(fsm.EventAbort)
}

func (c *Controller) handleFailed(err error) {
	c.logger.Error("connection failed", "error", err.Error())

	state := c.State()

	// A failure must never leave the in-flight or awaiting flags stuck.
	c.gate.Release()
	c.pendingQuestion = false
	c.capturedFrame = nil

	if state == fsm.StateAwaitingAnswer {
		c.presenter.HideLoading()
	}
	if fsm.Detecting(state) {
		c.presenter.ClearOverlay()
		c.presenter.HideAffordance()
	}
	_ = c.transition(fsm.EventFail)
	c.presenter.ShowMessage("Connection to server failed.", c.settings.MessageTimeout)
}

func (c *Controller) handleMessage(msg protocol.Incoming) {
	switch msg.Kind {
	case protocol.KindDetections:
		// The round trip is complete whether or not the result is used.
		c.gate.Release()
		if !fsm.Detecting(c.State()) {
			c.logger.Info("detection results discarded", "state", string(c.State()))
			return
		}
		if c.renderer != nil {
			if layer := c.renderer.Render(msg.Detections, c.table); layer != nil {
				c.presenter.ShowOverlay(layer)
			}
		}
		c.evaluateTrigger(msg.Detections)
	case protocol.KindAnswer:
		if c.State() != fsm.StateAwaitingAnswer {
			c.logger.Info("answer discarded", "state", string(c.State()))
			return
		}
		_ = c.transition(fsm.EventAnswer)
		c.presenter.HideLoading()
		c.presenter.ShowAnswer(msg.Answer, c.settings.AnswerTimeout)
		c.capturedFrame = nil
		c.logger.Info("answer delivered", "length", len(msg.Answer))
	default:
		c.logger.Debug("ignored message")
	}
}

// evaluateTrigger applies the level-triggered stage-1 condition: all
// required labels present confirms, any missing reverts. Re-evaluating the
// same batch is idempotent.
func (c *Controller) evaluateTrigger(detections []protocol.Detection) {
	resolved := make(map[string]bool, len(detections))
	for _, d := range detections {
		resolved[c.table.Resolve(d.ClassID)] = true
	}

	met := true
	for _, required := range c.settings.RequiredLabels {
		if !resolved[required] {
			met = false
			break
		}
	}

	state := c.State()
	if met && state == fsm.StateDetecting {
		_ = c.transition(fsm.EventConfirm)
		c.presenter.ShowAffordance()
		c.cue.Confirm()
		c.logger.Info("trigger condition confirmed", "required", c.settings.RequiredLabels)
	} else if !met && state == fsm.StateConfirmed {
		_ = c.transition(fsm.EventUnconfirm)
		c.presenter.HideAffordance()
		c.logger.Info("trigger condition lost")
	}
}
