package app

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lcampos/visor/internal/camera"
	"github.com/lcampos/visor/internal/cli"
	"github.com/lcampos/visor/internal/config"
	"github.com/lcampos/visor/internal/conn"
	"github.com/lcampos/visor/internal/cues"
	"github.com/lcampos/visor/internal/doctor"
	"github.com/lcampos/visor/internal/frame"
	"github.com/lcampos/visor/internal/ipc"
	"github.com/lcampos/visor/internal/labels"
	"github.com/lcampos/visor/internal/logging"
	"github.com/lcampos/visor/internal/overlay"
	"github.com/lcampos/visor/internal/protocol"
	"github.com/lcampos/visor/internal/session"
	"github.com/lcampos/visor/internal/version"
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("visor"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("visor"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandStart:
		return r.forwardOrFail(ctx, ipc.Request{Command: ipc.CommandStart})
	case cli.CommandStop:
		return r.forwardOrFail(ctx, ipc.Request{Command: ipc.CommandStop})
	case cli.CommandAsk:
		return r.forwardOrFail(ctx, ipc.Request{Command: ipc.CommandAsk})
	case cli.CommandPhrase:
		return r.forwardOrFail(ctx, ipc.Request{Command: ipc.CommandPhrase, Phrase: parsed.Phrase})
	case cli.CommandRun:
		return r.commandRun(ctx, cfgLoaded.Config, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.Request{Command: ipc.CommandStatus})
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		if resp.State == "" {
			resp.State = "idle"
		}
		fmt.Fprintln(r.Stdout, resp.State)
		return 0
	}

	fmt.Fprintln(r.Stdout, "idle")
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, req ipc.Request) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, req)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: no active visor session\n")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

// sinkRelay breaks the construction cycle between the connection manager
// and the session controller; the target is assigned before any dial.
type sinkRelay struct {
	target conn.Sink
}

func (s *sinkRelay) ConnOpened()                           { s.target.ConnOpened() }
func (s *sinkRelay) ConnFailed(err error)                  { s.target.ConnFailed(err) }
func (s *sinkRelay) MessageReceived(msg protocol.Incoming) { s.target.MessageReceived(msg) }

func (r Runner) commandRun(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintln(r.Stderr, "error: visor session already running")
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	table := labels.Table{}
	if cfg.Labels.File != "" {
		loaded, err := labels.Load(config.ExpandUserPath(cfg.Labels.File))
		if err != nil {
			fmt.Fprintf(r.Stderr, "warning: labels file: %v\n", err)
			logger.Warn("labels file unreadable", "file", cfg.Labels.File, "error", err.Error())
		} else {
			table = loaded
		}
	}

	source, err := buildCameraSource(cfg)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	var cue cues.Player = cues.Noop{}
	if cfg.Cues.Enable {
		cue = cues.NewPulse(logger)
	}

	relay := &sinkRelay{}
	manager := conn.NewManager(conn.Options{
		URL:            cfg.Server.URL,
		DialTimeout:    time.Duration(cfg.Server.DialTimeoutMS) * time.Millisecond,
		MaxDialElapsed: time.Duration(cfg.Server.MaxDialElapsedMS) * time.Millisecond,
	}, logger, relay)

	controller := session.NewController(
		logger,
		session.Settings{
			RequiredLabels: cfg.Trigger.RequiredLabels,
			Prompt:         cfg.Question.Prompt,
			DescribePhrase: cfg.Voice.DescribePhrase,
			ConfirmPhrase:  cfg.Voice.ConfirmPhrase,
			SettleDelay:    time.Duration(cfg.Server.SettleDelayMS) * time.Millisecond,
			MessageTimeout: time.Duration(cfg.Feedback.MessageTimeoutMS) * time.Millisecond,
			AnswerTimeout:  time.Duration(cfg.Feedback.AnswerTimeoutMS) * time.Millisecond,
		},
		manager,
		frame.Codec{
			DetectionQuality: cfg.Frame.DetectionQuality,
			QuestionQuality:  cfg.Frame.QuestionQuality,
			MaxDimension:     cfg.Frame.MaxDimension,
		},
		overlay.NewRenderer(
			cfg.Overlay.Width,
			cfg.Overlay.Height,
			float64(cfg.Overlay.LineWidth),
			float64(cfg.Overlay.TextSize),
		),
		table,
		newLogPresenter(logger, config.ExpandUserPath(cfg.Debug.OverlayDumpDir)),
		cue,
		source,
		nil,
	)
	relay.target = controller

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(runCtx, listener, controller)
	}()

	pump := camera.NewPump(
		source,
		time.Duration(cfg.Camera.IntervalMS)*time.Millisecond,
		controller.OfferFrame,
		nil,
	)
	go pump.Run(runCtx)

	controller.Run(ctx)
	cancel()
	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}

	logger.Info("session closed")
	return 0
}

func buildCameraSource(cfg config.Config) (camera.Source, error) {
	switch cfg.Camera.Source {
	case "still":
		// Headless stand-in for a live camera, sized to the overlay canvas.
		return camera.NewStill(cfg.Overlay.Width, cfg.Overlay.Height, color.Gray{Y: 128}), nil
	case "dir":
		return camera.NewDirectory(config.ExpandUserPath(cfg.Camera.Dir))
	default:
		return nil, fmt.Errorf("unknown camera source %q", cfg.Camera.Source)
	}
}

func tryForward(ctx context.Context, socketPath string, req ipc.Request) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, req, 220*time.Millisecond)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if ipc.IsSocketMissing(err) || ipc.IsConnectionRefused(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", req.Command, err)
}
