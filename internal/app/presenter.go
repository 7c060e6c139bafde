package app

import (
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
)

// logPresenter renders presentation events into the structured log. With a
// dump directory configured it also writes each overlay layer as a PNG,
// which is the headless stand-in for a display surface.
type logPresenter struct {
	logger  *slog.Logger
	dumpDir string
	seq     atomic.Int64
}

func newLogPresenter(logger *slog.Logger, dumpDir string) *logPresenter {
	return &logPresenter{logger: logger, dumpDir: dumpDir}
}

func (p *logPresenter) ShowOverlay(layer image.Image) {
	p.logger.Info("overlay updated", "bounds", layer.Bounds().String())
	p.dump(layer)
}

func (p *logPresenter) ClearOverlay() {
	p.logger.Info("overlay cleared")
}

func (p *logPresenter) ShowAffordance() {
	p.logger.Info("ask affordance shown")
}

func (p *logPresenter) HideAffordance() {
	p.logger.Info("ask affordance hidden")
}

func (p *logPresenter) ShowLoading() {
	p.logger.Info("awaiting answer")
}

func (p *logPresenter) HideLoading() {
	p.logger.Info("awaiting answer done")
}

func (p *logPresenter) ShowMessage(text string, d time.Duration) {
	p.logger.Info("message", "text", text, "timeout_ms", d.Milliseconds())
}

func (p *logPresenter) ShowAnswer(text string, d time.Duration) {
	p.logger.Info("answer", "text", text, "timeout_ms", d.Milliseconds())
}

func (p *logPresenter) dump(layer image.Image) {
	if p.dumpDir == "" {
		return
	}
	if err := os.MkdirAll(p.dumpDir, 0o755); err != nil {
		p.logger.Warn("overlay dump dir", "error", err.Error())
		return
	}

	name := fmt.Sprintf("overlay-%06d.png", p.seq.Add(1))
	path := filepath.Join(p.dumpDir, name)
	file, err := os.Create(path)
	if err != nil {
		p.logger.Warn("overlay dump create", "error", err.Error())
		return
	}
	defer file.Close()

	if err := png.Encode(file, layer); err != nil {
		p.logger.Warn("overlay dump encode", "error", err.Error())
	}
}
