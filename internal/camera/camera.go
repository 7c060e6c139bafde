// Package camera abstracts frame acquisition behind a pull interface and
// drives the refresh-tick pump.
package camera

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/disintegration/imaging"

	// Register decoders for directory-sourced frames.
	_ "image/jpeg"
	_ "image/png"
)

// Source delivers the most recent frame. The second return is false while
// the source is not ready.
type Source interface {
	CurrentFrame() (image.Image, bool)
}

// Still is a fixed solid-color frame source for demos and tests.
type Still struct {
	img image.Image
}

// NewStill builds a still source of the given size and fill color.
func NewStill(width, height int, fill color.Color) *Still {
	img := imaging.New(width, height, color.NRGBAModel.Convert(fill).(color.NRGBA))
	return &Still{img: img}
}

func (s *Still) CurrentFrame() (image.Image, bool) {
	if s.img == nil {
		return nil, false
	}
	return s.img, true
}

// Directory replays still images from a directory in name order, advancing
// one frame per pull. It stands in for a live camera on development hosts.
type Directory struct {
	mu     sync.Mutex
	frames []image.Image
	next   int
}

// NewDirectory loads every decodable .jpg/.jpeg/.png file under dir.
func NewDirectory(dir string) (*Directory, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frame dir %q: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg", ".png":
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	frames := make([]image.Image, 0, len(names))
	for _, name := range names {
		img, err := imaging.Open(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		frames = append(frames, img)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("frame dir %q contains no decodable images", dir)
	}

	return &Directory{frames: frames}, nil
}

func (d *Directory) CurrentFrame() (image.Image, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.frames) == 0 {
		return nil, false
	}
	img := d.frames[d.next]
	d.next = (d.next + 1) % len(d.frames)
	return img, true
}

// Pump pulls a frame from the source on every refresh tick and hands it to
// the offer callback on the pump's own goroutine. The callback owns
// throttling; the pump never blocks on downstream work completing a round
// trip.
type Pump struct {
	source   Source
	interval time.Duration
	offer    func(image.Image)
	clock    clock.Clock
}

// NewPump wires a source to an offer callback at a fixed tick interval.
func NewPump(source Source, interval time.Duration, offer func(image.Image), clk clock.Clock) *Pump {
	if clk == nil {
		clk = clock.New()
	}
	return &Pump{source: source, interval: interval, offer: offer, clock: clk}
}

// Run ticks until the context is cancelled.
func (p *Pump) Run(ctx context.Context) {
	ticker := p.clock.Ticker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame, ok := p.source.CurrentFrame()
			if !ok {
				continue
			}
			p.offer(frame)
		}
	}
}
