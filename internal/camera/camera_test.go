package camera

import (
	"context"
	"image"
	"image/color"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

func TestStillSource(t *testing.T) {
	still := NewStill(32, 24, color.RGBA{R: 200, A: 255})

	frame, ok := still.CurrentFrame()
	require.True(t, ok)
	require.Equal(t, 32, frame.Bounds().Dx())
	require.Equal(t, 24, frame.Bounds().Dy())
}

func TestDirectorySourceCycles(t *testing.T) {
	dir := t.TempDir()
	for i, tint := range []color.NRGBA{{R: 255, A: 255}, {G: 255, A: 255}} {
		img := imaging.New(8, 8, tint)
		require.NoError(t, imaging.Save(img, filepath.Join(dir, string(rune('a'+i))+".png")))
	}

	source, err := NewDirectory(dir)
	require.NoError(t, err)

	first, ok := source.CurrentFrame()
	require.True(t, ok)
	second, ok := source.CurrentFrame()
	require.True(t, ok)
	third, ok := source.CurrentFrame()
	require.True(t, ok)

	// Two frames replayed round-robin: the third pull repeats the first.
	require.NotEqual(t, firstPixel(first), firstPixel(second))
	require.Equal(t, firstPixel(first), firstPixel(third))
}

func firstPixel(img image.Image) color.Color {
	return img.At(img.Bounds().Min.X, img.Bounds().Min.Y)
}

func TestDirectorySourceEmptyDirFails(t *testing.T) {
	_, err := NewDirectory(t.TempDir())
	require.Error(t, err)
}

func TestDirectorySourceMissingDirFails(t *testing.T) {
	_, err := NewDirectory(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
}

func TestPumpOffersFramesOnTicks(t *testing.T) {
	mockClock := clock.NewMock()
	still := NewStill(4, 4, color.Black)

	var offered atomic.Int32
	pump := NewPump(still, 100*time.Millisecond, func(image.Image) { offered.Add(1) }, mockClock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pump.Run(ctx)
		close(done)
	}()

	// Let the pump install its ticker before advancing.
	time.Sleep(10 * time.Millisecond)
	for i := 0; i < 5; i++ {
		mockClock.Add(100 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return offered.Load() == 5 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

type notReadySource struct{}

func (notReadySource) CurrentFrame() (image.Image, bool) { return nil, false }

func TestPumpSkipsNotReadySource(t *testing.T) {
	mockClock := clock.NewMock()

	var offered atomic.Int32
	pump := NewPump(notReadySource{}, 50*time.Millisecond, func(image.Image) { offered.Add(1) }, mockClock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pump.Run(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	mockClock.Add(200 * time.Millisecond)
	time.Sleep(10 * time.Millisecond)

	require.Equal(t, int32(0), offered.Load())

	cancel()
	<-done
}
