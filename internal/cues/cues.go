// Package cues plays the short confirmation beep used for trigger
// confirmation and the voice "ok" acknowledgement.
package cues

import (
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/jfreymuth/pulse"
)

const cueSampleRate = 16000

// Player triggers confirmation-cue playback. Implementations must be
// non-blocking; the session loop never waits on audio.
type Player interface {
	Confirm()
}

// Noop is the silent fallback for headless or muted sessions.
type Noop struct{}

func (Noop) Confirm() {}

type toneSpec struct {
	frequencyHz float64
	duration    time.Duration
	volume      float64
}

var confirmCuePCM = synthesizeCue([]toneSpec{
	{frequencyHz: 880, duration: 80 * time.Millisecond, volume: 0.2},
	{frequencyHz: 1320, duration: 110 * time.Millisecond, volume: 0.2},
})

// Pulse plays a synthesized two-tone cue through PulseAudio.
type Pulse struct {
	logger  *slog.Logger
	playing atomic.Bool
}

// NewPulse builds a PulseAudio-backed player.
func NewPulse(logger *slog.Logger) *Pulse {
	return &Pulse{logger: logger}
}

// Confirm plays the cue on its own goroutine. Overlapping requests while a
// cue is still sounding are dropped rather than stacked.
func (p *Pulse) Confirm() {
	if !p.playing.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer p.playing.Store(false)
		if err := playSynthCue(confirmCuePCM); err != nil && p.logger != nil {
			p.logger.Warn("confirmation cue failed", "error", err.Error())
		}
	}()
}

func playSynthCue(samples []int16) error {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("visor"),
		pulse.ClientApplicationIconName("camera-video"),
	)
	if err != nil {
		return err
	}
	defer client.Close()

	cursor := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if cursor >= len(samples) {
			return 0, pulse.EndOfData
		}

		n := copy(buf, samples[cursor:])
		cursor += n
		if cursor >= len(samples) {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	stream, err := client.NewPlayback(
		reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(cueSampleRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName("visor confirmation cue"),
	)
	if err != nil {
		return err
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	return stream.Error()
}

func synthesizeCue(parts []toneSpec) []int16 {
	if len(parts) == 0 {
		return nil
	}
	gapSamples := samplesForDuration(20 * time.Millisecond)
	total := 0
	for i, part := range parts {
		total += samplesForDuration(part.duration)
		if i < len(parts)-1 {
			total += gapSamples
		}
	}

	pcm := make([]int16, 0, total)
	for i, part := range parts {
		pcm = append(pcm, synthesizeTone(part)...)
		if i < len(parts)-1 && gapSamples > 0 {
			pcm = append(pcm, make([]int16, gapSamples)...)
		}
	}
	return pcm
}

func synthesizeTone(part toneSpec) []int16 {
	count := samplesForDuration(part.duration)
	if count <= 0 {
		return nil
	}

	// Short attack/release ramps keep the beep from clicking.
	ramp := count / 8
	samples := make([]int16, count)
	for i := 0; i < count; i++ {
		amplitude := part.volume
		if ramp > 0 {
			if i < ramp {
				amplitude *= float64(i) / float64(ramp)
			} else if i >= count-ramp {
				amplitude *= float64(count-1-i) / float64(ramp)
			}
		}
		phase := 2 * math.Pi * part.frequencyHz * float64(i) / float64(cueSampleRate)
		samples[i] = int16(amplitude * math.Sin(phase) * math.MaxInt16)
	}
	return samples
}

func samplesForDuration(d time.Duration) int {
	return int(float64(cueSampleRate) * d.Seconds())
}
