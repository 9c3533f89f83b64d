// SPDX-License-Identifier: MIT
package pipeline

import (
	"time"

	"termviz/internal/ring"
)

// DefaultSpan is the length of audio sliced per frame in playback mode.
const DefaultSpan = 50 * time.Millisecond

// Source produces the window of interleaved samples for one frame. Window is
// called only from the render loop and must not block.
type Source interface {
	Window() []float32
}

// Clock reports time elapsed since playback started.
type Clock interface {
	Elapsed() time.Duration
}

// LiveSource drains everything the capture callback has pushed since the
// previous frame. The window size follows real elapsed time.
type LiveSource struct {
	ch  *ring.Channel
	buf []float32
}

// NewLiveSource returns a source reading from ch.
func NewLiveSource(ch *ring.Channel) *LiveSource {
	return &LiveSource{
		ch:  ch,
		buf: make([]float32, 0, ch.Cap()),
	}
}

// Window drains the channel. The returned slice is reused by the next call.
func (s *LiveSource) Window() []float32 {
	s.buf = s.ch.DrainInto(s.buf)
	return s.buf
}

// Dropped reports the samples the channel has discarded on overflow.
func (s *LiveSource) Dropped() uint64 {
	return s.ch.Dropped()
}

// Slicer is the part of a decoded track a PlaybackSource reads from.
type Slicer interface {
	Slice(from, to time.Duration) []float32
}

// PlaybackSource slices the span of audio that ends at the clock's current
// position out of a fully decoded track.
type PlaybackSource struct {
	track Slicer
	clock Clock
	span  time.Duration
}

// NewPlaybackSource returns a source over track. A non-positive span falls
// back to DefaultSpan.
func NewPlaybackSource(track Slicer, clock Clock, span time.Duration) *PlaybackSource {
	if span <= 0 {
		span = DefaultSpan
	}
	return &PlaybackSource{track: track, clock: clock, span: span}
}

// Window returns the samples in [elapsed-span, elapsed]. The lower bound is
// clamped at zero; past the end of the track the window is empty.
func (s *PlaybackSource) Window() []float32 {
	now := s.clock.Elapsed()
	return s.track.Slice(max(now-s.span, 0), now)
}
