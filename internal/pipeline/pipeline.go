// SPDX-License-Identifier: MIT
/*
Package pipeline runs the per-frame chain of the visualizer: extract a window,
bucket it into bands, ease the displayed bands toward the measurement and,
during playback, find the current lyric.

A Pipeline is owned by the render loop. Step is not safe for concurrent use;
the only state shared with other goroutines lives behind the Source.
*/
package pipeline

import (
	"time"

	"termviz/internal/analysis"
	applog "termviz/internal/log"
	"termviz/internal/lyrics"
)

// Frame is everything the renderer needs for one redraw.
type Frame struct {
	Index    uint64              `json:"index"`
	Bands    analysis.BandVector `json:"bands"`
	Min      uint64              `json:"min"`
	Max      uint64              `json:"max"`
	Lyric    string              `json:"lyric,omitempty"`
	HasLyric bool                `json:"-"`
	Progress float64             `json:"progress"`
	Dropped  uint64              `json:"dropped"`
}

// BandVector returns the displayed bands of the frame.
func (f Frame) BandVector() analysis.BandVector {
	return f.Bands
}

// Sender receives every frame after it is built. Send must not block for
// long; errors are logged and otherwise ignored.
type Sender interface {
	Send(data any) error
}

type dropCounter interface {
	Dropped() uint64
}

// Options carries the optional parts of a Pipeline.
type Options struct {
	Lyrics   lyrics.Table  // playback only
	Clock    Clock         // required for lyrics and progress
	Duration time.Duration // track length, 0 when unknown
	Sender   Sender
}

// Pipeline holds the state carried from frame to frame.
type Pipeline struct {
	source   Source
	bucketer *analysis.Bucketer
	opts     Options

	displayed analysis.BandVector
	frame     uint64
	sendFails uint64
}

// New builds a pipeline reading from source.
func New(source Source, bucketer *analysis.Bucketer, opts Options) *Pipeline {
	return &Pipeline{
		source:   source,
		bucketer: bucketer,
		opts:     opts,
	}
}

// Displayed returns the current displayed band vector, nil before the first
// measured frame.
func (p *Pipeline) Displayed() analysis.BandVector {
	return p.displayed
}

// Step produces the next frame.
func (p *Pipeline) Step() Frame {
	window := p.source.Window()

	raw, measured := p.bucketer.Bucket(window, p.displayed)
	switch {
	case p.displayed != nil:
		p.displayed = analysis.Smooth(raw, p.displayed)
	case measured:
		p.displayed = raw
	}

	bands := p.displayed
	if bands == nil {
		bands = raw
	}

	f := Frame{
		Index: p.frame,
		Bands: bands,
	}
	p.frame++
	f.Min, f.Max = bands.MinMax()

	if dc, ok := p.source.(dropCounter); ok {
		f.Dropped = dc.Dropped()
	}

	if p.opts.Clock != nil {
		elapsed := p.opts.Clock.Elapsed()
		if p.opts.Lyrics != nil {
			f.Lyric, f.HasLyric = p.opts.Lyrics.At(elapsed)
		}
		f.Progress = progress(elapsed, p.opts.Duration)
	}

	if p.opts.Sender != nil {
		if err := p.opts.Sender.Send(f); err != nil {
			p.sendFails++
			// First failure and then every few seconds at 60 fps.
			if p.sendFails == 1 || p.sendFails%300 == 0 {
				applog.Warnf("Pipeline: failed to send frame %d (%d failures): %v", f.Index, p.sendFails, err)
			}
		}
	}

	return f
}

// progress returns elapsed/duration clamped to [0, 1].
func progress(elapsed, duration time.Duration) float64 {
	if duration <= 0 || elapsed <= 0 {
		return 0
	}
	if elapsed >= duration {
		return 1
	}
	return float64(elapsed) / float64(duration)
}
