// SPDX-License-Identifier: MIT
package playback

import (
	"sync"
	"sync/atomic"
	"time"

	applog "termviz/internal/log"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/pkg/errors"
)

// outputBuffer is the length of the speaker's mixing buffer.
const outputBuffer = time.Second / 10

// Speaker hooks, replaced in tests so no audio device is needed.
var (
	speakerInit  = speaker.Init
	speakerPlay  = speaker.Play
	speakerClear = speaker.Clear
	speakerClose = speaker.Close

	// drainDelay is how long the last buffer takes to be heard after the
	// end-of-track callback fires.
	drainDelay = outputBuffer
)

// WallClock measures elapsed time since Start. It reads zero until started.
type WallClock struct {
	start atomic.Int64 // unix nanoseconds, 0 while stopped
	now   func() time.Time
}

// NewWallClock returns a stopped clock.
func NewWallClock() *WallClock {
	return &WallClock{now: time.Now}
}

// Start marks the current instant as elapsed time zero.
func (c *WallClock) Start() {
	c.start.Store(c.now().UnixNano())
}

// Elapsed returns the time since Start, or zero if the clock never started.
func (c *WallClock) Elapsed() time.Duration {
	s := c.start.Load()
	if s == 0 {
		return 0
	}
	return time.Duration(c.now().UnixNano() - s)
}

// Player plays a decoded Track on the speaker. Output runs on the speaker's
// own goroutine; the only thing shared with the render loop is the clock.
type Player struct {
	track *Track
	clock *WallClock
	done  chan struct{}
	once  sync.Once
}

// NewPlayer prepares a player for track. Nothing plays until Start.
func NewPlayer(track *Track) *Player {
	return &Player{
		track: track,
		clock: NewWallClock(),
		done:  make(chan struct{}),
	}
}

// Start opens the output device at the track's sample rate and begins
// playback. It returns once output is queued and never waits for the track.
func (p *Player) Start() error {
	sr := beep.SampleRate(p.track.SampleRate)
	if err := speakerInit(sr, sr.N(outputBuffer)); err != nil {
		return errors.Wrap(err, "failed to open audio output")
	}

	applog.Infof("Playback: starting output (%s)", p.track.Duration().Round(time.Millisecond))

	p.clock.Start()
	speakerPlay(beep.Seq(newTrackStreamer(p.track), beep.Callback(p.finish)))
	return nil
}

// finish runs when the last samples enter the speaker buffer. Done closes
// once that buffer has played out, so Close never cuts the tail off.
func (p *Player) finish() {
	time.AfterFunc(drainDelay, func() {
		p.once.Do(func() {
			applog.Infof("Playback: track finished after %s", p.clock.Elapsed().Round(time.Millisecond))
			close(p.done)
		})
	})
}

// Elapsed returns the time since output started.
func (p *Player) Elapsed() time.Duration {
	return p.clock.Elapsed()
}

// Duration returns the length of the track.
func (p *Player) Duration() time.Duration {
	return p.track.Duration()
}

// Done is closed when the whole track has been heard.
func (p *Player) Done() <-chan struct{} {
	return p.done
}

// Close stops output and releases the audio device.
func (p *Player) Close() {
	speakerClear()
	speakerClose()
}

// trackStreamer feeds a Track to beep as stereo frames.
type trackStreamer struct {
	track *Track
	pos   int // next frame
}

func newTrackStreamer(t *Track) *trackStreamer {
	return &trackStreamer{track: t}
}

func (s *trackStreamer) Stream(samples [][2]float64) (int, bool) {
	frames := s.track.Frames()
	if s.pos >= frames {
		return 0, false
	}

	ch := s.track.Channels
	n := min(len(samples), frames-s.pos)
	for i := range n {
		base := (s.pos + i) * ch
		left := float64(s.track.Samples[base])
		right := left
		if ch > 1 {
			right = float64(s.track.Samples[base+1])
		}
		samples[i][0], samples[i][1] = left, right
	}
	s.pos += n
	return n, true
}

func (s *trackStreamer) Err() error {
	return nil
}
