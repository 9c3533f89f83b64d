// SPDX-License-Identifier: MIT
/*
Package ring implements the sample channel that bridges the audio callback
and the render loop.

Thread Safety:
  - Exactly one producer goroutine may call Write, and exactly one consumer
    goroutine may call Drain/DrainInto.
  - Each side only ever advances its own cursor, so neither side takes a
    lock or waits on the other.
  - A full channel drops the incoming samples (drop newest); an empty channel
    drains to nothing.
*/
package ring

import (
	"sync/atomic"
	"time"

	applog "termviz/internal/log"

	"github.com/pkg/errors"
)

// ErrInvalidCapacity is returned when a channel would hold no samples.
var ErrInvalidCapacity = errors.New("channel capacity must be positive")

// WriteResult describes the outcome of a single Write call.
type WriteResult struct {
	Written int // samples accepted into the channel
	Dropped int // samples rejected because the channel was full
}

// Overflowed reports whether any sample of the call was dropped.
func (r WriteResult) Overflowed() bool {
	return r.Dropped > 0
}

// Channel is a fixed-capacity single-producer/single-consumer ring of samples.
// The write cursor never runs more than capacity ahead of the read cursor.
type Channel struct {
	buf      []float32
	capacity uint64

	write atomic.Uint64 // advanced by the producer only
	read  atomic.Uint64 // advanced by the consumer only

	overflows atomic.Uint64 // number of Write calls that dropped samples
	dropped   atomic.Uint64 // total samples dropped
}

// New creates an empty channel holding at most capacity samples.
func New(capacity int) (*Channel, error) {
	if capacity <= 0 {
		return nil, errors.Wrapf(ErrInvalidCapacity, "got %d", capacity)
	}
	return &Channel{
		buf:      make([]float32, capacity),
		capacity: uint64(capacity),
	}, nil
}

// LatencySamples returns how many interleaved samples cover latency at the
// given rate and channel count.
func LatencySamples(latency time.Duration, sampleRate float64, channels int) int {
	frames := int(latency.Seconds() * sampleRate)
	return frames * channels
}

// CapacityFor sizes a channel at twice the latency so jitter between the
// callback and the render loop does not overflow it.
func CapacityFor(latency time.Duration, sampleRate float64, channels int) int {
	return LatencySamples(latency, sampleRate, channels) * 2
}

// NewLatencyChannel creates a channel sized by CapacityFor and pre-filled with
// one latency worth of silence, so the visual lag is fixed from the first frame.
func NewLatencyChannel(latency time.Duration, sampleRate float64, channels int) (*Channel, error) {
	capacity := CapacityFor(latency, sampleRate, channels)
	c, err := New(capacity)
	if err != nil {
		return nil, errors.Wrapf(err, "latency %s at %.0f Hz x %d channels", latency, sampleRate, channels)
	}

	// Capacity is twice the pre-fill, this cannot overflow.
	c.Prefill(capacity / 2)

	applog.Debugf("Ring: channel capacity %d samples, pre-filled %d samples of silence", capacity, capacity/2)
	return c, nil
}

// Prefill writes n samples of silence. It is a producer-side operation.
func (c *Channel) Prefill(n int) WriteResult {
	var res WriteResult
	w := c.write.Load()
	r := c.read.Load()
	free := c.capacity - (w - r)

	for i := 0; i < n; i++ {
		if uint64(res.Written) == free {
			res.Dropped = n - res.Written
			break
		}
		c.buf[(w+uint64(res.Written))%c.capacity] = 0
		res.Written++
	}

	c.write.Store(w + uint64(res.Written))
	return res
}

// Write appends samples without blocking. Samples that do not fit are dropped
// and the whole call is flagged as overflowed.
func (c *Channel) Write(samples []float32) WriteResult {
	w := c.write.Load()
	r := c.read.Load()
	free := c.capacity - (w - r)

	n := uint64(len(samples))
	if n > free {
		n = free
	}

	for i := uint64(0); i < n; i++ {
		c.buf[(w+i)%c.capacity] = samples[i]
	}
	c.write.Store(w + n)

	res := WriteResult{Written: int(n), Dropped: len(samples) - int(n)}
	if res.Overflowed() {
		c.overflows.Add(1)
		c.dropped.Add(uint64(res.Dropped))
		applog.Warnf("Ring: capture fell behind the render loop, dropped %d samples: try increasing latency", res.Dropped)
	}
	return res
}

// Drain removes and returns every buffered sample, possibly none.
func (c *Channel) Drain() []float32 {
	return c.DrainInto(nil)
}

// DrainInto is Drain reusing dst's storage. The result replaces dst's contents.
func (c *Channel) DrainInto(dst []float32) []float32 {
	r := c.read.Load()
	w := c.write.Load()
	n := int(w - r)

	dst = dst[:0]
	if n == 0 {
		return dst
	}
	if cap(dst) < n {
		dst = make([]float32, 0, n)
	}

	start := int(r % c.capacity)
	end := start + n
	if end <= int(c.capacity) {
		dst = append(dst, c.buf[start:end]...)
	} else {
		dst = append(dst, c.buf[start:]...)
		dst = append(dst, c.buf[:end-int(c.capacity)]...)
	}

	c.read.Store(w)
	return dst
}

// Len returns the number of buffered samples.
func (c *Channel) Len() int {
	return int(c.write.Load() - c.read.Load())
}

// Cap returns the channel capacity in samples.
func (c *Channel) Cap() int {
	return int(c.capacity)
}

// Overflows returns how many Write calls have dropped samples.
func (c *Channel) Overflows() uint64 {
	return c.overflows.Load()
}

// Dropped returns the total number of samples dropped on overflow.
func (c *Channel) Dropped() uint64 {
	return c.dropped.Load()
}
