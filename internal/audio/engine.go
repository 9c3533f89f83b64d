// SPDX-License-Identifier: MIT
/*
Package audio captures live input through PortAudio and pushes it into the
sample channel the render loop drains.

The PortAudio callback is the single producer:
- copies the device buffer into a pre-allocated slice
- silences it when the optional noise gate is closed
- appends it to a WAV recording when one is running
- writes it to the ring without blocking

Thread Safety:
- Gate and recording state are atomics so the callback never takes a lock it
  could wait on
- Buffers are pre-allocated to keep the callback free of allocations
*/
package audio

import (
	stderrors "errors"
	"os"
	"sync"
	"sync/atomic"
	"time"

	applog "termviz/internal/log"
	"termviz/internal/ring"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"
	"github.com/pkg/errors"
)

// stream is the part of *portaudio.Stream the engine drives.
type stream interface {
	Start() error
	Stop() error
	Close() error
}

var paOpenStream = func(p portaudio.StreamParameters, callback func(in []float32)) (stream, error) {
	return portaudio.OpenStream(p, callback)
}

// CaptureConfig selects the device and stream shape.
type CaptureConfig struct {
	DeviceID        int
	SampleRate      float64 // 0 uses the device default
	Channels        int
	FramesPerBuffer int
	LowLatency      bool
	Latency         time.Duration // sizes the sample channel
	BitDepth        int           // recordings only
}

// Engine owns the input stream and the sample channel it feeds.
type Engine struct {
	cfg CaptureConfig

	inputBuffer  []float32
	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  stream

	out *ring.Channel

	// Noise gate for signal conditioning.
	gateEnabled   atomic.Bool
	gateThreshold atomic.Uint32 // float32 bits, 0.0-1.0 of full scale

	// Recording state. recMu guards the encoder; the callback only TryLocks it.
	isRecording atomic.Bool
	recMu       sync.Mutex
	outputFile  *os.File
	wavEncoder  *wav.Encoder
	sampleBuf   *audio.IntBuffer
	sampleMax   float64
	recDropped  atomic.Uint64
}

// NewEngine resolves the input device and builds the latency-sized channel.
// Device and stream problems surface here or in StartInputStream, before any
// frame is drawn.
func NewEngine(cfg CaptureConfig) (*Engine, error) {
	device, err := InputDevice(cfg.DeviceID)
	if err != nil {
		return nil, err
	}

	if cfg.SampleRate <= 0 {
		cfg.SampleRate = device.DefaultSampleRate
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.Channels > device.MaxInputChannels {
		applog.Warnf("Audio: %s has %d input channels, capturing %d instead of %d",
			device.Name, device.MaxInputChannels, device.MaxInputChannels, cfg.Channels)
		cfg.Channels = device.MaxInputChannels
	}
	if cfg.BitDepth == 0 {
		cfg.BitDepth = 16
	}

	out, err := ring.NewLatencyChannel(cfg.Latency, cfg.SampleRate, cfg.Channels)
	if err != nil {
		return nil, errors.Wrap(err, "failed to size sample channel")
	}

	e := &Engine{
		cfg:         cfg,
		inputBuffer: make([]float32, cfg.FramesPerBuffer*cfg.Channels),
		inputDevice: device,
		out:         out,
	}

	if cfg.LowLatency {
		e.inputLatency = device.DefaultLowInputLatency
	} else {
		e.inputLatency = device.DefaultHighInputLatency
	}

	applog.Infof("Audio: using %q at %.0f Hz, %d channels, channel capacity %d samples",
		device.Name, cfg.SampleRate, cfg.Channels, out.Cap())
	return e, nil
}

// Channel returns the ring the callback writes into.
func (e *Engine) Channel() *ring.Channel {
	return e.out
}

// SampleRate returns the rate the stream runs at.
func (e *Engine) SampleRate() float64 {
	return e.cfg.SampleRate
}

// Channels returns the number of interleaved channels captured.
func (e *Engine) Channels() int {
	return e.cfg.Channels
}

// DeviceName returns the name of the capture device.
func (e *Engine) DeviceName() string {
	return e.inputDevice.Name
}

// StartInputStream opens the device and begins capture.
func (e *Engine) StartInputStream() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: e.cfg.Channels,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: e.cfg.FramesPerBuffer,
		SampleRate:      e.cfg.SampleRate,
	}

	s, err := paOpenStream(params, e.processInputStream)
	if err != nil {
		return errors.Wrapf(err, "failed to open input stream on %q", e.inputDevice.Name)
	}
	e.inputStream = s

	if err := e.inputStream.Start(); err != nil {
		e.inputStream.Close()
		e.inputStream = nil
		return errors.Wrap(err, "failed to start input stream")
	}

	return nil
}

// StopInputStream stops and closes the stream. Safe to call more than once.
func (e *Engine) StopInputStream() error {
	if e.inputStream == nil {
		return nil
	}

	var errs []error
	if err := e.inputStream.Stop(); err != nil {
		errs = append(errs, errors.Wrap(err, "failed to stop input stream"))
	}

	// A stream that failed to stop is still closed.
	if err := e.inputStream.Close(); err != nil {
		errs = append(errs, errors.Wrap(err, "failed to close input stream"))
	}

	e.inputStream = nil
	return stderrors.Join(errs...)
}

// processInputStream is the PortAudio callback.
// Performance Critical:
// - Uses pre-allocated buffers only
// - Never blocks: the ring drops newest on overflow
func (e *Engine) processInputStream(in []float32) {
	if len(in) > cap(e.inputBuffer) {
		// PortAudio chose a larger buffer than requested.
		e.inputBuffer = make([]float32, len(in))
	}
	buf := e.inputBuffer[:len(in)]
	copy(buf, in)

	e.processBuffer(buf)
	e.recordBuffer(buf)
	e.out.Write(buf)
}

// processBuffer applies the noise gate in place.
func (e *Engine) processBuffer(buffer []float32) {
	if !e.gateEnabled.Load() {
		return
	}

	threshold := e.threshold()
	var peak float32
	for _, s := range buffer {
		if s < 0 {
			s = -s
		}
		peak = max(peak, s)
	}
	if peak < threshold {
		clear(buffer)
	}
}

// Close stops any recording and the input stream. Both are always attempted.
func (e *Engine) Close() error {
	var recErr error
	if e.isRecording.Load() {
		recErr = e.StopRecording()
	}

	return stderrors.Join(recErr, e.StopInputStream())
}
