// SPDX-License-Identifier: MIT
package audio

import (
	stderrors "errors"
	"math"
	"os"

	applog "termviz/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"
)

// ErrAlreadyRecording is returned by StartRecording while a take is running.
var ErrAlreadyRecording = errors.New("already recording")

// StartRecording begins appending captured input to a WAV file.
func (e *Engine) StartRecording(filename string) error {
	e.recMu.Lock()
	defer e.recMu.Unlock()

	if e.isRecording.Load() {
		return ErrAlreadyRecording
	}

	switch e.cfg.BitDepth {
	case 16, 24, 32:
	default:
		return errors.Errorf("unsupported recording bit depth %d", e.cfg.BitDepth)
	}

	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "failed to create recording file")
	}
	e.outputFile = file

	e.wavEncoder = wav.NewEncoder(file, int(e.cfg.SampleRate),
		e.cfg.BitDepth, e.cfg.Channels, 1)

	e.sampleBuf = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: e.cfg.Channels,
			SampleRate:  int(e.cfg.SampleRate),
		},
		Data:           make([]int, e.cfg.FramesPerBuffer*e.cfg.Channels),
		SourceBitDepth: e.cfg.BitDepth,
	}
	e.sampleMax = float64(int64(1)<<(e.cfg.BitDepth-1) - 1)
	e.recDropped.Store(0)

	e.isRecording.Store(true)
	applog.Infof("Audio: recording to %s (%d-bit)", filename, e.cfg.BitDepth)

	return nil
}

// recordBuffer runs on the callback. It skips the buffer rather than wait
// if StopRecording holds the encoder.
func (e *Engine) recordBuffer(buffer []float32) {
	if !e.isRecording.Load() {
		return
	}
	if !e.recMu.TryLock() {
		e.recDropped.Add(1)
		return
	}
	defer e.recMu.Unlock()

	if e.wavEncoder == nil {
		return
	}

	if cap(e.sampleBuf.Data) < len(buffer) {
		e.sampleBuf.Data = make([]int, len(buffer))
	}
	e.sampleBuf.Data = e.sampleBuf.Data[:len(buffer)]
	for i, s := range buffer {
		v := math.Max(-1, math.Min(1, float64(s)))
		e.sampleBuf.Data[i] = int(math.Round(v * e.sampleMax))
	}

	if err := e.wavEncoder.Write(e.sampleBuf); err != nil {
		applog.Errorf("Audio: error writing to WAV file: %v", err)
	}
}

// StopRecording finalises the WAV header and closes the file.
func (e *Engine) StopRecording() error {
	if !e.isRecording.Load() {
		return nil
	}

	e.isRecording.Store(false)

	e.recMu.Lock()
	defer e.recMu.Unlock()

	var errs []error
	if e.wavEncoder != nil {
		if err := e.wavEncoder.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "failed to finalise WAV file"))
		}
		e.wavEncoder = nil
	}

	// The file is closed even when the header could not be finalised.
	if e.outputFile != nil {
		if err := e.outputFile.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "failed to close recording file"))
		}
		e.outputFile = nil
	}

	if n := e.recDropped.Load(); n > 0 {
		applog.Warnf("Audio: %d buffers were not recorded while the file was busy", n)
	}
	return stderrors.Join(errs...)
}

// IsRecording reports whether a take is running.
func (e *Engine) IsRecording() bool {
	return e.isRecording.Load()
}
