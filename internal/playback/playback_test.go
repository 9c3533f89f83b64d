// SPDX-License-Identifier: MIT
package playback

import (
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	applog "termviz/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gopxl/beep/v2"
)

func TestMain(m *testing.M) {
	applog.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func writeTestWAV(t *testing.T, path string, rate, channels, bitDepth int, data []int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, rate, bitDepth, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
}

func TestDecodeWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	// Two stereo frames at 16 bits.
	writeTestWAV(t, path, 8000, 2, 16, []int{16384, -16384, 32767, -32768})

	track, err := Decode(path)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if track.SampleRate != 8000 || track.Channels != 2 {
		t.Fatalf("format = %d Hz / %d ch, want 8000 Hz / 2 ch", track.SampleRate, track.Channels)
	}
	if track.Frames() != 2 {
		t.Fatalf("Frames() = %d, want 2", track.Frames())
	}

	want := []float32{0.5, -0.5, 32767.0 / 32768, -1}
	for i, w := range want {
		if math.Abs(float64(track.Samples[i]-w)) > 1e-6 {
			t.Errorf("sample %d = %v, want %v", i, track.Samples[i], w)
		}
	}
}

func TestDecodeUnsupported(t *testing.T) {
	dir := t.TempDir()

	if _, err := Decode(filepath.Join(dir, "song.flac")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("flac error = %v, want ErrUnsupportedFormat", err)
	}

	fake := filepath.Join(dir, "fake.wav")
	if err := os.WriteFile(fake, []byte("definitely not riff data"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Decode(fake); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("garbage wav error = %v, want ErrUnsupportedFormat", err)
	}

	if _, err := Decode(filepath.Join(dir, "missing.mp3")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing mp3 error = %v, want os.ErrNotExist", err)
	}
}

func TestTrackDurationAndSlice(t *testing.T) {
	track := &Track{SampleRate: 1000, Channels: 2, Samples: make([]float32, 2*1500)}
	for i := range track.Samples {
		track.Samples[i] = float32(i)
	}

	if d := track.Duration(); d != 1500*time.Millisecond {
		t.Errorf("Duration() = %s, want 1.5s", d)
	}

	tests := []struct {
		name     string
		from, to time.Duration
		wantLen  int
	}{
		{"inside", 250 * time.Millisecond, 500 * time.Millisecond, 250 * 2},
		{"negative start", -time.Second, 250 * time.Millisecond, 250 * 2},
		{"runs past end", time.Second, 2 * time.Second, 500 * 2},
		{"after end", 2 * time.Second, 3 * time.Second, 0},
		{"inverted", 500 * time.Millisecond, 250 * time.Millisecond, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := track.Slice(tt.from, tt.to)
			if len(got) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(got), tt.wantLen)
			}
			if len(got)%track.Channels != 0 {
				t.Errorf("slice of %d samples splits a frame", len(got))
			}
		})
	}
}

func TestTrackZeroValues(t *testing.T) {
	var track Track
	if track.Frames() != 0 || track.Duration() != 0 {
		t.Errorf("zero Track should report no frames and no duration")
	}
}

func TestTrackStreamer(t *testing.T) {
	mono := &Track{SampleRate: 1000, Channels: 1, Samples: []float32{0.1, 0.2, 0.3}}
	s := newTrackStreamer(mono)

	buf := make([][2]float64, 2)
	n, ok := s.Stream(buf)
	if n != 2 || !ok {
		t.Fatalf("first Stream = (%d, %v), want (2, true)", n, ok)
	}
	if buf[1][0] != buf[1][1] || float32(buf[1][0]) != 0.2 {
		t.Errorf("mono frame should be copied to both sides, got %v", buf[1])
	}

	n, ok = s.Stream(buf)
	if n != 1 || !ok {
		t.Fatalf("second Stream = (%d, %v), want (1, true)", n, ok)
	}
	if n, ok = s.Stream(buf); n != 0 || ok {
		t.Errorf("drained Stream = (%d, %v), want (0, false)", n, ok)
	}
	if s.Err() != nil {
		t.Errorf("Err() = %v", s.Err())
	}
}

type fakeSpeaker struct {
	rate    beep.SampleRate
	played  int
	cleared bool
	closed  bool
	initErr error
}

func (f *fakeSpeaker) install(t *testing.T) {
	t.Helper()
	oldInit, oldPlay, oldClear, oldClose := speakerInit, speakerPlay, speakerClear, speakerClose
	oldDelay := drainDelay
	t.Cleanup(func() {
		speakerInit, speakerPlay, speakerClear, speakerClose = oldInit, oldPlay, oldClear, oldClose
		drainDelay = oldDelay
	})

	speakerInit = func(sr beep.SampleRate, bufferSize int) error {
		f.rate = sr
		return f.initErr
	}
	speakerPlay = func(s ...beep.Streamer) {
		// Pull the whole track synchronously, as the device would.
		buf := make([][2]float64, 512)
		for _, st := range s {
			for {
				n, ok := st.Stream(buf)
				f.played += n
				if !ok {
					break
				}
			}
		}
	}
	speakerClear = func() { f.cleared = true }
	speakerClose = func() { f.closed = true }
}

func TestPlayerLifecycle(t *testing.T) {
	spk := &fakeSpeaker{}
	spk.install(t)

	track := &Track{SampleRate: 44100, Channels: 2, Samples: make([]float32, 2*2000)}
	p := NewPlayer(track)

	if p.Elapsed() != 0 {
		t.Errorf("Elapsed before Start = %s, want 0", p.Elapsed())
	}
	if err := p.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if spk.rate != 44100 {
		t.Errorf("speaker opened at %d Hz, want 44100", spk.rate)
	}
	if spk.played != 2000 {
		t.Errorf("speaker received %d frames, want 2000", spk.played)
	}

	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("Done was not closed at end of track")
	}

	p.Close()
	if !spk.cleared || !spk.closed {
		t.Error("Close should clear and close the speaker")
	}
}

func TestPlayerDoneWaitsForBufferToPlay(t *testing.T) {
	spk := &fakeSpeaker{}
	spk.install(t)
	drainDelay = 300 * time.Millisecond

	p := NewPlayer(&Track{SampleRate: 8000, Channels: 1, Samples: make([]float32, 800)})
	if err := p.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if spk.played != 800 {
		t.Fatalf("speaker received %d frames, want 800", spk.played)
	}

	// The whole track is in the speaker, but its last buffer is still playing.
	select {
	case <-p.Done():
		t.Fatal("Done closed before the speaker buffer played out")
	default:
	}

	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Done was not closed after the speaker buffer played out")
	}
	if spk.cleared {
		t.Error("speaker cleared before Close")
	}
	p.Close()
}

func TestPlayerStartError(t *testing.T) {
	spk := &fakeSpeaker{initErr: errors.New("no output device")}
	spk.install(t)

	p := NewPlayer(&Track{SampleRate: 8000, Channels: 1, Samples: []float32{0}})
	if err := p.Start(); err == nil {
		t.Fatal("expected error when speaker init fails")
	}
	if p.Elapsed() != 0 {
		t.Error("clock must not start when output fails to open")
	}
}

func TestWallClock(t *testing.T) {
	base := time.Unix(1000, 0)
	now := base
	c := &WallClock{now: func() time.Time { return now }}

	if c.Elapsed() != 0 {
		t.Errorf("unstarted clock = %s, want 0", c.Elapsed())
	}
	c.Start()
	now = base.Add(1500 * time.Millisecond)
	if c.Elapsed() != 1500*time.Millisecond {
		t.Errorf("Elapsed = %s, want 1.5s", c.Elapsed())
	}
}
