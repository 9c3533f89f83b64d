// SPDX-License-Identifier: MIT
/*
Package playback decodes sound files fully into memory and plays them back.

The render loop never reads from the player; it slices windows straight out
of the decoded Track, keyed by the same wall clock the player starts when
output begins.
*/
package playback

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "termviz/internal/log"

	"github.com/go-audio/wav"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/pkg/errors"
)

// ErrUnsupportedFormat is returned for files that are neither WAV nor MP3.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Track is a fully decoded sound file.
type Track struct {
	Samples    []float32 // interleaved, normalised to [-1, 1]
	SampleRate int       // frames per second
	Channels   int
}

// Frames returns the number of sample frames in the track.
func (t *Track) Frames() int {
	if t.Channels <= 0 {
		return 0
	}
	return len(t.Samples) / t.Channels
}

// Duration returns the playing time of the track.
func (t *Track) Duration() time.Duration {
	if t.SampleRate <= 0 {
		return 0
	}
	return time.Duration(t.Frames()) * time.Second / time.Duration(t.SampleRate)
}

// frameAt converts a time offset to a frame index clamped to the track.
func (t *Track) frameAt(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	f := int(d.Seconds() * float64(t.SampleRate))
	return min(f, t.Frames())
}

// Slice returns the interleaved samples between from and to. Both bounds are
// clamped to the track; the result is empty when from >= to after clamping.
func (t *Track) Slice(from, to time.Duration) []float32 {
	lo, hi := t.frameAt(from), t.frameAt(to)
	if lo >= hi {
		return nil
	}
	return t.Samples[lo*t.Channels : hi*t.Channels]
}

// Decode reads an entire WAV or MP3 file into memory.
func Decode(path string) (*Track, error) {
	var (
		track *Track
		err   error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		track, err = decodeWAV(path)
	case ".mp3":
		track, err = decodeMP3(path)
	default:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "%s", path)
	}
	if err != nil {
		return nil, err
	}

	applog.Infof("Playback: decoded %s (%d Hz, %d channels, %s)",
		filepath.Base(path), track.SampleRate, track.Channels, track.Duration().Round(time.Millisecond))
	return track, nil
}

func decodeWAV(path string) (*Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open audio file")
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "%s is not a valid WAV file", path)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode WAV data")
	}

	bitDepth := int(d.BitDepth)
	if bitDepth < 8 || bitDepth > 32 {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "%d-bit WAV", bitDepth)
	}

	// 8-bit PCM is unsigned, everything wider is signed.
	var offset int
	if bitDepth == 8 {
		offset = 128
	}
	scale := 1 / float64(int64(1)<<(bitDepth-1))

	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(float64(v-offset) * scale)
	}

	return &Track{
		Samples:    samples,
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
	}, nil
}

func decodeMP3(path string) (*Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open audio file")
	}

	// The decoder owns f from here and closes it with the streamer.
	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "failed to decode MP3")
	}
	defer streamer.Close()

	channels := format.NumChannels
	if channels < 1 || channels > 2 {
		channels = 2
	}

	samples := make([]float32, 0, streamer.Len()*channels)
	buf := make([][2]float64, 4096)
	for {
		n, ok := streamer.Stream(buf)
		for _, frame := range buf[:n] {
			for ch := range channels {
				samples = append(samples, float32(frame[ch]))
			}
		}
		if !ok {
			break
		}
	}
	if err := streamer.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to decode MP3")
	}

	return &Track{
		Samples:    samples,
		SampleRate: int(format.SampleRate),
		Channels:   channels,
	}, nil
}
