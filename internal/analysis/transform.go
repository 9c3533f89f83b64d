// SPDX-License-Identifier: MIT
package analysis

import (
	"math/cmplx"
	"strings"

	applog "termviz/internal/log"
	"termviz/pkg/bitint"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// Bin is one (frequency, volume) pair produced by a Transform.
type Bin struct {
	Frequency float64 // Hz
	Volume    float64 // linear amplitude, roughly [0, 1] for a normalised signal
}

// Transform turns a flat window of interleaved samples into frequency bins.
// No ordering or bin count is guaranteed; the Bucketer imposes both.
type Transform interface {
	Bins(window []float32) []Bin
}

// WindowFunc defines the type for selecting an FFT window function.
type WindowFunc int

// Enum for available window functions.
const (
	BartlettHann WindowFunc = iota
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
	Rectangular
)

var windowNames = map[WindowFunc]string{
	BartlettHann:    "BartlettHann",
	Blackman:        "Blackman",
	BlackmanNuttall: "BlackmanNuttall",
	Hann:            "Hann",
	Hamming:         "Hamming",
	Lanczos:         "Lanczos",
	Nuttall:         "Nuttall",
	Rectangular:     "Rectangular",
}

func (w WindowFunc) String() string {
	if name, ok := windowNames[w]; ok {
		return name
	}
	return "Unknown"
}

// ParseWindowFunc converts a string name (case-insensitive) to a WindowFunc
// enum, returns a known default (Hann) and an error if the name is unknown.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "bartletthann":
		return BartlettHann, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hann", "hanning", "":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	case "rectangular", "none":
		return Rectangular, nil
	default:
		return Hann, errors.Errorf("unknown FFT window function name: '%s'", name)
	}
}

// applyWindow multiplies seq in place by the selected window.
func applyWindow(seq []float64, windowType WindowFunc) {
	switch windowType {
	case BartlettHann:
		window.BartlettHann(seq)
	case Blackman:
		window.Blackman(seq)
	case BlackmanNuttall:
		window.BlackmanNuttall(seq)
	case Hann:
		window.Hann(seq)
	case Hamming:
		window.Hamming(seq)
	case Lanczos:
		window.Lanczos(seq)
	case Nuttall:
		window.Nuttall(seq)
	case Rectangular:
	default:
		window.Hann(seq)
	}
}

// TransformConfig describes the sample layout handed to an FFTTransform.
type TransformConfig struct {
	SampleRate float64    // Hz
	Channels   int        // interleaved channel count, downmixed to mono
	Window     WindowFunc // applied to the real samples before the FFT
}

// FFTTransform is the default Transform, backed by gonum's real FFT.
// Windows of any length are zero-padded to the next power of two.
// It is not safe for concurrent use; the render loop owns it.
type FFTTransform struct {
	cfg TransformConfig

	plans  map[int]*fourier.FFT // reusable plans keyed by FFT size
	input  []float64            // mono, windowed, zero-padded input
	coeffs []complex128         // FFT output, n/2+1 values
	bins   []Bin                // returned to the caller, reused each call
}

// Compile-time check for interface implementation.
var _ Transform = (*FFTTransform)(nil)

// NewFFTTransform creates a transform for the given sample layout.
func NewFFTTransform(cfg TransformConfig) (*FFTTransform, error) {
	if cfg.SampleRate <= 0 {
		return nil, errors.Errorf("sample rate must be positive, got %f", cfg.SampleRate)
	}
	if cfg.Channels < 1 {
		return nil, errors.Errorf("channel count must be at least 1, got %d", cfg.Channels)
	}

	applog.Infof("Analysis: Initializing FFTTransform (SampleRate: %.1f Hz, Channels: %d, Window: %s)",
		cfg.SampleRate, cfg.Channels, cfg.Window)

	return &FFTTransform{
		cfg:   cfg,
		plans: make(map[int]*fourier.FFT),
	}, nil
}

func (t *FFTTransform) plan(n int) *fourier.FFT {
	p, ok := t.plans[n]
	if !ok {
		p = fourier.NewFFT(n)
		t.plans[n] = p
		applog.Debugf("Analysis: new FFT plan of size %d", n)
	}
	return p
}

// Bins downmixes window to mono, applies the window function, runs the FFT
// and returns one bin per non-negative frequency. The returned slice is only
// valid until the next call.
func (t *FFTTransform) Bins(samples []float32) []Bin {
	channels := t.cfg.Channels
	frames := len(samples) / channels
	if frames == 0 {
		return nil
	}

	n := bitint.NextPowerOfTwo(max(frames, 2))
	if cap(t.input) < n {
		t.input = make([]float64, n)
		t.coeffs = make([]complex128, n/2+1)
		t.bins = make([]Bin, n/2+1)
	}
	input := t.input[:n]
	coeffs := t.coeffs[:n/2+1]
	bins := t.bins[:n/2+1]

	// --- 1. Downmix & Windowing ---
	scale := 1 / float64(channels)
	for f := range frames {
		var sum float64
		for ch := range channels {
			sum += float64(samples[f*channels+ch])
		}
		input[f] = sum * scale
	}
	applyWindow(input[:frames], t.cfg.Window)
	clear(input[frames:])

	// --- 2. FFT ---
	p := t.plan(n)
	p.Coefficients(coeffs, input)

	// --- 3. Bins ---
	norm := 2 / float64(frames)
	for i, c := range coeffs {
		bins[i] = Bin{
			Frequency: p.Freq(i) * t.cfg.SampleRate,
			Volume:    cmplx.Abs(c) * norm,
		}
	}

	return bins
}
