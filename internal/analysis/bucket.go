// SPDX-License-Identifier: MIT
package analysis

import (
	"cmp"
	"slices"

	"github.com/pkg/errors"
)

// Defaults for the band layout: twenty 1 kHz bands up to 20 kHz.
const (
	DefaultBands        = 20
	DefaultMaxFrequency = 20000.0
	DefaultFloor        = 30  // value of a band no bin fell into
	DefaultScale        = 100 // volume to amplitude units
)

// BandVector holds one amplitude per frequency band.
type BandVector []uint64

// Clone returns an independent copy of v.
func (v BandVector) Clone() BandVector {
	if v == nil {
		return nil
	}
	out := make(BandVector, len(v))
	copy(out, v)
	return out
}

// MinMax returns the smallest and largest amplitude in v, or zeros when v is empty.
func (v BandVector) MinMax() (lo, hi uint64) {
	if len(v) == 0 {
		return 0, 0
	}
	return slices.Min(v), slices.Max(v)
}

// BucketConfig describes how the frequency range is split into bands.
type BucketConfig struct {
	Bands        int     // number of equal-width bands
	MaxFrequency float64 // upper bound (exclusive) of the covered range, Hz
	Floor        uint64  // value of an empty band
	Scale        float64 // multiplier from bin volume to amplitude units
}

// DefaultBucketConfig returns the standard band layout.
func DefaultBucketConfig() BucketConfig {
	return BucketConfig{
		Bands:        DefaultBands,
		MaxFrequency: DefaultMaxFrequency,
		Floor:        DefaultFloor,
		Scale:        DefaultScale,
	}
}

// Bucketer maps a sample window into a fixed-length BandVector.
type Bucketer struct {
	cfg       BucketConfig
	width     float64
	transform Transform
}

// NewBucketer validates cfg and binds it to a transform.
func NewBucketer(cfg BucketConfig, transform Transform) (*Bucketer, error) {
	if transform == nil {
		return nil, errors.New("bucketer requires a transform")
	}
	if cfg.Bands < 1 {
		return nil, errors.Errorf("band count must be at least 1, got %d", cfg.Bands)
	}
	if cfg.MaxFrequency <= 0 {
		return nil, errors.Errorf("max frequency must be positive, got %f", cfg.MaxFrequency)
	}
	if cfg.Scale <= 0 {
		return nil, errors.Errorf("scale must be positive, got %f", cfg.Scale)
	}
	return &Bucketer{
		cfg:       cfg,
		width:     cfg.MaxFrequency / float64(cfg.Bands),
		transform: transform,
	}, nil
}

// Bands returns the length of every vector this bucketer produces.
func (b *Bucketer) Bands() int {
	return b.cfg.Bands
}

// Bucket measures window into a raw BandVector. When the window is empty, or
// the transform yields no bins, the previous vector is held (a zero vector if
// there is none yet) and measured is false.
func (b *Bucketer) Bucket(window []float32, previous BandVector) (bands BandVector, measured bool) {
	if len(window) == 0 {
		return b.hold(previous), false
	}

	bins := b.transform.Bins(window)
	if len(bins) == 0 {
		return b.hold(previous), false
	}

	slices.SortFunc(bins, func(x, y Bin) int {
		return cmp.Compare(x.Frequency, y.Frequency)
	})

	bands = make(BandVector, b.cfg.Bands)
	idx := 0
	for i := range bands {
		lo := float64(i) * b.width
		hi := float64(i+1) * b.width
		if i == len(bands)-1 {
			hi = b.cfg.MaxFrequency
		}

		var sum uint64
		count := 0
		for ; idx < len(bins) && bins[idx].Frequency < hi; idx++ {
			if bins[idx].Frequency < lo {
				continue
			}
			if v := bins[idx].Volume * b.cfg.Scale; v > 0 {
				sum += uint64(v)
			}
			count++
		}

		if count == 0 {
			bands[i] = b.cfg.Floor
		} else {
			bands[i] = sum
		}
	}

	return bands, true
}

func (b *Bucketer) hold(previous BandVector) BandVector {
	if previous == nil {
		return make(BandVector, b.cfg.Bands)
	}
	return previous.Clone()
}
