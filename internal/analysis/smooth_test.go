// SPDX-License-Identifier: MIT
package analysis

import (
	"math/rand"
	"slices"
	"testing"
)

func TestSmoothFixedPoint(t *testing.T) {
	v := BandVector{0, 1, 30, 1000, 123456}
	if got := Smooth(v, v); !slices.Equal(got, v) {
		t.Errorf("Smooth(v, v) = %v, want %v", got, v)
	}
}

func TestSmoothStepSequence(t *testing.T) {
	raw := BandVector{100}
	displayed := BandVector{0}

	want := []uint64{10, 19, 27, 34, 40, 46, 51, 55, 59, 63}
	for i, w := range want {
		displayed = Smooth(raw, displayed)
		if displayed[0] != w {
			t.Fatalf("frame %d: got %d, want %d", i+1, displayed[0], w)
		}
	}
}

func TestSmoothStallsUnderTruncation(t *testing.T) {
	tests := []struct {
		name      string
		raw, from uint64
		stall     uint64
	}{
		// A gap below ten truncates to a zero step.
		{"rising", 100, 0, 91},
		{"falling", 0, 100, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			displayed := BandVector{tt.from}
			for range 500 {
				displayed = Smooth(BandVector{tt.raw}, displayed)
			}
			if displayed[0] != tt.stall {
				t.Errorf("settled at %d, want %d", displayed[0], tt.stall)
			}
		})
	}
}

func TestSmoothFalling(t *testing.T) {
	got := Smooth(BandVector{0, 50}, BandVector{100, 80})
	want := BandVector{90, 77}
	if !slices.Equal(got, want) {
		t.Errorf("Smooth() = %v, want %v", got, want)
	}
}

func TestSmoothNoOvershoot(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for range 1000 {
		n := 1 + rng.Intn(32)
		raw := make(BandVector, n)
		previous := make(BandVector, n)
		for i := range n {
			raw[i] = uint64(rng.Intn(100000))
			previous[i] = uint64(rng.Intn(100000))
		}

		out := Smooth(raw, previous)
		for i := range out {
			lo, hi := min(raw[i], previous[i]), max(raw[i], previous[i])
			if out[i] < lo || out[i] > hi {
				t.Fatalf("band %d: %d outside [%d, %d] (raw=%d previous=%d)",
					i, out[i], lo, hi, raw[i], previous[i])
			}
		}
	}
}

func TestSmoothWithoutPrevious(t *testing.T) {
	raw := BandVector{100, 200}
	got := Smooth(raw, nil)
	if !slices.Equal(got, raw) {
		t.Errorf("Smooth(raw, nil) = %v, want raw", got)
	}
	got[0] = 0
	if raw[0] != 100 {
		t.Error("Smooth result aliases raw")
	}
}

func TestSmoothBandCountChange(t *testing.T) {
	raw := BandVector{100, 200, 300}
	if got := Smooth(raw, BandVector{1, 2}); !slices.Equal(got, raw) {
		t.Errorf("Smooth() with mismatched lengths = %v, want raw", got)
	}
}
