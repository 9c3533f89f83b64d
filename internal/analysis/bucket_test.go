// SPDX-License-Identifier: MIT
package analysis

import (
	"slices"
	"testing"
)

// stubTransform returns a fixed set of bins, deliberately out of order.
type stubTransform struct {
	bins  []Bin
	calls int
}

func (s *stubTransform) Bins([]float32) []Bin {
	s.calls++
	out := make([]Bin, len(s.bins))
	copy(out, s.bins)
	slices.Reverse(out)
	return out
}

func newTestBucketer(t *testing.T, cfg BucketConfig, tr Transform) *Bucketer {
	t.Helper()
	b, err := NewBucketer(cfg, tr)
	if err != nil {
		t.Fatalf("NewBucketer error: %v", err)
	}
	return b
}

var smallConfig = BucketConfig{Bands: 4, MaxFrequency: 400, Floor: 7, Scale: 100}

func TestBucketBoundaries(t *testing.T) {
	tr := &stubTransform{bins: []Bin{
		{Frequency: 0, Volume: 0.25},
		{Frequency: 99.999, Volume: 0.5},
		{Frequency: 100, Volume: 0.125},  // first bin of band 1, not band 0
		{Frequency: 250, Volume: 0.0625}, // 6.25 truncates to 6
		{Frequency: 400, Volume: 1},      // at MaxFrequency, outside every band
		{Frequency: -5, Volume: 1},       // below the range
	}}
	b := newTestBucketer(t, smallConfig, tr)

	got, measured := b.Bucket([]float32{0.1}, nil)
	if !measured {
		t.Fatal("expected a measured vector")
	}
	want := BandVector{75, 12, 6, 7}
	if !slices.Equal(got, want) {
		t.Errorf("Bucket() = %v, want %v", got, want)
	}
}

func TestBucketSilentBinIsNotFloor(t *testing.T) {
	tr := &stubTransform{bins: []Bin{{Frequency: 350, Volume: 0}}}
	b := newTestBucketer(t, smallConfig, tr)

	got, _ := b.Bucket([]float32{0}, nil)
	want := BandVector{7, 7, 7, 0}
	if !slices.Equal(got, want) {
		t.Errorf("Bucket() = %v, want %v", got, want)
	}
}

func TestBucketEmptyWindowHoldsPrevious(t *testing.T) {
	tr := &stubTransform{bins: []Bin{{Frequency: 10, Volume: 1}}}
	b := newTestBucketer(t, smallConfig, tr)
	previous := BandVector{1, 2, 3, 4}

	for _, window := range [][]float32{nil, {}} {
		got, measured := b.Bucket(window, previous)
		if measured {
			t.Error("empty window should not be measured")
		}
		if !slices.Equal(got, previous) {
			t.Errorf("Bucket(empty) = %v, want %v", got, previous)
		}
		got[0] = 99
		if previous[0] != 1 {
			t.Fatal("held vector aliases the previous vector")
		}
	}
	if tr.calls != 0 {
		t.Errorf("transform called %d times for empty windows", tr.calls)
	}
}

func TestBucketEmptyWindowWithoutPrevious(t *testing.T) {
	b := newTestBucketer(t, smallConfig, &stubTransform{})
	got, measured := b.Bucket(nil, nil)
	if measured {
		t.Error("empty window should not be measured")
	}
	if !slices.Equal(got, BandVector{0, 0, 0, 0}) {
		t.Errorf("Bucket(nil, nil) = %v, want zero vector", got)
	}
}

func TestBucketNoBinsHoldsPrevious(t *testing.T) {
	b := newTestBucketer(t, smallConfig, &stubTransform{})
	previous := BandVector{5, 6, 7, 8}
	got, measured := b.Bucket([]float32{0.5}, previous)
	if measured || !slices.Equal(got, previous) {
		t.Errorf("Bucket() = %v (measured=%v), want held %v", got, measured, previous)
	}
}

func TestNewBucketerValidation(t *testing.T) {
	tr := &stubTransform{}
	tests := []struct {
		name string
		cfg  BucketConfig
		tr   Transform
	}{
		{"nil transform", DefaultBucketConfig(), nil},
		{"zero bands", BucketConfig{Bands: 0, MaxFrequency: 1, Scale: 1}, tr},
		{"zero max frequency", BucketConfig{Bands: 1, MaxFrequency: 0, Scale: 1}, tr},
		{"negative scale", BucketConfig{Bands: 1, MaxFrequency: 1, Scale: -1}, tr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewBucketer(tt.cfg, tt.tr); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestBandVectorMinMax(t *testing.T) {
	lo, hi := BandVector{30, 4, 99, 12}.MinMax()
	if lo != 4 || hi != 99 {
		t.Errorf("MinMax() = (%d, %d), want (4, 99)", lo, hi)
	}
	lo, hi = BandVector(nil).MinMax()
	if lo != 0 || hi != 0 {
		t.Errorf("MinMax(nil) = (%d, %d), want (0, 0)", lo, hi)
	}
}
