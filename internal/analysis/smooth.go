// SPDX-License-Identifier: MIT
package analysis

// easeDivisor sets the step toward the target: one tenth of the gap per frame.
const easeDivisor = 10

// Smooth eases each band of previous toward raw by a truncated tenth of the
// gap. Integer truncation means a gap smaller than easeDivisor never closes;
// the displayed value stalls short of the target until the target moves.
// With no usable previous vector (first frame, or a band count change) the
// raw vector is returned as-is.
func Smooth(raw, previous BandVector) BandVector {
	out := raw.Clone()
	if previous == nil || len(previous) != len(raw) {
		return out
	}

	for i := range out {
		switch {
		case raw[i] < previous[i]:
			out[i] = previous[i] - (previous[i]-raw[i])/easeDivisor
		case raw[i] > previous[i]:
			out[i] = previous[i] + (raw[i]-previous[i])/easeDivisor
		default:
			out[i] = previous[i]
		}
	}
	return out
}
