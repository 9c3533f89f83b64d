// SPDX-License-Identifier: MIT
package tui

import (
	"strings"

	"termviz/internal/analysis"
)

// horizontalBands caps the rows drawn in horizontal orientation.
const horizontalBands = 20

// Block elements in eighths, empty to full.
var (
	verticalBlocks   = []string{" ", "▁", "▂", "▃", "▄", "▅", "▆", "▇", "█"}
	horizontalBlocks = []string{"", "▏", "▎", "▍", "▌", "▋", "▊", "▉", "█"}
)

// eighths scales v against peak onto cells character cells, counted in
// eighths of a cell.
func eighths(v, peak uint64, cells int) int {
	if peak == 0 || cells <= 0 {
		return 0
	}
	n := int(float64(v) / float64(peak) * float64(cells*8))
	return max(0, min(n, cells*8))
}

func level(v, peak uint64) float64 {
	if peak == 0 {
		return 0
	}
	return float64(v) / float64(peak)
}

// renderVertical draws one column per band growing upwards, scaled so the
// loudest band fills the pane. Bands that do not fit the width are cut.
func renderVertical(bands analysis.BandVector, peak uint64, width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}

	visible := min(len(bands), (width+1)/2)
	if visible == 0 {
		return blankPane(width, height)
	}
	barW := max(1, (width-(visible-1))/visible)
	used := visible*barW + visible - 1

	heights := make([]int, visible)
	for i := range visible {
		heights[i] = eighths(bands[i], peak, height)
	}

	rows := make([]string, height)
	var sb strings.Builder
	for r := range height {
		sb.Reset()
		base := (height - 1 - r) * 8
		for i := range visible {
			e := max(0, min(heights[i]-base, 8))
			sb.WriteString(barStyle(level(bands[i], peak)).Render(strings.Repeat(verticalBlocks[e], barW)))
			if i < visible-1 {
				sb.WriteByte(' ')
			}
		}
		if pad := width - used; pad > 0 {
			sb.WriteString(strings.Repeat(" ", pad))
		}
		rows[r] = sb.String()
	}
	return strings.Join(rows, "\n")
}

// renderHorizontal draws one row per band growing rightwards.
func renderHorizontal(bands analysis.BandVector, peak uint64, width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}

	visible := min(len(bands), horizontalBands, height)
	rows := make([]string, 0, height)
	for i := range visible {
		e := eighths(bands[i], peak, width)
		bar := strings.Repeat("█", e/8) + horizontalBlocks[e%8]
		cells := e/8 + min(1, e%8)
		rows = append(rows, barStyle(level(bands[i], peak)).Render(bar)+strings.Repeat(" ", width-cells))
	}
	for len(rows) < height {
		rows = append(rows, strings.Repeat(" ", width))
	}
	return strings.Join(rows, "\n")
}

func blankPane(width, height int) string {
	row := strings.Repeat(" ", width)
	rows := make([]string, height)
	for i := range rows {
		rows[i] = row
	}
	return strings.Join(rows, "\n")
}
