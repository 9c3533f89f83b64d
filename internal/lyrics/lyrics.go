// SPDX-License-Identifier: MIT
//
// Package lyrics parses timestamped lyric files and finds the line that is
// current at a given playback time.
//
// A lyric file must contain the literal marker [00:00.00]. Every line after
// the marker's line that has the form [mm:ss.xx]text becomes one entry.
package lyrics

import (
	"os"
	"strconv"
	"strings"
	"time"

	applog "termviz/internal/log"

	"github.com/pkg/errors"
)

// Marker is the line prefix every lyric file must contain.
const Marker = "[00:00.00]"

// Errors returned while loading a lyric file. Both are fatal at startup.
var (
	ErrMissingMarker = errors.New("lyric marker " + Marker + " not found")
	ErrBadTimestamp  = errors.New("invalid lyric timestamp")
)

// Entry is one lyric line. Stamp is kept as written; it is only parsed when
// looked up, so a malformed stamp costs that one entry and nothing else.
type Entry struct {
	Stamp string
	Text  string
}

// Table is an ordered lyric table, immutable once parsed.
type Table []Entry

// Load reads and parses the lyric file at path.
func Load(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read lyric file")
	}

	table, err := Parse(string(data))
	if err != nil {
		return nil, errors.Wrapf(err, "lyric file %s", path)
	}

	applog.Infof("Lyrics: loaded %d entries from %s", len(table), path)
	return table, nil
}

// Parse builds a Table from the full text of a lyric file.
func Parse(contents string) (Table, error) {
	start := strings.Index(contents, Marker)
	if start < 0 {
		return nil, ErrMissingMarker
	}

	// The rest of the marker's own line is header, never a lyric.
	lines := strings.Split(contents[start+len(Marker):], "\n")[1:]

	var table Table
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		stamp, text, ok := strings.Cut(line, "]")
		if !ok {
			continue
		}
		table = append(table, Entry{
			Stamp: strings.TrimPrefix(strings.TrimSpace(stamp), "["),
			Text:  strings.TrimSpace(text),
		})
	}
	return table, nil
}

// ParseTimestamp converts "mm:ss.xx" into a duration. Minutes and seconds
// must be numeric and exactly one '.' must follow the seconds. A fraction of one to three
// digits is kept; any other fraction counts as zero.
func ParseTimestamp(stamp string) (time.Duration, error) {
	minStr, secStr, ok := strings.Cut(stamp, ":")
	if !ok {
		return 0, errors.Wrapf(ErrBadTimestamp, "%q: missing ':'", stamp)
	}
	wholeStr, fracStr, ok := strings.Cut(secStr, ".")
	if !ok || strings.Contains(fracStr, ".") {
		return 0, errors.Wrapf(ErrBadTimestamp, "%q: want one '.' after the seconds", stamp)
	}

	minutes, err := strconv.ParseUint(minStr, 10, 32)
	if err != nil {
		return 0, errors.Wrapf(ErrBadTimestamp, "%q: minutes", stamp)
	}
	seconds, err := strconv.ParseUint(wholeStr, 10, 32)
	if err != nil {
		return 0, errors.Wrapf(ErrBadTimestamp, "%q: seconds", stamp)
	}

	d := time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second
	if fracStr == "" || len(fracStr) > 3 {
		return d, nil
	}
	frac, err := strconv.ParseUint(fracStr, 10, 32)
	if err != nil {
		return d, nil
	}
	for range 3 - len(fracStr) {
		frac *= 10
	}
	return d + time.Duration(frac)*time.Millisecond, nil
}

// At returns the text of the last entry whose timestamp is at or before t.
// Entries with malformed timestamps are skipped. ok is false when no entry
// qualifies.
func (tb Table) At(t time.Duration) (text string, ok bool) {
	for _, e := range tb {
		at, err := ParseTimestamp(e.Stamp)
		if err != nil {
			continue
		}
		if at <= t {
			text, ok = e.Text, true
		}
	}
	return text, ok
}
