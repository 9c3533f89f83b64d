// SPDX-License-Identifier: MIT
package tui

import (
	"strings"
	"testing"
	"time"

	"termviz/internal/analysis"
	"termviz/internal/pipeline"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type fakeStepper struct {
	frames []pipeline.Frame
	calls  int
}

func (s *fakeStepper) Step() pipeline.Frame {
	f := s.frames[min(s.calls, len(s.frames)-1)]
	s.calls++
	return f
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return model, cmd
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func testFrame() pipeline.Frame {
	return pipeline.Frame{
		Index: 3,
		Bands: analysis.BandVector{1, 5, 9, 4},
		Min:   1,
		Max:   9,
	}
}

func TestModelTickStepsPipeline(t *testing.T) {
	stepper := &fakeStepper{frames: []pipeline.Frame{testFrame()}}
	m := NewModel(stepper, Options{FrameInterval: time.Millisecond})

	m, cmd := update(t, m, tickMsg(time.Now()))
	if stepper.calls != 1 {
		t.Fatalf("Step called %d times, want 1", stepper.calls)
	}
	if cmd == nil {
		t.Fatal("tick did not schedule the next tick")
	}
	if got := m.Frame().Index; got != 3 {
		t.Errorf("Frame().Index = %d, want 3", got)
	}
}

func TestModelKeys(t *testing.T) {
	tests := []struct {
		name     string
		key      tea.KeyMsg
		start    Mode
		want     Mode
		wantQuit bool
	}{
		{"r rotates", runes("r"), Mode{}, Mode{Horizontal: true}, false},
		{"r rotates back", runes("r"), Mode{Horizontal: true}, Mode{}, false},
		{"space toggles stereo", tea.KeyMsg{Type: tea.KeySpace}, Mode{}, Mode{Stereo: true}, false},
		{"space keeps orientation", tea.KeyMsg{Type: tea.KeySpace}, Mode{Horizontal: true, Stereo: true}, Mode{Horizontal: true}, false},
		{"q quits", runes("q"), Mode{}, Mode{}, true},
		{"ctrl+c quits", tea.KeyMsg{Type: tea.KeyCtrlC}, Mode{Stereo: true}, Mode{Stereo: true}, true},
		{"other keys ignored", runes("x"), Mode{Stereo: true}, Mode{Stereo: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stepper := &fakeStepper{frames: []pipeline.Frame{testFrame()}}
			m := NewModel(stepper, Options{Mode: tt.start})

			m, cmd := update(t, m, tt.key)
			if m.Mode() != tt.want {
				t.Errorf("Mode() = %+v, want %+v", m.Mode(), tt.want)
			}
			if m.Quitting() != tt.wantQuit {
				t.Errorf("Quitting() = %v, want %v", m.Quitting(), tt.wantQuit)
			}
			if isQuit(cmd) != tt.wantQuit {
				t.Errorf("quit command = %v, want %v", isQuit(cmd), tt.wantQuit)
			}
			if stepper.calls != 0 {
				t.Errorf("key press stepped the pipeline %d times", stepper.calls)
			}
		})
	}
}

func TestModelStopsSteppingAfterQuit(t *testing.T) {
	stepper := &fakeStepper{frames: []pipeline.Frame{testFrame()}}
	m := NewModel(stepper, Options{})

	m, _ = update(t, m, runes("q"))
	m, cmd := update(t, m, tickMsg(time.Now()))
	if stepper.calls != 0 {
		t.Errorf("Step called %d times after quit", stepper.calls)
	}
	if cmd != nil {
		t.Error("tick after quit scheduled another tick")
	}
	if m.View() != "" {
		t.Errorf("View() after quit = %q, want empty", m.View())
	}
}

func TestModelPlaybackDoneQuits(t *testing.T) {
	done := make(chan struct{})
	close(done)

	m := NewModel(&fakeStepper{frames: []pipeline.Frame{testFrame()}}, Options{Done: done})
	msg := waitDone(done)()
	if _, ok := msg.(doneMsg); !ok {
		t.Fatalf("waitDone returned %T, want doneMsg", msg)
	}

	m, cmd := update(t, m, msg)
	if !m.Quitting() || !isQuit(cmd) {
		t.Error("end of playback did not quit")
	}
}

func TestViewStatusLine(t *testing.T) {
	stepper := &fakeStepper{frames: []pipeline.Frame{testFrame()}}
	m := NewModel(stepper, Options{})

	if !strings.Contains(m.View(), "waiting for audio") {
		t.Error("View() before the first tick should say it is waiting")
	}

	m, _ = update(t, m, tickMsg(time.Now()))
	if want := "frame 3 | 1 <-> 9 | dropped 0"; !strings.Contains(m.View(), want) {
		t.Errorf("View() missing status %q:\n%s", want, m.View())
	}
}

func TestViewPlayback(t *testing.T) {
	frame := testFrame()
	frame.Lyric = "hello there"
	frame.HasLyric = true
	frame.Progress = 0.5

	stepper := &fakeStepper{frames: []pipeline.Frame{frame}}
	m := NewModel(stepper, Options{Playback: true, Duration: 4 * time.Minute})
	m, _ = update(t, m, tickMsg(time.Now()))

	view := m.View()
	if !strings.Contains(view, "hello there") {
		t.Errorf("View() missing lyric:\n%s", view)
	}
	if !strings.Contains(view, "2:00 / 4:00") {
		t.Errorf("View() missing time readout:\n%s", view)
	}
}

func TestViewFitsWindow(t *testing.T) {
	modes := []Mode{
		{},
		{Horizontal: true},
		{Stereo: true},
		{Horizontal: true, Stereo: true},
	}

	for _, playback := range []bool{false, true} {
		for _, mode := range modes {
			stepper := &fakeStepper{frames: []pipeline.Frame{testFrame()}}
			m := NewModel(stepper, Options{Mode: mode, Playback: playback})
			m, _ = update(t, m, tea.WindowSizeMsg{Width: 60, Height: 30})
			m, _ = update(t, m, tickMsg(time.Now()))

			view := m.View()
			if h := lipgloss.Height(view); h > 30 {
				t.Errorf("mode %+v playback %v: height %d exceeds 30", mode, playback, h)
			}
			if w := lipgloss.Width(view); w > 60 {
				t.Errorf("mode %+v playback %v: width %d exceeds 60", mode, playback, w)
			}

			wantPanes := 1
			if mode.Stereo {
				wantPanes = 2
			}
			if got := strings.Count(view, "╭"); got != wantPanes {
				t.Errorf("mode %+v: %d panes drawn, want %d", mode, got, wantPanes)
			}
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0:00"},
		{59 * time.Second, "0:59"},
		{61 * time.Second, "1:01"},
		{12*time.Minute + 500*time.Millisecond, "12:01"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
