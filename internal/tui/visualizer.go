// SPDX-License-Identifier: MIT
/*
Package tui draws the visualizer and the device picker with Bubble Tea.

The visualizer Model is the render loop. Bubble Tea delivers ticks and key
presses one at a time on a single goroutine, so a tick runs one pipeline step
and the redraw, and a key press only flips a Mode flag or the quit flag. Key
handling never delays the next tick.
*/
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"termviz/internal/pipeline"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	defaultTick   = time.Second / 60
)

// Mode holds the layout toggles.
type Mode struct {
	Horizontal bool // bars grow rightwards, one row per band
	Stereo     bool // the visualization is drawn twice
}

// Stepper produces the next frame; *pipeline.Pipeline implements it.
type Stepper interface {
	Step() pipeline.Frame
}

// Options configures a visualizer Model.
type Options struct {
	Title         string
	Mode          Mode
	FrameInterval time.Duration
	Playback      bool            // show the lyric line and progress bar
	Duration      time.Duration   // track length for the time readout
	Done          <-chan struct{} // closed when playback ends; quits the loop
}

type keyMap struct {
	Quit   key.Binding
	Rotate key.Binding
	Stereo key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Rotate: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rotate"),
		),
		Stereo: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "stereo"),
		),
	}
}

func (k keyMap) bindings() []key.Binding {
	return []key.Binding{k.Rotate, k.Stereo, k.Quit}
}

type tickMsg time.Time

type doneMsg struct{}

// Model is the Bubble Tea model of the visualizer.
type Model struct {
	stepper  Stepper
	opts     Options
	keys     keyMap
	progress progress.Model

	mode     Mode
	frame    pipeline.Frame
	stepped  bool
	quitting bool
	width    int
	height   int
}

// NewModel builds the render loop around stepper.
func NewModel(stepper Stepper, opts Options) Model {
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = defaultTick
	}
	if opts.Title == "" {
		opts.Title = "termviz"
	}
	return Model{
		stepper:  stepper,
		opts:     opts,
		keys:     newKeyMap(),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		mode:     opts.Mode,
		width:    defaultWidth,
		height:   defaultHeight,
	}
}

// Mode returns the current layout toggles.
func (m Model) Mode() Mode {
	return m.mode
}

// Frame returns the last frame drawn.
func (m Model) Frame() pipeline.Frame {
	return m.frame
}

// Quitting reports whether the quit flag is set.
func (m Model) Quitting() bool {
	return m.quitting
}

// Init starts the frame ticker and, in playback, the end-of-track watch.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tick(m.opts.FrameInterval)}
	if m.opts.Done != nil {
		cmds = append(cmds, waitDone(m.opts.Done))
	}
	return tea.Batch(cmds...)
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitDone(done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-done
		return doneMsg{}
	}
}

// Update handles ticks, key presses and resizes.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Rotate):
			m.mode.Horizontal = !m.mode.Horizontal
		case key.Matches(msg, m.keys.Stereo):
			m.mode.Stereo = !m.mode.Stereo
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case doneMsg:
		m.quitting = true
		return m, tea.Quit

	case tickMsg:
		if m.quitting {
			return m, nil
		}
		m.frame = m.stepper.Step()
		m.stepped = true
		return m, tick(m.opts.FrameInterval)
	}

	return m, nil
}

// View renders the current frame.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{titleStyle.Render(m.opts.Title), m.renderPanes()}
	if m.opts.Playback {
		sections = append(sections, m.renderLyric(), m.renderProgress())
	}
	sections = append(sections, m.renderStatus(), m.renderHelp())

	return strings.Join(sections, "\n")
}

// fixedRows counts the lines around the panes.
func (m Model) fixedRows() int {
	rows := 3 // title, status, help
	if m.opts.Playback {
		rows += 2
	}
	return rows
}

func (m Model) renderPanes() string {
	border := paneStyle.GetHorizontalFrameSize()
	innerW := max(1, m.width-border)
	innerH := max(1, m.height-m.fixedRows()-paneStyle.GetVerticalFrameSize())

	if !m.mode.Stereo {
		return m.renderPane(innerW, innerH)
	}

	if m.mode.Horizontal {
		w := max(1, (m.width-2*border)/2)
		pane := m.renderPane(w, innerH)
		return lipgloss.JoinHorizontal(lipgloss.Top, pane, pane)
	}

	h := max(1, (m.height-m.fixedRows()-2*paneStyle.GetVerticalFrameSize())/2)
	pane := m.renderPane(innerW, h)
	return lipgloss.JoinVertical(lipgloss.Left, pane, pane)
}

func (m Model) renderPane(width, height int) string {
	var body string
	if m.mode.Horizontal {
		body = renderHorizontal(m.frame.Bands, m.frame.Max, width, height)
	} else {
		body = renderVertical(m.frame.Bands, m.frame.Max, width, height)
	}
	return paneStyle.Render(body)
}

func (m Model) renderLyric() string {
	if !m.frame.HasLyric {
		return ""
	}
	return lyricStyle.Render(m.frame.Lyric)
}

func (m Model) renderProgress() string {
	readout := ""
	if m.opts.Duration > 0 {
		elapsed := time.Duration(m.frame.Progress * float64(m.opts.Duration))
		readout = " " + formatDuration(elapsed) + " / " + formatDuration(m.opts.Duration)
	}

	p := m.progress
	p.Width = max(1, m.width-lipgloss.Width(readout))
	return p.ViewAs(m.frame.Progress) + dimStyle.Render(readout)
}

func (m Model) renderStatus() string {
	if !m.stepped {
		return dimStyle.Render("waiting for audio")
	}
	status := fmt.Sprintf("frame %d | %d <-> %d | dropped %d",
		m.frame.Index, m.frame.Min, m.frame.Max, m.frame.Dropped)
	if m.frame.Dropped > 0 {
		return errorStyle.Render(status)
	}
	return infoStyle.Render(status)
}

func (m Model) renderHelp() string {
	parts := make([]string, 0, 3)
	for _, b := range m.keys.bindings() {
		h := b.Help()
		parts = append(parts, h.Key+": "+h.Desc)
	}
	return dimStyle.Render(strings.Join(parts, " • "))
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d/time.Minute), int(d%time.Minute/time.Second))
}

// Run drives m until the quit key, the end of playback or ctx is done.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
