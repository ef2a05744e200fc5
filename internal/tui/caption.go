package tui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Fetch returns the daemon's current caption and a one-line status.
type Fetch func() (caption, status string, err error)

type captionTickMsg struct{}

type captionMsg struct {
	caption string
	status  string
	err     error
}

// CaptionModel is a live caption window that polls the daemon.
type CaptionModel struct {
	fetch    Fetch
	interval time.Duration

	caption string
	status  string
	err     error
	width   int
}

func NewCaptionModel(fetch Fetch, interval time.Duration) CaptionModel {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	return CaptionModel{fetch: fetch, interval: interval, width: 80}
}

func (m CaptionModel) Init() tea.Cmd {
	return m.poll()
}

func (m CaptionModel) poll() tea.Cmd {
	fetch := m.fetch
	return func() tea.Msg {
		c, s, err := fetch()
		return captionMsg{caption: c, status: s, err: err}
	}
}

func (m CaptionModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg { return captionTickMsg{} })
}

func (m CaptionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case captionTickMsg:
		return m, m.poll()
	case captionMsg:
		m.err = msg.err
		if msg.err == nil {
			m.caption = msg.caption
			m.status = msg.status
		}
		return m, m.tick()
	}
	return m, nil
}

func (m CaptionModel) View() string {
	width := m.width - 4
	if width < 20 {
		width = 20
	}

	text := m.caption
	if text == "" {
		text = StyleMuted.Render("…")
	} else {
		text = StyleCaption.Width(width).Render(text)
	}

	lines := []string{StyleCaptionBox.Width(width + 2).Render(text)}
	if m.err != nil {
		lines = append(lines, StyleError.Render("daemon unreachable: "+m.err.Error()))
	} else if m.status != "" {
		lines = append(lines, StyleMuted.Render(m.status))
	}
	lines = append(lines, StyleMuted.Render("q quit"))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// RunCaptionViewer shows the caption window until the user quits.
func RunCaptionViewer(fetch Fetch, interval time.Duration) error {
	_, err := tea.NewProgram(NewCaptionModel(fetch, interval)).Run()
	return err
}

// Line redraws a single caption line in place, for printing captions from a
// foreground daemon.
type Line struct {
	mu  sync.Mutex
	out *termenv.Output
}

func NewLine(w io.Writer) *Line {
	return &Line{out: termenv.NewOutput(w)}
}

// Show replaces the current line with text.
func (l *Line) Show(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out.ClearLine()
	fmt.Fprint(l.out, "\r"+StyleCaption.Render(strings.Join(strings.Fields(text), " ")))
}

// Commit moves past the current line so it stays on screen.
func (l *Line) Commit() {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.out)
}
