package tui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func TestCaptionModelPollsAndRenders(t *testing.T) {
	calls := 0
	fetch := func() (string, string, error) {
		calls++
		return "hello world", "running · auto", nil
	}
	m := NewCaptionModel(fetch, 50*time.Millisecond)

	cmd := m.Init()
	if cmd == nil {
		t.Fatal("Init should poll")
	}
	msg := cmd()
	if calls != 1 {
		t.Fatalf("fetch called %d times, want 1", calls)
	}

	updated, next := m.Update(msg)
	m = updated.(CaptionModel)
	if next == nil {
		t.Error("a result should schedule the next tick")
	}

	view := m.View()
	if !strings.Contains(view, "hello world") {
		t.Errorf("view missing caption:\n%s", view)
	}
	if !strings.Contains(view, "running · auto") {
		t.Errorf("view missing status:\n%s", view)
	}

	updated, next = m.Update(captionTickMsg{})
	if next == nil {
		t.Fatal("tick should poll")
	}
	next()
	if calls != 2 {
		t.Errorf("fetch called %d times after tick, want 2", calls)
	}
	_ = updated
}

func TestCaptionModelKeepsCaptionOnError(t *testing.T) {
	m := NewCaptionModel(nil, time.Second)
	updated, _ := m.Update(captionMsg{caption: "kept", status: "ok"})
	m = updated.(CaptionModel)
	updated, _ = m.Update(captionMsg{err: errors.New("connection refused")})
	m = updated.(CaptionModel)

	view := m.View()
	if !strings.Contains(view, "kept") {
		t.Errorf("caption lost on error:\n%s", view)
	}
	if !strings.Contains(view, "connection refused") {
		t.Errorf("error not shown:\n%s", view)
	}
}

func TestCaptionModelQuit(t *testing.T) {
	m := NewCaptionModel(nil, time.Second)
	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyEsc},
		{Type: tea.KeyCtrlC},
	} {
		_, cmd := m.Update(key)
		if cmd == nil {
			t.Fatalf("%s should quit", key)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s did not return tea.Quit", key)
		}
	}
}

func TestLineShow(t *testing.T) {
	var buf bytes.Buffer
	l := NewLine(&buf)
	l.Show("first\nline")
	l.Show("second")
	l.Commit()

	out := buf.String()
	if !strings.Contains(out, "first line") {
		t.Errorf("newlines not folded: %q", out)
	}
	if !strings.Contains(out, "\rsecond") && !strings.Contains(out, "second") {
		t.Errorf("second caption missing: %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Errorf("Commit should end the line: %q", out)
	}
}
