package main

import (
	"errors"
	"strings"
	"testing"

	"hark/session"

	tea "github.com/charmbracelet/bubbletea"
)

func update(t *testing.T, m tuiModel, msg tea.Msg) (tuiModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(tuiModel), cmd
}

func TestTUIKeysTapOnlyWhenEnabled(t *testing.T) {
	taps := 0
	m := newTUIModel(func() { taps++ }, nil, "")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if taps != 0 {
		t.Fatalf("disabled control tapped %d times", taps)
	}

	m, _ = update(t, m, enabledMsg{Enabled: true})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if taps != 2 {
		t.Errorf("taps = %d, want 2", taps)
	}
}

func TestTUIQuitKeys(t *testing.T) {
	m := newTUIModel(nil, nil, "")
	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyCtrlC},
		{Type: tea.KeyRunes, Runes: []rune{'q'}},
	} {
		_, cmd := update(t, m, key)
		if cmd == nil {
			t.Fatalf("%q: expected quit command", key.String())
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%q: expected tea.QuitMsg", key.String())
		}
	}
}

func TestTUIMouseClickOnButton(t *testing.T) {
	taps := 0
	m := newTUIModel(func() { taps++ }, nil, "")
	m, _ = update(t, m, enabledMsg{Enabled: true})

	click := func(x, y int) {
		m, _ = update(t, m, tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	}
	click(3, buttonTop+1)
	if taps != 1 {
		t.Fatalf("click on button: taps = %d, want 1", taps)
	}
	click(3, 0)
	click(3, buttonTop+10)
	if taps != 1 {
		t.Errorf("clicks outside the button tapped: taps = %d", taps)
	}
}

func TestTUILabelFollowsState(t *testing.T) {
	m := newTUIModel(nil, nil, "mic: test")
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 20})
	m, _ = update(t, m, enabledMsg{Enabled: true})

	if view := m.View(); !strings.Contains(view, session.IdleLabel) {
		t.Errorf("idle view missing %q", session.IdleLabel)
	}

	m, _ = update(t, m, stateMsg{State: session.Listening})
	m, _ = update(t, m, transcriptMsg{Text: session.Placeholder})
	view := m.View()
	if !strings.Contains(view, session.ListeningLabel) {
		t.Errorf("listening view missing %q", session.ListeningLabel)
	}
	if !strings.Contains(view, session.Placeholder) {
		t.Errorf("listening view missing placeholder")
	}
	if !strings.Contains(view, "mic: test") {
		t.Errorf("view missing status line")
	}
}

func TestTUICopy(t *testing.T) {
	var copied string
	m := newTUIModel(nil, func(s string) error { copied = s; return nil }, "")

	// Nothing to copy yet.
	if _, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}}); cmd != nil {
		t.Fatal("copy command issued without a transcript")
	}

	m, _ = update(t, m, transcriptMsg{Text: "test transcript"})
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})
	if cmd == nil {
		t.Fatal("expected copy command")
	}
	msg := cmd()
	if copied != "test transcript" {
		t.Errorf("copied %q", copied)
	}
	m, _ = update(t, m, msg)
	if !m.copied {
		t.Error("copied flag not set")
	}

	m, _ = update(t, m, copiedMsg{Err: errors.New("no clipboard")})
	if m.copied || m.copyErr == nil {
		t.Error("copy failure not recorded")
	}
	m, _ = update(t, m, transcriptMsg{Text: "new"})
	if m.copied || m.copyErr != nil {
		t.Error("new transcript should clear copy status")
	}
}
