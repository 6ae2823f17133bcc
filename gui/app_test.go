//go:build gui

package gui

import (
	"errors"
	"testing"

	"hark/session"

	"fyne.io/fyne/v2/test"
	"fyne.io/fyne/v2/widget"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	a := newApp(test.NewApp(), "mic: fake")
	close(a.ready)
	t.Cleanup(a.closeQuit)
	return a
}

func TestButtonDisabledUntilAuthorized(t *testing.T) {
	a := newTestApp(t)
	taps := 0
	a.OnTap(func() { taps++ })

	test.Tap(a.button)
	if taps != 0 {
		t.Fatal("disabled button tapped")
	}

	a.ControlEnabled(true)
	test.Tap(a.button)
	if taps != 1 {
		t.Errorf("taps = %d, want 1", taps)
	}

	a.ControlEnabled(false)
	a.tap() // tray menu path
	if taps != 1 {
		t.Errorf("tray tap on disabled control went through")
	}
}

func TestStateAndTranscriptUpdates(t *testing.T) {
	a := newTestApp(t)

	a.StateChanged(session.Listening)
	if a.button.Text != session.ListeningLabel {
		t.Errorf("button = %q, want %q", a.button.Text, session.ListeningLabel)
	}
	if a.button.Importance != widget.DangerImportance {
		t.Error("listening button should use danger importance")
	}

	a.TranscriptChanged("test transcript")
	if a.text.Text != "test transcript" {
		t.Errorf("text = %q", a.text.Text)
	}

	a.StateChanged(session.Idle)
	if a.button.Text != session.IdleLabel {
		t.Errorf("button = %q, want %q", a.button.Text, session.IdleLabel)
	}
}

func TestCopyTranscript(t *testing.T) {
	a := newTestApp(t)
	var copied string
	a.OnCopy(func(s string) error { copied = s; return nil })

	a.TranscriptChanged(session.Placeholder)
	test.Tap(a.copyBtn)
	if copied != "" {
		t.Fatal("placeholder should not be copied")
	}

	a.TranscriptChanged("hello")
	test.Tap(a.copyBtn)
	if copied != "hello" || a.copyBtn.Text != "Copied" {
		t.Errorf("copied %q, button %q", copied, a.copyBtn.Text)
	}

	a.OnCopy(func(string) error { return errors.New("no clipboard") })
	test.Tap(a.copyBtn)
	if a.copyBtn.Text != "Copy failed" {
		t.Errorf("button = %q after failed copy", a.copyBtn.Text)
	}
}

func TestUpdatesDroppedAfterQuit(t *testing.T) {
	a := newApp(test.NewApp(), "")
	a.closeQuit()
	// Must not block waiting for a loop that never starts.
	a.StateChanged(session.Listening)
	if a.button.Text != session.IdleLabel {
		t.Error("update applied after quit")
	}
}
