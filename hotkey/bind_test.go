package hotkey

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeToggle struct {
	mu        sync.Mutex
	listening bool
	calls     int
}

func (f *fakeToggle) toggle() {
	f.mu.Lock()
	f.listening = !f.listening
	f.calls++
	f.mu.Unlock()
}

func (f *fakeToggle) isListening() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listening
}

func (f *fakeToggle) state() (bool, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listening, f.calls
}

func startBind(t *testing.T, ft *fakeToggle, hold time.Duration) *FakeHotkey {
	t.Helper()
	fk := NewFake()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		Bind(ctx, fk, ft.toggle, ft.isListening, hold)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return fk
}

func waitCalls(t *testing.T, ft *fakeToggle, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, calls := ft.state(); calls == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	_, calls := ft.state()
	t.Fatalf("toggle calls = %d, want %d", calls, want)
}

func TestBindShortTapToggles(t *testing.T) {
	ft := &fakeToggle{}
	fk := startBind(t, ft, 200*time.Millisecond)

	fk.SimKeydown()
	fk.SimKeyup()
	waitCalls(t, ft, 1)
	time.Sleep(20 * time.Millisecond)
	if listening, calls := ft.state(); !listening || calls != 1 {
		t.Fatalf("after tap: listening=%v calls=%d", listening, calls)
	}

	// Second tap stops.
	fk.SimKeydown()
	fk.SimKeyup()
	waitCalls(t, ft, 2)
	if listening, _ := ft.state(); listening {
		t.Error("second tap should stop listening")
	}
}

func TestBindHoldIsPushToTalk(t *testing.T) {
	ft := &fakeToggle{}
	hold := 50 * time.Millisecond
	fk := startBind(t, ft, hold)

	fk.SimKeydown()
	waitCalls(t, ft, 1)
	time.Sleep(hold + 20*time.Millisecond)
	fk.SimKeyup()
	waitCalls(t, ft, 2)
	if listening, _ := ft.state(); listening {
		t.Error("release after hold should stop listening")
	}
}

func TestBindHoldWhileStoppingDoesNotRestart(t *testing.T) {
	ft := &fakeToggle{listening: true}
	hold := 30 * time.Millisecond
	fk := startBind(t, ft, hold)

	fk.SimKeydown()
	waitCalls(t, ft, 1)
	time.Sleep(hold + 20*time.Millisecond)
	fk.SimKeyup()
	time.Sleep(30 * time.Millisecond)
	if listening, calls := ft.state(); listening || calls != 1 {
		t.Errorf("listening=%v calls=%d, want stopped after one toggle", listening, calls)
	}
}

func TestBindZeroHoldIsTapOnly(t *testing.T) {
	ft := &fakeToggle{}
	fk := startBind(t, ft, 0)

	fk.SimKeydown()
	waitCalls(t, ft, 1)
	time.Sleep(40 * time.Millisecond)
	fk.SimKeyup()
	time.Sleep(30 * time.Millisecond)
	if listening, calls := ft.state(); !listening || calls != 1 {
		t.Errorf("listening=%v calls=%d, want one toggle", listening, calls)
	}
}
