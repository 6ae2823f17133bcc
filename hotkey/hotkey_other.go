//go:build !linux

package hotkey

import (
	"fmt"

	"golang.design/x/hotkey"
)

var (
	mods = []hotkey.Modifier{hotkey.ModCtrl, hotkey.ModShift}
	key  = hotkey.KeySpace
)

// osHotkey adapts golang.design/x/hotkey, which needs the main thread on
// macOS (see main_other.go).
type osHotkey struct {
	hk      *hotkey.Hotkey
	keydown chan struct{}
	keyup   chan struct{}
	quit    chan struct{}
}

func New() Hotkey {
	return &osHotkey{
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
	}
}

func (h *osHotkey) Register() error {
	h.hk = hotkey.New(mods, key)
	if err := h.hk.Register(); err != nil {
		return fmt.Errorf("register ctrl+shift+space: %w", err)
	}
	h.quit = make(chan struct{})
	go forward(h.hk.Keydown(), h.keydown, h.quit)
	go forward(h.hk.Keyup(), h.keyup, h.quit)
	return nil
}

func forward(from <-chan hotkey.Event, to chan<- struct{}, quit <-chan struct{}) {
	for {
		select {
		case <-quit:
			return
		case <-from:
		}
		select {
		case to <- struct{}{}:
		case <-quit:
			return
		}
	}
}

func (h *osHotkey) Unregister() {
	if h.quit == nil {
		return
	}
	close(h.quit)
	h.quit = nil
	h.hk.Unregister()
}

func (h *osHotkey) Keydown() <-chan struct{} { return h.keydown }
func (h *osHotkey) Keyup() <-chan struct{}   { return h.keyup }
