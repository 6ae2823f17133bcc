// Package hotkey listens for the system-wide Ctrl+Shift+Space combination.
package hotkey

import (
	"context"
	"time"
)

type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}

// Bind turns hotkey presses into toggle calls until ctx is done. Every press
// toggles. When hold is positive, a press that started listening and was held
// at least that long toggles again on release, so the keys double as
// push-to-talk.
func Bind(ctx context.Context, hk Hotkey, toggle func(), listening func() bool, hold time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-hk.Keydown():
		}

		wasListening := listening()
		toggle()
		pressed := time.Now()

		select {
		case <-ctx.Done():
			return
		case <-hk.Keyup():
		}

		if hold > 0 && !wasListening && time.Since(pressed) >= hold && listening() {
			toggle()
		}
	}
}
