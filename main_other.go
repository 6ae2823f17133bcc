//go:build !linux

package main

import (
	"runtime"

	"golang.design/x/hotkey/mainthread"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	// Audio and the window toolkit are set up here, on the main thread.
	a := setup()
	if a.opts.gui {
		runGUI(a) // fyne owns the main thread from here on
		return
	}
	// The hotkey event loop needs the main thread; the shell runs beside it.
	mainthread.Init(func() { run(a) })
}
