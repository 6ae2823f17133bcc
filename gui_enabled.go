//go:build gui

package main

import (
	"context"
	"runtime"

	"hark/clipboard"
	"hark/gui"
	"hark/log"
	"hark/shutdown"
)

func runGUI(a *app) {
	// fyne/GLFW must stay on the thread that created the window.
	runtime.LockOSThread()

	ctx, stop := shutdown.Context(context.Background())
	defer stop()

	w := gui.NewApp(a.statusLine())
	ctrl := a.newController(w)
	w.OnTap(ctrl.Toggle)
	w.OnCopy(clipboard.Copy)

	done := a.serve(ctx, ctrl)
	go func() {
		<-ctx.Done()
		w.Quit()
	}()

	if err := gui.Run(w); err != nil {
		log.Errorf("GUI error: %v", err)
	}
	stop()
	<-done
	a.close(ctrl)
}
