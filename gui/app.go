//go:build gui

// Package gui is the desktop window: one button and the transcript below it.
package gui

import (
	"sync"

	"hark/session"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

type App struct {
	fyneApp fyne.App
	window  fyne.Window
	button  *widget.Button
	text    *widget.Label
	status  *widget.Label
	copyBtn *widget.Button

	onTap  func()
	onCopy func(string) error

	ready     chan struct{}
	readyOnce sync.Once
	quit      chan struct{}
	quitOnce  sync.Once

	mu         sync.Mutex
	enabled    bool
	transcript string
}

// NewApp builds the window. Nothing is shown until Run.
func NewApp(status string) *App {
	return newApp(app.NewWithID("io.hark.gui"), status)
}

func newApp(fa fyne.App, status string) *App {
	a := &App{
		fyneApp: fa,
		ready:   make(chan struct{}),
		quit:    make(chan struct{}),
	}
	a.fyneApp.Settings().SetTheme(&darkTheme{})
	a.window = a.fyneApp.NewWindow("hark")

	a.button = widget.NewButton(session.IdleLabel, a.tap)
	a.button.Importance = widget.HighImportance
	a.button.Disable()

	a.text = widget.NewLabel("")
	a.text.Wrapping = fyne.TextWrapWord

	a.status = widget.NewLabel(status)
	a.status.TextStyle = fyne.TextStyle{Italic: true}
	a.copyBtn = widget.NewButtonWithIcon("Copy", theme.ContentCopyIcon(), a.copyTranscript)

	bottom := container.NewBorder(nil, nil, nil, a.copyBtn, a.status)
	a.window.SetContent(container.NewBorder(a.button, bottom, nil, nil, container.NewVScroll(a.text)))
	a.window.Resize(fyne.NewSize(420, 320))
	a.window.SetMaster()
	return a
}

func (a *App) OnTap(fn func())               { a.onTap = fn }
func (a *App) OnCopy(fn func(string) error) { a.onCopy = fn }

// Run shows the window and blocks in the fyne event loop until the window
// is closed or Quit is called.
func Run(a *App) error {
	if desk, ok := a.fyneApp.(desktop.App); ok {
		menu := fyne.NewMenu("hark",
			fyne.NewMenuItem("Start / stop listening", a.tap),
			fyne.NewMenuItem("Copy transcript", a.copyTranscript),
		)
		desk.SetSystemTrayMenu(menu)
		desk.SetSystemTrayIcon(theme.MediaRecordIcon())
	}

	lc := a.fyneApp.Lifecycle()
	lc.SetOnStarted(func() { a.readyOnce.Do(func() { close(a.ready) }) })
	lc.SetOnStopped(a.closeQuit)

	a.window.ShowAndRun()
	a.closeQuit()
	return nil
}

func (a *App) Quit() {
	select {
	case <-a.quit:
		return
	default:
	}
	fyne.Do(a.fyneApp.Quit)
}

func (a *App) closeQuit() {
	a.quitOnce.Do(func() { close(a.quit) })
}

// tap runs on the fyne thread, from the button or the tray menu.
func (a *App) tap() {
	a.mu.Lock()
	enabled := a.enabled
	a.mu.Unlock()
	if enabled && a.onTap != nil {
		a.onTap()
	}
}

func (a *App) copyTranscript() {
	a.mu.Lock()
	text := a.transcript
	a.mu.Unlock()
	if a.onCopy == nil || text == "" || text == session.Placeholder {
		return
	}
	if err := a.onCopy(text); err != nil {
		a.copyBtn.SetText("Copy failed")
		return
	}
	a.copyBtn.SetText("Copied")
}

// do waits for the event loop to start and then queues fn on it. After the
// window is gone, updates are dropped.
func (a *App) do(fn func()) {
	select {
	case <-a.ready:
	case <-a.quit:
		return
	}
	fyne.Do(fn)
}

// session.EventSink implementation

func (a *App) StateChanged(state session.State) {
	a.do(func() {
		a.button.SetText(state.Label())
		if state == session.Listening {
			a.button.Importance = widget.DangerImportance
		} else {
			a.button.Importance = widget.HighImportance
		}
		a.button.Refresh()
	})
}

func (a *App) TranscriptChanged(text string) {
	a.mu.Lock()
	a.transcript = text
	a.mu.Unlock()
	a.do(func() {
		a.text.SetText(text)
		a.copyBtn.SetText("Copy")
	})
}

func (a *App) ControlEnabled(enabled bool) {
	a.mu.Lock()
	a.enabled = enabled
	a.mu.Unlock()
	a.do(func() {
		if enabled {
			a.button.Enable()
		} else {
			a.button.Disable()
		}
	})
}
