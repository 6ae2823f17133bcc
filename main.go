package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"hark/audio"
	"hark/beep"
	"hark/hotkey"
	"hark/log"
	"hark/recognizer"
	"hark/session"

	"github.com/joho/godotenv"
)

var version = "dev"

type options struct {
	device   string
	setup    bool
	logPath  string
	test     bool
	gui      bool
	hotkey   bool
	hold     time.Duration
	beep     bool
	fakeText string
	version  bool
	args     []string
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.device, "device", "", "Use named microphone device")
	flag.BoolVar(&o.setup, "setup", false, "Select microphone device (otherwise uses system default)")
	flag.StringVar(&o.logPath, "logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	flag.BoolVar(&o.test, "test", false, "Test mode (headless, stdin-driven): hark -test <wav-file>")
	flag.BoolVar(&o.gui, "gui", false, "Run in a desktop window (build with -tags gui)")
	flag.BoolVar(&o.hotkey, "hotkey", true, "Toggle listening with Ctrl+Shift+Space from any window")
	flag.DurationVar(&o.hold, "hold", 350*time.Millisecond, "Hotkey hold time after which releasing the key stops listening (0 = tap only)")
	flag.BoolVar(&o.beep, "beep", true, "Play start/stop sounds")
	flag.StringVar(&o.fakeText, "fake", "", "Use the in-process recognizer that answers with this text")
	flag.BoolVar(&o.version, "version", false, "Print version and exit")
	flag.Parse()
	o.args = flag.Args()
	return o
}

// app is what every shell (terminal, window, test driver) shares: the
// recognizer, the microphone and the cue player.
type app struct {
	opts options
	rec  recognizer.Recognizer
	auth recognizer.Authorizer
	mic  *audio.Source
	cues session.Cues
}

// setup runs before any shell takes over the terminal or the main thread.
// It exits the process on unrecoverable errors.
func setup() *app {
	opts := parseFlags()
	if opts.version {
		fmt.Printf("hark %s\n", version)
		os.Exit(0)
	}

	loadEnv()
	initLogging(opts.logPath)

	a := &app{opts: opts}
	a.rec, a.auth = newRecognizer(opts.fakeText)
	log.AppStart(version, a.rec.Name(), a.rec.Locale())

	if opts.beep && !opts.test {
		go beep.Init()
		a.cues = beep.Cues{}
	} else {
		beep.Disable()
	}

	if opts.test {
		return a
	}

	// Audio is opened per session; errors show up in the text view.
	a.mic = audio.NewSource(audio.NewContext, opts.device)
	if opts.setup {
		a.chooseDevice()
	}
	return a
}

func loadEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: could not load .env: %v\n", err)
	}
}

func initLogging(flagPath string) {
	dir, err := log.ResolveDir(flagPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(dir)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	initCrashLog()

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
}

func initCrashLog() {
	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	debug.SetCrashOutput(crashFile, debug.CrashOptions{})
}

func newRecognizer(fakeText string) (recognizer.Recognizer, recognizer.Authorizer) {
	if fakeText != "" {
		f := recognizer.NewFake(fakeText)
		return f, f
	}
	dg := recognizer.New()
	return dg, dg
}

func (a *app) chooseDevice() {
	ctx, err := a.mic.Context()
	if err != nil {
		log.Warnf("device selection unavailable: %v", err)
		fmt.Printf("Warning: device selection unavailable: %v\n", err)
		return
	}
	dev, err := audio.SelectDevice(ctx)
	if err != nil {
		if !errors.Is(err, audio.ErrSelectionAborted) {
			log.Warnf("device selection failed: %v", err)
			fmt.Printf("Warning: device selection failed: %v\n", err)
		}
		fmt.Println("Using the default device")
		return
	}
	a.mic.Use(dev)
	log.Info("recording_device: " + dev.Name)
}

func (a *app) newController(sink session.EventSink) *session.Controller {
	return session.New(session.Config{Cues: a.cues}, a.mic, a.rec, a.auth, sink)
}

// serve runs the controller and the global hotkey until ctx is done. The
// returned channel closes once the controller has released everything.
func (a *app) serve(ctx context.Context, ctrl *session.Controller) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ctrl.Run(ctx)
	}()
	if a.opts.hotkey {
		listening := func() bool { return ctrl.Snapshot().State == session.Listening }
		bindHotkey(ctx, ctrl.Toggle, listening, a.opts.hold)
	}
	return done
}

func bindHotkey(ctx context.Context, toggle func(), listening func() bool, hold time.Duration) {
	hk := hotkey.New()
	if err := hk.Register(); err != nil {
		log.Warnf("hotkey register error: %v", err)
		return
	}
	go func() {
		defer hk.Unregister()
		hotkey.Bind(ctx, hk, toggle, listening, hold)
	}()
}

func (a *app) statusLine() string {
	mic := "system default"
	if a.mic != nil {
		mic = a.mic.DeviceName()
	}
	if audio.IsBluetooth(mic) {
		mic += " (BT!)"
	}
	return fmt.Sprintf("mic: %s  [%s | %s]", mic, a.rec.Name(), a.rec.Locale())
}

func (a *app) close(ctrl *session.Controller) {
	if ctrl != nil {
		log.AppEnd(ctrl.Snapshot().Sessions)
	}
	if a.mic != nil {
		a.mic.Close()
	}
	log.Close()
}

func run(a *app) {
	if a.opts.test {
		if len(a.opts.args) == 0 {
			fmt.Fprintln(os.Stderr, "Usage: hark -test <wav-file>")
			os.Exit(1)
		}
		runTestMode(a, a.opts.args[0])
		return
	}
	runTUI(a)
}
