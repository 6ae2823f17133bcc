package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"hark/audio"
	"hark/log"
	"hark/recognizer"
	"hark/session"
)

const (
	pollInterval  = 5 * time.Millisecond
	settleTimeout = 2 * time.Second
)

// lineSink prints controller events one per line so a driving process can
// follow them on stdout.
type lineSink struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *lineSink) printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, format+"\n", args...)
}

func (s *lineSink) StateChanged(state session.State) { s.printf("state: %s", state) }
func (s *lineSink) TranscriptChanged(text string)    { s.printf("text: %s", text) }
func (s *lineSink) ControlEnabled(enabled bool)      { s.printf("enabled: %t", enabled) }

// runTestMode replays a WAV file as the microphone and takes commands from
// stdin: TAP, WAIT, WAIT_AUDIO_DONE, SLEEP <ms> and QUIT.
func runTestMode(a *app, wavPath string) {
	// Live recognizers get the audio at real speed.
	realtime := a.rec.Name() != "fake"
	fakeCtx, err := audio.NewFakeContext(wavPath, realtime)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading WAV: %v\n", err)
		os.Exit(1)
	}
	a.mic = audio.NewSource(func() (audio.Context, error) { return fakeCtx, nil }, "")

	ctx, cancel := context.WithCancel(context.Background())
	ctrl := a.newController(&lineSink{w: os.Stdout})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ctrl.Run(ctx)
	}()

	driveTest(ctrl, fakeCtx.Capture(), os.Stdin)

	cancel()
	<-done
	a.close(ctrl)
}

func driveTest(ctrl *session.Controller, capture *audio.FakeCapture, in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		cmd := strings.TrimSpace(scanner.Text())
		switch cmd {
		case "":
		case "TAP":
			waitAuthorized(ctrl)
			tapAndSettle(ctrl)
		case "WAIT":
			waitSessionDone(ctrl)
		case "WAIT_AUDIO_DONE":
			<-capture.AudioDone()
		case "QUIT":
			return
		default:
			if ms, ok := strings.CutPrefix(cmd, "SLEEP "); ok {
				if n, err := strconv.Atoi(ms); err == nil {
					time.Sleep(time.Duration(n) * time.Millisecond)
				}
				continue
			}
			log.Warnf("test mode: unknown command %q", cmd)
		}
	}
}

func waitAuthorized(ctrl *session.Controller) {
	for ctrl.Snapshot().Auth == recognizer.AuthNotDetermined {
		time.Sleep(pollInterval)
	}
}

// tapAndSettle toggles and waits until the controller has reacted, so the
// next command sees the new state.
func tapAndSettle(ctrl *session.Controller) {
	before := ctrl.Snapshot()
	ctrl.Toggle()
	deadline := time.Now().Add(settleTimeout)
	for time.Now().Before(deadline) {
		s := ctrl.Snapshot()
		if s.State != before.State || s.Sessions != before.Sessions || s.Transcript != before.Transcript {
			return
		}
		time.Sleep(pollInterval)
	}
}

// waitSessionDone blocks until no session is listening and the last stopped
// one has delivered its final result.
func waitSessionDone(ctrl *session.Controller) {
	for {
		s := ctrl.Snapshot()
		if s.State == session.Idle && !s.Draining {
			return
		}
		time.Sleep(pollInterval)
	}
}
