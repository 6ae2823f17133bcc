// Package session runs the listen/stop lifecycle: it owns the capture tap,
// the recognition request and its task handle, and the transcript shown to
// the user. All of that state lives on the goroutine running Controller.Run;
// everything else talks to it through events.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"hark/audio"
	"hark/log"
	"hark/recognizer"

	"github.com/google/uuid"
)

type State int

const (
	Idle State = iota
	Listening
)

func (s State) String() string {
	if s == Listening {
		return "listening"
	}
	return "idle"
}

// User-facing text, in the recognizer's zh-TW locale.
const (
	IdleLabel         = "點擊開始講話"
	ListeningLabel    = "停止講話"
	Placeholder       = "請開始講話..."
	DeniedMessage     = "語音識別權限被拒絕"
	StartFailedPrefix = "無法開始: "
	FailedPrefix      = "語音識別失敗: "
)

func (s State) Label() string {
	if s == Listening {
		return ListeningLabel
	}
	return IdleLabel
}

// EventSink is the presentation side. Calls arrive on the controller
// goroutine; sinks hand them to their own UI loop.
type EventSink interface {
	StateChanged(state State)
	TranscriptChanged(text string)
	ControlEnabled(enabled bool)
}

// Microphone opens the capture engine for one session. The controller
// closes the device when the session ends.
type Microphone interface {
	Open() (audio.CaptureDevice, error)
}

// Cues are optional audible signals for session start, stop and failure.
type Cues interface {
	Start()
	End()
	Error()
}

type Config struct {
	Locale string
	Cues   Cues
}

// Snapshot is a copy of the controller state after the last handled event.
type Snapshot struct {
	State      State
	Label      string
	Transcript string
	Enabled    bool
	Auth       recognizer.AuthStatus
	HasHandle  bool
	Draining   bool
	Sessions   int
}

type event any

type tapEvent struct{}

type authEvent struct {
	status recognizer.AuthStatus
	err    error
}

type resultEvent struct {
	gen    uint64
	result recognizer.Result
}

type Controller struct {
	mic     Microphone
	rec     recognizer.Recognizer
	auth    recognizer.Authorizer
	sink    EventSink
	cues    Cues
	locale  string

	events chan event
	done   chan struct{}

	snapMu sync.Mutex
	snap   Snapshot

	// owned by the Run goroutine
	ctx        context.Context
	state      State
	authStatus recognizer.AuthStatus
	transcript string
	gotText    bool
	sessions   int

	gen       uint64
	id        string
	startedAt time.Time
	capture   audio.CaptureDevice
	request   *recognizer.BufferRequest
	task      recognizer.Task
	tap       *audio.Tap

	// A session stopped by a tap keeps its task until the final result
	// arrives; it is no longer the active handle.
	draining recognizer.Task
	drainGen uint64
	drainID  string
}

func New(cfg Config, mic Microphone, rec recognizer.Recognizer, auth recognizer.Authorizer, sink EventSink) *Controller {
	locale := cfg.Locale
	if locale == "" {
		locale = rec.Locale()
	}
	c := &Controller{
		mic:     mic,
		rec:     rec,
		auth:    auth,
		sink:    sink,
		cues:    cfg.Cues,
		locale:  locale,
		events:  make(chan event, 64),
		done:    make(chan struct{}),
	}
	c.publish()
	return c
}

// Toggle is the button press. It never fails; a session that cannot start
// reports through the transcript.
func (c *Controller) Toggle() {
	c.post(tapEvent{})
}

func (c *Controller) Snapshot() Snapshot {
	c.snapMu.Lock()
	defer c.snapMu.Unlock()
	return c.snap
}

// Run authorizes once and then serves events until ctx is done. Any open
// session is torn down before Run returns.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.done)
	c.ctx = ctx

	go func() {
		status, err := c.auth.Authorize(ctx)
		c.post(authEvent{status: status, err: err})
	}()

	c.sink.StateChanged(c.state)
	c.sink.ControlEnabled(false)

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			c.publish()
			return ctx.Err()
		case ev := <-c.events:
			c.handle(ev)
			c.publish()
		}
	}
}

func (c *Controller) post(ev event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

func (c *Controller) handle(ev event) {
	switch ev := ev.(type) {
	case tapEvent:
		c.toggle()
	case authEvent:
		c.authorized(ev.status, ev.err)
	case resultEvent:
		c.result(ev.gen, ev.result)
	}
}

func (c *Controller) authorized(status recognizer.AuthStatus, err error) {
	if c.authStatus != recognizer.AuthNotDetermined {
		return
	}
	if status == recognizer.AuthNotDetermined {
		status = recognizer.AuthDenied
	}
	c.authStatus = status
	log.Auth(c.rec.Name(), status.String(), err)

	if status == recognizer.AuthGranted {
		c.sink.ControlEnabled(true)
		return
	}
	c.sink.ControlEnabled(false)
	c.setTranscript(DeniedMessage)
}

func (c *Controller) toggle() {
	if c.authStatus != recognizer.AuthGranted {
		return
	}
	if c.state == Listening {
		c.stop()
		return
	}
	if err := c.startSession(); err != nil {
		log.SessionStop("", "start_failed", 0, err)
		c.setTranscript(StartFailedPrefix + err.Error())
		c.cue(Cues.Error)
	}
}

func (c *Controller) startSession() error {
	c.releaseDraining()

	capture, err := c.mic.Open()
	if err != nil {
		return fmt.Errorf("open audio: %w", err)
	}

	req := recognizer.NewBufferRequest(c.locale, audio.SampleRate, audio.Channels)
	task, err := c.rec.Recognize(c.ctx, req)
	if err != nil {
		capture.Close()
		return fmt.Errorf("start recognition: %w", err)
	}

	tap := audio.NewTap(audio.TapBufferFrames, req.Append)
	capture.SetCallback(tap.Callback())
	if err := capture.Start(); err != nil {
		capture.ClearCallback()
		capture.Close()
		task.Cancel()
		req.EndAudio()
		return fmt.Errorf("start audio: %w", err)
	}

	c.gen++
	c.capture, c.request, c.task, c.tap = capture, req, task, tap
	c.id = uuid.NewString()
	c.startedAt = time.Now()
	c.sessions++
	go c.pump(c.gen, task)

	log.SessionStart(c.id, c.rec.Name(), c.capture.DeviceName())
	c.gotText = false
	c.setTranscript(Placeholder)
	c.setState(Listening)
	c.cue(Cues.Start)
	return nil
}

func (c *Controller) pump(gen uint64, task recognizer.Task) {
	for r := range task.Results() {
		c.post(resultEvent{gen: gen, result: r})
	}
}

// stop ends input gracefully; the recognizer still gets to deliver its
// final result for this session.
func (c *Controller) stop() {
	c.capture.Stop()
	c.capture.ClearCallback()
	c.capture.Close()
	c.tap.Flush()
	c.request.EndAudio()

	c.draining, c.drainGen = c.task, c.gen
	c.drainID = c.id
	c.capture, c.task, c.request, c.tap = nil, nil, nil, nil

	log.SessionStop(c.id, "tap", time.Since(c.startedAt), nil)
	c.setState(Idle)
	c.cue(Cues.End)
}

func (c *Controller) result(gen uint64, r recognizer.Result) {
	switch {
	case c.task != nil && gen == c.gen:
		c.apply(r)
		if r.Terminal() {
			c.finish(r)
		}
	case c.draining != nil && gen == c.drainGen:
		c.apply(r)
		if r.Terminal() {
			c.draining = nil
		}
	}
}

func (c *Controller) apply(r recognizer.Result) {
	if r.Text != "" {
		c.gotText = true
		c.setTranscript(r.Text)
		return
	}
	if r.Err != nil && !errors.Is(r.Err, recognizer.ErrCanceled) && !c.gotText {
		c.setTranscript(FailedPrefix + r.Err.Error())
	}
}

// finish handles a terminal result that arrived while still listening.
func (c *Controller) finish(r recognizer.Result) {
	id, started := c.id, c.startedAt
	c.releaseActive()

	reason := "final"
	if r.Err != nil {
		reason = "error"
	}
	log.SessionStop(id, reason, time.Since(started), r.Err)
	c.setState(Idle)
	if r.Err != nil {
		c.cue(Cues.Error)
	} else {
		c.cue(Cues.End)
	}
}

// releaseActive stops and closes the capture, removes the tap and drops the
// request and handle. Calling it with nothing active is a no-op.
func (c *Controller) releaseActive() {
	if c.task == nil {
		return
	}
	c.capture.Stop()
	c.capture.ClearCallback()
	c.capture.Close()
	c.request.EndAudio()
	c.capture, c.task, c.request, c.tap = nil, nil, nil, nil
}

func (c *Controller) releaseDraining() {
	if c.draining == nil {
		return
	}
	c.draining.Cancel()
	log.RecognitionCanceled(c.drainID)
	c.draining = nil
}

func (c *Controller) shutdown() {
	if c.task != nil {
		c.task.Cancel()
		log.SessionStop(c.id, "shutdown", time.Since(c.startedAt), nil)
	}
	c.releaseActive()
	c.releaseDraining()
	if c.state != Idle {
		c.setState(Idle)
	}
}

func (c *Controller) setState(s State) {
	c.state = s
	c.sink.StateChanged(s)
}

func (c *Controller) setTranscript(text string) {
	c.transcript = text
	c.sink.TranscriptChanged(text)
}

func (c *Controller) cue(fn func(Cues)) {
	if c.cues != nil {
		fn(c.cues)
	}
}

func (c *Controller) publish() {
	c.snapMu.Lock()
	c.snap = Snapshot{
		State:      c.state,
		Label:      c.state.Label(),
		Transcript: c.transcript,
		Enabled:    c.authStatus == recognizer.AuthGranted,
		Auth:       c.authStatus,
		HasHandle:  c.task != nil,
		Draining:   c.draining != nil,
		Sessions:   c.sessions,
	}
	c.snapMu.Unlock()
}
