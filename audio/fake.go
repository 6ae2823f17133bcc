package audio

import (
	"errors"
	"os"
	"sync"
	"time"
)

// FakeContext serves a single FakeCapture as its only device.
type FakeContext struct {
	capture *FakeCapture

	mu      sync.Mutex
	openErr error
	opens   int
}

// NewFakeContext serves the PCM payload of a 16 kHz mono WAV file instead of
// a microphone.
func NewFakeContext(wavPath string, realtime bool) (*FakeContext, error) {
	data, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, err
	}
	if len(data) > WAVHeaderSize {
		data = data[WAVHeaderSize:]
	}
	return FakeContextFor(NewFakeCapture(data, realtime)), nil
}

func FakeContextFor(capture *FakeCapture) *FakeContext {
	return &FakeContext{capture: capture}
}

func (f *FakeContext) Capture() *FakeCapture { return f.capture }

// SetOpenErr makes NewCapture fail with err until it is reset with nil.
func (f *FakeContext) SetOpenErr(err error) {
	f.mu.Lock()
	f.openErr = err
	f.mu.Unlock()
}

// Opens counts successful NewCapture calls.
func (f *FakeContext) Opens() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "fake"}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.opens++
	return f.capture, nil
}

// FakeCapture replays a PCM buffer through the installed callback. Once the
// buffer is exhausted it keeps delivering silence until stopped, like a live
// microphone would.
type FakeCapture struct {
	pcm      []byte
	realtime bool

	// StartErr, when set, is returned by Start.
	StartErr error

	mu        sync.Mutex
	cb        DataCallback
	running   bool
	starts    int
	stopCh    chan struct{}
	feedDone  chan struct{}
	audioDone chan struct{}
}

func NewFakeCapture(pcm []byte, realtime bool) *FakeCapture {
	return &FakeCapture{pcm: pcm, realtime: realtime, audioDone: make(chan struct{})}
}

// AudioDone is closed once the whole PCM buffer of the current run was fed.
func (f *FakeCapture) AudioDone() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.audioDone
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

// HasCallback reports whether a tap is currently installed.
func (f *FakeCapture) HasCallback() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cb != nil
}

func (f *FakeCapture) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

// Starts counts successful Start calls.
func (f *FakeCapture) Starts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

func (f *FakeCapture) DeviceName() string { return "fake" }

// Push delivers one buffer to the installed callback, if any.
func (f *FakeCapture) Push(data []byte) {
	f.mu.Lock()
	cb := f.cb
	f.mu.Unlock()
	if cb != nil {
		cb(data, uint32(len(data)/BytesPerFrame))
	}
}

func (f *FakeCapture) Start() error {
	if f.StartErr != nil {
		return f.StartErr
	}
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return errors.New("fake capture already running")
	}
	f.running = true
	f.starts++
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})
	stop, done, audioDone := f.stopCh, f.feedDone, f.audioDone
	f.mu.Unlock()

	if len(f.pcm) == 0 {
		close(done)
		return nil
	}

	chunkBytes := TapBufferFrames * BytesPerFrame
	interval := time.Millisecond
	if f.realtime {
		interval = time.Duration(TapBufferFrames) * time.Second / time.Duration(SampleRate)
	}

	go func() {
		defer close(done)
		pos := 0
		silence := make([]byte, chunkBytes)
		finished := false
		for {
			select {
			case <-stop:
				return
			case <-time.After(interval):
			}
			if pos < len(f.pcm) {
				end := min(pos+chunkBytes, len(f.pcm))
				chunk := make([]byte, end-pos)
				copy(chunk, f.pcm[pos:end])
				f.Push(chunk)
				pos = end
				continue
			}
			if !finished {
				finished = true
				close(audioDone)
			}
			f.Push(silence)
		}
	}()
	return nil
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return
	}
	f.running = false
	close(f.stopCh)
	done := f.feedDone
	f.mu.Unlock()

	<-done

	f.mu.Lock()
	select {
	case <-f.audioDone:
		f.audioDone = make(chan struct{}) // reset for replay
	default:
	}
	f.mu.Unlock()
}

func (f *FakeCapture) Close() { f.Stop() }
