package audio

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestFakeCaptureReplaysAndStops(t *testing.T) {
	pcm := make([]byte, 3*TapBufferFrames*BytesPerFrame)
	c := NewFakeCapture(pcm, false)

	var fed atomic.Int64
	c.SetCallback(func(data []byte, frames uint32) {
		fed.Add(int64(len(data)))
	})
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
	if err := c.Start(); err == nil {
		t.Error("second Start should fail while running")
	}

	select {
	case <-c.AudioDone():
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for audio to be fed")
	}
	c.Stop()
	c.Stop()

	if fed.Load() < int64(len(pcm)) {
		t.Errorf("fed %d bytes, want at least %d", fed.Load(), len(pcm))
	}
	if c.Running() {
		t.Error("capture still running after Stop")
	}
	if c.Starts() != 1 {
		t.Errorf("Starts() = %d, want 1", c.Starts())
	}
}

func TestFakeCaptureStartErr(t *testing.T) {
	c := NewFakeCapture(nil, false)
	c.StartErr = os.ErrPermission
	if err := c.Start(); err != os.ErrPermission {
		t.Fatalf("Start() = %v, want %v", err, os.ErrPermission)
	}
	if c.Running() {
		t.Error("capture should not run after a failed Start")
	}
}

func TestFakeCapturePushWithoutTap(t *testing.T) {
	c := NewFakeCapture(nil, false)
	c.Push([]byte{0, 0}) // no callback installed: dropped
	var n int
	c.SetCallback(func(data []byte, frames uint32) { n = int(frames) })
	c.Push([]byte{0, 0, 0, 0})
	if n != 2 {
		t.Errorf("frames = %d, want 2", n)
	}
	c.ClearCallback()
	if c.HasCallback() {
		t.Error("callback still installed after ClearCallback")
	}
}

func TestNewFakeContextStripsHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.wav")
	data := make([]byte, WAVHeaderSize+8)
	for i := WAVHeaderSize; i < len(data); i++ {
		data[i] = 7
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	ctx, err := NewFakeContext(path, false)
	if err != nil {
		t.Fatal(err)
	}
	if pcm := ctx.Capture().pcm; len(pcm) != 8 || pcm[0] != 7 {
		t.Errorf("pcm = %v, want 8 bytes of payload", pcm)
	}
}
