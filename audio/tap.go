package audio

import "sync"

// Tap re-slices whatever the capture device delivers into fixed-size buffers
// of TapBufferFrames frames before handing them on. Flush emits the partial
// remainder, if any.
type Tap struct {
	mu     sync.Mutex
	frames int
	buf    []byte
	out    func(buf []byte)
}

func NewTap(frames int, out func(buf []byte)) *Tap {
	if frames <= 0 {
		frames = TapBufferFrames
	}
	return &Tap{frames: frames, out: out}
}

// Callback returns the DataCallback to install on a CaptureDevice.
func (t *Tap) Callback() DataCallback {
	return func(data []byte, _ uint32) {
		t.write(data)
	}
}

func (t *Tap) write(data []byte) {
	size := t.frames * BytesPerFrame

	t.mu.Lock()
	t.buf = append(t.buf, data...)
	var ready [][]byte
	for len(t.buf) >= size {
		chunk := make([]byte, size)
		copy(chunk, t.buf[:size])
		t.buf = t.buf[size:]
		ready = append(ready, chunk)
	}
	t.mu.Unlock()

	for _, chunk := range ready {
		t.out(chunk)
	}
}

func (t *Tap) Flush() {
	t.mu.Lock()
	tail := t.buf
	t.buf = nil
	t.mu.Unlock()
	if len(tail) > 0 {
		t.out(tail)
	}
}
