package recognizer

import (
	"sync"
	"sync/atomic"
)

const requestQueueLen = 256

// BufferRequest carries live audio from the capture tap to a recognizer.
// Append is safe to call from the audio callback goroutine and never blocks;
// buffers that arrive while the queue is full, or after EndAudio, are dropped.
type BufferRequest struct {
	ReportPartialResults bool
	Locale               string
	SampleRate           int
	Channels             int

	audio   chan []byte
	mu      sync.Mutex
	ended   bool
	dropped atomic.Int64
}

func NewBufferRequest(locale string, sampleRate, channels int) *BufferRequest {
	return &BufferRequest{
		ReportPartialResults: true,
		Locale:               locale,
		SampleRate:           sampleRate,
		Channels:             channels,
		audio:                make(chan []byte, requestQueueLen),
	}
}

func (r *BufferRequest) Append(pcm []byte) {
	if len(pcm) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ended {
		return
	}
	select {
	case r.audio <- pcm:
	default:
		r.dropped.Add(1)
	}
}

// EndAudio marks the end of input. The recognizer finishes what it has and
// then delivers its final result.
func (r *BufferRequest) EndAudio() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ended {
		return
	}
	r.ended = true
	close(r.audio)
}

func (r *BufferRequest) Ended() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ended
}

// Audio is drained by the recognizer; it is closed by EndAudio.
func (r *BufferRequest) Audio() <-chan []byte { return r.audio }

func (r *BufferRequest) Dropped() int64 { return r.dropped.Load() }
