package recognizer

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
)

// Fake is an in-process recognizer. In automatic mode it reveals Text word by
// word as audio arrives and finishes with Text (or Err) once the request's
// audio ends. In Manual mode results are only produced through FakeTask.Emit.
type Fake struct {
	Text         string
	Err          error
	RecognizeErr error
	Manual       bool

	AuthStatus AuthStatus
	AuthErr    error

	mu    sync.Mutex
	tasks []*FakeTask
}

func NewFake(text string) *Fake {
	return &Fake{Text: text, AuthStatus: AuthGranted}
}

func (f *Fake) Name() string   { return "fake" }
func (f *Fake) Locale() string { return Locale }

func (f *Fake) Authorize(context.Context) (AuthStatus, error) {
	return f.AuthStatus, f.AuthErr
}

func (f *Fake) Recognize(ctx context.Context, req *BufferRequest) (Task, error) {
	if f.RecognizeErr != nil {
		return nil, f.RecognizeErr
	}
	ctx, cancel := context.WithCancel(ctx)
	t := &FakeTask{
		ctx:     ctx,
		cancel:  cancel,
		results: newResultStream(ctx),
		inject:  make(chan Result),
		ended:   make(chan struct{}),
		done:    make(chan struct{}),
	}
	f.mu.Lock()
	f.tasks = append(f.tasks, t)
	text, err, manual := f.Text, f.Err, f.Manual
	f.mu.Unlock()

	go t.run(req, text, err, manual)
	return t, nil
}

// Tasks returns every task created so far, oldest first.
func (f *Fake) Tasks() []*FakeTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeTask(nil), f.tasks...)
}

type FakeTask struct {
	ctx     context.Context
	cancel  context.CancelFunc
	results *resultStream
	inject  chan Result
	ended   chan struct{}
	done    chan struct{}

	canceled atomic.Bool
	received atomic.Int64
}

func (t *FakeTask) Results() <-chan Result { return t.results.ch }

func (t *FakeTask) Cancel() {
	t.canceled.Store(true)
	t.cancel()
}

func (t *FakeTask) Canceled() bool { return t.canceled.Load() }

// AudioEnded is closed once the request's EndAudio was observed.
func (t *FakeTask) AudioEnded() <-chan struct{} { return t.ended }

// Done is closed after the terminal result was delivered.
func (t *FakeTask) Done() <-chan struct{} { return t.done }

func (t *FakeTask) BytesReceived() int64 { return t.received.Load() }

// Emit delivers r as the task's next result. A terminal r ends the task.
// Emit on a finished task is a no-op.
func (t *FakeTask) Emit(r Result) {
	select {
	case t.inject <- r:
	case <-t.done:
	}
}

func (t *FakeTask) run(req *BufferRequest, text string, err error, manual bool) {
	defer close(t.done)

	words := strings.Fields(text)
	chunks := 0
	audio := req.Audio()
	for {
		select {
		case <-t.ctx.Done():
			go drain(req)
			t.results.finish(Result{Err: ErrCanceled})
			return

		case pcm, ok := <-audio:
			if !ok {
				audio = nil
				close(t.ended)
				if manual {
					continue
				}
				if err != nil {
					t.results.finish(Result{Err: err})
				} else {
					t.results.finish(Result{Text: text, Final: true})
				}
				return
			}
			t.received.Add(int64(len(pcm)))
			chunks++
			if !manual && req.ReportPartialResults && len(words) > 0 && chunks%4 == 0 {
				n := min(chunks/4, len(words))
				t.results.partial(strings.Join(words[:n], " "))
			}

		case r := <-t.inject:
			if r.Terminal() {
				t.results.finish(r)
				return
			}
			t.results.partial(r.Text)
		}
	}
}
