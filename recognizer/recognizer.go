package recognizer

import (
	"context"
	"errors"
	"os"
)

// Locale is the one language the recognizer is configured for.
const Locale = "zh-TW"

var (
	ErrCanceled = errors.New("recognition canceled")
	ErrNoAPIKey = errors.New("DEEPGRAM_API_KEY is not set")
)

// Result is one delivery from a recognition task. Text is the best current
// transcription of everything heard so far in the session. A task delivers
// zero or more partial results followed by exactly one terminal result,
// either Final or with Err set, and then closes its channel.
type Result struct {
	Text  string
	Final bool
	Err   error
}

func (r Result) Terminal() bool { return r.Final || r.Err != nil }

// Task is the handle of one in-flight recognition exchange.
type Task interface {
	Results() <-chan Result
	// Cancel aborts the exchange. The terminal result, if still delivered,
	// carries ErrCanceled. Calling Cancel more than once is a no-op.
	Cancel()
}

type Recognizer interface {
	Name() string
	Locale() string
	Recognize(ctx context.Context, req *BufferRequest) (Task, error)
}

type AuthStatus int

const (
	AuthNotDetermined AuthStatus = iota
	AuthGranted
	AuthDenied
)

func (s AuthStatus) String() string {
	switch s {
	case AuthGranted:
		return "granted"
	case AuthDenied:
		return "denied"
	}
	return "not_determined"
}

// Authorizer decides once, at startup, whether recognition may be used.
type Authorizer interface {
	Authorize(ctx context.Context) (AuthStatus, error)
}

// New returns the Deepgram recognizer keyed from the environment. A missing
// key is not an error here; Authorize reports it as a denial.
func New() *Deepgram {
	return NewDeepgram(os.Getenv("DEEPGRAM_API_KEY"))
}
