package recognizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"hark/log"

	"nhooyr.io/websocket"
)

const (
	deepgramListenURL   = "wss://api.deepgram.com/v1/listen"
	deepgramProjectsURL = "https://api.deepgram.com/v1/projects"
	deepgramModel       = "nova-2"

	finalizeTimeout = 3 * time.Second
)

type Deepgram struct {
	apiKey     string
	listenURL  string
	authURL    string
	model      string
	httpClient *http.Client
}

func NewDeepgram(apiKey string) *Deepgram {
	return &Deepgram{
		apiKey:    apiKey,
		listenURL: deepgramListenURL,
		authURL:   deepgramProjectsURL,
		model:     deepgramModel,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        1,
				MaxIdleConnsPerHost: 1,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		},
	}
}

func (d *Deepgram) Name() string   { return "deepgram" }
func (d *Deepgram) Locale() string { return Locale }

// Authorize checks the API key against the projects endpoint, which only
// answers 200 for a valid key.
func (d *Deepgram) Authorize(ctx context.Context) (AuthStatus, error) {
	if d.apiKey == "" {
		return AuthDenied, ErrNoAPIKey
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.authURL, nil)
	if err != nil {
		return AuthDenied, err
	}
	req.Header.Set("Authorization", "Token "+d.apiKey)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return AuthDenied, fmt.Errorf("deepgram auth: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	switch {
	case resp.StatusCode == http.StatusOK:
		return AuthGranted, nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return AuthDenied, fmt.Errorf("deepgram rejected the API key (%d)", resp.StatusCode)
	default:
		return AuthDenied, fmt.Errorf("deepgram auth error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
}

type deepgramResponse struct {
	Type         string `json:"type"`
	IsFinal      bool   `json:"is_final"`
	SpeechFinal  bool   `json:"speech_final"`
	FromFinalize bool   `json:"from_finalize"`
	Channel      struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func (d *Deepgram) endpoint(req *BufferRequest) (string, error) {
	endpoint, err := url.Parse(d.listenURL)
	if err != nil {
		return "", err
	}
	q := endpoint.Query()
	q.Set("model", d.model)
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(req.SampleRate))
	q.Set("channels", strconv.Itoa(req.Channels))
	q.Set("interim_results", strconv.FormatBool(req.ReportPartialResults))
	q.Set("punctuate", "true")
	if req.Locale != "" {
		q.Set("language", req.Locale)
	}
	endpoint.RawQuery = q.Encode()
	return endpoint.String(), nil
}

// Recognize opens a live stream for req. The connection is dialed in the
// background; a dial failure arrives as the terminal error result.
func (d *Deepgram) Recognize(ctx context.Context, req *BufferRequest) (Task, error) {
	if d.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	endpoint, err := d.endpoint(req)
	if err != nil {
		return nil, fmt.Errorf("deepgram endpoint: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	t := &deepgramTask{
		ctx:     ctx,
		cancel:  cancel,
		results: newResultStream(ctx),
		req:     req,
		started: time.Now(),
	}
	go t.run(endpoint, d.apiKey, req)
	return t, nil
}

type deepgramTask struct {
	ctx     context.Context
	cancel  context.CancelFunc
	results *resultStream
	req     *BufferRequest
	started time.Time

	endSent atomic.Bool

	// owned by the run goroutine
	committed string
	stats     log.RecognitionMetricsData
}

func (t *deepgramTask) Results() <-chan Result { return t.results.ch }

func (t *deepgramTask) Cancel() { t.cancel() }

func (t *deepgramTask) run(endpoint, apiKey string, req *BufferRequest) {
	defer t.cancel()

	headers := http.Header{}
	headers.Set("Authorization", "Token "+apiKey)

	connectStart := time.Now()
	conn, _, err := websocket.Dial(t.ctx, endpoint, &websocket.DialOptions{HTTPHeader: headers})
	t.stats.ConnectMs = float64(time.Since(connectStart).Milliseconds())
	if err != nil {
		go drain(req)
		t.finish(Result{Err: t.classify(fmt.Errorf("deepgram connect: %w", err))})
		return
	}
	defer conn.CloseNow()

	sendDone := make(chan struct{})
	var sent, sentBytes atomic.Int64
	go func() {
		defer close(sendDone)
		audio := req.Audio()
		for audio != nil {
			select {
			case <-t.ctx.Done():
				go drain(req)
				return
			case chunk, ok := <-audio:
				if !ok {
					audio = nil
					continue
				}
				if err := conn.Write(t.ctx, websocket.MessageBinary, chunk); err != nil {
					go drain(req)
					return
				}
				sent.Add(1)
				sentBytes.Add(int64(len(chunk)))
			}
		}
		t.endSent.Store(true)
		if err := conn.Write(t.ctx, websocket.MessageText, []byte(`{"type":"Finalize"}`)); err != nil {
			return
		}
		time.AfterFunc(finalizeTimeout, func() {
			conn.Close(websocket.StatusNormalClosure, "finalize timeout")
		})
	}()

	for {
		_, data, err := conn.Read(t.ctx)
		if err != nil {
			t.stats.SentChunks = int(sent.Load())
			t.stats.SentKB = float64(sentBytes.Load()) / 1024
			if t.endSent.Load() && t.ctx.Err() == nil {
				t.finish(Result{Text: t.committed, Final: true})
				return
			}
			t.finish(Result{Err: t.classify(fmt.Errorf("deepgram stream: %w", err))})
			return
		}

		var resp deepgramResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			log.Warnf("deepgram: bad message: %v", err)
			continue
		}
		if resp.Type != "" && resp.Type != "Results" {
			continue
		}
		t.stats.RecvMessages++

		transcript := ""
		if len(resp.Channel.Alternatives) > 0 {
			transcript = strings.TrimSpace(resp.Channel.Alternatives[0].Transcript)
		}
		isFinal := resp.IsFinal || resp.FromFinalize
		if isFinal {
			t.stats.RecvFinal++
			t.committed = joinTranscript(t.committed, transcript)
		} else {
			t.stats.RecvInterim++
		}

		if resp.FromFinalize && t.endSent.Load() {
			<-sendDone
			t.stats.SentChunks = int(sent.Load())
			t.stats.SentKB = float64(sentBytes.Load()) / 1024
			conn.Write(t.ctx, websocket.MessageText, []byte(`{"type":"CloseStream"}`))
			conn.Close(websocket.StatusNormalClosure, "")
			t.finish(Result{Text: t.committed, Final: true})
			return
		}

		text := t.committed
		if !isFinal {
			text = joinTranscript(t.committed, transcript)
		}
		if text != "" && (req.ReportPartialResults || isFinal) {
			t.results.partial(text)
		}
	}
}

func (t *deepgramTask) classify(err error) error {
	if errors.Is(t.ctx.Err(), context.Canceled) {
		return ErrCanceled
	}
	return err
}

func (t *deepgramTask) finish(r Result) {
	t.stats.TotalMs = float64(time.Since(t.started).Milliseconds())
	t.stats.Final = r.Final
	t.stats.Dropped = t.req.Dropped()
	log.RecognitionMetrics(t.stats)
	t.results.finish(r)
}

func joinTranscript(committed, segment string) string {
	switch {
	case segment == "":
		return committed
	case committed == "":
		return segment
	}
	return committed + " " + segment
}

// drain keeps a request's queue moving after the stream died so EndAudio and
// Append never observe a stuck consumer.
func drain(req *BufferRequest) {
	for range req.Audio() {
	}
}
