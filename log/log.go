package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	diagLog  zerolog.Logger
	diagFile *os.File
	logMu    sync.Mutex
	logReady bool
	pid      int
	dir      string
)

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		return absPath(flagPath)
	}

	// Priority 2: HARK_LOG_PATH environment variable
	if envPath := os.Getenv("HARK_LOG_PATH"); envPath != "" {
		return absPath(envPath)
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func absPath(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error
	diagPath := filepath.Join(dir, "diagnostics_log.txt")
	diagFile, err = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	logReady = false
}

func ready() bool {
	logMu.Lock()
	defer logMu.Unlock()
	return logReady
}

func Info(msg string) {
	if ready() {
		diagLog.Info().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if ready() {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warnf(format string, args ...any) {
	if ready() {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func AppStart(version, provider, locale string) {
	if !ready() {
		return
	}
	diagLog.Info().
		Str("version", version).
		Str("provider", provider).
		Str("locale", locale).
		Msg("app_start")
}

func AppEnd(sessions int) {
	if !ready() {
		return
	}
	diagLog.Info().
		Int("sessions", sessions).
		Msg("app_end")
}

func Auth(provider, status string, err error) {
	if !ready() {
		return
	}
	ev := diagLog.Info()
	if err != nil {
		ev = diagLog.Warn().Err(err)
	}
	ev.Str("provider", provider).
		Str("status", status).
		Msg("auth_result")
}

func SessionStart(id, provider, device string) {
	if !ready() {
		return
	}
	diagLog.Info().
		Str("session", id).
		Str("provider", provider).
		Str("device", device).
		Msg("session_start")
}

// SessionStop records why a session left the listening state, one of
// "tap", "final", "error", "start_failed" or "shutdown".
func SessionStop(id, reason string, dur time.Duration, err error) {
	if !ready() {
		return
	}
	ev := diagLog.Info()
	if err != nil {
		ev = diagLog.Warn().Err(err)
	}
	ev.Str("session", id).
		Str("reason", reason).
		Float64("duration_s", dur.Seconds()).
		Msg("session_stop")
}

// RecognitionCanceled marks a stopped session whose final result was given
// up because a new session started.
func RecognitionCanceled(id string) {
	if !ready() {
		return
	}
	diagLog.Info().
		Str("session", id).
		Msg("recognition_canceled")
}

type RecognitionMetricsData struct {
	ConnectMs    float64
	TotalMs      float64
	SentChunks   int
	SentKB       float64
	Dropped      int64
	RecvMessages int
	RecvFinal    int
	RecvInterim  int
	Final        bool
}

func RecognitionMetrics(m RecognitionMetricsData) {
	if !ready() {
		return
	}
	diagLog.Info().
		Float64("connect_ms", m.ConnectMs).
		Float64("total_ms", m.TotalMs).
		Int("sent_chunks", m.SentChunks).
		Float64("sent_kb", m.SentKB).
		Int64("dropped_chunks", m.Dropped).
		Int("recv_messages", m.RecvMessages).
		Int("recv_final", m.RecvFinal).
		Int("recv_interim", m.RecvInterim).
		Bool("final", m.Final).
		Msg("recognition_metrics")
}
