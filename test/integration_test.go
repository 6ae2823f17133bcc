//go:build integration

package test_test

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

var (
	testBinary string
	dataDir    string
)

func TestMain(m *testing.M) {
	testBinary = os.Getenv("HARK_TEST_BIN")
	if testBinary == "" {
		fmt.Fprintln(os.Stderr, "HARK_TEST_BIN not set; build the binary and point HARK_TEST_BIN at it")
		os.Exit(1)
	}

	var err error
	dataDir, err = os.MkdirTemp("", "hark-test")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create data dir: %v\n", err)
		os.Exit(1)
	}

	for name, amp := range map[string]float64{"silence.wav": 0, "tone.wav": 0.3} {
		if err := generateWAV(filepath.Join(dataDir, name), 16000, 1.0, amp); err != nil {
			fmt.Fprintf(os.Stderr, "failed to generate %s: %v\n", name, err)
			os.Exit(1)
		}
	}

	code := m.Run()
	os.RemoveAll(dataDir)
	os.Exit(code)
}

// generateWAV writes a 16-bit mono PCM file holding a 440 Hz tone at the
// given amplitude (0 for silence).
func generateWAV(path string, sampleRate int, durationS, amplitude float64) error {
	const headerSize = 44
	numSamples := int(float64(sampleRate) * durationS)
	dataSize := numSamples * 2

	buf := make([]byte, headerSize+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(headerSize-8+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(buf[32:34], 2)  // block align
	binary.LittleEndian.PutUint16(buf[34:36], 16) // bits per sample
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	for i := 0; i < numSamples; i++ {
		s := int16(amplitude * 32767 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)))
		binary.LittleEndian.PutUint16(buf[headerSize+i*2:], uint16(s))
	}
	return os.WriteFile(path, buf, 0644)
}

func cmds(parts ...string) string {
	return strings.Join(parts, "\n") + "\n"
}

func wav(name string) string {
	return filepath.Join(dataDir, name)
}

func runHark(t *testing.T, stdin string, args ...string) (stdout, logDir string) {
	t.Helper()
	logDir = t.TempDir()
	cmdArgs := append([]string{"-logpath", logDir}, args...)

	cmd := exec.Command(testBinary, cmdArgs...)
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Env = os.Environ()

	out, err := cmd.Output()
	if err != nil {
		t.Fatalf("hark exited with error: %v\noutput: %s", err, out)
	}
	return string(out), logDir
}

func readLog(t *testing.T, logDir, filename string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(logDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return ""
		}
		t.Fatalf("failed to read %s: %v", filename, err)
	}
	return string(data)
}

func requireDeepgramKey(t *testing.T) {
	t.Helper()
	if os.Getenv("DEEPGRAM_API_KEY") == "" {
		t.Skip("DEEPGRAM_API_KEY not set")
	}
}

// --- In-process recognizer ---

func TestFakeTranscriptShown(t *testing.T) {
	out, logDir := runHark(t, cmds("TAP", "WAIT_AUDIO_DONE", "TAP", "WAIT", "QUIT"),
		"-test", "-fake", "test transcript", wav("tone.wav"))

	for _, want := range []string{"enabled: true", "state: listening", "text: 請開始講話...", "text: test transcript", "state: idle"} {
		if !strings.Contains(out, want) {
			t.Errorf("stdout missing %q:\n%s", want, out)
		}
	}

	diag := readLog(t, logDir, "diagnostics_log.txt")
	for _, want := range []string{"auth_result", "session_start", "session_stop", "reason=tap", "app_end"} {
		if !strings.Contains(diag, want) {
			t.Errorf("diagnostics missing %q", want)
		}
	}
	if strings.Contains(diag, "test transcript") {
		t.Error("transcript text must not be written to the diagnostics log")
	}
}

func TestFakeRepeatedSessions(t *testing.T) {
	out, logDir := runHark(t, cmds("TAP", "SLEEP 50", "TAP", "WAIT", "TAP", "SLEEP 50", "TAP", "WAIT", "QUIT"),
		"-test", "-fake", "one two", wav("silence.wav"))

	if n := strings.Count(out, "state: listening"); n != 2 {
		t.Errorf("listening %d times, want 2:\n%s", n, out)
	}
	diag := readLog(t, logDir, "diagnostics_log.txt")
	if n := strings.Count(diag, "session_start"); n != 2 {
		t.Errorf("session_start logged %d times, want 2", n)
	}
}

func TestQuitWhileListening(t *testing.T) {
	out, logDir := runHark(t, cmds("TAP", "SLEEP 50", "QUIT"),
		"-test", "-fake", "unused", wav("silence.wav"))

	if !strings.Contains(out, "state: idle") {
		t.Errorf("expected the session to be torn down on quit:\n%s", out)
	}
	if !strings.Contains(readLog(t, logDir, "diagnostics_log.txt"), "reason=shutdown") {
		t.Error("expected a shutdown session_stop")
	}
}

// --- Deepgram ---

func TestDeepgramSession(t *testing.T) {
	requireDeepgramKey(t)
	out, logDir := runHark(t, cmds("TAP", "WAIT_AUDIO_DONE", "SLEEP 300", "TAP", "WAIT", "QUIT"),
		"-test", wav("tone.wav"))

	if !strings.Contains(out, "state: listening") || !strings.Contains(out, "state: idle") {
		t.Errorf("expected a full listen cycle:\n%s", out)
	}
	diag := readLog(t, logDir, "diagnostics_log.txt")
	if !strings.Contains(diag, "recognition_metrics") {
		t.Error("expected recognition_metrics in diagnostics")
	}
	if !strings.Contains(diag, "connect_ms") {
		t.Error("expected connect_ms in recognition metrics")
	}
}

func TestDeepgramBadKeyDenied(t *testing.T) {
	cmd := exec.Command(testBinary, "-logpath", t.TempDir(), "-test", wav("silence.wav"))
	cmd.Stdin = strings.NewReader(cmds("TAP", "QUIT"))
	cmd.Env = append(os.Environ(), "DEEPGRAM_API_KEY=")
	out, err := cmd.Output()
	if err != nil {
		t.Fatalf("hark exited with error: %v\noutput: %s", err, out)
	}
	if !strings.Contains(string(out), "text: 語音識別權限被拒絕") {
		t.Errorf("expected denial message:\n%s", out)
	}
	if strings.Contains(string(out), "state: listening") {
		t.Error("tap after denial started a session")
	}
}
