package audio

import (
	"fmt"
	"sync"

	"hark/log"
)

// Source hands out a capture device for one session at a time. The platform
// context is only created on the first Open, and a failed attempt is retried
// on the next one, so a missing audio server or microphone is reported per
// session instead of at startup.
type Source struct {
	newContext func() (Context, error)
	config     CaptureConfig
	want       string

	mu       sync.Mutex
	ctx      Context
	device   *DeviceInfo
	resolved bool
}

// NewSource opens devices through newContext. A non-empty device name is
// looked up on first use; the system default is used when it is missing.
func NewSource(newContext func() (Context, error), device string) *Source {
	return &Source{
		newContext: newContext,
		config:     DefaultCaptureConfig(),
		want:       device,
		resolved:   device == "",
	}
}

// Context returns the platform context, creating it if needed.
func (s *Source) Context() (Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.context()
}

func (s *Source) context() (Context, error) {
	if s.ctx != nil {
		return s.ctx, nil
	}
	ctx, err := s.newContext()
	if err != nil {
		return nil, fmt.Errorf("audio context: %w", err)
	}
	s.ctx = ctx
	return ctx, nil
}

// Use pins the device picked interactively.
func (s *Source) Use(device *DeviceInfo) {
	s.mu.Lock()
	s.device, s.resolved = device, true
	s.mu.Unlock()
}

// Open prepares a capture device in the default format. The caller owns it
// and closes it when the session ends.
func (s *Source) Open() (CaptureDevice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, err := s.context()
	if err != nil {
		return nil, err
	}
	if !s.resolved {
		s.resolve(ctx)
	}
	capture, err := ctx.NewCapture(s.device, s.config)
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}
	return capture, nil
}

func (s *Source) resolve(ctx Context) {
	devices, err := ctx.Devices()
	if err != nil {
		log.Warnf("device enumeration failed: %v", err)
		return
	}
	s.resolved = true
	for i := range devices {
		if devices[i].Name == s.want {
			s.device = &devices[i]
			return
		}
	}
	log.Warnf("device not found, using the default: %s", s.want)
}

// DeviceName names the device sessions record from.
func (s *Source) DeviceName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.device != nil:
		return s.device.Name
	case !s.resolved:
		return s.want
	}
	return "system default"
}

func (s *Source) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx != nil {
		s.ctx.Close()
		s.ctx = nil
	}
}
