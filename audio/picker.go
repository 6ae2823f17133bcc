package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

var ErrSelectionAborted = errors.New("device selection aborted")

type pickKey int

const (
	keyNone pickKey = iota
	keyUp
	keyDown
	keyEnter
	keyAbort
)

// parseKey maps one read from a raw-mode terminal to a picker key.
func parseKey(b []byte) pickKey {
	if len(b) == 3 && b[0] == 0x1b && b[1] == '[' {
		switch b[2] {
		case 'A':
			return keyUp
		case 'B':
			return keyDown
		}
		return keyNone
	}
	if len(b) != 1 {
		return keyNone
	}
	switch b[0] {
	case '\r', '\n':
		return keyEnter
	case 3, 0x1b, 'q': // ctrl+c, esc
		return keyAbort
	case 'k':
		return keyUp
	case 'j':
		return keyDown
	}
	return keyNone
}

type picker struct {
	devices []DeviceInfo
	cursor  int
}

// press moves the cursor or ends the selection.
func (p *picker) press(k pickKey) (done bool, err error) {
	switch k {
	case keyUp:
		p.cursor = max(p.cursor-1, 0)
	case keyDown:
		p.cursor = min(p.cursor+1, len(p.devices)-1)
	case keyEnter:
		return true, nil
	case keyAbort:
		return true, ErrSelectionAborted
	}
	return false, nil
}

func (p *picker) selected() *DeviceInfo {
	return &p.devices[p.cursor]
}

// lines is how far render moves the cursor down.
func (p *picker) lines() int {
	return len(p.devices) + 2
}

func (p *picker) render(w io.Writer) {
	fmt.Fprint(w, "\r\x1b[J")
	fmt.Fprint(w, "Select microphone (↑/↓, Enter to confirm, Esc to keep the default):\r\n\r\n")
	for i, d := range p.devices {
		note := ""
		if IsBluetooth(d.Name) {
			note = " \x1b[33m(bluetooth, lower quality)\x1b[0m"
		}
		if i == p.cursor {
			fmt.Fprintf(w, "  \x1b[1;36m> %s\x1b[0m%s\r\n", d.Name, note)
		} else {
			fmt.Fprintf(w, "    %s%s\r\n", d.Name, note)
		}
	}
}

// SelectDevice asks on the terminal which capture device to use. A single
// device is returned without asking.
func SelectDevice(ctx Context) (*DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	switch len(devices) {
	case 0:
		return nil, errors.New("no capture devices found")
	case 1:
		return &devices[0], nil
	}
	return pick(&picker{devices: devices}, os.Stdin, os.Stdout)
}

func pick(p *picker, in *os.File, out io.Writer) (*DeviceInfo, error) {
	fd := int(in.Fd())
	saved, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("setting raw mode: %w", err)
	}
	defer term.Restore(fd, saved)

	p.render(out)
	buf := make([]byte, 8)
	for {
		n, err := in.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}
		done, err := p.press(parseKey(buf[:n]))
		if done {
			fmt.Fprint(out, "\r\n")
			if err != nil {
				return nil, err
			}
			return p.selected(), nil
		}
		fmt.Fprintf(out, "\x1b[%dA", p.lines())
		p.render(out)
	}
}
