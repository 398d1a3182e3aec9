package transport

import (
	"errors"
	"fmt"
	"time"

	"go.bug.st/serial"
)

// DefaultBaud matches the device firmware.
const DefaultBaud = 9600

const (
	// MaxLineLen bounds a single reply: snapshot plus the longest marker.
	MaxLineLen = 32
	readBufLen = 256
)

// ErrWriteTimeout is returned when a write exceeds its total timeout.
var ErrWriteTimeout = errors.New("serial write timed out")

// Timeouts mirrors the classic interval/constant/multiplier serial timeout model.
type Timeouts struct {
	ReadInterval         time.Duration
	ReadTotalConstant    time.Duration
	ReadTotalMultiplier  time.Duration
	WriteTotalConstant   time.Duration
	WriteTotalMultiplier time.Duration
}

// DefaultTimeouts tolerate the microcontroller's buffering without stalling the UI.
var DefaultTimeouts = Timeouts{
	ReadInterval:         50 * time.Millisecond,
	ReadTotalConstant:    50 * time.Millisecond,
	ReadTotalMultiplier:  10 * time.Millisecond,
	WriteTotalConstant:   50 * time.Millisecond,
	WriteTotalMultiplier: 10 * time.Millisecond,
}

// ReadTotal is the longest a single Read may take.
func (t Timeouts) ReadTotal() time.Duration {
	return t.ReadTotalConstant + t.ReadTotalMultiplier*MaxLineLen
}

// WriteTotal is the longest a write of n bytes may take.
func (t Timeouts) WriteTotal(n int) time.Duration {
	return t.WriteTotalConstant + t.WriteTotalMultiplier*time.Duration(n)
}

// port is the subset of serial.Port used here.
type port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	SetReadTimeout(t time.Duration) error
	Close() error
}

type serialTransport struct {
	name     string
	port     port
	timeouts Timeouts
	// pending holds the result of a write that outlived its timeout.
	pending chan error
	closed  bool
	now     func() time.Time
}

var openPort = func(name string, mode *serial.Mode) (port, error) {
	return serial.Open(name, mode)
}

func openSerial(name string, baud int, timeouts Timeouts) (*serialTransport, error) {
	if name == "" {
		return nil, &OpenError{Backend: "serial", Target: name, Err: errors.New("port name is empty")}
	}
	if baud <= 0 {
		baud = DefaultBaud
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := openPort(name, mode)
	if err != nil {
		return nil, &OpenError{Backend: "serial", Target: name, Err: err}
	}
	return newSerialTransport(name, p, timeouts), nil
}

func newSerialTransport(name string, p port, timeouts Timeouts) *serialTransport {
	return &serialTransport{
		name:     name,
		port:     p,
		timeouts: timeouts,
		now:      time.Now,
	}
}

func (s *serialTransport) Name() string {
	return "serial(" + s.name + ")"
}

func (s *serialTransport) Write(p []byte) error {
	if s.closed {
		return ErrClosed
	}
	if s.pending != nil {
		select {
		case err := <-s.pending:
			s.pending = nil
			if err != nil {
				return fmt.Errorf("%w: previous write: %v", ErrIO, err)
			}
		default:
			return fmt.Errorf("%w: %w: previous write still pending", ErrIO, ErrWriteTimeout)
		}
	}
	done := make(chan error, 1)
	go func() {
		_, err := s.port.Write(p)
		done <- err
	}()
	timer := time.NewTimer(s.timeouts.WriteTotal(len(p)))
	defer timer.Stop()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: write %s: %v", ErrIO, s.name, err)
		}
		return nil
	case <-timer.C:
		s.pending = done
		return fmt.Errorf("%w: %w", ErrIO, ErrWriteTimeout)
	}
}

// Read collects one reply. It waits up to ReadTotal for data, then keeps
// reading while bytes keep arriving within ReadInterval, and stops early
// on a newline.
func (s *serialTransport) Read() ([]byte, error) {
	if s.closed {
		return nil, ErrClosed
	}
	deadline := s.now().Add(s.timeouts.ReadTotal())
	buf := make([]byte, 0, readBufLen)
	chunk := make([]byte, readBufLen)
	for len(buf) < readBufLen {
		remaining := deadline.Sub(s.now())
		if remaining <= 0 {
			break
		}
		wait := remaining
		if len(buf) > 0 && s.timeouts.ReadInterval < wait {
			wait = s.timeouts.ReadInterval
		}
		if err := s.port.SetReadTimeout(wait); err != nil {
			return buf, fmt.Errorf("%w: set read timeout: %v", ErrIO, err)
		}
		n, err := s.port.Read(chunk[:readBufLen-len(buf)])
		if err != nil {
			return buf, fmt.Errorf("%w: read %s: %v", ErrIO, s.name, err)
		}
		if n == 0 {
			// Timed out: either nothing came or the interval gap ended the reply.
			break
		}
		buf = append(buf, chunk[:n]...)
		if buf[len(buf)-1] == '\n' {
			break
		}
	}
	return buf, nil
}

func (s *serialTransport) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.port.Close()
}

// Ports lists the serial ports present on the system.
func Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}
