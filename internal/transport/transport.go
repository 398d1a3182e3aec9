// Package transport moves protocol lines between the client and the game device.
//
// Two backends exist: a real serial port and a file pair used when no
// hardware is available. Open picks exactly one; callers only see Transport.
package transport

import (
	"errors"
	"fmt"
	"os"
	"runtime"
)

// MockEnvVar selects the file-backed transport when present in the environment.
const MockEnvVar = "CI"

const (
	DefaultMockOutPath = "mock_serial_out.txt"
	DefaultMockInPath  = "mock_serial_in.txt"
)

var (
	// ErrIO wraps read and write failures. They are not fatal to a session.
	ErrIO = errors.New("transport i/o failed")
	// ErrClosed is returned by operations on a closed transport.
	ErrClosed = errors.New("transport closed")
)

// Transport is a half-duplex line channel to the device.
type Transport interface {
	// Write sends p as-is.
	Write(p []byte) error
	// Read returns the next available data. It returns an empty slice when
	// nothing arrived within the backend's timeout.
	Read() ([]byte, error)
	// Close releases the underlying resources.
	Close() error
	// Name describes the backend for logs.
	Name() string
}

// Options selects and configures a backend.
type Options struct {
	Mock        bool
	Port        string
	Baud        int
	Timeouts    Timeouts
	MockOutPath string
	MockInPath  string
}

// OpenError reports a failure to acquire the transport.
type OpenError struct {
	Backend string
	Target  string
	Err     error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("failed to open %s transport %s: %v", e.Backend, e.Target, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// MockRequested reports whether the environment selects the mock backend.
func MockRequested() bool {
	_, ok := os.LookupEnv(MockEnvVar)
	return ok
}

// DefaultPort returns the platform's usual device name for the board.
func DefaultPort() string {
	if runtime.GOOS == "windows" {
		return "COM7"
	}
	return "/dev/ttyACM0"
}

// DefaultOptions returns options for the real port with default settings.
func DefaultOptions() Options {
	return Options{
		Port:        DefaultPort(),
		Baud:        DefaultBaud,
		Timeouts:    DefaultTimeouts,
		MockOutPath: DefaultMockOutPath,
		MockInPath:  DefaultMockInPath,
	}
}

// Open acquires the backend chosen by opts.Mock.
func Open(opts Options) (Transport, error) {
	if opts.Mock {
		m, err := openMock(opts.MockOutPath, opts.MockInPath)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	s, err := openSerial(opts.Port, opts.Baud, opts.Timeouts)
	if err != nil {
		return nil, err
	}
	return s, nil
}
