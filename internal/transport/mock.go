package transport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// mockTransport appends written lines to one file and reads replies from another.
type mockTransport struct {
	out    *os.File
	in     *os.File
	reader *bufio.Reader
	closed bool
}

func openMock(outPath, inPath string) (*mockTransport, error) {
	if outPath == "" || inPath == "" {
		return nil, &OpenError{Backend: "mock", Target: outPath + "," + inPath, Err: errors.New("mock file path is empty")}
	}
	out, err := os.OpenFile(outPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return nil, &OpenError{Backend: "mock", Target: outPath, Err: err}
	}
	in, err := os.Open(inPath)
	if err != nil {
		if cerr := out.Close(); cerr != nil {
			// Best-effort close on open failure.
			_ = cerr
		}
		return nil, &OpenError{Backend: "mock", Target: inPath, Err: err}
	}
	return &mockTransport{
		out:    out,
		in:     in,
		reader: bufio.NewReader(in),
	}, nil
}

func (m *mockTransport) Name() string {
	return fmt.Sprintf("mock(%s -> %s)", m.out.Name(), m.in.Name())
}

func (m *mockTransport) Write(p []byte) error {
	if m.closed {
		return ErrClosed
	}
	if _, err := m.out.Write(p); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrIO, m.out.Name(), err)
	}
	return nil
}

// Read returns the next line without its terminator, or nothing at EOF.
func (m *mockTransport) Read() ([]byte, error) {
	if m.closed {
		return nil, ErrClosed
	}
	line, err := m.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: read %s: %v", ErrIO, m.in.Name(), err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return nil, nil
	}
	return []byte(line), nil
}

func (m *mockTransport) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	return errors.Join(m.out.Close(), m.in.Close())
}
