package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// ErrClosed is returned by Confirm once the session has been closed
var ErrClosed = errors.New("prompt: session closed")

// Session is the operator's question/answer channel for the whole run.
// It must be closed exactly once; Close is safe to call again.
type Session struct {
	mu     sync.Mutex
	in     *bufio.Reader
	out    io.Writer
	closer io.Closer
	closed bool

	closeOnce sync.Once
	closeErr  error
}

// NewSession reads answers from in and writes questions to out.
// If in implements io.Closer it is closed by Close.
func NewSession(in io.Reader, out io.Writer) *Session {
	s := &Session{
		in:  bufio.NewReader(in),
		out: out,
	}
	if c, ok := in.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// Confirm writes question and blocks until the operator answers with a line.
// It returns true only for "y" (case and surrounding space ignored).
// Input ending before an answer is reported as io.EOF.
func (s *Session) Confirm(question string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, ErrClosed
	}

	if _, err := io.WriteString(s.out, question); err != nil {
		return false, fmt.Errorf("prompt: write question: %w", err)
	}

	line, err := s.in.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return false, fmt.Errorf("prompt: read answer: %w", err)
		}
		// A final line without newline is still an answer
		if line == "" {
			return false, io.EOF
		}
	}

	return strings.ToLower(strings.TrimSpace(line)) == "y", nil
}

// Close releases the input. Only the first call has an effect.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		if s.closer != nil {
			s.closeErr = s.closer.Close()
		}
	})
	return s.closeErr
}

// IsTerminal reports whether f is an interactive terminal
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
