// Package instrument opens text-command sessions to bench instruments over
// serial, raw socket and USBTMC transports.
package instrument

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const identityQuery = "*IDN?"

// Transport is a byte stream to one instrument. Read may return (0, nil)
// when nothing arrived within the transport's own poll interval.
type Transport interface {
	io.ReadWriteCloser
}

// Dialer opens the transport for a parsed resource
type Dialer interface {
	Dial(ctx context.Context, res Resource) (Transport, error)
}

// DialerFunc adapts a function to the Dialer interface
type DialerFunc func(ctx context.Context, res Resource) (Transport, error)

// Dial calls f(ctx, res)
func (f DialerFunc) Dial(ctx context.Context, res Resource) (Transport, error) {
	return f(ctx, res)
}

// ConnectionError reports that a session could not be established
type ConnectionError struct {
	Address string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %s failed: %v", e.Address, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Manager opens sessions through a Dialer
type Manager struct {
	dialer  Dialer
	timeout time.Duration
}

// NewManager creates a session manager. A zero timeout means 5s.
func NewManager(dialer Dialer, timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Manager{dialer: dialer, timeout: timeout}
}

// Open resolves the address, dials it and checks that the device answers the
// identity query.
func (m *Manager) Open(ctx context.Context, address string) (*Session, error) {
	res, err := ParseResource(address)
	if err != nil {
		return nil, &ConnectionError{Address: address, Err: err}
	}

	t, err := m.dialer.Dial(ctx, res)
	if err != nil {
		return nil, &ConnectionError{Address: address, Err: err}
	}

	s := &Session{
		address:   address,
		transport: t,
		timeout:   m.timeout,
		rxTerm:    '\n',
		txTerm:    "\n",
	}

	idn, err := s.Query(identityQuery)
	if err == nil && idn == "" {
		err = errors.New("empty identity reply")
	}
	if err != nil {
		_ = t.Close()
		return nil, &ConnectionError{Address: address, Err: err}
	}
	s.identity = idn

	log.Info().Str("address", address).Str("kind", res.Kind.String()).Str("idn", idn).Msg("Instrument connected")
	return s, nil
}

// Session is an open command session to one device. It is owned by a single
// goroutine.
type Session struct {
	address   string
	identity  string
	transport Transport
	timeout   time.Duration
	rxTerm    byte
	txTerm    string
	pending   []byte
}

// Address returns the resource string the session was opened with
func (s *Session) Address() string { return s.address }

// Identity returns the *IDN? reply captured at open time
func (s *Session) Identity() string { return s.identity }

// Write sends one command followed by the terminator
func (s *Session) Write(cmd string) error {
	if _, err := io.WriteString(s.transport, cmd+s.txTerm); err != nil {
		return errors.Wrapf(err, "write %q to %s", cmd, s.address)
	}
	return nil
}

// Query sends a command and returns the reply without its terminator
func (s *Session) Query(cmd string) (string, error) {
	if err := s.Write(cmd); err != nil {
		return "", err
	}
	line, err := s.readLine()
	if err != nil {
		return "", errors.Wrapf(err, "query %q on %s", cmd, s.address)
	}
	return strings.TrimSpace(line), nil
}

// QueryFloat sends a query and parses the reply as a number
func (s *Session) QueryFloat(cmd string) (float64, error) {
	reply, err := s.Query(cmd)
	if err != nil {
		return 0, err
	}
	// Multi-value replies carry the reading first
	if i := strings.IndexByte(reply, ','); i >= 0 {
		reply = reply[:i]
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(reply), 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse reply to %q on %s", cmd, s.address)
	}
	return v, nil
}

// Configure sends each command in order, stopping at the first failure
func (s *Session) Configure(cmds []string) error {
	for _, cmd := range cmds {
		if err := s.Write(cmd); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the transport
func (s *Session) Close() error {
	return s.transport.Close()
}

func (s *Session) readLine() (string, error) {
	deadline := time.Now().Add(s.timeout)
	buf := make([]byte, 256)
	for {
		if i := bytes.IndexByte(s.pending, s.rxTerm); i >= 0 {
			line := string(s.pending[:i])
			s.pending = s.pending[i+1:]
			return line, nil
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("timeout after %s", s.timeout)
		}
		n, err := s.transport.Read(buf)
		s.pending = append(s.pending, buf[:n]...)
		if err != nil {
			if err == io.EOF && len(s.pending) > 0 {
				line := string(s.pending)
				s.pending = nil
				return line, nil
			}
			return "", err
		}
	}
}
