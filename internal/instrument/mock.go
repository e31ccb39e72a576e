package instrument

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

// MockTransport is a scripted instrument: queries listed in Replies are
// answered, every written command is recorded.
type MockTransport struct {
	mu      sync.Mutex
	Replies map[string]string
	// FailOn makes Write return an error for the named command
	FailOn   map[string]error
	CloseErr error

	written []string
	rx      []byte
	closed  bool
}

// NewMockTransport creates a mock that identifies itself as idn
func NewMockTransport(idn string) *MockTransport {
	return &MockTransport{
		Replies: map[string]string{identityQuery: idn},
		FailOn:  map[string]error{},
	}
}

func (m *MockTransport) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, errors.New("mock transport closed")
	}
	cmd := strings.TrimRight(string(p), "\r\n")
	if err, ok := m.FailOn[cmd]; ok {
		return 0, err
	}
	m.written = append(m.written, cmd)
	if reply, ok := m.Replies[cmd]; ok {
		m.rx = append(m.rx, reply+"\n"...)
	}
	return len(p), nil
}

func (m *MockTransport) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.rx) == 0 {
		return 0, io.EOF
	}
	n := copy(p, m.rx)
	m.rx = m.rx[n:]
	return n, nil
}

func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.CloseErr
}

// Written returns the commands received so far
func (m *MockTransport) Written() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.written...)
}

// Closed reports whether Close was called
func (m *MockTransport) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// MockBus dials mock transports by address. Unknown addresses fail to dial.
type MockBus struct {
	Devices map[string]*MockTransport
}

// Dial implements Dialer
func (b *MockBus) Dial(_ context.Context, res Resource) (Transport, error) {
	t, ok := b.Devices[res.Address]
	if !ok {
		return nil, errors.New("no device at " + res.Address)
	}
	return t, nil
}
