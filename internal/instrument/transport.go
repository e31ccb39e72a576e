package instrument

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"go.bug.st/serial"
)

// pollInterval bounds a single transport read so the session can enforce its
// own reply timeout.
const pollInterval = 100 * time.Millisecond

// BusDialer dials real hardware
type BusDialer struct {
	SerialPortPrefix string
	SerialBaud       int
	Timeout          time.Duration
}

// Dial opens the transport matching the resource kind
func (d BusDialer) Dial(ctx context.Context, res Resource) (Transport, error) {
	switch res.Kind {
	case KindSocket:
		return dialSocket(ctx, res, d.Timeout)
	case KindSerial:
		return openSerial(res, d.SerialPortPrefix, d.SerialBaud)
	case KindUSB:
		return openUSBTMC(ctx, res, d.Timeout)
	default:
		return nil, fmt.Errorf("unsupported resource kind %s", res.Kind)
	}
}

type socketTransport struct {
	conn net.Conn
}

func dialSocket(ctx context.Context, res Resource, timeout time.Duration) (Transport, error) {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(res.Host, strconv.Itoa(res.Port)))
	if err != nil {
		return nil, err
	}
	return &socketTransport{conn: conn}, nil
}

func (t *socketTransport) Read(p []byte) (int, error) {
	if err := t.conn.SetReadDeadline(time.Now().Add(pollInterval)); err != nil {
		return 0, err
	}
	n, err := t.conn.Read(p)
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return n, nil
	}
	return n, err
}

func (t *socketTransport) Write(p []byte) (int, error) {
	return t.conn.Write(p)
}

func (t *socketTransport) Close() error {
	return t.conn.Close()
}

// SerialPortName maps a serial resource to an OS port name
func SerialPortName(res Resource, prefix string) string {
	if res.PortPath != "" {
		return res.PortPath
	}
	return prefix + strconv.Itoa(res.PortNumber)
}

func openSerial(res Resource, prefix string, baud int) (Transport, error) {
	if baud <= 0 {
		baud = 9600
	}
	port, err := serial.Open(SerialPortName(res, prefix), &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(pollInterval); err != nil {
		_ = port.Close()
		return nil, err
	}
	return port, nil
}
