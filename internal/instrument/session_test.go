package instrument

import (
	"context"
	"errors"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResource(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    Resource
		wantErr bool
	}{
		{
			name:    "numbered serial port",
			address: "ASRL7::INSTR",
			want:    Resource{Address: "ASRL7::INSTR", Kind: KindSerial, PortNumber: 7},
		},
		{
			name:    "serial device path",
			address: "ASRL/dev/ttyUSB0::INSTR",
			want:    Resource{Address: "ASRL/dev/ttyUSB0::INSTR", Kind: KindSerial, PortPath: "/dev/ttyUSB0"},
		},
		{
			name:    "raw socket",
			address: "TCPIP0::192.168.1.20::5025::SOCKET",
			want:    Resource{Address: "TCPIP0::192.168.1.20::5025::SOCKET", Kind: KindSocket, Host: "192.168.1.20", Port: 5025},
		},
		{
			name:    "usb with serial number",
			address: "USB0::0x0957::0x2007::MY49029470::INSTR",
			want: Resource{
				Address: "USB0::0x0957::0x2007::MY49029470::INSTR", Kind: KindUSB,
				VendorID: 0x0957, ProductID: 0x2007, Serial: "MY49029470",
			},
		},
		{
			name:    "usb without serial number",
			address: "USB0::0x1AB1::0x0E11::INSTR",
			want:    Resource{Address: "USB0::0x1AB1::0x0E11::INSTR", Kind: KindUSB, VendorID: 0x1AB1, ProductID: 0x0E11},
		},
		{name: "vxi11 is not supported", address: "TCPIP0::10.0.0.1::inst0::INSTR", wantErr: true},
		{name: "garbage", address: "not-an-address", wantErr: true},
		{name: "bad vendor id", address: "USB0::0xZZZZ::0x2007::X::INSTR", wantErr: true},
		{name: "bad port", address: "TCPIP0::host::99999::SOCKET", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResource(tt.address)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSerialPortName(t *testing.T) {
	assert.Equal(t, "COM7", SerialPortName(Resource{PortNumber: 7}, "COM"))
	assert.Equal(t, "/dev/ttyUSB0", SerialPortName(Resource{PortPath: "/dev/ttyUSB0"}, "COM"))
}

func TestManagerOpen(t *testing.T) {
	dev := NewMockTransport("ACME,DAQ970A,MY1,1.0")
	bus := &MockBus{Devices: map[string]*MockTransport{"ASRL1::INSTR": dev}}
	m := NewManager(bus, time.Second)

	s, err := m.Open(context.Background(), "ASRL1::INSTR")
	require.NoError(t, err)
	assert.Equal(t, "ACME,DAQ970A,MY1,1.0", s.Identity())
	assert.Equal(t, []string{"*IDN?"}, dev.Written())
}

func TestManagerOpen_ConnectionErrors(t *testing.T) {
	silent := NewMockTransport("")
	bus := &MockBus{Devices: map[string]*MockTransport{"ASRL2::INSTR": silent}}
	m := NewManager(bus, time.Second)

	for _, addr := range []string{"bogus", "ASRL3::INSTR", "ASRL2::INSTR"} {
		t.Run(addr, func(t *testing.T) {
			_, err := m.Open(context.Background(), addr)
			var connErr *ConnectionError
			require.ErrorAs(t, err, &connErr)
			assert.Equal(t, addr, connErr.Address)
		})
	}
	assert.True(t, silent.Closed(), "transport must be released when identity fails")
}

func TestSessionQueryFloat(t *testing.T) {
	dev := NewMockTransport("ACME")
	dev.Replies["MEAS:VOLT? (@101)"] = "+1.20000000E+01"
	dev.Replies["READ?"] = "+5.0E-02,+1.0E+00"
	dev.Replies["BAD?"] = "overload"
	s, err := NewManager(&MockBus{Devices: map[string]*MockTransport{"ASRL1::INSTR": dev}}, time.Second).
		Open(context.Background(), "ASRL1::INSTR")
	require.NoError(t, err)

	v, err := s.QueryFloat("MEAS:VOLT? (@101)")
	require.NoError(t, err)
	assert.Equal(t, 12.0, v)

	v, err = s.QueryFloat("READ?")
	require.NoError(t, err)
	assert.Equal(t, 0.05, v)

	_, err = s.QueryFloat("BAD?")
	assert.Error(t, err)

	_, err = s.QueryFloat("UNANSWERED?")
	assert.Error(t, err)
}

func TestSessionConfigure_StopsAtFirstFailure(t *testing.T) {
	dev := NewMockTransport("ACME")
	dev.FailOn["CHAN 3"] = errors.New("bus fault")
	s, err := NewManager(&MockBus{Devices: map[string]*MockTransport{"ASRL1::INSTR": dev}}, time.Second).
		Open(context.Background(), "ASRL1::INSTR")
	require.NoError(t, err)

	err = s.Configure([]string{"CONF:REM ON", "CHAN 3", "MODE CCH"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHAN 3")
	assert.Equal(t, []string{"*IDN?", "CONF:REM ON"}, dev.Written())
}

func TestBusDialer_Socket(t *testing.T) {
	lst, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer lst.Close()

	go func() {
		conn, err := lst.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 64)
		n, _ := conn.Read(buf)
		if string(buf[:n]) == "*IDN?\n" {
			// Reply in two pieces to exercise reassembly
			_, _ = conn.Write([]byte("Keysight,34972A"))
			time.Sleep(150 * time.Millisecond)
			_, _ = conn.Write([]byte(",MY49029470,1.0\n"))
		}
		_, _ = conn.Read(buf)
	}()

	port := lst.Addr().(*net.TCPAddr).Port
	addr := "TCPIP0::127.0.0.1::" + strconv.Itoa(port) + "::SOCKET"
	m := NewManager(BusDialer{Timeout: time.Second}, 2*time.Second)

	s, err := m.Open(context.Background(), addr)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, "Keysight,34972A,MY49029470,1.0", s.Identity())
}
