package instrument

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the physical transport behind a resource string
type Kind int

const (
	KindSerial Kind = iota + 1
	KindSocket
	KindUSB
)

func (k Kind) String() string {
	switch k {
	case KindSerial:
		return "serial"
	case KindSocket:
		return "socket"
	case KindUSB:
		return "usbtmc"
	default:
		return "unknown"
	}
}

// Resource is a parsed VISA-style resource string
type Resource struct {
	Address string
	Kind    Kind

	// Serial: either a port number (ASRL7) or an explicit device path (ASRL/dev/ttyUSB0)
	PortNumber int
	PortPath   string

	// Socket
	Host string
	Port int

	// USB
	VendorID  uint16
	ProductID uint16
	Serial    string
}

// ParseResource parses ASRL, TCPIP socket and USB instrument resource strings.
//
//	ASRL7::INSTR
//	ASRL/dev/ttyUSB0::INSTR
//	TCPIP0::192.168.1.20::5025::SOCKET
//	USB0::0x0957::0x2007::MY49029470::INSTR
func ParseResource(address string) (Resource, error) {
	fields := strings.Split(strings.TrimSpace(address), "::")
	res := Resource{Address: address}
	if len(fields) < 2 {
		return res, fmt.Errorf("invalid resource %q", address)
	}

	head := strings.ToUpper(fields[0])
	class := strings.ToUpper(fields[len(fields)-1])

	switch {
	case strings.HasPrefix(head, "ASRL"):
		if len(fields) != 2 || class != "INSTR" {
			return res, fmt.Errorf("invalid serial resource %q", address)
		}
		res.Kind = KindSerial
		board := fields[0][len("ASRL"):]
		if board == "" {
			return res, fmt.Errorf("missing serial port in %q", address)
		}
		if n, err := strconv.Atoi(board); err == nil {
			res.PortNumber = n
		} else {
			res.PortPath = board
		}
		return res, nil

	case strings.HasPrefix(head, "TCPIP"):
		if len(fields) != 4 || class != "SOCKET" {
			return res, fmt.Errorf("invalid socket resource %q (only ::SOCKET is supported)", address)
		}
		port, err := strconv.Atoi(fields[2])
		if err != nil || port <= 0 || port > 65535 {
			return res, fmt.Errorf("invalid port in %q", address)
		}
		res.Kind = KindSocket
		res.Host = fields[1]
		res.Port = port
		return res, nil

	case strings.HasPrefix(head, "USB"):
		if len(fields) < 4 || class != "INSTR" {
			return res, fmt.Errorf("invalid usb resource %q", address)
		}
		vid, err := strconv.ParseUint(fields[1], 0, 16)
		if err != nil {
			return res, fmt.Errorf("invalid vendor id in %q: %w", address, err)
		}
		pid, err := strconv.ParseUint(fields[2], 0, 16)
		if err != nil {
			return res, fmt.Errorf("invalid product id in %q: %w", address, err)
		}
		res.Kind = KindUSB
		res.VendorID = uint16(vid)
		res.ProductID = uint16(pid)
		if len(fields) > 4 {
			res.Serial = fields[3]
		}
		return res, nil
	}

	return res, fmt.Errorf("unsupported resource %q", address)
}
