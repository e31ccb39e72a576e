package instrument

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/google/gousb"
)

// USBTMC bulk message IDs
const (
	msgDevDepMsgOut       = 1
	msgRequestDevDepMsgIn = 2

	usbtmcHeaderLen = 12
	usbtmcMaxRead   = 4096
)

// bulkOut and bulkIn are the parts of gousb's endpoints the transport uses
type bulkOut interface {
	WriteContext(ctx context.Context, buf []byte) (int, error)
}

type bulkIn interface {
	ReadContext(ctx context.Context, buf []byte) (int, error)
}

type usbtmcTransport struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	done func()
	out  bulkOut
	in   bulkIn

	writeTimeout time.Duration
	readTimeout  time.Duration

	tag   byte
	inbuf []byte
	// a REQUEST_DEV_DEP_MSG_IN is outstanding and its reply not yet read
	requested bool
}

func openUSBTMC(ctx context.Context, res Resource, timeout time.Duration) (Transport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	usb := gousb.NewContext()

	devs, err := usb.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == gousb.ID(res.VendorID) && desc.Product == gousb.ID(res.ProductID)
	})
	// OpenDevices may return devices alongside an error for ones it could not open
	var dev *gousb.Device
	for _, d := range devs {
		if dev == nil && matchSerial(d, res.Serial) {
			dev = d
			continue
		}
		_ = d.Close()
	}
	if dev == nil {
		_ = usb.Close()
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("usb device %04x:%04x serial %q not found", res.VendorID, res.ProductID, res.Serial)
	}

	if err := dev.SetAutoDetach(true); err != nil {
		_ = dev.Close()
		_ = usb.Close()
		return nil, err
	}

	intf, done, err := dev.DefaultInterface()
	if err != nil {
		_ = dev.Close()
		_ = usb.Close()
		return nil, err
	}

	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	t := &usbtmcTransport{
		ctx:          usb,
		dev:          dev,
		done:         done,
		writeTimeout: timeout,
		readTimeout:  pollInterval,
	}
	for _, ep := range intf.Setting.Endpoints {
		if ep.TransferType != gousb.TransferTypeBulk {
			continue
		}
		switch ep.Direction {
		case gousb.EndpointDirectionOut:
			if t.out == nil {
				var out *gousb.OutEndpoint
				if out, err = intf.OutEndpoint(ep.Number); err == nil {
					t.out = out
				}
			}
		case gousb.EndpointDirectionIn:
			if t.in == nil {
				var in *gousb.InEndpoint
				if in, err = intf.InEndpoint(ep.Number); err == nil {
					t.in = in
				}
			}
		}
		if err != nil {
			_ = t.Close()
			return nil, err
		}
	}
	if t.out == nil || t.in == nil {
		_ = t.Close()
		return nil, errors.New("usbtmc bulk endpoints not found")
	}

	return t, nil
}

func matchSerial(d *gousb.Device, want string) bool {
	if want == "" {
		return true
	}
	got, err := d.SerialNumber()
	return err == nil && got == want
}

func (t *usbtmcTransport) nextTag() byte {
	t.tag++
	if t.tag == 0 {
		t.tag = 1
	}
	return t.tag
}

func (t *usbtmcTransport) header(msgID byte, size int) []byte {
	tag := t.nextTag()
	h := make([]byte, usbtmcHeaderLen)
	h[0] = msgID
	h[1] = tag
	h[2] = ^tag
	binary.LittleEndian.PutUint32(h[4:8], uint32(size))
	return h
}

// Write sends p as a single DEV_DEP_MSG_OUT transfer with EOM set
func (t *usbtmcTransport) Write(p []byte) (int, error) {
	msg := t.header(msgDevDepMsgOut, len(p))
	msg[8] = 0x01
	msg = append(msg, p...)
	for len(msg)%4 != 0 {
		msg = append(msg, 0)
	}
	if err := t.send(msg); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Read requests one device message and hands it out across calls. A bulk-in
// transfer that sees nothing within the poll interval returns (0, nil) and
// the outstanding request is read again on the next call.
func (t *usbtmcTransport) Read(p []byte) (int, error) {
	if len(t.inbuf) == 0 {
		if !t.requested {
			if err := t.send(t.header(msgRequestDevDepMsgIn, usbtmcMaxRead)); err != nil {
				return 0, err
			}
			t.requested = true
		}

		buf := make([]byte, usbtmcHeaderLen+usbtmcMaxRead+3)
		rctx, cancel := context.WithTimeout(context.Background(), t.readTimeout)
		n, err := t.in.ReadContext(rctx, buf)
		expired := rctx.Err() == context.DeadlineExceeded
		cancel()
		if err != nil {
			if expired && n == 0 {
				return 0, nil
			}
			t.requested = false
			return 0, err
		}
		t.requested = false

		if n < usbtmcHeaderLen || buf[0] != msgRequestDevDepMsgIn {
			return 0, fmt.Errorf("malformed usbtmc reply (%d bytes)", n)
		}
		size := int(binary.LittleEndian.Uint32(buf[4:8]))
		if size > n-usbtmcHeaderLen {
			size = n - usbtmcHeaderLen
		}
		t.inbuf = append(t.inbuf, buf[usbtmcHeaderLen:usbtmcHeaderLen+size]...)
	}
	n := copy(p, t.inbuf)
	t.inbuf = t.inbuf[n:]
	return n, nil
}

func (t *usbtmcTransport) send(msg []byte) error {
	wctx, cancel := context.WithTimeout(context.Background(), t.writeTimeout)
	defer cancel()
	if _, err := t.out.WriteContext(wctx, msg); err != nil {
		if wctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("usbtmc bulk-out timed out after %s: %w", t.writeTimeout, err)
		}
		return err
	}
	return nil
}

func (t *usbtmcTransport) Close() error {
	if t.done != nil {
		t.done()
	}
	var err error
	if t.dev != nil {
		err = t.dev.Close()
	}
	if t.ctx != nil {
		if cerr := t.ctx.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
