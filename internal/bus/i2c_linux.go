//go:build linux

package bus

import (
	"context"
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
	"golang.org/x/time/rate"
)

const (
	i2cRdwrIOCTL = 0x0707 // I2C_RDWR ioctl — combined write+read with REPEATED START
	i2cMsgRD     = 0x0001 // i2c_msg flag: read direction
	maxOpsPerSec = 500
)

// i2cMsg mirrors struct i2c_msg from linux/i2c.h
type i2cMsg struct {
	addr   uint16
	flags  uint16
	length uint16
	_pad   uint16 // struct alignment
	buf    uintptr
}

// i2cRdwr mirrors struct i2c_rdwr_ioctl_data from linux/i2c-dev.h
type i2cRdwr struct {
	msgs  uintptr
	nmsgs uint32
}

// I2C is the real Linux transport, using the I2C_RDWR ioctl for all
// transactions on a single shared file descriptor. A rate limiter caps bus
// traffic so a misbehaving caller cannot saturate the bus.
type I2C struct {
	mu      sync.Mutex
	fd      int
	limiter *rate.Limiter
}

// NewI2C opens the given I2C character device (e.g. /dev/i2c-1).
func NewI2C(devPath string) (*I2C, error) {
	fd, err := unix.Open(devPath, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("i2c: open %s: %w", devPath, err)
	}
	return &I2C{
		fd:      fd,
		limiter: rate.NewLimiter(rate.Limit(maxOpsPerSec), 10),
	}, nil
}

func (b *I2C) WriteByteReg(ctx context.Context, addr, reg, val byte) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fd < 0 {
		return Error("i2c: transport closed")
	}

	// Single combined write of [reg, val] (SMBus write_byte_data).
	wbuf := [2]byte{reg, val}
	msgs := [1]i2cMsg{
		{addr: uint16(addr), flags: 0, length: 2, buf: uintptr(unsafe.Pointer(&wbuf[0]))},
	}
	rdwr := i2cRdwr{msgs: uintptr(unsafe.Pointer(&msgs[0])), nmsgs: 1}
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(b.fd), i2cRdwrIOCTL, uintptr(unsafe.Pointer(&rdwr))); errno != 0 {
		return fmt.Errorf("i2c: I2C_RDWR write 0x%02x reg=0x%02x: %w", addr, reg, errno)
	}
	return nil
}

func (b *I2C) ReadByteReg(ctx context.Context, addr, reg byte) (byte, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fd < 0 {
		return 0, Error("i2c: transport closed")
	}

	// Combined write+read with REPEATED START (SMBus read_byte_data):
	// START→addr|W→reg→RS→addr|R→data→NACK→STOP
	wbuf := [1]byte{reg}
	rbuf := [1]byte{}
	msgs := [2]i2cMsg{
		{addr: uint16(addr), flags: 0, length: 1, buf: uintptr(unsafe.Pointer(&wbuf[0]))},
		{addr: uint16(addr), flags: i2cMsgRD, length: 1, buf: uintptr(unsafe.Pointer(&rbuf[0]))},
	}
	rdwr := i2cRdwr{msgs: uintptr(unsafe.Pointer(&msgs[0])), nmsgs: 2}
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(b.fd), i2cRdwrIOCTL, uintptr(unsafe.Pointer(&rdwr))); errno != 0 {
		return 0, fmt.Errorf("i2c: I2C_RDWR read 0x%02x reg=0x%02x: %w", addr, reg, errno)
	}
	return rbuf[0], nil
}

// Close releases the I2C file descriptor.
func (b *I2C) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fd >= 0 {
		err := unix.Close(b.fd)
		b.fd = -1
		return err
	}
	return nil
}
