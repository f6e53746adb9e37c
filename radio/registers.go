package radio

import (
	"sync"

	"github.com/pkg/errors"
	"gobot.io/x/gobot/drivers/i2c"
)

// Register addresses of the receiver.
//
//goland:noinspection GoUnusedConst,GoUnnecessarilyExportedIdentifiers,GoSnakeCaseUsage
const (
	DEVICEID = iota
	CHIPID
	POWERCFG
	CHANNEL
	SYSCONFIG1
	SYSCONFIG2
	SYSCONFIG3
	TEST1
	TEST2
	BOOTCONFIG
	STATUSRSSI
	READCHAN
	RDSA
	RDSB
	RDSC
	RDSD

	// RegisterCount is the size of the register file.
	RegisterCount = 16
)

// Register bits, named after the datasheet fields.
//
//goland:noinspection GoUnusedConst,GoUnnecessarilyExportedIdentifiers,GoSnakeCaseUsage
const (
	// POWERCFG
	POWERCFG_DSMUTE  = 1 << 15
	POWERCFG_DMUTE   = 1 << 14
	POWERCFG_MONO    = 1 << 13
	POWERCFG_RDSM    = 1 << 11
	POWERCFG_SKMODE  = 1 << 10
	POWERCFG_SEEKUP  = 1 << 9
	POWERCFG_SEEK    = 1 << 8
	POWERCFG_DISABLE = 1 << 6
	POWERCFG_ENABLE  = 1 << 0

	// CHANNEL
	CHANNEL_TUNE = 1 << 15
	CHANNEL_CHAN = 0x03FF

	// SYSCONFIG1
	SYSCONFIG1_RDS = 1 << 12
	SYSCONFIG1_DE  = 1 << 11

	// SYSCONFIG2
	SYSCONFIG2_BAND   = 0x00C0
	SYSCONFIG2_SPACE  = 0x0030
	SYSCONFIG2_VOLUME = 0x000F

	// TEST1, enables the 32.768 kHz crystal oscillator.
	TEST1_XOSCEN = 0x8100

	// STATUSRSSI
	STATUSRSSI_RDSR   = 1 << 15
	STATUSRSSI_STC    = 1 << 14
	STATUSRSSI_SFBL   = 1 << 13
	STATUSRSSI_AFCRL  = 1 << 12
	STATUSRSSI_RDSS   = 1 << 11
	STATUSRSSI_BLERA  = 0x0600
	STATUSRSSI_STEREO = 1 << 8
	STATUSRSSI_RSSI   = 0x007F

	// READCHAN
	READCHAN_BLERB = 0xC000
	READCHAN_BLERC = 0x3000
	READCHAN_BLERD = 0x0C00
	READCHAN_CHAN  = 0x03FF
)

const (
	// readSize is the whole register file, starting at STATUSRSSI and wrapping around.
	readSize = RegisterCount * 2

	// The writable control registers are POWERCFG through TEST1.
	firstWritable = POWERCFG
	lastWritable  = TEST1
	writeSize     = (lastWritable - firstWritable + 1) * 2
)

// RegisterFile mirrors the chip registers.
type RegisterFile [RegisterCount]uint16

// decode fills the register file from a block read. The chip starts
// sending at STATUSRSSI and wraps to DEVICEID after RDSD.
func (r *RegisterFile) decode(buf []byte) {
	for i := 0; i < RegisterCount; i++ {
		r[(STATUSRSSI+i)%RegisterCount] = uint16(buf[i*2])<<8 | uint16(buf[i*2+1])
	}
}

// encode serializes the writable registers in address order, high byte first.
func (r *RegisterFile) encode() []byte {
	buf := make([]byte, 0, writeSize)
	for reg := firstWritable; reg <= lastWritable; reg++ {
		buf = append(buf, byte(r[reg]>>8), byte(r[reg]&0xFF))
	}
	return buf
}

// shadowStore owns the register file and the bus connection used to keep
// it in sync with the chip. Every transaction happens under mtx so a block
// is never observed half applied.
type shadowStore struct {
	mtx         sync.Mutex
	conn        i2c.Connection
	regs        RegisterFile
	initialized bool
	retries     int
}

func (s *shadowStore) attach(conn i2c.Connection, retries int) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.conn = conn
	s.retries = retries
	s.initialized = false
}

func (s *shadowStore) detach() i2c.Connection {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	conn := s.conn
	s.conn = nil
	s.initialized = false
	return conn
}

// readAll performs the block read. The caller must hold mtx.
func (s *shadowStore) readAll() error {
	if s.conn == nil {
		return ErrNotInitialized
	}

	buf := make([]byte, readSize)
	var err error
	for attempt := 0; attempt <= s.retries; attempt++ {
		var n int
		n, err = s.conn.Read(buf)
		if err == nil && n != readSize {
			err = errors.Errorf("short read: got %d of %d bytes", n, readSize)
		}
		if err == nil {
			s.regs.decode(buf)
			s.initialized = true
			return nil
		}
	}
	return errors.Wrapf(ErrTransport, "register read: %v", err)
}

// writeBlock sends the writable registers. The caller must hold mtx.
func (s *shadowStore) writeBlock() error {
	if s.conn == nil {
		return ErrNotInitialized
	}

	buf := s.regs.encode()
	var err error
	for attempt := 0; attempt <= s.retries; attempt++ {
		var n int
		n, err = s.conn.Write(buf)
		if err == nil && n != len(buf) {
			err = errors.Errorf("short write: sent %d of %d bytes", n, len(buf))
		}
		if err == nil {
			return nil
		}
	}
	return errors.Wrapf(ErrTransport, "register write: %v", err)
}

// refresh reads the chip and returns a copy of the register file.
func (s *shadowStore) refresh() (RegisterFile, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if err := s.readAll(); err != nil {
		return RegisterFile{}, err
	}
	return s.regs, nil
}

// update reads the chip, lets fn modify the register file and writes the
// control registers back, all in one critical section.
func (s *shadowStore) update(fn func(r *RegisterFile)) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if err := s.readAll(); err != nil {
		return err
	}
	fn(&s.regs)
	return s.writeBlock()
}

// snapshot returns the last known register file without touching the bus.
func (s *shadowStore) snapshot() (RegisterFile, bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.regs, s.initialized
}

func (s *shadowStore) ready() bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.initialized && s.conn != nil
}
