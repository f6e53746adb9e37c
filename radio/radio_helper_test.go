package radio

import (
	"errors"
	"fmt"
	"sync"

	"gobot.io/x/gobot/drivers/i2c"
)

var errTestBus = errors.New("i2c bus error")

// I2CTestAdaptor is useful to implement tests for
// passing i2c messages back and forth.
type I2CTestAdaptor struct {
	name          string
	written       [][]byte
	pins          []string
	released      []string
	mtx           sync.Mutex
	i2cConnectErr bool
	digitalErr    bool
	closed        bool
	i2cReadImpl   func(*I2CTestAdaptor, []byte) (int, error)
	i2cWriteImpl  func(*I2CTestAdaptor, []byte) (int, error)
}

func (t *I2CTestAdaptor) DigitalWrite(pin string, level byte) (err error) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	if t.digitalErr {
		return errTestBus
	}
	t.pins = append(t.pins, fmt.Sprintf("%s=%d", pin, level))
	return nil
}

func (t *I2CTestAdaptor) ReleaseBusPin(pin string) error {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	t.released = append(t.released, pin)
	return nil
}

func (t *I2CTestAdaptor) Read(b []byte) (count int, err error) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return t.i2cReadImpl(t, b)
}

func (t *I2CTestAdaptor) Write(b []byte) (count int, err error) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	w := make([]byte, len(b))
	copy(w, b)
	t.written = append(t.written, w)
	return t.i2cWriteImpl(t, b)
}

func (t *I2CTestAdaptor) Close() error {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	t.closed = true
	return nil
}

// The receiver has no register pointer, only whole block transfers.
var errNoRegisterAccess = errors.New("register addressed transfers are not supported")

func (t *I2CTestAdaptor) ReadByte() (val byte, err error) {
	return 0, errNoRegisterAccess
}

func (t *I2CTestAdaptor) ReadByteData( /* reg */ uint8) (val uint8, err error) {
	return 0, errNoRegisterAccess
}

func (t *I2CTestAdaptor) ReadWordData( /* reg */ uint8) (val uint16, err error) {
	return 0, errNoRegisterAccess
}

func (t *I2CTestAdaptor) WriteByte( /* val */ byte) (err error) {
	return errNoRegisterAccess
}

func (t *I2CTestAdaptor) WriteByteData( /* reg */ uint8 /* val */, uint8) (err error) {
	return errNoRegisterAccess
}

func (t *I2CTestAdaptor) WriteWordData( /* reg */ uint8 /* val */, uint16) (err error) {
	return errNoRegisterAccess
}

func (t *I2CTestAdaptor) WriteBlockData( /* reg */ uint8 /* b */, []byte) (err error) {
	return errNoRegisterAccess
}

func (t *I2CTestAdaptor) GetConnection( /* address */ int /* bus */, int) (connection i2c.Connection, err error) {
	if t.i2cConnectErr {
		return nil, errors.New("invalid i2c connection")
	}
	return t, nil
}

func (t *I2CTestAdaptor) GetDefaultBus() int {
	return 0
}

func (t *I2CTestAdaptor) Name() string          { return t.name }
func (t *I2CTestAdaptor) SetName(n string)      { t.name = n }
func (t *I2CTestAdaptor) Connect() (err error)  { return }
func (t *I2CTestAdaptor) Finalize() (err error) { return }

func (t *I2CTestAdaptor) writes() [][]byte {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return append([][]byte(nil), t.written...)
}

func (t *I2CTestAdaptor) lastWrite() RegisterFile {
	w := t.writes()
	if len(w) == 0 {
		return RegisterFile{}
	}
	return writtenRegisters(w[len(w)-1])
}

// writtenRegisters decodes a block write, which starts at POWERCFG.
func writtenRegisters(b []byte) RegisterFile {
	var r RegisterFile
	for i := 0; i+1 < len(b); i += 2 {
		r[POWERCFG+i/2] = uint16(b[i])<<8 | uint16(b[i+1])
	}
	return r
}
