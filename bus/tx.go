// Package bus adapts transaction oriented i2c buses to the gobot i2c
// contracts used by the drivers in this repository.
//
// Any tinygo drivers.I2C can be wrapped by a TxConnector. PeriphAdaptor
// builds one on top of the periph.io host drivers and adds the GPIO lines
// needed by the receiver reset sequence.
package bus

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"gobot.io/x/gobot/drivers/i2c"
	"tinygo.org/x/drivers"
)

// maxBlock is the largest block gobot allows in WriteBlockData.
const maxBlock = 32

// ErrNotConnected is returned while the connector has no bus.
var ErrNotConnected = errors.New("bus: not connected")

// TxConnector is an i2c.Connector over a drivers.I2C bus. Every connection
// it hands out shares the bus and its lock.
type TxConnector struct {
	mtx        sync.Mutex
	bus        drivers.I2C
	defaultBus int
}

// NewTxConnector wraps bus. defaultBus is reported by GetDefaultBus, the
// bus number passed to GetConnection is otherwise ignored.
func NewTxConnector(bus drivers.I2C, defaultBus int) *TxConnector {
	return &TxConnector{bus: bus, defaultBus: defaultBus}
}

// GetConnection returns a connection to the device at address.
func (c *TxConnector) GetConnection(address int, bus int) (i2c.Connection, error) {
	if address < 0 || address > 0x7F {
		return nil, fmt.Errorf("invalid i2c address 0x%x", address)
	}

	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.bus == nil {
		return nil, errors.Wrapf(ErrNotConnected, "bus %d", bus)
	}
	return &txConnection{connector: c, addr: uint16(address)}, nil
}

// GetDefaultBus returns the bus number given to NewTxConnector.
func (c *TxConnector) GetDefaultBus() int {
	return c.defaultBus
}

func (c *TxConnector) setBus(bus drivers.I2C) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.bus = bus
}

func (c *TxConnector) tx(addr uint16, w, r []byte) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.bus == nil {
		return ErrNotConnected
	}
	return c.bus.Tx(addr, w, r)
}

// txConnection implements i2c.Connection for one device address.
type txConnection struct {
	connector *TxConnector
	addr      uint16
}

func (t *txConnection) Read(b []byte) (int, error) {
	if err := t.connector.tx(t.addr, nil, b); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (t *txConnection) Write(b []byte) (int, error) {
	if err := t.connector.tx(t.addr, b, nil); err != nil {
		return 0, err
	}
	return len(b), nil
}

// Close does nothing, the bus belongs to the connector.
func (t *txConnection) Close() error {
	return nil
}

func (t *txConnection) ReadByte() (byte, error) {
	buf := []byte{0}
	if err := t.connector.tx(t.addr, nil, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (t *txConnection) ReadByteData(reg uint8) (uint8, error) {
	buf := []byte{0}
	if err := t.connector.tx(t.addr, []byte{reg}, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadWordData reads a little endian word, as SMBus does.
func (t *txConnection) ReadWordData(reg uint8) (uint16, error) {
	buf := []byte{0, 0}
	if err := t.connector.tx(t.addr, []byte{reg}, buf); err != nil {
		return 0, err
	}
	return uint16(buf[1])<<8 | uint16(buf[0]), nil
}

func (t *txConnection) WriteByte(val byte) error {
	return t.connector.tx(t.addr, []byte{val}, nil)
}

func (t *txConnection) WriteByteData(reg uint8, val uint8) error {
	return t.connector.tx(t.addr, []byte{reg, val}, nil)
}

func (t *txConnection) WriteWordData(reg uint8, val uint16) error {
	return t.connector.tx(t.addr, []byte{reg, byte(val & 0xFF), byte(val >> 8)}, nil)
}

func (t *txConnection) WriteBlockData(reg uint8, b []byte) error {
	if len(b) > maxBlock {
		return fmt.Errorf("block of %d bytes exceeds %d", len(b), maxBlock)
	}
	return t.connector.tx(t.addr, append([]byte{reg}, b...), nil)
}
