package bus

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"gobot.io/x/gobot"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/conn/pin"
	"periph.io/x/periph/host"
)

// PeriphAdaptor is a gobot adaptor backed by the periph.io host drivers.
// It provides the i2c connector, digital writes and the release of a pin
// back to its i2c function.
//
//goland:noinspection GoUnnecessarilyExportedIdentifiers
type PeriphAdaptor struct {
	*TxConnector

	name    string
	busName string

	mtx    sync.Mutex
	closer i2c.BusCloser
	pins   map[string]gpio.PinIO
}

// NewPeriphAdaptor creates an adaptor for the i2c bus busName, as known by
// i2creg. An empty name opens the first bus found. The bus number is used
// as the default bus and to pick the i2c function when releasing pins.
func NewPeriphAdaptor(busName string, busNumber int) *PeriphAdaptor {
	return &PeriphAdaptor{
		TxConnector: NewTxConnector(nil, busNumber),
		name:        gobot.DefaultName("Periph"),
		busName:     busName,
		pins:        map[string]gpio.PinIO{},
	}
}

// Name of our adaptor.
func (p *PeriphAdaptor) Name() string {
	return p.name
}

// SetName set the name of our adaptor.
func (p *PeriphAdaptor) SetName(name string) {
	p.name = name
}

// Connect loads the host drivers and opens the i2c bus.
func (p *PeriphAdaptor) Connect() error {
	if _, err := host.Init(); err != nil {
		return errors.Wrap(err, "loading periph host drivers")
	}

	bus, err := i2creg.Open(p.busName)
	if err != nil {
		return errors.Wrapf(err, "opening i2c bus %q", p.busName)
	}

	p.mtx.Lock()
	p.closer = bus
	p.mtx.Unlock()
	p.setBus(bus)
	return nil
}

// Finalize closes the i2c bus.
func (p *PeriphAdaptor) Finalize() error {
	p.setBus(nil)

	p.mtx.Lock()
	defer p.mtx.Unlock()
	if p.closer == nil {
		return nil
	}
	err := p.closer.Close()
	p.closer = nil
	return err
}

// DigitalWrite drives the named GPIO line low (0) or high (anything else).
func (p *PeriphAdaptor) DigitalWrite(name string, level byte) error {
	pn, err := p.pin(name)
	if err != nil {
		return err
	}
	l := gpio.Low
	if level != 0 {
		l = gpio.High
	}
	return pn.Out(l)
}

// ReleaseBusPin hands the line back to the i2c controller. Lines that
// cannot change function are left as floating inputs.
func (p *PeriphAdaptor) ReleaseBusPin(name string) error {
	pn, err := p.pin(name)
	if err != nil {
		return err
	}

	if fs, ok := pn.(interface{ SetFunc(f pin.Func) error }); ok {
		f := pin.Func("I2C" + strconv.Itoa(p.GetDefaultBus()) + "_SDA")
		if err = fs.SetFunc(f); err == nil {
			return nil
		}
	}
	return pn.In(gpio.PullNoChange, gpio.NoEdge)
}

func (p *PeriphAdaptor) pin(name string) (gpio.PinIO, error) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	if pn, ok := p.pins[name]; ok {
		return pn, nil
	}
	pn := gpioreg.ByName(name)
	if pn == nil {
		return nil, fmt.Errorf("unknown gpio %q", name)
	}
	p.pins[name] = pn
	return pn, nil
}
