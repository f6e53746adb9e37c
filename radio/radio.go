// Package radio implements the driver for the Si4703 FM receiver, as found
// on the SparkFun and similar breakout boards.
//
// The main implementation is under the Si4703Driver and it requires
// some additional configuration via Si4703Config structure.
//
// The chip exposes sixteen 16 bit registers. They are always read as a
// single block starting at STATUSRSSI and wrapping around to DEVICEID, and
// written as a single block covering POWERCFG through TEST1. The driver
// keeps a shadow copy of the register file and goes through it for every
// operation.
//
// To read about the specifications of the receiver, read the following documents:
// https://www.silabs.com/documents/public/data-sheets/Si4702-03-C19.pdf
// https://www.silabs.com/documents/public/application-notes/AN230.pdf
package radio

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gobot.io/x/gobot"
	"gobot.io/x/gobot/drivers/gpio"
	"gobot.io/x/gobot/drivers/i2c"
)

const (
	low  = 0x0
	high = 0x1
)

// Address is the only address the Si4703 answers to.
const Address = 0x10

// BusPinReleaser is implemented by connectors able to hand the SDIO line
// back to the i2c peripheral after the reset sequence latched 2-wire mode.
type BusPinReleaser interface {
	ReleaseBusPin(pin string) error
}

// Si4703Driver holds the implementation to talk to the Si4703 FM receiver.
//
//goland:noinspection GoUnnecessarilyExportedIdentifiers
type Si4703Driver struct {
	resetPin string
	sdioPin  string

	i2cAddr      int
	i2cConnector i2c.Connector
	i2c.Config

	debugMode bool
	debugLog  func(format string, v ...interface{})
	log       func(format string, v ...interface{})

	name      string
	plan      BandPlan
	frequency uint16
	volume    uint8
	retries   int

	pollInterval    time.Duration
	maxPollInterval time.Duration
	tuneTimeout     time.Duration
	seekTimeout     time.Duration

	resetDelay       time.Duration
	oscillatorSettle time.Duration
	powerUpSettle    time.Duration

	regs    shadowStore
	started atomic.Bool

	// opMtx serializes the tune and seek state machines with Halt.
	opMtx sync.Mutex
	rds   *rdsDecoder
}

// Name of our device.
func (s *Si4703Driver) Name() string {
	return s.name
}

// SetName set the name of our device.
func (s *Si4703Driver) SetName(name string) {
	s.name = name
}

// Connection retrieves the i2c connection to the device.
func (s *Si4703Driver) Connection() gobot.Connection {
	conn, _ := s.i2cConnector.(gobot.Connection)
	return conn
}

// Plan returns the band plan used to convert frequencies.
func (s *Si4703Driver) Plan() BandPlan {
	return s.plan
}

// Start resets the chip, enables the oscillator and powers it up with RDS
// turned on. It is the initialize operation of the receiver.
func (s *Si4703Driver) Start() error {
	s.started.Store(false)

	if err := s.reset(); err != nil {
		return errors.Wrapf(ErrBusSetup, "reset: %v", err)
	}

	bus := s.GetBusOrDefault(s.i2cConnector.GetDefaultBus())
	addr := s.GetAddressOrDefault(s.i2cAddr)
	conn, err := s.i2cConnector.GetConnection(addr, bus)
	if err != nil {
		return errors.Wrapf(ErrBusSetup, "no connection to 0x%x on bus %d: %v", addr, bus, err)
	}
	s.regs.attach(conn, s.retries)

	if _, err = s.regs.refresh(); err != nil {
		s.regs.detach()
		return errors.Wrapf(ErrBusSetup, "no answer from 0x%x on bus %d: %v", addr, bus, err)
	}

	if s.debugMode {
		info, _ := s.deviceInfo()
		s.debugLog("Found %s\n", info)
	}

	if err = s.powerUp(); err != nil {
		s.regs.detach()
		return err
	}
	s.started.Store(true)

	if s.frequency != 0 {
		if s.debugMode {
			s.debugLog("Tuning into %.2f\n", float32(s.frequency)/100)
		}
		if _, err = s.Tune(s.frequency); err != nil {
			return err
		}
	}

	return nil
}

// Halt stops the RDS decoder and powers the chip down.
func (s *Si4703Driver) Halt() error {
	s.rds.stop()

	// Wait for a running tune or seek so it ends with its start bit cleared.
	s.opMtx.Lock()
	defer s.opMtx.Unlock()

	var result error
	if s.started.Swap(false) {
		if err := s.powerDown(); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if conn := s.regs.detach(); conn != nil {
		if err := conn.Close(); err != nil {
			result = multierror.Append(result, errors.Wrap(err, "closing i2c connection"))
		}
	}

	return result
}

// Resets the chip. SDIO must be low while RST rises so the chip
// selects the 2-wire (i2c) interface.
func (s *Si4703Driver) reset() (err error) {
	dw, ok := s.i2cConnector.(gpio.DigitalWriter)
	if !ok {
		return fmt.Errorf("i2c connector does not have a digital writter capability")
	}

	if err = dw.DigitalWrite(s.resetPin, low); err != nil {
		return err
	}
	if err = dw.DigitalWrite(s.sdioPin, low); err != nil {
		return err
	}
	time.Sleep(s.resetDelay)

	if err = dw.DigitalWrite(s.resetPin, high); err != nil {
		return err
	}
	time.Sleep(s.resetDelay)

	if rel, ok := s.i2cConnector.(BusPinReleaser); ok {
		return rel.ReleaseBusPin(s.sdioPin)
	}
	if s.debugMode {
		s.debugLog("Connector cannot release pin %s, leaving it as is\n", s.sdioPin)
	}
	return nil
}

// Enables the crystal oscillator, then powers up the chip with RDS in
// verbose mode, the configured band, spacing and volume.
func (s *Si4703Driver) powerUp() error {
	if err := s.regs.update(func(r *RegisterFile) {
		r[TEST1] = TEST1_XOSCEN
	}); err != nil {
		return err
	}
	time.Sleep(s.oscillatorSettle)

	if err := s.regs.update(func(r *RegisterFile) {
		r[POWERCFG] = POWERCFG_DMUTE | POWERCFG_RDSM | POWERCFG_ENABLE
		r[SYSCONFIG1] |= SYSCONFIG1_RDS
		r[SYSCONFIG2] &^= SYSCONFIG2_BAND | SYSCONFIG2_SPACE | SYSCONFIG2_VOLUME
		r[SYSCONFIG2] |= s.plan.sysconfig2() | uint16(s.volume)
	}); err != nil {
		return err
	}
	time.Sleep(s.powerUpSettle)

	if s.debugMode {
		s.debugLog("Powered up, %s band, %s spacing, volume %d\n", s.plan.Band, s.plan.Spacing, s.volume)
	}
	return nil
}

// Turn off the device.
func (s *Si4703Driver) powerDown() error {
	return s.regs.update(func(r *RegisterFile) {
		r[POWERCFG] = POWERCFG_DISABLE | POWERCFG_ENABLE
	})
}

// SetVolume sets the output volume, 0..15. Zero silences the output.
func (s *Si4703Driver) SetVolume(volume uint8) error {
	if err := s.checkStarted(); err != nil {
		return err
	}
	if volume > 15 {
		volume = 15
	}

	s.opMtx.Lock()
	defer s.opMtx.Unlock()

	if err := s.regs.update(func(r *RegisterFile) {
		r[SYSCONFIG2] = r[SYSCONFIG2]&^SYSCONFIG2_VOLUME | uint16(volume)
	}); err != nil {
		return err
	}
	s.volume = volume
	return nil
}

// Mute turns the audio mute on or off.
func (s *Si4703Driver) Mute(on bool) error {
	if err := s.checkStarted(); err != nil {
		return err
	}

	s.opMtx.Lock()
	defer s.opMtx.Unlock()

	return s.regs.update(func(r *RegisterFile) {
		if on {
			r[POWERCFG] &^= POWERCFG_DMUTE
		} else {
			r[POWERCFG] |= POWERCFG_DMUTE
		}
	})
}

func (s *Si4703Driver) checkStarted() error {
	if !s.started.Load() || !s.regs.ready() {
		return ErrNotInitialized
	}
	return nil
}

// NewSi4703Driver creates a new GoBot driver for our FM receiver.
func NewSi4703Driver(connector i2c.Connector, cfg Si4703Config, options ...func(i2c.Config)) (*Si4703Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res := &Si4703Driver{
		name:         gobot.DefaultName("Si4703Driver"),
		i2cConnector: connector,
		Config:       i2c.NewConfig(),
		i2cAddr:      Address,

		resetPin:  cfg.ResetPin,
		sdioPin:   cfg.SDIOPin,
		debugMode: cfg.DebugMode,
		debugLog:  cfg.DebugLog,
		log:       cfg.Log,

		plan:      BandPlan{Band: cfg.Band, Spacing: cfg.Spacing},
		frequency: cfg.Frequency,
		volume:    cfg.Volume,
		retries:   cfg.TransportRetries,

		pollInterval:    cfg.PollInterval,
		maxPollInterval: cfg.MaxPollInterval,
		tuneTimeout:     cfg.TuneTimeout,
		seekTimeout:     cfg.SeekTimeout,

		resetDelay:       cfg.ResetDelay,
		oscillatorSettle: cfg.OscillatorSettle,
		powerUpSettle:    cfg.PowerUpSettle,
	}
	res.rds = newRDSDecoder(&res.regs, cfg.RDSPollInterval, cfg.BlockErrorLimit, res.log, res.debugf)

	for _, option := range options {
		option(res)
	}

	return res, nil
}

func (s *Si4703Driver) debugf(format string, v ...interface{}) {
	if s.debugMode {
		s.debugLog(format, v...)
	}
}
