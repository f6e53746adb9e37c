// Package display drives a 16x2 character LCD, as sold by SunFounder with
// a PCF8574 i2c backpack, to show what the receiver is playing.
package display

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"gobot.io/x/gobot"
	"gobot.io/x/gobot/drivers/i2c"

	"fmreceiver/radio"
)

const (
	// command signals that we want to send a command to the screen
	command = 0x04

	// data signals that we want to send characters to the screen
	data = 0x05

	// DefaultAddress of the PCF8574 backpack.
	DefaultAddress = 0x27

	// Columns per line.
	Columns = 16

	backlight = 0x08
	enable    = 0x04

	clearScreen = 0x01
	lineAddr    = 0x80
)

var lineStart = [2]byte{lineAddr, lineAddr + 0x40}

// LCD1602Driver controls the LCD 1602. Lines are only sent when their
// content changed.
//
//goland:noinspection GoUnnecessarilyExportedIdentifiers
type LCD1602Driver struct {
	name         string
	i2cConnector i2c.Connector
	i2c.Config

	i2cAddr int

	mtx       sync.Mutex
	conn      i2c.Connection
	backlight bool
	lines     [2]string
	pulse     time.Duration
}

// Name of our device
func (lcd *LCD1602Driver) Name() string {
	return lcd.name
}

// SetName set the name of our device
func (lcd *LCD1602Driver) SetName(name string) {
	lcd.name = name
}

// Start puts the controller in 4 bit mode and clears the screen.
func (lcd *LCD1602Driver) Start() error {
	bus := lcd.GetBusOrDefault(lcd.i2cConnector.GetDefaultBus())
	addr := lcd.GetAddressOrDefault(lcd.i2cAddr)

	conn, err := lcd.i2cConnector.GetConnection(addr, bus)
	if err != nil {
		return err
	}

	lcd.mtx.Lock()
	defer lcd.mtx.Unlock()
	lcd.conn = conn

	for _, cmd := range []byte{0x33, 0x32, 0x28, 0x0C} {
		if err = lcd.communicate(command, cmd); err != nil {
			return err
		}
		time.Sleep(2 * lcd.pulse)
	}

	return lcd.clear()
}

// Halt clears the screen and turns the backlight off.
func (lcd *LCD1602Driver) Halt() error {
	lcd.mtx.Lock()
	defer lcd.mtx.Unlock()
	if lcd.conn == nil {
		return nil
	}

	lcd.backlight = false
	return lcd.clear()
}

// Connection retrieves the i2c connection to the device
func (lcd *LCD1602Driver) Connection() gobot.Connection {
	conn, _ := lcd.i2cConnector.(gobot.Connection)
	return conn
}

// write sends one byte to the backpack with the backlight bit applied.
func (lcd *LCD1602Driver) write(b byte) error {
	if lcd.backlight {
		b |= backlight
	} else {
		b &^= backlight
	}
	return lcd.conn.WriteByte(b)
}

// communicate sends a command or data byte as two nibbles, high first,
// each latched by a pulse on EN.
func (lcd *LCD1602Driver) communicate(kind byte, b byte) error {
	for _, nibble := range []byte{b & 0xF0, (b & 0x0F) << 4} {
		buf := nibble | kind
		if err := lcd.write(buf); err != nil {
			return err
		}
		time.Sleep(lcd.pulse)

		if err := lcd.write(buf &^ enable); err != nil {
			return err
		}
	}
	return nil
}

func (lcd *LCD1602Driver) clear() error {
	if err := lcd.communicate(command, clearScreen); err != nil {
		return err
	}
	time.Sleep(lcd.pulse)
	lcd.lines = [2]string{}
	return nil
}

// SetBacklight turns the screen backlight on or off.
func (lcd *LCD1602Driver) SetBacklight(on bool) error {
	lcd.mtx.Lock()
	defer lcd.mtx.Unlock()
	if lcd.conn == nil {
		return radio.ErrNotInitialized
	}

	lcd.backlight = on
	return lcd.write(0)
}

// ShowLines renders two lines, padded or cut to Columns characters.
func (lcd *LCD1602Driver) ShowLines(top, bottom string) error {
	lcd.mtx.Lock()
	defer lcd.mtx.Unlock()
	if lcd.conn == nil {
		return radio.ErrNotInitialized
	}

	for i, text := range []string{fitLine(top), fitLine(bottom)} {
		if lcd.lines[i] == text {
			continue
		}
		if err := lcd.communicate(command, lineStart[i]); err != nil {
			return err
		}
		for j := 0; j < len(text); j++ {
			if err := lcd.communicate(data, text[j]); err != nil {
				return err
			}
		}
		lcd.lines[i] = text
	}
	return nil
}

// ShowMessage renders up to two lines worth of text, wrapping at Columns.
func (lcd *LCD1602Driver) ShowMessage(msg string) error {
	top, bottom := msg, ""
	if len(msg) > Columns {
		top, bottom = msg[:Columns], msg[Columns:]
	}
	return lcd.ShowLines(top, bottom)
}

// ShowStation renders the tuning result and the station name.
func (lcd *LCD1602Driver) ShowStation(res radio.TuningResult, stationName string) error {
	top, bottom := FormatStation(res, stationName)
	return lcd.ShowLines(top, bottom)
}

// FormatStation lays out the receiver state on two lines, e.g.
// " 92.70 MHz ST 42" and "KEXP 90.".
func FormatStation(res radio.TuningResult, stationName string) (string, string) {
	mode := "  "
	if res.Stereo {
		mode = "ST"
	}
	top := fmt.Sprintf("%6.2f MHz %s%3d", float32(res.Frequency)/100, mode, res.RSSI)

	bottom := strings.TrimSpace(stationName)
	if bottom == "" {
		bottom = "no RDS"
	}
	return fitLine(top), fitLine(bottom)
}

// fitLine pads or cuts text to Columns, replacing characters the
// controller ROM does not have.
func fitLine(text string) string {
	var sb strings.Builder
	for _, r := range text {
		if sb.Len() == Columns {
			break
		}
		if r < 0x20 || r > 0x7D {
			r = '?'
		}
		sb.WriteRune(r)
	}
	for sb.Len() < Columns {
		sb.WriteByte(' ')
	}
	return sb.String()
}

// NewLCD1602Driver creates a new GoBot driver for the display.
func NewLCD1602Driver(connector i2c.Connector, options ...func(i2c.Config)) *LCD1602Driver {
	lcd := &LCD1602Driver{
		name:         gobot.DefaultName("LCD1602Driver"),
		i2cConnector: connector,
		Config:       i2c.NewConfig(),
		i2cAddr:      DefaultAddress,
		backlight:    true,
		pulse:        2 * time.Millisecond,
	}

	for _, option := range options {
		option(lcd)
	}

	return lcd
}
