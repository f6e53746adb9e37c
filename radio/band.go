package radio

import (
	"fmt"

	"github.com/pkg/errors"
)

// Band selects the tunable range, SYSCONFIG2 BAND[7:6].
type Band uint8

const (
	// BandUSEurope covers 87.5 MHz to 108 MHz.
	BandUSEurope Band = iota
	// BandJapanWide covers 76 MHz to 108 MHz.
	BandJapanWide
	// BandJapan covers 76 MHz to 90 MHz.
	BandJapan
)

// Spacing selects the channel step, SYSCONFIG2 SPACE[5:4].
type Spacing uint8

const (
	// Spacing200kHz is used in the Americas and Korea.
	Spacing200kHz Spacing = iota
	// Spacing100kHz is used in Europe and Japan.
	Spacing100kHz
	// Spacing50kHz is used in Italy.
	Spacing50kHz
)

func (b Band) String() string {
	switch b {
	case BandUSEurope:
		return "87.5-108 MHz"
	case BandJapanWide:
		return "76-108 MHz"
	case BandJapan:
		return "76-90 MHz"
	default:
		return fmt.Sprintf("Band(%d)", uint8(b))
	}
}

func (s Spacing) String() string {
	switch s {
	case Spacing200kHz:
		return "200 kHz"
	case Spacing100kHz:
		return "100 kHz"
	case Spacing50kHz:
		return "50 kHz"
	default:
		return fmt.Sprintf("Spacing(%d)", uint8(s))
	}
}

// BandPlan maps frequencies to the chip channel numbers. Frequencies are
// expressed in 10 kHz units, so 9270 is 92.70 MHz.
type BandPlan struct {
	Band    Band
	Spacing Spacing
}

// Floor is the lowest frequency of the band.
func (p BandPlan) Floor() uint16 {
	if p.Band == BandUSEurope {
		return 8750
	}
	return 7600
}

// Ceiling is the highest frequency of the band.
func (p BandPlan) Ceiling() uint16 {
	if p.Band == BandJapan {
		return 9000
	}
	return 10800
}

// Step is the channel spacing in 10 kHz units.
func (p BandPlan) Step() uint16 {
	switch p.Spacing {
	case Spacing100kHz:
		return 10
	case Spacing50kHz:
		return 5
	default:
		return 20
	}
}

// Channels is the number of channels in the band.
func (p BandPlan) Channels() int {
	return int((p.Ceiling()-p.Floor())/p.Step()) + 1
}

// Channel converts a frequency to its channel number. Frequencies between
// two channels round down to the lower one.
func (p BandPlan) Channel(freq uint16) (uint16, error) {
	if freq < p.Floor() || freq > p.Ceiling() {
		return 0, errors.Wrapf(ErrInvalidFrequency, "%.2f MHz not in %s", float32(freq)/100, p.Band)
	}
	return (freq - p.Floor()) / p.Step(), nil
}

// Frequency converts a channel number to its frequency.
func (p BandPlan) Frequency(channel uint16) uint16 {
	return p.Floor() + (channel&CHANNEL_CHAN)*p.Step()
}

func (p BandPlan) validate() error {
	if p.Band > BandJapan {
		return fmt.Errorf("unknown band %d", p.Band)
	}
	if p.Spacing > Spacing50kHz {
		return fmt.Errorf("unknown channel spacing %d", p.Spacing)
	}
	return nil
}

// sysconfig2 returns the BAND and SPACE fields for SYSCONFIG2.
func (p BandPlan) sysconfig2() uint16 {
	return uint16(p.Band)<<6 | uint16(p.Spacing)<<4
}
