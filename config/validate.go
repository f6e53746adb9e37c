package config

import (
	"fmt"
	"math"

	"github.com/hashicorp/go-multierror"

	"fmreceiver/radio"
)

var bands = map[string]radio.Band{
	"us-europe":  radio.BandUSEurope,
	"japan-wide": radio.BandJapanWide,
	"japan":      radio.BandJapan,
}

var spacings = map[int]radio.Spacing{
	200: radio.Spacing200kHz,
	100: radio.Spacing100kHz,
	50:  radio.Spacing50kHz,
}

// Validate checks configuration correctness and reports every problem found.
// Zero values are accepted, Normalize replaces them with defaults.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	var result *multierror.Error
	fail := func(format string, v ...interface{}) {
		result = multierror.Append(result, fmt.Errorf(format, v...))
	}

	switch cfg.Platform {
	case "", PlatformRaspi, PlatformPeriph:
	default:
		fail("platform %q must be %q or %q", cfg.Platform, PlatformRaspi, PlatformPeriph)
	}

	// ---- receiver ----

	plan := radio.BandPlan{}
	bandOK, spacingOK := true, true
	if cfg.Receiver.Band != "" {
		plan.Band, bandOK = bands[cfg.Receiver.Band]
		if !bandOK {
			fail("receiver.band %q must be one of us-europe, japan-wide, japan", cfg.Receiver.Band)
		}
	}
	if cfg.Receiver.SpacingKHz != 0 {
		plan.Spacing, spacingOK = spacings[cfg.Receiver.SpacingKHz]
		if !spacingOK {
			fail("receiver.spacing_khz %d must be 200, 100 or 50", cfg.Receiver.SpacingKHz)
		}
	}

	if f := cfg.Receiver.FrequencyMHz; f != 0 {
		if f < 0 || f > math.MaxUint16/100 {
			fail("receiver.frequency_mhz %.2f out of range", f)
		} else if bandOK && spacingOK {
			if _, err := plan.Channel(mhzToFrequency(f)); err != nil {
				fail("receiver.frequency_mhz: %v", err)
			}
		}
	}

	if cfg.Receiver.Volume > 15 {
		fail("receiver.volume %d must be 0..15", cfg.Receiver.Volume)
	}

	// ---- wiring ----

	if cfg.Pins.Reset != "" && cfg.Pins.Reset == cfg.Pins.SDIO {
		fail("pins.reset and pins.sdio are both %q", cfg.Pins.Reset)
	}
	if cfg.Bus.Number != nil && *cfg.Bus.Number < 0 {
		fail("bus.number %d cannot be negative", *cfg.Bus.Number)
	}
	if cfg.Bus.Retries < 0 {
		fail("bus.retries %d cannot be negative", cfg.Bus.Retries)
	}
	if cfg.Bus.Name != "" && cfg.Platform != PlatformPeriph {
		fail("bus.name is only used by the %q platform", PlatformPeriph)
	}

	// ---- timing ----

	for name, ms := range map[string]int{
		"timing.poll_interval_ms":     cfg.Timing.PollIntervalMs,
		"timing.max_poll_interval_ms": cfg.Timing.MaxPollIntervalMs,
		"timing.tune_timeout_ms":      cfg.Timing.TuneTimeoutMs,
		"timing.seek_timeout_ms":      cfg.Timing.SeekTimeoutMs,
		"rds.poll_interval_ms":        cfg.RDS.PollIntervalMs,
		"display.refresh_ms":          cfg.Display.RefreshMs,
	} {
		if ms < 0 {
			fail("%s %d cannot be negative", name, ms)
		}
	}
	if cfg.Timing.MaxPollIntervalMs != 0 && cfg.Timing.MaxPollIntervalMs < cfg.Timing.PollIntervalMs {
		fail("timing.max_poll_interval_ms %d is below timing.poll_interval_ms %d",
			cfg.Timing.MaxPollIntervalMs, cfg.Timing.PollIntervalMs)
	}

	if cfg.RDS.BlockErrorLimit > 4 {
		fail("rds.block_error_limit %d must be 1..4", cfg.RDS.BlockErrorLimit)
	}

	// ---- display ----

	if cfg.Display.Address < 0 || cfg.Display.Address > 0x7F {
		fail("display.address 0x%x is not a 7 bit i2c address", cfg.Display.Address)
	}
	if cfg.Display.Address == radio.Address {
		fail("display.address 0x%x collides with the receiver", cfg.Display.Address)
	}

	return result.ErrorOrNil()
}

func mhzToFrequency(mhz float64) uint16 {
	return uint16(math.Round(mhz * 100))
}
