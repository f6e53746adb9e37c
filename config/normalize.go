package config

import (
	"strconv"

	"fmreceiver/radio"
)

// Supported platforms.
const (
	PlatformRaspi  = "raspi"
	PlatformPeriph = "periph"
)

// Defaults applied by Normalize.
const (
	DefaultBand           = "us-europe"
	DefaultSpacingKHz     = 200
	DefaultBusNumber      = 1
	DefaultDisplayAddress = 0x27
	DefaultRefreshMs      = 1000

	// periph names pins after the SoC GPIO lines, gobot after the header.
	DefaultPeriphResetPin = "GPIO5"
	DefaultPeriphSDIOPin  = "GPIO2"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Platform == "" {
		cfg.Platform = PlatformRaspi
	}

	if cfg.Receiver.Band == "" {
		cfg.Receiver.Band = DefaultBand
	}
	if cfg.Receiver.SpacingKHz == 0 {
		cfg.Receiver.SpacingKHz = DefaultSpacingKHz
	}
	if cfg.Receiver.Volume == 0 {
		cfg.Receiver.Volume = radio.DEFAULT_VOLUME
	}

	if cfg.Pins.Reset == "" {
		cfg.Pins.Reset = radio.DEFAULT_RESET_PIN
		if cfg.Platform == PlatformPeriph {
			cfg.Pins.Reset = DefaultPeriphResetPin
		}
	}
	if cfg.Pins.SDIO == "" {
		cfg.Pins.SDIO = radio.DEFAULT_SDIO_PIN
		if cfg.Platform == PlatformPeriph {
			cfg.Pins.SDIO = DefaultPeriphSDIOPin
		}
	}

	if cfg.Bus.Number == nil {
		n := DefaultBusNumber
		cfg.Bus.Number = &n
	}
	if cfg.Platform == PlatformPeriph && cfg.Bus.Name == "" {
		cfg.Bus.Name = strconv.Itoa(*cfg.Bus.Number)
	}

	if cfg.Display.Address == 0 {
		cfg.Display.Address = DefaultDisplayAddress
	}
	if cfg.Display.RefreshMs == 0 {
		cfg.Display.RefreshMs = DefaultRefreshMs
	}

	// Timing left at zero is filled in by radio.Si4703Config.Validate.
}
