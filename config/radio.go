package config

import (
	"time"

	"fmreceiver/radio"
)

// ToRadio builds the driver configuration. cfg must be validated and normalized.
func ToRadio(cfg *Config, debug bool, log, debugLog func(format string, v ...interface{})) radio.Si4703Config {
	res := radio.Si4703Config{
		Frequency: mhzToFrequency(cfg.Receiver.FrequencyMHz),
		Band:      bands[cfg.Receiver.Band],
		Spacing:   spacings[cfg.Receiver.SpacingKHz],
		Volume:    cfg.Receiver.Volume,

		ResetPin:         cfg.Pins.Reset,
		SDIOPin:          cfg.Pins.SDIO,
		TransportRetries: cfg.Bus.Retries,

		PollInterval:    millis(cfg.Timing.PollIntervalMs),
		MaxPollInterval: millis(cfg.Timing.MaxPollIntervalMs),
		TuneTimeout:     millis(cfg.Timing.TuneTimeoutMs),
		SeekTimeout:     millis(cfg.Timing.SeekTimeoutMs),

		RDSPollInterval: millis(cfg.RDS.PollIntervalMs),
		BlockErrorLimit: cfg.RDS.BlockErrorLimit,

		Log: log,
	}
	if debug {
		res.DebugMode = true
		res.DebugLog = debugLog
	}
	return res
}

// RefreshInterval is how often the listen loop updates the display.
func (c *Config) RefreshInterval() time.Duration {
	return millis(c.Display.RefreshMs)
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
