package radio

import (
	"fmt"
	"time"
)

// Defaults applied by Si4703Config.Validate.
//
//goland:noinspection GoUnnecessarilyExportedIdentifiers,GoSnakeCaseUsage
const (
	DEFAULT_RESET_PIN         = "29"
	DEFAULT_SDIO_PIN          = "3"
	DEFAULT_VOLUME            = 10
	DEFAULT_BLOCK_ERROR_LIMIT = 2

	DEFAULT_POLL_INTERVAL     = time.Millisecond
	DEFAULT_MAX_POLL_INTERVAL = 20 * time.Millisecond
	DEFAULT_TUNE_TIMEOUT      = 3 * time.Second
	DEFAULT_SEEK_TIMEOUT      = 15 * time.Second
	DEFAULT_RDS_POLL_INTERVAL = 40 * time.Millisecond

	DEFAULT_RESET_DELAY       = time.Millisecond
	DEFAULT_OSCILLATOR_SETTLE = 500 * time.Millisecond
	DEFAULT_POWER_UP_SETTLE   = 110 * time.Millisecond
)

// Si4703Config holds the additional configuration needed for Si4703Driver.
type Si4703Config struct {
	// Frequency is tuned right after power up when not zero, in 10 kHz units.
	Frequency uint16
	Band      Band
	Spacing   Spacing

	// Volume is 1..15. Zero selects DEFAULT_VOLUME, use SetVolume(0) to silence.
	Volume uint8

	ResetPin string
	SDIOPin  string

	// TransportRetries is the number of extra attempts for a failed block transfer.
	TransportRetries int

	PollInterval    time.Duration
	MaxPollInterval time.Duration
	TuneTimeout     time.Duration
	SeekTimeout     time.Duration

	ResetDelay       time.Duration
	OscillatorSettle time.Duration
	PowerUpSettle    time.Duration

	RDSPollInterval time.Duration
	// BlockErrorLimit discards RDS groups having a block error level at or above it.
	BlockErrorLimit uint8

	DebugMode bool
	DebugLog  func(format string, v ...interface{})
	Log       func(format string, v ...interface{})
}

// Validate ensures that our Si4703Driver configuration is valid.
//
//goland:noinspection GoUnnecessarilyExportedIdentifiers
func (c *Si4703Config) Validate() error {
	if c.Log == nil {
		panic("logging function cannot be nil. Use something like log.Printf or an empty function instead")
	}
	if c.DebugMode && c.DebugLog == nil {
		panic("cannot use debugging mode without configuring a DebugLog function, e.g. log.Printf")
	}

	plan := BandPlan{Band: c.Band, Spacing: c.Spacing}
	if err := plan.validate(); err != nil {
		return err
	}

	if c.Frequency != 0 {
		if _, err := plan.Channel(c.Frequency); err != nil {
			return err
		}
	}

	if c.Volume == 0 {
		c.Volume = DEFAULT_VOLUME
	} else if c.Volume > 15 {
		c.Log("Volume %d > 15. Adjusting to maximum of 15.\n", c.Volume)
		c.Volume = 15
	}

	if c.ResetPin == "" {
		c.ResetPin = DEFAULT_RESET_PIN
	}
	if c.SDIOPin == "" {
		c.SDIOPin = DEFAULT_SDIO_PIN
	}
	if c.ResetPin == c.SDIOPin {
		return fmt.Errorf("reset pin and SDIO pin must differ, both are %q", c.ResetPin)
	}

	if c.TransportRetries < 0 {
		return fmt.Errorf("transport retries cannot be negative, got %d", c.TransportRetries)
	}

	setDuration(&c.PollInterval, DEFAULT_POLL_INTERVAL)
	setDuration(&c.MaxPollInterval, DEFAULT_MAX_POLL_INTERVAL)
	setDuration(&c.TuneTimeout, DEFAULT_TUNE_TIMEOUT)
	setDuration(&c.SeekTimeout, DEFAULT_SEEK_TIMEOUT)
	setDuration(&c.RDSPollInterval, DEFAULT_RDS_POLL_INTERVAL)
	setDuration(&c.ResetDelay, DEFAULT_RESET_DELAY)
	setDuration(&c.OscillatorSettle, DEFAULT_OSCILLATOR_SETTLE)
	setDuration(&c.PowerUpSettle, DEFAULT_POWER_UP_SETTLE)

	if c.MaxPollInterval < c.PollInterval {
		c.MaxPollInterval = c.PollInterval
	}

	if c.BlockErrorLimit == 0 {
		c.BlockErrorLimit = DEFAULT_BLOCK_ERROR_LIMIT
	} else if c.BlockErrorLimit > 4 {
		return fmt.Errorf("block error limit must be 1..4, got %d", c.BlockErrorLimit)
	}

	return nil
}

func setDuration(d *time.Duration, def time.Duration) {
	if *d <= 0 {
		*d = def
	}
}
