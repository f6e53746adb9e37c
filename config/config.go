// Package config reads the receiver configuration file.
//
// The file is YAML. It goes through Load, then Validate, then Normalize,
// and is finally turned into the driver configuration with ToRadio.
package config

// Config is the whole configuration file.
type Config struct {
	// Platform is "raspi" (gobot adaptor) or "periph" (periph.io host drivers).
	Platform string         `yaml:"platform"`
	Receiver ReceiverConfig `yaml:"receiver"`
	Pins     PinsConfig     `yaml:"pins"`
	Bus      BusConfig      `yaml:"bus"`
	Timing   TimingConfig   `yaml:"timing"`
	RDS      RDSConfig      `yaml:"rds"`
	Display  DisplayConfig  `yaml:"display"`
}

// ---- RECEIVER ----

type ReceiverConfig struct {
	FrequencyMHz float64 `yaml:"frequency_mhz"`
	Band         string  `yaml:"band"`        // us-europe | japan-wide | japan
	SpacingKHz   int     `yaml:"spacing_khz"` // 200 | 100 | 50
	Volume       uint8   `yaml:"volume"`
}

// ---- WIRING ----

type PinsConfig struct {
	Reset string `yaml:"reset"`
	SDIO  string `yaml:"sdio"`
}

type BusConfig struct {
	// Number is the i2c bus number, 1 on every recent Raspberry Pi.
	Number  *int   `yaml:"number"`
	Retries int    `yaml:"retries"`
	Name    string `yaml:"name"` // periph bus name, defaults to Number
}

// ---- TIMING ----

type TimingConfig struct {
	PollIntervalMs    int `yaml:"poll_interval_ms"`
	MaxPollIntervalMs int `yaml:"max_poll_interval_ms"`
	TuneTimeoutMs     int `yaml:"tune_timeout_ms"`
	SeekTimeoutMs     int `yaml:"seek_timeout_ms"`
}

type RDSConfig struct {
	PollIntervalMs  int   `yaml:"poll_interval_ms"`
	BlockErrorLimit uint8 `yaml:"block_error_limit"`
}

// ---- DISPLAY ----

type DisplayConfig struct {
	Enabled   bool `yaml:"enabled"`
	Address   int  `yaml:"address"`
	RefreshMs int  `yaml:"refresh_ms"`
}
