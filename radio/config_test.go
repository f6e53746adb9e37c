package radio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSi4703Config_Validate(t *testing.T) {
	cfg := Si4703Config{Log: func(string, ...interface{}) {}}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, uint8(DEFAULT_VOLUME), cfg.Volume)
	assert.Equal(t, DEFAULT_RESET_PIN, cfg.ResetPin)
	assert.Equal(t, DEFAULT_SDIO_PIN, cfg.SDIOPin)
	assert.Equal(t, DEFAULT_POLL_INTERVAL, cfg.PollInterval)
	assert.Equal(t, DEFAULT_MAX_POLL_INTERVAL, cfg.MaxPollInterval)
	assert.Equal(t, DEFAULT_TUNE_TIMEOUT, cfg.TuneTimeout)
	assert.Equal(t, DEFAULT_SEEK_TIMEOUT, cfg.SeekTimeout)
	assert.Equal(t, DEFAULT_RDS_POLL_INTERVAL, cfg.RDSPollInterval)
	assert.Equal(t, DEFAULT_OSCILLATOR_SETTLE, cfg.OscillatorSettle)
	assert.Equal(t, uint8(DEFAULT_BLOCK_ERROR_LIMIT), cfg.BlockErrorLimit)
}

func TestSi4703Config_ValidateAdjusts(t *testing.T) {
	var logged []string
	cfg := Si4703Config{
		Volume:          40,
		PollInterval:    50 * DEFAULT_POLL_INTERVAL,
		MaxPollInterval: DEFAULT_POLL_INTERVAL,
		Log: func(format string, v ...interface{}) {
			logged = append(logged, format)
		},
	}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, uint8(15), cfg.Volume)
	assert.Equal(t, cfg.PollInterval, cfg.MaxPollInterval)
	assert.Len(t, logged, 1)
}

func TestSi4703Config_ValidateErrors(t *testing.T) {
	nop := func(string, ...interface{}) {}
	tests := map[string]Si4703Config{
		"band":          {Band: 5, Log: nop},
		"spacing":       {Spacing: 4, Log: nop},
		"frequency":     {Frequency: 7700, Log: nop},
		"same pins":     {ResetPin: "5", SDIOPin: "5", Log: nop},
		"retries":       {TransportRetries: -1, Log: nop},
		"error limit":   {BlockErrorLimit: 5, Log: nop},
		"japan ceiling": {Band: BandJapan, Frequency: 9100, Log: nop},
	}
	for name, cfg := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSi4703Config_ValidatePanics(t *testing.T) {
	assert.Panics(t, func() {
		cfg := Si4703Config{}
		_ = cfg.Validate()
	})
	assert.Panics(t, func() {
		cfg := Si4703Config{Log: func(string, ...interface{}) {}, DebugMode: true}
		_ = cfg.Validate()
	})
}
