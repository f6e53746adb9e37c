package radio

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// opState names the steps of the tune and seek state machines, used for debug output.
type opState string

const (
	stateTuneRequested opState = "TuneRequested"
	stateTuning        opState = "Tuning"
	stateClearingTune  opState = "ClearingTune"
	stateSeekStarted   opState = "SeekStarted"
	stateSeeking       opState = "Seeking"
	stateBandLimit     opState = "BandLimitCheck"
	stateClearingSeek  opState = "ClearingSeek"
	stateSettled       opState = "Settled"
)

// TuningResult is what the chip reports about the current channel.
type TuningResult struct {
	// Frequency in 10 kHz units.
	Frequency uint16
	Stereo    bool
	// RSSI is the received signal strength in dBµV.
	RSSI uint8
}

func (t TuningResult) String() string {
	mode := "mono"
	if t.Stereo {
		mode = "stereo"
	}
	return fmt.Sprintf("%.2f MHz %s RSSI %d dBµV", float32(t.Frequency)/100, mode, t.RSSI)
}

// Tune tunes the receiver to freq, in 10 kHz units, and waits for the
// chip to settle.
func (s *Si4703Driver) Tune(freq uint16) (TuningResult, error) {
	return s.TuneContext(context.Background(), freq)
}

// TuneContext is Tune with a context able to abort the completion polls.
func (s *Si4703Driver) TuneContext(ctx context.Context, freq uint16) (TuningResult, error) {
	if err := s.checkStarted(); err != nil {
		return TuningResult{}, err
	}
	channel, err := s.plan.Channel(freq)
	if err != nil {
		return TuningResult{}, err
	}

	s.opMtx.Lock()
	defer s.opMtx.Unlock()

	s.debugf("tune %.2f MHz (channel %d): %s\n", float32(freq)/100, channel, stateTuneRequested)
	if err = s.regs.update(func(r *RegisterFile) {
		r[CHANNEL] = r[CHANNEL]&^CHANNEL_CHAN | channel | CHANNEL_TUNE
	}); err != nil {
		return TuningResult{}, err
	}

	s.debugf("tune: %s\n", stateTuning)
	if _, err = s.waitSTC(ctx, true, s.tuneTimeout, nil); err != nil {
		return TuningResult{}, s.abort(CHANNEL, CHANNEL_TUNE, err)
	}

	// The host, not the chip, clears TUNE once STC is set.
	s.debugf("tune: %s\n", stateClearingTune)
	if err = s.regs.update(func(r *RegisterFile) {
		r[CHANNEL] &^= CHANNEL_TUNE
	}); err != nil {
		return TuningResult{}, err
	}
	if _, err = s.waitSTC(ctx, false, s.tuneTimeout, nil); err != nil {
		return TuningResult{}, err
	}

	s.debugf("tune: %s\n", stateSettled)
	s.rds.reset()
	return s.Status()
}

// waitSTC polls the chip until the seek/tune complete bit equals want.
// The poll interval starts at pollInterval and doubles up to maxPollInterval.
func (s *Si4703Driver) waitSTC(ctx context.Context, want bool, timeout time.Duration, onPoll func(r RegisterFile)) (RegisterFile, error) {
	deadline := time.Now().Add(timeout)
	interval := s.pollInterval

	for {
		regs, err := s.regs.refresh()
		if err != nil {
			return regs, err
		}
		if (regs[STATUSRSSI]&STATUSRSSI_STC != 0) == want {
			return regs, nil
		}
		if onPoll != nil {
			onPoll(regs)
		}
		if time.Now().After(deadline) {
			return regs, errors.Wrapf(ErrTimeout, "STC did not become %t within %s", want, timeout)
		}

		select {
		case <-ctx.Done():
			return regs, ctx.Err()
		case <-time.After(interval):
		}

		interval *= 2
		if interval > s.maxPollInterval {
			interval = s.maxPollInterval
		}
	}
}

// abort clears the start bit of an operation that failed while the chip
// was busy, so it is not left mid-transaction.
func (s *Si4703Driver) abort(reg int, bit uint16, cause error) error {
	result := multierror.Append(nil, cause)
	if err := s.regs.update(func(r *RegisterFile) {
		r[reg] &^= bit
	}); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "clearing start bit"))
	}
	return result.ErrorOrNil()
}
