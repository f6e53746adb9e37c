package radio

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// Direction of a seek.
type Direction uint8

const (
	// SeekDown seeks towards the bottom of the band.
	SeekDown Direction = iota
	// SeekUp seeks towards the top of the band.
	SeekUp
)

func (d Direction) String() string {
	switch d {
	case SeekDown:
		return "down"
	case SeekUp:
		return "up"
	default:
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
}

// SeekOutcome is the result of a seek. BandLimitReached is set when the
// chip hit the end of the band without finding a station, in which case
// the receiver is left tuned to the band edge.
type SeekOutcome struct {
	TuningResult
	BandLimitReached bool
}

// Seek scans in the given direction for the next station. Wrapping around
// the band is disabled, the seek stops at the band limit.
func (s *Si4703Driver) Seek(dir Direction) (SeekOutcome, error) {
	return s.SeekContext(context.Background(), dir)
}

// SeekContext is Seek with a context able to abort the completion polls.
func (s *Si4703Driver) SeekContext(ctx context.Context, dir Direction) (SeekOutcome, error) {
	if err := s.checkStarted(); err != nil {
		return SeekOutcome{}, err
	}
	if dir != SeekDown && dir != SeekUp {
		return SeekOutcome{}, errors.Wrapf(ErrInvalidDirection, "%s", dir)
	}

	s.opMtx.Lock()
	defer s.opMtx.Unlock()

	s.debugf("seek %s: %s\n", dir, stateSeekStarted)
	err := s.regs.update(func(r *RegisterFile) {
		r[POWERCFG] |= POWERCFG_SKMODE
		if dir == SeekUp {
			r[POWERCFG] |= POWERCFG_SEEKUP
		} else {
			r[POWERCFG] &^= POWERCFG_SEEKUP
		}
		r[POWERCFG] |= POWERCFG_SEEK
	})
	if err != nil {
		return SeekOutcome{}, err
	}

	s.debugf("seek %s: %s\n", dir, stateSeeking)
	var trying func(r RegisterFile)
	if s.debugMode {
		trying = func(r RegisterFile) {
			s.debugLog("Trying station %.2f MHz\n", float32(s.plan.Frequency(r[READCHAN]&READCHAN_CHAN))/100)
		}
	}
	regs, err := s.waitSTC(ctx, true, s.seekTimeout, trying)
	if err != nil {
		return SeekOutcome{}, s.abort(POWERCFG, POWERCFG_SEEK, err)
	}

	s.debugf("seek %s: %s\n", dir, stateBandLimit)
	limited := regs[STATUSRSSI]&STATUSRSSI_SFBL != 0
	if limited {
		s.debugf("seek %s: band limit reached\n", dir)
	}

	s.debugf("seek %s: %s\n", dir, stateClearingSeek)
	if err = s.regs.update(func(r *RegisterFile) {
		r[POWERCFG] &^= POWERCFG_SEEK
	}); err != nil {
		return SeekOutcome{}, err
	}
	if _, err = s.waitSTC(ctx, false, s.seekTimeout, nil); err != nil {
		return SeekOutcome{}, err
	}

	s.debugf("seek %s: %s\n", dir, stateSettled)
	s.rds.reset()
	res, err := s.Status()
	if err != nil {
		return SeekOutcome{}, err
	}
	return SeekOutcome{TuningResult: res, BandLimitReached: limited}, nil
}
