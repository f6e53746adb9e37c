package radio

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// group0A builds a group 0A carrying two characters of the station name.
func group0A(segment int, chars string) [4]uint16 {
	return [4]uint16{
		0x54A8,
		1<<10 | 10<<5 | 1<<3 | uint16(segment),
		0xE0CD,
		uint16(chars[0])<<8 | uint16(chars[1]),
	}
}

func groupRegisters(blocks [4]uint16, errs [4]uint8) RegisterFile {
	var r RegisterFile
	r[STATUSRSSI] = STATUSRSSI_RDSR | uint16(errs[0])<<9
	r[READCHAN] = uint16(errs[1])<<14 | uint16(errs[2])<<12 | uint16(errs[3])<<10
	copy(r[RDSA:], blocks[:])
	return r
}

func newTestDecoder(limit uint8) *rdsDecoder {
	nop := func(string, ...interface{}) {}
	return newRDSDecoder(&shadowStore{}, time.Millisecond, limit, nop, nop)
}

func TestReadGroup(t *testing.T) {
	_, ok := readGroup(RegisterFile{})
	assert.False(t, ok)

	r := groupRegisters(group0A(2, "FM"), [4]uint8{1, 2, 3, 0})
	r[STATUSRSSI] |= STATUSRSSI_STEREO | 0x33
	r[READCHAN] |= 0x1F

	g, ok := readGroup(r)
	require.True(t, ok)
	assert.Equal(t, [4]uint8{1, 2, 3, 0}, g.errors)
	assert.Equal(t, uint16(0x54A8), g.programID())
	assert.Equal(t, uint8(0), g.groupType())
	assert.False(t, g.versionB())
	assert.True(t, g.trafficProgram())
	assert.Equal(t, uint8(10), g.programType())
	assert.False(t, g.trafficAnnouncement())
	assert.True(t, g.music())
	assert.Equal(t, 2, g.segment())

	assert.False(t, g.valid(2))
	assert.False(t, g.valid(3))
	assert.True(t, g.valid(4))
}

func TestRDSDecoder_StationName(t *testing.T) {
	d := newTestDecoder(DEFAULT_BLOCK_ERROR_LIMIT)
	assert.Equal(t, "        ", d.snapshot().StationName)

	for i, chars := range []string{"KE", "XP", " 9", "0."} {
		assert.True(t, d.process(groupRegisters(group0A(i, chars), [4]uint8{})))
	}

	snap := d.snapshot()
	assert.Equal(t, "KEXP 90.", snap.StationName)
	assert.Equal(t, uint16(0x54A8), snap.ProgramID)
	assert.Equal(t, uint8(10), snap.ProgramType)
	assert.True(t, snap.TrafficProgram)
	assert.True(t, snap.Music)
	assert.Equal(t, 4, snap.Groups)
	assert.False(t, snap.UpdatedAt.IsZero())

	// Segments arrive in any order and overwrite what was there.
	d.process(groupRegisters(group0A(1, "ZZ"), [4]uint8{}))
	assert.Equal(t, "KEZZ 90.", d.snapshot().StationName)
}

func TestRDSDecoder_RejectedCharacters(t *testing.T) {
	d := newTestDecoder(DEFAULT_BLOCK_ERROR_LIMIT)
	d.process(groupRegisters(group0A(0, "AB"), [4]uint8{}))

	d.process(groupRegisters(group0A(0, "!C"), [4]uint8{}))
	assert.Equal(t, "AC      ", d.snapshot().StationName)

	d.process(groupRegisters(group0A(3, "\x00\x7f"), [4]uint8{}))
	assert.Equal(t, "AC      ", d.snapshot().StationName)
}

func TestRDSDecoder_BlockErrors(t *testing.T) {
	d := newTestDecoder(DEFAULT_BLOCK_ERROR_LIMIT)

	for _, errs := range [][4]uint8{{2, 0, 0, 0}, {0, 3, 0, 0}, {0, 0, 2, 0}, {0, 0, 0, 3}} {
		assert.False(t, d.process(groupRegisters(group0A(0, "NO"), errs)), "%v", errs)
	}
	assert.Equal(t, "        ", d.snapshot().StationName)
	assert.Zero(t, d.snapshot().Groups)

	assert.True(t, d.process(groupRegisters(group0A(0, "OK"), [4]uint8{1, 1, 1, 1})))
	assert.Equal(t, "OK      ", d.snapshot().StationName)

	lenient := newTestDecoder(4)
	assert.True(t, lenient.process(groupRegisters(group0A(0, "OK"), [4]uint8{3, 3, 3, 3})))
}

func TestRDSDecoder_CorruptedBlockKeepsName(t *testing.T) {
	d := newTestDecoder(DEFAULT_BLOCK_ERROR_LIMIT)
	require.True(t, d.process(groupRegisters(group0A(0, "KF"), [4]uint8{})))
	require.Equal(t, "KF      ", d.snapshot().StationName)

	for block := 0; block < 4; block++ {
		var errs [4]uint8
		errs[block] = 3
		assert.False(t, d.process(groupRegisters(group0A(0, "XY"), errs)), "block %d", block)
		assert.Equal(t, "KF      ", d.snapshot().StationName, "block %d", block)
	}
	assert.Equal(t, 1, d.snapshot().Groups)
}

func TestRDSDecoder_DropsGroupReadBeforeReset(t *testing.T) {
	d := newTestDecoder(DEFAULT_BLOCK_ERROR_LIMIT)
	d.process(groupRegisters(group0A(0, "OL"), [4]uint8{}))

	gen := d.generation()
	stale := groupRegisters(group0A(1, "D!"), [4]uint8{})
	d.reset()

	assert.False(t, d.accept(stale, gen))
	assert.Equal(t, RDSSnapshot{StationName: "        "}, d.snapshot())

	assert.True(t, d.accept(groupRegisters(group0A(0, "NE"), [4]uint8{}), d.generation()))
	assert.Equal(t, "NE      ", d.snapshot().StationName)
}

func TestRDSDecoder_UpdatesHoldLatest(t *testing.T) {
	d := newTestDecoder(DEFAULT_BLOCK_ERROR_LIMIT)

	for i := 0; i < 200; i++ {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			d.process(groupRegisters(group0A(i%4, "AB"), [4]uint8{}))
		}()
		go func() {
			defer wg.Done()
			d.reset()
		}()
		wg.Wait()

		select {
		case snap := <-d.updates:
			require.Equal(t, d.snapshot(), snap, "round %d", i)
		default:
			t.Fatalf("round %d: nothing published", i)
		}
	}
}

func TestRDSDecoder_OtherGroups(t *testing.T) {
	d := newTestDecoder(DEFAULT_BLOCK_ERROR_LIMIT)

	// Group 0B carries the name too, but its block C is a repeated PI.
	b := group0A(0, "XX")
	b[1] |= 1 << 11
	assert.True(t, d.process(groupRegisters(b, [4]uint8{})))

	// Group 2A, radio text.
	b = group0A(0, "YY")
	b[1] = b[1]&0x0FFF | 2<<12
	assert.True(t, d.process(groupRegisters(b, [4]uint8{})))

	snap := d.snapshot()
	assert.Equal(t, "        ", snap.StationName)
	assert.Equal(t, uint16(0x54A8), snap.ProgramID)
	assert.Equal(t, 2, snap.Groups)

	var none RegisterFile
	assert.False(t, d.process(none))
}

func TestRDSDecoder_ResetAndUpdates(t *testing.T) {
	d := newTestDecoder(DEFAULT_BLOCK_ERROR_LIMIT)

	d.process(groupRegisters(group0A(0, "AB"), [4]uint8{}))
	d.process(groupRegisters(group0A(1, "CD"), [4]uint8{}))

	// Only the newest snapshot is kept.
	select {
	case snap := <-d.updates:
		assert.Equal(t, "ABCD    ", snap.StationName)
		assert.Equal(t, 2, snap.Groups)
	default:
		t.Fatal("no update published")
	}

	d.reset()
	assert.Equal(t, RDSSnapshot{StationName: "        "}, d.snapshot())
	select {
	case snap := <-d.updates:
		assert.Equal(t, "        ", snap.StationName)
	default:
		t.Fatal("reset not published")
	}
}

func TestRDSDecoder_StartStop(t *testing.T) {
	d := newTestDecoder(DEFAULT_BLOCK_ERROR_LIMIT)
	d.stop()
	assert.False(t, d.running())

	assert.True(t, d.start())
	assert.False(t, d.start())
	assert.True(t, d.running())

	d.stop()
	assert.False(t, d.running())
	d.stop()
}

func TestSi4703Driver_StationName(t *testing.T) {
	d, _, chip := startedDriver(t, testConfig())
	chip.stations[9270] = testStation{rssi: 40, stereo: true}
	_, err := d.Tune(9270)
	require.NoError(t, err)

	adaptorLocked(d, func() {
		for i, chars := range []string{"RA", "DI", "O ", "1."} {
			chip.groups = append(chip.groups,
				testGroup{blocks: group0A(i, chars)},
				testGroup{blocks: group0A(i, "!!"), errors: [4]uint8{0, 0, 0, 3}},
			)
		}
	})

	name, err := d.StationName()
	require.NoError(t, err)
	assert.Len(t, name, StationNameLength)

	require.Eventually(t, func() bool {
		name, err = d.StationName()
		return err == nil && name == "RADIO 1."
	}, time.Second, time.Millisecond)

	var last RDSSnapshot
	require.Eventually(t, func() bool {
		select {
		case last = <-d.Updates():
		default:
		}
		return last.StationName == "RADIO 1."
	}, time.Second, time.Millisecond)

	_, err = d.Tune(9270)
	require.NoError(t, err)
	name, err = d.StationName()
	require.NoError(t, err)
	assert.Equal(t, "        ", name)

	d.StopRDS()
	assert.False(t, d.rds.running())
}

// adaptorLocked runs fn while holding the bus, so the RDS goroutine does not
// read the simulated chip concurrently.
func adaptorLocked(d *Si4703Driver, fn func()) {
	d.regs.mtx.Lock()
	defer d.regs.mtx.Unlock()
	fn()
}
