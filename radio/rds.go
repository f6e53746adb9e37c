package radio

import (
	"context"
	"sync"
	"time"
)

// StationNameLength is the length of the RDS program service name.
const StationNameLength = 8

// RDSSnapshot is the broadcast metadata decoded since the last tune or seek.
type RDSSnapshot struct {
	// StationName is space padded to StationNameLength characters.
	StationName         string
	ProgramID           uint16
	ProgramType         uint8
	TrafficProgram      bool
	TrafficAnnouncement bool
	Music               bool
	// Groups counts the groups accepted into the snapshot.
	Groups    int
	UpdatedAt time.Time
}

// rdsGroup holds the four blocks of a group and their error levels:
// 0 no errors, 1 one or two corrected, 2 three to five corrected, 3 uncorrectable.
type rdsGroup struct {
	blocks [4]uint16
	errors [4]uint8
}

// readGroup extracts the pending group from a register file, if the chip flagged one.
func readGroup(r RegisterFile) (rdsGroup, bool) {
	if r[STATUSRSSI]&STATUSRSSI_RDSR == 0 {
		return rdsGroup{}, false
	}
	return rdsGroup{
		blocks: [4]uint16{r[RDSA], r[RDSB], r[RDSC], r[RDSD]},
		errors: [4]uint8{
			uint8((r[STATUSRSSI] & STATUSRSSI_BLERA) >> 9),
			uint8((r[READCHAN] & READCHAN_BLERB) >> 14),
			uint8((r[READCHAN] & READCHAN_BLERC) >> 12),
			uint8((r[READCHAN] & READCHAN_BLERD) >> 10),
		},
	}, true
}

func (g rdsGroup) valid(limit uint8) bool {
	for _, e := range g.errors {
		if e >= limit {
			return false
		}
	}
	return true
}

func (g rdsGroup) programID() uint16    { return g.blocks[0] }
func (g rdsGroup) groupType() uint8     { return uint8(g.blocks[1] >> 12) }
func (g rdsGroup) versionB() bool       { return g.blocks[1]&(1<<11) != 0 }
func (g rdsGroup) trafficProgram() bool { return g.blocks[1]&(1<<10) != 0 }
func (g rdsGroup) programType() uint8   { return uint8(g.blocks[1]>>5) & 0x1F }

// Group 0 only.
func (g rdsGroup) trafficAnnouncement() bool { return g.blocks[1]&(1<<4) != 0 }
func (g rdsGroup) music() bool               { return g.blocks[1]&(1<<3) != 0 }
func (g rdsGroup) segment() int              { return int(g.blocks[1] & 0x3) }

// stationChar reports whether c may appear in a station name.
func stationChar(c byte) bool {
	return c >= 'A' && c <= 'Z' ||
		c >= 'a' && c <= 'z' ||
		c >= '0' && c <= '9' ||
		c == '.' || c == ' '
}

// rdsDecoder polls the chip in the background and assembles the station
// name from group 0A segments. The published snapshot has its own lock so
// readers never wait on the bus.
type rdsDecoder struct {
	store    *shadowStore
	interval time.Duration
	limit    uint8
	log      func(format string, v ...interface{})
	debugf   func(format string, v ...interface{})

	mtx     sync.Mutex
	name    [StationNameLength]byte
	latest  RDSSnapshot
	updates chan RDSSnapshot
	// gen changes on every reset; groups read under an older gen are dropped.
	gen uint64

	runMtx sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func newRDSDecoder(store *shadowStore, interval time.Duration, limit uint8,
	log, debugf func(format string, v ...interface{})) *rdsDecoder {
	d := &rdsDecoder{
		store:    store,
		interval: interval,
		limit:    limit,
		log:      log,
		debugf:   debugf,
		updates:  make(chan RDSSnapshot, 1),
	}
	d.clear()
	return d
}

// start launches the polling goroutine unless it already runs.
func (d *rdsDecoder) start() bool {
	d.runMtx.Lock()
	defer d.runMtx.Unlock()
	if d.done != nil {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.done = make(chan struct{})
	go d.run(ctx, d.done)
	return true
}

// stop cancels the polling goroutine and waits for it to return.
func (d *rdsDecoder) stop() {
	d.runMtx.Lock()
	cancel, done := d.cancel, d.done
	d.cancel, d.done = nil, nil
	d.runMtx.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (d *rdsDecoder) running() bool {
	d.runMtx.Lock()
	defer d.runMtx.Unlock()
	return d.done != nil
}

func (d *rdsDecoder) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			gen := d.generation()
			regs, err := d.store.refresh()
			if err != nil {
				d.log("RDS poll failed: %v\n", err)
				continue
			}
			d.accept(regs, gen)
		}
	}
}

func (d *rdsDecoder) generation() uint64 {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return d.gen
}

// process handles one register file and reports whether a group was accepted.
func (d *rdsDecoder) process(r RegisterFile) bool {
	return d.accept(r, d.generation())
}

// accept is process for a register file read while gen was current.
func (d *rdsDecoder) accept(r RegisterFile, gen uint64) bool {
	g, ok := readGroup(r)
	if !ok {
		return false
	}
	if !g.valid(d.limit) {
		d.debugf("RDS group discarded, block errors %v\n", g.errors)
		return false
	}

	d.mtx.Lock()
	defer d.mtx.Unlock()
	if d.gen != gen {
		d.debugf("RDS group dropped, channel changed while reading\n")
		return false
	}

	d.latest.ProgramID = g.programID()
	d.latest.ProgramType = g.programType()
	d.latest.TrafficProgram = g.trafficProgram()

	if g.groupType() == 0 && !g.versionB() {
		d.latest.TrafficAnnouncement = g.trafficAnnouncement()
		d.latest.Music = g.music()

		pos := g.segment() * 2
		chars := g.blocks[3]
		if hi := byte(chars >> 8); stationChar(hi) {
			d.name[pos] = hi
		}
		if lo := byte(chars & 0xFF); stationChar(lo) {
			d.name[pos+1] = lo
		}
	}

	d.latest.Groups++
	d.latest.StationName = string(d.name[:])
	d.latest.UpdatedAt = time.Now()
	d.publish(d.latest)
	return true
}

// reset forgets everything decoded so far, used when the channel changes.
func (d *rdsDecoder) reset() {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	d.clear()
	d.publish(d.latest)
}

// clear must be called with d.mtx held.
func (d *rdsDecoder) clear() {
	d.gen++
	for i := range d.name {
		d.name[i] = ' '
	}
	d.latest = RDSSnapshot{StationName: string(d.name[:])}
}

func (d *rdsDecoder) snapshot() RDSSnapshot {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return d.latest
}

// publish replaces whatever is waiting in the updates slot with snap.
// d.mtx must be held so snapshots reach the slot in order.
func (d *rdsDecoder) publish(snap RDSSnapshot) {
	select {
	case <-d.updates:
	default:
	}
	select {
	case d.updates <- snap:
	default:
	}
}

// StationName returns the station name decoded so far, space padded to
// StationNameLength characters. The RDS decoder is started on first use.
func (s *Si4703Driver) StationName() (string, error) {
	snap, err := s.RDS()
	return snap.StationName, err
}

// RDS returns everything decoded since the last tune or seek. The RDS
// decoder is started on first use.
func (s *Si4703Driver) RDS() (RDSSnapshot, error) {
	if err := s.StartRDS(); err != nil {
		return RDSSnapshot{}, err
	}
	return s.rds.snapshot(), nil
}

// StartRDS starts the background RDS decoder if it is not running yet.
func (s *Si4703Driver) StartRDS() error {
	if err := s.checkStarted(); err != nil {
		return err
	}
	if s.rds.start() && s.debugMode {
		s.debugLog("RDS decoder started, polling every %s\n", s.rds.interval)
	}
	return nil
}

// StopRDS stops the background RDS decoder. The last snapshot stays available.
func (s *Si4703Driver) StopRDS() {
	s.rds.stop()
}

// Updates delivers the newest RDS snapshot each time it changes. Only the
// most recent snapshot is kept when nobody is reading.
func (s *Si4703Driver) Updates() <-chan RDSSnapshot {
	return s.rds.updates
}
