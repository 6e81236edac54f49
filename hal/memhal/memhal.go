// Package memhal is an in-memory HAL used as the test harness for the
// router, cortex, signet and medic packages, standing in for the real
// block device HAL the core treats as an external collaborator:
// something concrete to read and write bytes against, with fault
// injection hooks for exercising error paths.
package memhal

import (
	"context"
	"sync"

	"github.com/hn4dev/hn4core/hal"
	"github.com/hn4dev/hn4core/status"
)

// Device is an in-memory block device with optional fault injection.
type Device struct {
	mu           sync.Mutex
	sectorSize   uint32
	sectors      [][]byte
	caps         hal.Caps
	failNext     map[hal.Op]int
	failAlwaysOp map[hal.Op]bool
	barriers     int
}

// New creates an in-memory device of nSectors sectors of sectorSize bytes
// each, all zero-filled.
func New(sectorSize uint32, nSectors uint64, caps hal.Caps) *Device {
	d := &Device{
		sectorSize:   sectorSize,
		sectors:      make([][]byte, nSectors),
		caps:         caps,
		failNext:     make(map[hal.Op]int),
		failAlwaysOp: make(map[hal.Op]bool),
	}
	for i := range d.sectors {
		d.sectors[i] = make([]byte, sectorSize)
	}
	return d
}

// FailNext arranges for the next n calls of op to fail with HW_IO.
func (d *Device) FailNext(op hal.Op, n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failNext[op] += n
}

// FailAlways arranges for every subsequent call of op to fail with HW_IO.
func (d *Device) FailAlways(op hal.Op, v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failAlwaysOp[op] = v
}

// BarrierCount reports how many Barrier calls have completed, for tests
// asserting write-then-barrier ordering.
func (d *Device) BarrierCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.barriers
}

func (d *Device) shouldFail(op hal.Op) bool {
	if d.failAlwaysOp[op] {
		return true
	}
	if d.failNext[op] > 0 {
		d.failNext[op]--
		return true
	}
	return false
}

func (d *Device) SyncIO(ctx context.Context, op hal.Op, lba uint64, buf []byte, nSectors uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.shouldFail(op) {
		return status.New(status.HWIO)
	}
	if lba+uint64(nSectors) > uint64(len(d.sectors)) {
		return status.New(status.Geometry)
	}
	switch op {
	case hal.OpRead:
		off := 0
		for i := uint32(0); i < nSectors; i++ {
			copy(buf[off:off+int(d.sectorSize)], d.sectors[lba+uint64(i)])
			off += int(d.sectorSize)
		}
	case hal.OpWrite, hal.OpZoneAppend:
		off := 0
		for i := uint32(0); i < nSectors; i++ {
			copy(d.sectors[lba+uint64(i)], buf[off:off+int(d.sectorSize)])
			off += int(d.sectorSize)
		}
	case hal.OpFlush, hal.OpDiscard:
		// no-op against memory
	}
	return nil
}

func (d *Device) Barrier(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.shouldFail(hal.OpFlush) {
		return status.New(status.HWIO)
	}
	d.barriers++
	return nil
}

func (d *Device) Caps() hal.Caps { return d.caps }

func (d *Device) Prefetch(ctx context.Context, lba uint64, nSectors uint32) {}

// Allocator is a simple bump allocator over a device's sector space,
// fulfilling hal.Allocator for Signet/extension-chain tests.
type Allocator struct {
	mu        sync.Mutex
	next      uint64
	freed     map[uint64]bool
	blockSize uint64
	limit     uint64
}

func NewAllocator(start, blockSectors, limit uint64) *Allocator {
	return &Allocator{next: start, blockSize: blockSectors, limit: limit, freed: make(map[uint64]bool)}
}

func (a *Allocator) AllocHorizon(ctx context.Context) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.next+a.blockSize > a.limit {
		return 0, status.New(status.NoMem)
	}
	lba := a.next
	a.next += a.blockSize
	return lba, nil
}

func (a *Allocator) FreeBlock(ctx context.Context, lba uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.freed[lba] = true
	return nil
}

func (a *Allocator) IsFreed(lba uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.freed[lba]
}

// Clock is a fake monotonically-advancing clock for deterministic tests.
type Clock struct {
	mu  sync.Mutex
	now uint64
}

func NewClock(start uint64) *Clock { return &Clock{now: start} }

func (c *Clock) NowNS() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now++
	return c.now
}

func (c *Clock) Advance(delta uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += delta
}

// Sleeper is a no-op MicroSleeper so unit tests do not actually block.
type Sleeper struct{}

func (Sleeper) MicroSleep(microseconds uint64) {}
