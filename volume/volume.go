// Package volume holds HN4's core data model: the Volume and its
// superblock info, the array of DeviceEntry members, Anchor/extension-block
// on-disk layouts, and the Q-Mask quality table.
package volume

import (
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

// ArrayMode is the closed set of multi-device dispatch strategies the
// Spatial Router implements: a tagged variant, not a dispatch table of
// virtual calls, so the router's hot path stays branch-predictable.
type ArrayMode int

const (
	ModeSingle ArrayMode = iota
	ModeMirror
	ModeShard
	ModeParity
)

// MaxDevices bounds the size of a Volume's array.
const MaxDevices = 16

// Health holds the relaxed-atomic repair counters.
type Health struct {
	HealCount   uint64
	ToxicBlocks uint64
}

func (h *Health) IncHeal()  { atomic.AddUint64(&h.HealCount, 1) }
func (h *Health) IncToxic() { atomic.AddUint64(&h.ToxicBlocks, 1) }

// Volume is a single mounted HN4 address space: its array of
// device members, the per-volume spinlock protecting array topology
// mutation, the decoded superblock, an optional RAM-resident Cortex, the
// Q-Mask table, and health counters.
type Volume struct {
	l2Lock sync.Mutex // "array spinlock"

	Mode    ArrayMode
	Devices []*DeviceEntry

	Info   SuperblockInfo
	QMask  *QMask
	Health Health

	// NanoCortex, when non-nil, is a RAM-resident mirror of the Cortex
	// table keyed by slot index, enabling the Cortex Lookup fast path.
	// Access is guarded by l2Lock per slot to serialize with any writer.
	NanoCortex []Anchor

	StripeUnitSectors uint32 // PARITY mode stripe unit, default 128 sectors
}

// Snapshot copies device count, mode, and per-device status to a
// stack-local slice under l2Lock, then releases the lock before the
// caller issues any I/O. The atomic status loads inside
// DeviceEntry.Status keep subsequent observations of device state at
// least as fresh as the snapshot.
func (v *Volume) Snapshot() []Snapshot {
	v.l2Lock.Lock()
	out := make([]Snapshot, len(v.Devices))
	for i, d := range v.Devices {
		out[i] = Snapshot{Handle: d.Handle, Status: d.Status()}
	}
	v.l2Lock.Unlock()
	return out
}

// MarkOffline transitions v.Devices[idx] OFFLINE and ORs DEGRADED|DIRTY
// into the volume's state flags, matching the router's reactive
// device-offline transition. It does not hold l2Lock: the
// device status and state-flag updates are themselves atomic CAS/OR ops.
func (v *Volume) MarkOffline(idx int) {
	if idx < 0 || idx >= len(v.Devices) {
		return
	}
	if v.Devices[idx].MarkOffline() {
		v.Info.SetState(StateDegraded | StateDirty)
	}
}

// SetPanic raises the volume's PANIC state flag.
func (v *Volume) SetPanic() {
	log.WithFields(log.Fields{
		"component": "volume",
		"uuid":      v.Info.UUID,
	}).Error("volume: PANIC state flag raised")
	v.Info.SetState(StatePanic)
}

// NanoCortexSlot returns a copy of slot idx from the RAM-resident Cortex
// mirror, guarded by l2Lock to serialize with any concurrent writer.
// ok is false when there is no RAM-resident Cortex or
// idx is out of range.
func (v *Volume) NanoCortexSlot(idx uint64) (a Anchor, ok bool) {
	v.l2Lock.Lock()
	defer v.l2Lock.Unlock()
	if v.NanoCortex == nil || idx >= uint64(len(v.NanoCortex)) {
		return Anchor{}, false
	}
	return v.NanoCortex[idx], true
}

// WriteNanoCortexSlot replaces slot idx in the RAM-resident Cortex mirror
// under l2Lock, so a slot swap is atomic with respect to readers.
func (v *Volume) WriteNanoCortexSlot(idx uint64, a Anchor) bool {
	v.l2Lock.Lock()
	defer v.l2Lock.Unlock()
	if v.NanoCortex == nil || idx >= uint64(len(v.NanoCortex)) {
		return false
	}
	v.NanoCortex[idx] = a
	return true
}

// TotalSlots computes the Cortex geometry: (bitmap_start - cortex_start) *
// sector_size / anchor_size.
func (v *Volume) TotalSlots(sectorSize uint32) uint64 {
	if v.Info.BitmapStart <= v.Info.CortexStart {
		return 0
	}
	bytes := (v.Info.BitmapStart - v.Info.CortexStart) * uint64(sectorSize)
	return bytes / AnchorSize
}
