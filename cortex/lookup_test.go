package cortex

import (
	"context"
	"testing"

	"github.com/hn4dev/hn4core/addr"
	"github.com/hn4dev/hn4core/volume"
)

func nanoVolume(slots int) *volume.Volume {
	v := &volume.Volume{}
	v.Info.SectorSize = 512
	v.Info.CortexStart = 0
	v.Info.BitmapStart = uint64(slots) * volume.AnchorSize / 512
	v.NanoCortex = make([]volume.Anchor, slots)
	return v
}

func putAnchor(v *volume.Volume, idx uint64, a volume.Anchor) {
	a.RecomputeChecksum()
	v.NanoCortex[idx] = a
}

// A matching slot carrying the TOMBSTONE bit surfaces
// status.Tombstone along with the tombstoned anchor, not NOT_FOUND.
func TestScanSlotTombstone(t *testing.T) {
	v := nanoVolume(8)
	target := addr.U128{Lo: 0xabc, Hi: 0xdef}
	start := SlotHash(target.Lo, target.Hi, uint64(len(v.NanoCortex)))
	putAnchor(v, start, volume.Anchor{SeedID: target, DataClass: volume.ClassValid | volume.ClassTombstone, WriteGen: 1})

	l := NewLookup(nil)
	_, got, _, err := l.ScanSlot(context.Background(), v, target)
	if err == nil {
		t.Fatal("expected a Tombstone error, got nil")
	}
	if got == nil || got.SeedID != target {
		t.Fatalf("unexpected anchor: %+v", got)
	}
}

// An all-zero "wall" slot terminates the probe chain even
// when a matching id would have hashed further down the table.
func TestScanSlotProbeWallTerminates(t *testing.T) {
	v := nanoVolume(8)
	target := addr.U128{Lo: 1, Hi: 2}
	start := SlotHash(target.Lo, target.Hi, uint64(len(v.NanoCortex)))
	// Place a matching entry two slots past the wall; it must never be found.
	putAnchor(v, (start+2)%8, volume.Anchor{SeedID: target, DataClass: volume.ClassValid, WriteGen: 9})

	l := NewLookup(nil)
	code, got, _, err := l.ScanSlot(context.Background(), v, target)
	if err == nil || got != nil {
		t.Fatalf("expected NOT_FOUND past the wall, got code=%v anchor=%+v err=%v", code, got, err)
	}
}

// A CRC-dirty candidate must never surface, even if its seed_id matches.
func TestScanSlotRejectsCRCDirty(t *testing.T) {
	v := nanoVolume(8)
	target := addr.U128{Lo: 42, Hi: 7}
	start := SlotHash(target.Lo, target.Hi, uint64(len(v.NanoCortex)))
	a := volume.Anchor{SeedID: target, DataClass: volume.ClassValid, WriteGen: 1}
	a.RecomputeChecksum()
	a.WriteGen = 2 // mutate after the checksum was taken: now CRC-dirty
	v.NanoCortex[start] = a

	l := NewLookup(nil)
	_, got, _, err := l.ScanSlot(context.Background(), v, target)
	if err == nil || got != nil {
		t.Fatalf("CRC-dirty candidate surfaced: %+v", got)
	}
}

// Duplicate live matches (e.g. a resurrected tombstone re-probed into a
// later slot) are resolved by the highest write_gen, not probe order.
func TestScanSlotGenerationTieBreak(t *testing.T) {
	v := nanoVolume(8)
	target := addr.U128{Lo: 100, Hi: 200}
	start := SlotHash(target.Lo, target.Hi, uint64(len(v.NanoCortex)))
	putAnchor(v, start, volume.Anchor{SeedID: target, DataClass: volume.ClassValid, WriteGen: 1})
	putAnchor(v, (start+1)%8, volume.Anchor{SeedID: target, DataClass: volume.ClassValid, WriteGen: 5})

	l := NewLookup(nil)
	code, got, idx, err := l.ScanSlot(context.Background(), v, target)
	if err != nil {
		t.Fatalf("ScanSlot: code=%v err=%v", code, err)
	}
	if got.WriteGen != 5 || idx != (start+1)%8 {
		t.Fatalf("expected the gen=5 slot to win, got gen=%d idx=%d", got.WriteGen, idx)
	}
}
