package cortex

import (
	"context"

	"github.com/hn4dev/hn4core/addr"
	"github.com/hn4dev/hn4core/hal"
	"github.com/hn4dev/hn4core/router"
	"github.com/hn4dev/hn4core/status"
	"github.com/hn4dev/hn4core/volume"
)

// MaxProbes bounds the linear probe at 1024 steps.
const MaxProbes = 1024

// Lookup implements the Cortex Lookup component.
type Lookup struct {
	Router *router.Router
}

func NewLookup(r *router.Router) *Lookup {
	return &Lookup{Router: r}
}

// ScanSlot resolves a 128-bit id to its Anchor by open-addressed linear
// probing, tie-breaking duplicate/tombstoned-then-resurrected matches by
// the highest write_gen.
func (l *Lookup) ScanSlot(ctx context.Context, vol *volume.Volume, target addr.U128) (status.Code, *volume.Anchor, uint64, error) {
	totalSlots := vol.TotalSlots(vol.Info.SectorSize)
	if totalSlots == 0 {
		return status.Geometry, nil, 0, status.New(status.Geometry)
	}
	start := SlotHash(target.Lo, target.Hi, totalSlots)

	var best *volume.Anchor
	var bestIdx uint64

	for probe := uint64(0); probe < MaxProbes && probe < totalSlots; probe++ {
		slotIdx := (start + probe) % totalSlots
		a, err := l.readSlot(ctx, vol, slotIdx, target)
		if err != nil {
			return status.HWIO, nil, 0, err
		}
		if a.IsWall() {
			break // wall terminates the probe chain
		}
		if !a.DataClass.Has(volume.ClassValid) && !a.DataClass.Has(volume.ClassTombstone) {
			continue
		}
		if a.SeedID.Lo != target.Lo || a.SeedID.Hi != target.Hi {
			continue
		}
		if !a.VerifyChecksum() {
			continue // CRC-dirty candidates never surface
		}
		if best == nil || volume.GenAfter(a.WriteGen, best.WriteGen) {
			best = a
			bestIdx = slotIdx
		}
	}

	if best == nil {
		return status.NotFound, nil, 0, status.New(status.NotFound)
	}
	if best.DataClass.Has(volume.ClassTombstone) {
		return status.Tombstone, best, bestIdx, status.New(status.Tombstone)
	}
	return status.OK, best, bestIdx, nil
}

// readSlot fetches slot slotIdx, preferring the RAM-resident Cortex mirror
// when present, falling back to a HAL read that
// handles a slot straddling a sector boundary ("Slow path").
func (l *Lookup) readSlot(ctx context.Context, vol *volume.Volume, slotIdx uint64, target addr.U128) (*volume.Anchor, error) {
	if vol.NanoCortex != nil {
		a, ok := vol.NanoCortexSlot(slotIdx)
		if ok {
			return &a, nil
		}
	}

	sectorSize := uint64(vol.Info.SectorSize)
	byteOffset := vol.Info.CortexStart*sectorSize + slotIdx*volume.AnchorSize
	lba := byteOffset / sectorSize
	byteInSector := byteOffset % sectorSize

	sectorsToRead := uint32(1)
	if byteInSector+volume.AnchorSize > sectorSize {
		sectorsToRead = 2
	}
	buf := make([]byte, uint64(sectorsToRead)*sectorSize)
	if _, err := l.Router.Route(ctx, vol, hal.OpRead, lba, buf, sectorsToRead, target); err != nil {
		return nil, err
	}
	return volume.DecodeAnchor(buf[byteInSector : byteInSector+volume.AnchorSize]), nil
}
