package cortex

import (
	"context"

	"github.com/bits-and-blooms/bitset"

	"github.com/hn4dev/hn4core/addr"
	"github.com/hn4dev/hn4core/hal"
	"github.com/hn4dev/hn4core/status"
	"github.com/hn4dev/hn4core/volume"
)

// Batch sizes for the resonance sweep: 64 KiB on flash/NVM, 256 KiB on
// rotational media, always rounded up to a sector boundary.
const (
	batchBytesFlash      = 64 * 1024
	batchBytesRotational = 256 * 1024

	// DefaultThresholdPct is strict containment: every required tag bit
	// must be present in a candidate's tag_filter.
	DefaultThresholdPct = 100
)

// ScanQuery is a resonance-scan request: a target name, a required tag
// mask, or both.
type ScanQuery struct {
	Name         string
	RequiredTags uint64
	ThresholdPct int // 0 defaults to DefaultThresholdPct
}

// ScanResult is the surviving candidate with the highest (score,
// write_gen) pair.
type ScanResult struct {
	Anchor *volume.Anchor
	Slot   uint64
	Score  int
}

// Resonance implements the Resonance Scan component: a linear
// batched sweep of the Cortex region, combining Bloom-filter tag
// intersection scoring with an optional name-resolution compare.
func (l *Lookup) Resonance(ctx context.Context, vol *volume.Volume, q ScanQuery) (status.Code, *ScanResult, error) {
	if q.Name == "" && q.RequiredTags == 0 {
		return status.InvalidArgument, nil, status.New(status.InvalidArgument)
	}
	threshold := q.ThresholdPct
	if threshold <= 0 {
		threshold = DefaultThresholdPct
	}
	totalSlots := vol.TotalSlots(vol.Info.SectorSize)
	if totalSlots == 0 {
		return status.Geometry, nil, status.New(status.Geometry)
	}

	batchSlots := l.batchSlotCount(vol)
	requiredPop := popcount64(q.RequiredTags)
	minScore := (threshold * requiredPop) / 100

	var best *ScanResult

	for batchStart := uint64(0); batchStart < totalSlots; batchStart += batchSlots {
		end := batchStart + batchSlots
		if end > totalSlots {
			end = totalSlots
		}
		if vol.NanoCortex == nil && len(vol.Devices) > 0 {
			// hint the upcoming batch so the slow path streams instead
			// of seeking per slot.
			sectorSize := uint64(vol.Info.SectorSize)
			if sectorSize > 0 {
				byteOff := vol.Info.CortexStart*sectorSize + batchStart*volume.AnchorSize
				nBytes := (end - batchStart) * volume.AnchorSize
				vol.Devices[0].Handle.Prefetch(ctx, byteOff/sectorSize, uint32((nBytes+sectorSize-1)/sectorSize))
			}
		}
		// valid marks which slots in this batch carried VALID and were
		// not tombstoned; it is only consulted after the batch, to tell
		// whether the batch held any live slot.
		valid := bitset.New(uint(end - batchStart))

		for idx := batchStart; idx < end; idx++ {
			a, err := l.readSlot(ctx, vol, idx, addr.U128{})
			if err != nil {
				return status.HWIO, nil, err
			}
			if !a.DataClass.Has(volume.ClassValid) || a.DataClass.Has(volume.ClassTombstone) {
				continue
			}
			valid.Set(uint(idx - batchStart))

			score := 0
			if q.RequiredTags != 0 {
				intersection := a.TagFilter & q.RequiredTags
				score = popcount64(intersection)
				if score < minScore {
					continue
				}
			}
			if q.Name != "" {
				ok, cerr := CompareName(ctx, l.Router, vol, a, q.Name)
				if cerr != nil || !ok {
					continue
				}
			}
			if !a.VerifyChecksum() {
				continue
			}
			if best == nil || better(score, a.WriteGen, best.Score, best.Anchor.WriteGen) {
				best = &ScanResult{Anchor: a, Slot: idx, Score: score}
			}
		}
		if valid.None() {
			continue // batch held no live slot
		}
	}

	if best == nil {
		return status.NotFound, nil, status.New(status.NotFound)
	}
	return status.OK, best, nil
}

// better reports whether (score, gen) outranks (bestScore, bestGen) under
// the (score, write_gen) ranking rule.
func better(score int, gen uint32, bestScore int, bestGen uint32) bool {
	if score != bestScore {
		return score > bestScore
	}
	return volume.GenAfter(gen, bestGen)
}

// batchSlotCount sizes a resonance-scan batch, rounding the
// byte budget up to a sector boundary before converting to a slot count.
func (l *Lookup) batchSlotCount(vol *volume.Volume) uint64 {
	rotational := false
	for _, d := range vol.Devices {
		if d.Handle.Caps().HWFlags&hal.HWRotational != 0 {
			rotational = true
			break
		}
	}
	bytes := uint64(batchBytesFlash)
	if rotational {
		bytes = batchBytesRotational
	}
	if sectorSize := uint64(vol.Info.SectorSize); sectorSize > 0 {
		bytes = ((bytes + sectorSize - 1) / sectorSize) * sectorSize
	}
	slots := bytes / volume.AnchorSize
	if slots == 0 {
		slots = 1
	}
	return slots
}
