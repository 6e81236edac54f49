package router

import (
	"context"

	"github.com/hn4dev/hn4core/bitcodec"
	"github.com/hn4dev/hn4core/hal"
	"github.com/hn4dev/hn4core/status"
	"github.com/hn4dev/hn4core/volume"
)

type parityChunk struct {
	lba uint64
	n   uint32
}

// splitStripeChunks breaks [lba, lba+n) into runs that do not cross a
// stripe-unit boundary, so each chunk maps to exactly one (stripeRow,
// column) pair.
func splitStripeChunks(lba uint64, n uint32, unit uint64) []parityChunk {
	var chunks []parityChunk
	remaining := uint64(n)
	cur := lba
	for remaining > 0 {
		boundary := ((cur / unit) + 1) * unit
		run := boundary - cur
		if run > remaining {
			run = remaining
		}
		chunks = append(chunks, parityChunk{lba: cur, n: uint32(run)})
		cur += run
		remaining -= run
	}
	return chunks
}

func (r *Router) routeParity(ctx context.Context, vol *volume.Volume, snap []volume.Snapshot, op hal.Op, lba uint64, buf []byte, lenSectors uint32) (status.Code, error) {
	count := len(snap)
	if count < 2 {
		return status.Geometry, status.New(status.Geometry)
	}
	for _, d := range snap {
		if d.Handle.Caps().HWFlags&hal.HWZNSNative != 0 {
			return status.ProfileMismatch, status.New(status.ProfileMismatch)
		}
	}
	if op != hal.OpRead {
		// RAID-5 write-hole management is out of scope.
		return status.AccessDenied, status.New(status.AccessDenied)
	}

	online := onlineBitset(snap)
	if uint(count)-online.Count() >= 2 {
		// Two members already gone: no stripe is reconstructible.
		return status.ParityBroken, status.New(status.ParityBroken)
	}

	unit := uint64(r.stripeUnit(vol))
	dataDisks := uint64(count - 1)
	sectorSize := snap[0].Handle.Caps().LogicalBlockSize

	chunks := splitStripeChunks(lba, lenSectors, unit)
	bufOff := 0
	for _, ch := range chunks {
		chunkBytes := int(ch.n) * int(sectorSize)
		dst := buf[bufOff : bufOff+chunkBytes]
		bufOff += chunkBytes

		stripeRow := ch.lba / (dataDisks * unit)
		offsetInStripe := ch.lba % (dataDisks * unit)
		logicalCol := offsetInStripe / unit
		offsetInCol := offsetInStripe % unit

		parityCol := uint64(count-1) - (stripeRow % uint64(count))
		physCol := logicalCol
		if physCol >= parityCol {
			physCol++
		}
		physLBA := stripeRow*unit + offsetInCol

		code, err := r.parityReadDataDevice(ctx, vol, snap, int(physCol), physLBA, dst, ch.n)
		if err == nil {
			continue
		}
		if code != status.HWIO && code != status.DataRot && code != status.MediaToxic && code != status.AtomicsTimeout {
			return code, err
		}

		// Degraded reconstruction: XOR every other column's same physical
		// chunk together.
		recon := make([]byte, chunkBytes)
		peer := make([]byte, chunkBytes)
		for col := 0; col < count; col++ {
			if col == int(physCol) {
				continue
			}
			if !online.Test(uint(col)) {
				return status.ParityBroken, status.New(status.ParityBroken)
			}
			if err := snap[col].Handle.SyncIO(ctx, hal.OpRead, physLBA, peer, ch.n); err != nil {
				code := status.From(err)
				if code.Critical() {
					markCriticalOffline(vol, col, code)
				}
				return status.ParityBroken, status.New(status.ParityBroken)
			}
			xorInto(recon, peer)
		}
		if uint32(chunkBytes) == vol.Info.BlockSize && len(recon) >= 8 {
			if bitcodec.GetU32(recon, 0) == volume.MagicBlock {
				crcOff := len(recon) - 4
				want := bitcodec.GetU32(recon, crcOff)
				got := bitcodec.CRCFresh(recon[:crcOff])
				if want != got {
					return status.ParityBroken, status.New(status.ParityBroken)
				}
			}
		}
		copy(dst, recon)
	}
	return status.OK, nil
}

func (r *Router) stripeUnit(vol *volume.Volume) uint32 {
	if vol.StripeUnitSectors > 0 {
		return vol.StripeUnitSectors
	}
	return paritySplitUnitSectors
}

func (r *Router) parityReadDataDevice(ctx context.Context, vol *volume.Volume, snap []volume.Snapshot, col int, lba uint64, buf []byte, n uint32) (status.Code, error) {
	d := snap[col]
	if d.Status == volume.StatusOffline {
		return status.HWIO, status.New(status.HWIO)
	}
	var lastCode status.Code
	var lastErr error
	for attempt := 0; attempt < parityDataRetries; attempt++ {
		err := d.Handle.SyncIO(ctx, hal.OpRead, lba, buf, n)
		if err == nil {
			return status.OK, nil
		}
		code := status.From(err)
		if code.Success() {
			return code, nil
		}
		lastCode, lastErr = code, err
		if code.Critical() {
			markCriticalOffline(vol, col, code)
			break
		}
	}
	return lastCode, lastErr
}
