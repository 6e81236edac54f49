package router

import (
	"context"

	"github.com/hn4dev/hn4core/hal"
	"github.com/hn4dev/hn4core/status"
	"github.com/hn4dev/hn4core/volume"
)

// mix64 is a splitmix64-style finalizer used as the "integer mix constant"
// hash for non-time-ordered SHARD placement.
func mix64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

// isV7Like reports whether id's high word carries a version-7-style
// nibble (0x7) at the UUID version position: bits 12-15 of the 64-bit
// word formed from the first 8 big-endian bytes of the 128-bit id.
func isV7Like(id FileID) bool {
	nibble := (id.Hi >> 12) & 0xF
	return nibble == 0x7
}

func shardTarget(snap []volume.Snapshot, id FileID) int {
	n := uint64(len(snap))
	rotational := false
	for _, d := range snap {
		if d.Handle.Caps().HWFlags&hal.HWRotational != 0 {
			rotational = true
			break
		}
	}
	if rotational && isV7Like(id) {
		return int(id.Hi % n)
	}
	return int(mix64(id.Lo^id.Hi) % n)
}

func (r *Router) routeShard(ctx context.Context, vol *volume.Volume, snap []volume.Snapshot, op hal.Op, lba uint64, buf []byte, lenSectors uint32, fileID FileID) (status.Code, error) {
	if len(snap) == 0 {
		return status.Geometry, status.New(status.Geometry)
	}
	idx := shardTarget(snap, fileID)
	d := snap[idx]
	if d.Status == volume.StatusOffline {
		return status.HWIO, status.New(status.HWIO)
	}

	caps := d.Handle.Caps()
	deviceSectors := caps.TotalCapacityLo / uint64(caps.LogicalBlockSize)
	effectiveOp := op
	skipBounds := false
	if caps.HWFlags&hal.HWZNSNative != 0 && op == hal.OpWrite {
		zoneSectors := caps.ZoneSizeBytes / uint64(caps.LogicalBlockSize)
		if zoneSectors > 0 && lba%zoneSectors == 0 {
			effectiveOp = hal.OpZoneAppend
			skipBounds = true
		}
	}
	if !skipBounds && deviceSectors > 0 && lba+uint64(lenSectors) > deviceSectors {
		return status.Geometry, status.New(status.Geometry)
	}

	if err := d.Handle.SyncIO(ctx, effectiveOp, lba, buf, lenSectors); err != nil {
		code := status.From(err)
		if code.Success() {
			return code, nil
		}
		markCriticalOffline(vol, idx, code)
		return code, err
	}
	return status.OK, nil
}
