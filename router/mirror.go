package router

import (
	"context"

	"github.com/hn4dev/hn4core/hal"
	"github.com/hn4dev/hn4core/status"
	"github.com/hn4dev/hn4core/volume"
)

// mirrorStart picks the mirror to begin a cyclic read scan from. On
// rotational media it affinity-maps by LBA region to reduce head
// movement; otherwise it always starts at index 0.
func mirrorStart(snap []volume.Snapshot, lba uint64) int {
	if len(snap) == 0 {
		return 0
	}
	rotational := false
	for _, d := range snap {
		if d.Handle.Caps().HWFlags&hal.HWRotational != 0 {
			rotational = true
			break
		}
	}
	if !rotational {
		return 0
	}
	region := lba >> 21
	return int(region % uint64(len(snap)))
}

func (r *Router) routeMirror(ctx context.Context, vol *volume.Volume, snap []volume.Snapshot, op hal.Op, lba uint64, buf []byte, lenSectors uint32) (status.Code, error) {
	switch op {
	case hal.OpRead:
		return r.mirrorRead(ctx, vol, snap, lba, buf, lenSectors)
	default:
		return r.mirrorWrite(ctx, vol, snap, op, lba, buf, lenSectors)
	}
}

func (r *Router) mirrorRead(ctx context.Context, vol *volume.Volume, snap []volume.Snapshot, lba uint64, buf []byte, lenSectors uint32) (status.Code, error) {
	start := mirrorStart(snap, lba)
	n := len(snap)
	var lastErr error
	for pass := 0; pass < mirrorPasses; pass++ {
		for i := 0; i < n; i++ {
			idx := (start + i) % n
			d := snap[idx]
			if d.Status == volume.StatusOffline {
				continue
			}
			err := d.Handle.SyncIO(ctx, hal.OpRead, lba, buf, lenSectors)
			if err == nil {
				return status.OK, nil
			}
			code := status.From(err)
			if code.Success() {
				// INFO_SPARSE / INFO_HEALED are successes the caller may
				// still want to observe.
				return code, nil
			}
			if code.Critical() {
				markCriticalOffline(vol, idx, code)
			}
			lastErr = err
		}
		if pass < mirrorPasses-1 {
			r.sleep(mirrorPauseMS)
		}
	}
	if lastErr == nil {
		lastErr = status.New(status.HWIO)
	}
	return status.HWIO, status.Wrap(status.HWIO, lastErr)
}

func (r *Router) mirrorWrite(ctx context.Context, vol *volume.Volume, snap []volume.Snapshot, op hal.Op, lba uint64, buf []byte, lenSectors uint32) (status.Code, error) {
	isUSB := vol.Info.FormatProfile == volume.ProfileUSB
	succeeded := 0
	online := 0
	var firstErr error
	for idx, d := range snap {
		if d.Status == volume.StatusOffline {
			continue
		}
		online++
		err := d.Handle.SyncIO(ctx, op, lba, buf, lenSectors)
		if err != nil && isUSB && op == hal.OpWrite && status.From(err) != status.MediaToxic {
			r.sleep(usbRetryPauses)
			err = d.Handle.SyncIO(ctx, op, lba, buf, lenSectors)
		}
		if err != nil {
			code := status.From(err)
			markCriticalOffline(vol, idx, code)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		succeeded++
	}
	if succeeded == online && online > 0 {
		return status.OK, nil
	}
	// Strict consensus failed: at least one ONLINE mirror did not succeed.
	// Successful writes are NOT rolled back; reconciliation is left to the
	// epoch/generation check at next mount.
	vol.Info.SetState(volume.StateDegraded | volume.StateDirty)
	if firstErr == nil {
		firstErr = status.New(status.HWIO)
	}
	return status.HWIO, status.Wrap(status.HWIO, firstErr)
}
