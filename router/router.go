// Package router implements the Spatial Router: the
// multi-device dispatch engine that turns a logical Volume LBA+op into
// physical device I/O across MIRROR, SHARD, and PARITY arrays, including
// mirror read/write consensus, shard placement, RAID-5 read
// reconstruction, and reactive device-offline transitions.
package router

import (
	"context"
	"time"

	"github.com/bits-and-blooms/bitset"
	log "github.com/sirupsen/logrus"

	"github.com/hn4dev/hn4core/addr"
	"github.com/hn4dev/hn4core/hal"
	"github.com/hn4dev/hn4core/status"
	"github.com/hn4dev/hn4core/volume"
)

const (
	mirrorPasses           = 3 // one attempt + 2 retries
	mirrorPauseMS          = 1
	usbRetryPauses         = 5 // ms
	paritySplitUnitSectors = 128
	parityDataRetries      = 3 // one attempt + 2 retries
)

// FileID is the 128-bit object identifier used for SHARD placement and
// bound to an Anchor's seed_id.
type FileID = addr.U128

// Sleeper abstracts the HAL's micro_sleep so retries can be tested without
// real delay.
type Sleeper interface {
	MicroSleep(microseconds uint64)
}

// Router dispatches logical I/O across a Volume's array.
type Router struct {
	Sleep Sleeper
}

func New(sleep Sleeper) *Router {
	return &Router{Sleep: sleep}
}

func (r *Router) sleep(ms uint64) {
	if r.Sleep != nil {
		r.Sleep.MicroSleep(ms * 1000)
	} else {
		time.Sleep(time.Duration(ms) * time.Millisecond)
	}
}

// Route is the Spatial Router's single entry point.
// For non-array volumes it forwards directly to the sole device's SyncIO.
func (r *Router) Route(ctx context.Context, vol *volume.Volume, op hal.Op, lba uint64, buf []byte, lenSectors uint32, fileID FileID) (status.Code, error) {
	if vol == nil || len(vol.Devices) == 0 {
		return status.InvalidArgument, status.New(status.InvalidArgument)
	}
	if vol.Info.ReadOnly && (op == hal.OpWrite || op == hal.OpDiscard || op == hal.OpZoneAppend) {
		return status.AccessDenied, status.New(status.AccessDenied)
	}

	snap := vol.Snapshot()
	// sequentially-consistent fence: the snapshot above already read each
	// device's status with an atomic load, so every subsequent decision in
	// this call operates purely on the stack-local copy.

	if vol.Mode == volume.ModeSingle || len(snap) == 1 {
		d := snap[0]
		if d.Status == volume.StatusOffline {
			return status.HWIO, status.New(status.HWIO)
		}
		if err := d.Handle.SyncIO(ctx, op, lba, buf, lenSectors); err != nil {
			if code := status.From(err); code.Success() {
				return code, nil
			}
			vol.MarkOffline(0)
			return status.HWIO, err
		}
		return status.OK, nil
	}

	switch vol.Mode {
	case volume.ModeMirror:
		return r.routeMirror(ctx, vol, snap, op, lba, buf, lenSectors)
	case volume.ModeShard:
		return r.routeShard(ctx, vol, snap, op, lba, buf, lenSectors, fileID)
	case volume.ModeParity:
		return r.routeParity(ctx, vol, snap, op, lba, buf, lenSectors)
	default:
		return status.InvalidArgument, status.New(status.InvalidArgument)
	}
}

// onlineBitset returns a bitset flagging which snapshot indices are
// ONLINE. The parity path uses it for its double-fault check and to skip
// OFFLINE peers during reconstruction; mirror and shard read
// Snapshot.Status directly.
func onlineBitset(snap []volume.Snapshot) *bitset.BitSet {
	bs := bitset.New(uint(len(snap)))
	for i, d := range snap {
		if d.Status == volume.StatusOnline {
			bs.Set(uint(i))
		}
	}
	return bs
}

func markCriticalOffline(vol *volume.Volume, idx int, code status.Code) {
	if code.Critical() {
		log.WithFields(log.Fields{
			"component": "router",
			"device":    idx,
			"code":      code.String(),
		}).Warn("router: device transitioned OFFLINE after critical failure")
		vol.MarkOffline(idx)
	}
}
