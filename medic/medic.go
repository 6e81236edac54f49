// Package medic implements the Auto-Medic reactive repair path: a
// single-block rewrite, read-back verification, and a CAS-bounded
// monotonic Q-Mask downgrade.
package medic

import (
	"bytes"
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/hn4dev/hn4core/addr"
	"github.com/hn4dev/hn4core/hal"
	"github.com/hn4dev/hn4core/router"
	"github.com/hn4dev/hn4core/status"
	"github.com/hn4dev/hn4core/volume"
)

// CASRetryCap bounds the Q-Mask CAS retry loop.
const CASRetryCap = 64

// Medic performs the single-block repair operation.
type Medic struct {
	Router *router.Router
}

func New(r *router.Router) *Medic {
	return &Medic{Router: r}
}

// RepairBlock is the Auto-Medic contract: validate, update the
// Q-Mask under bounded CAS, write via the router, read back and memcmp,
// and on success bump health.heal_count.
func (m *Medic) RepairBlock(ctx context.Context, vol *volume.Volume, lba uint64, newPayload []byte, lenBytes int) (status.Code, error) {
	if vol == nil || newPayload == nil {
		return status.InvalidArgument, status.New(status.InvalidArgument)
	}
	if vol.Info.ReadOnly {
		return status.AccessDenied, status.New(status.AccessDenied)
	}
	if lenBytes == 0 {
		return status.OK, nil
	}

	sectorSize := uint64(vol.Info.SectorSize)
	if sectorSize == 0 || uint64(lenBytes)%sectorSize != 0 {
		return status.AlignmentFail, status.New(status.AlignmentFail)
	}
	nSectors := uint32(uint64(lenBytes) / sectorSize)

	if len(vol.Devices) == 0 {
		return status.Geometry, status.New(status.Geometry)
	}
	if code, err := m.checkBounds(vol, lba, nSectors); err != nil {
		return code, err
	}

	toxic := false
	if vol.QMask != nil {
		t, code, err := m.updateQMaskRange(vol, lba, nSectors)
		if err != nil {
			return code, err
		}
		toxic = t
	}

	fileID := addr.U128{}
	_, werr := m.Router.Route(ctx, vol, hal.OpWrite, lba, newPayload, nSectors, fileID)

	if toxic {
		// TOXIC is sticky: the write above was best-effort; the caller
		// gets MEDIA_TOXIC regardless of how it went.
		return status.MediaToxic, status.New(status.MediaToxic)
	}
	if werr != nil {
		return status.HWIO, werr
	}

	scratch := make([]byte, lenBytes)
	if _, err := m.Router.Route(ctx, vol, hal.OpRead, lba, scratch, nSectors, fileID); err != nil {
		return status.HWIO, err
	}
	if !bytes.Equal(scratch, newPayload) {
		return status.DataRot, status.New(status.DataRot)
	}

	vol.Health.IncHeal()
	return status.OK, nil
}

func (m *Medic) checkBounds(vol *volume.Volume, lba uint64, nSectors uint32) (status.Code, error) {
	caps := vol.Devices[0].Handle.Caps()
	if caps.LogicalBlockSize == 0 {
		return status.OK, nil
	}
	deviceSectors := caps.TotalCapacityLo / uint64(caps.LogicalBlockSize)
	if deviceSectors > 0 && lba+uint64(nSectors) > deviceSectors {
		return status.Geometry, status.New(status.Geometry)
	}
	return status.OK, nil
}

// updateQMaskRange applies the monotonic repair-downgrade policy to every
// FS-block touched by [lba, lba+nSectors), returning toxic=true if any of
// them is sticky TOXIC.
func (m *Medic) updateQMaskRange(vol *volume.Volume, lba uint64, nSectors uint32) (toxic bool, code status.Code, err error) {
	blockSectors := blockSectorsOf(vol)
	if blockSectors == 0 {
		blockSectors = 1
	}
	firstBlock := lba / uint64(blockSectors)
	lastBlock := (lba + uint64(nSectors) - 1) / uint64(blockSectors)

	for b := firstBlock; b <= lastBlock; b++ {
		t, c, e := m.updateQMaskBlock(vol, b)
		if e != nil {
			return false, c, e
		}
		if t {
			toxic = true
		}
	}
	return toxic, status.OK, nil
}

func (m *Medic) updateQMaskBlock(vol *volume.Volume, block uint64) (toxic bool, code status.Code, err error) {
	if block >= vol.QMask.NBlocks() {
		return false, status.Geometry, status.New(status.Geometry)
	}
	for attempt := 0; attempt < CASRetryCap; attempt++ {
		old := vol.QMask.Get(block)
		if old == volume.QToxic {
			return true, status.OK, nil
		}
		next := volume.NextState(old)
		if next == old {
			return false, status.OK, nil // BRONZE stays BRONZE, no CAS needed
		}
		if vol.QMask.CAS(block, old, next) {
			return false, status.OK, nil
		}
		// another repair raced the same word; retry within the cap.
	}
	log.WithFields(log.Fields{
		"component": "medic",
		"block":     block,
	}).Warn("medic: Q-Mask CAS starved past the retry cap")
	vol.Info.SetState(volume.StateDegraded)
	return false, status.AtomicsTimeout, status.New(status.AtomicsTimeout)
}

func blockSectorsOf(vol *volume.Volume) uint32 {
	if vol.Info.SectorSize == 0 {
		return 0
	}
	return vol.Info.BlockSize / vol.Info.SectorSize
}
