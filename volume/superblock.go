package volume

import (
	"fmt"
	"sync/atomic"

	uuid "github.com/satori/go.uuid"

	"github.com/hn4dev/hn4core/bitcodec"
)

// StateFlag are superblock-level state bits.
type StateFlag uint32

const (
	StateClean    StateFlag = 1 << 0
	StateDirty    StateFlag = 1 << 1
	StateDegraded StateFlag = 1 << 2
	StatePanic    StateFlag = 1 << 3
)

// FormatProfile is the device-profile tag that changes router/medic policy
// (e.g. USB write-retry, tape/ZNS access restrictions).
type FormatProfile uint16

const (
	ProfileGeneric FormatProfile = iota
	ProfileHyperCloud
	ProfileArchive
	ProfileUSB
)

// HWCap mirrors hal.HWFlag at the volume-geometry level so SuperblockInfo
// can be decoded without importing hal.
type HWCap uint32

const (
	HWCapRotational HWCap = 1 << iota
	HWCapZNSNative
	HWCapNVM
)

// Superblock on-disk byte offsets, named constants rather than struct
// layout.
const (
	sbOffMagic         = 0x00
	sbOffUUID          = 0x04 // 16 bytes
	sbOffBlockSize     = 0x14
	sbOffCapacityLo    = 0x18
	sbOffCapacityHi    = 0x20
	sbOffEpochStart    = 0x28
	sbOffCortexStart   = 0x30
	sbOffBitmapStart   = 0x38
	sbOffQMaskStart    = 0x40
	sbOffFluxStart     = 0x48
	sbOffHorizonStart  = 0x50
	sbOffEpochID       = 0x58
	sbOffStateFlags    = 0x60
	sbOffDeviceType    = 0x64
	sbOffHWCaps        = 0x68
	sbOffFormatProfile = 0x6c
	sbOffReadOnly      = 0x6e
	sbOffSectorSize    = 0x70
	sbOffChecksum      = 0x78
	SuperblockSize     = 0x80

	MagicSB   uint32 = 0x484e345f // "HN4_"
	MagicTail uint32 = 0x5f344e48 // "_4NH" (tail mirror variant)
)

// SuperblockInfo is the decoded form of a superblock mirror: UUID, block
// size/capacity, region start LBAs, epoch id, state flags, device type,
// capability bits, format profile, and read-only flag.
type SuperblockInfo struct {
	UUID            uuid.UUID
	BlockSize       uint32
	CapacityBytesLo uint64
	CapacityBytesHi uint64
	EpochStart      uint64
	CortexStart     uint64
	BitmapStart     uint64
	QMaskStart      uint64
	FluxStart       uint64
	HorizonStart    uint64
	EpochID         uint64
	StateFlags      StateFlag
	DeviceType      uint32
	HWCaps          HWCap
	FormatProfile   FormatProfile
	ReadOnly        bool
	SectorSize      uint32
}

// HasState reports whether all bits of want are set in sb.StateFlags.
func (sb *SuperblockInfo) HasState(want StateFlag) bool {
	return sb.StateFlags&want == want
}

// SetState ORs bits into sb.StateFlags with an atomic CAS loop, so
// concurrent callers never lose each other's bits.
func (sb *SuperblockInfo) SetState(bits StateFlag) {
	p := (*uint32)(&sb.StateFlags)
	for {
		old := atomic.LoadUint32(p)
		if atomic.CompareAndSwapUint32(p, old, old|uint32(bits)) {
			return
		}
	}
}

// Encode serializes sb into a SuperblockSize-byte little-endian buffer with
// a trailing CRC32C over [0, sbOffChecksum).
func (sb *SuperblockInfo) Encode() []byte {
	b := make([]byte, SuperblockSize)
	bitcodec.PutU32(b, sbOffMagic, MagicSB)
	copy(b[sbOffUUID:sbOffUUID+16], sb.UUID.Bytes())
	bitcodec.PutU32(b, sbOffBlockSize, sb.BlockSize)
	bitcodec.PutU64(b, sbOffCapacityLo, sb.CapacityBytesLo)
	bitcodec.PutU64(b, sbOffCapacityHi, sb.CapacityBytesHi)
	bitcodec.PutU64(b, sbOffEpochStart, sb.EpochStart)
	bitcodec.PutU64(b, sbOffCortexStart, sb.CortexStart)
	bitcodec.PutU64(b, sbOffBitmapStart, sb.BitmapStart)
	bitcodec.PutU64(b, sbOffQMaskStart, sb.QMaskStart)
	bitcodec.PutU64(b, sbOffFluxStart, sb.FluxStart)
	bitcodec.PutU64(b, sbOffHorizonStart, sb.HorizonStart)
	bitcodec.PutU64(b, sbOffEpochID, sb.EpochID)
	bitcodec.PutU32(b, sbOffStateFlags, uint32(sb.StateFlags))
	bitcodec.PutU32(b, sbOffDeviceType, sb.DeviceType)
	bitcodec.PutU32(b, sbOffHWCaps, uint32(sb.HWCaps))
	bitcodec.PutU16(b, sbOffFormatProfile, uint16(sb.FormatProfile))
	if sb.ReadOnly {
		b[sbOffReadOnly] = 1
	}
	bitcodec.PutU32(b, sbOffSectorSize, sb.SectorSize)
	crc := bitcodec.CRCFresh(b[:sbOffChecksum])
	bitcodec.PutU32(b, sbOffChecksum, crc)
	return b
}

// DecodeSuperblock parses a SuperblockSize-byte buffer back into a
// SuperblockInfo, verifying magic and checksum.
func DecodeSuperblock(b []byte) (*SuperblockInfo, error) {
	if len(b) != SuperblockSize {
		return nil, fmt.Errorf("superblock: expected %d bytes, got %d", SuperblockSize, len(b))
	}
	magic := bitcodec.GetU32(b, sbOffMagic)
	if magic != MagicSB {
		return nil, fmt.Errorf("superblock: bad magic %#x", magic)
	}
	wantCRC := bitcodec.GetU32(b, sbOffChecksum)
	gotCRC := bitcodec.CRCFresh(b[:sbOffChecksum])
	if wantCRC != gotCRC {
		return nil, fmt.Errorf("superblock: checksum mismatch")
	}
	id, err := uuid.FromBytes(b[sbOffUUID : sbOffUUID+16])
	if err != nil {
		return nil, fmt.Errorf("superblock: bad uuid: %w", err)
	}
	sb := &SuperblockInfo{
		UUID:            id,
		BlockSize:       bitcodec.GetU32(b, sbOffBlockSize),
		CapacityBytesLo: bitcodec.GetU64(b, sbOffCapacityLo),
		CapacityBytesHi: bitcodec.GetU64(b, sbOffCapacityHi),
		EpochStart:      bitcodec.GetU64(b, sbOffEpochStart),
		CortexStart:     bitcodec.GetU64(b, sbOffCortexStart),
		BitmapStart:     bitcodec.GetU64(b, sbOffBitmapStart),
		QMaskStart:      bitcodec.GetU64(b, sbOffQMaskStart),
		FluxStart:       bitcodec.GetU64(b, sbOffFluxStart),
		HorizonStart:    bitcodec.GetU64(b, sbOffHorizonStart),
		EpochID:         bitcodec.GetU64(b, sbOffEpochID),
		StateFlags:      StateFlag(bitcodec.GetU32(b, sbOffStateFlags)),
		DeviceType:      bitcodec.GetU32(b, sbOffDeviceType),
		HWCaps:          HWCap(bitcodec.GetU32(b, sbOffHWCaps)),
		FormatProfile:   FormatProfile(bitcodec.GetU16(b, sbOffFormatProfile)),
		ReadOnly:        b[sbOffReadOnly] != 0,
		SectorSize:      bitcodec.GetU32(b, sbOffSectorSize),
	}
	return sb, nil
}
