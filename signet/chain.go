package signet

import (
	"context"

	"github.com/hn4dev/hn4core/addr"
	"github.com/hn4dev/hn4core/bitcodec"
	"github.com/hn4dev/hn4core/hal"
	"github.com/hn4dev/hn4core/router"
	"github.com/hn4dev/hn4core/status"
	"github.com/hn4dev/hn4core/volume"
)

// MaxChainDepth bounds Signet chain traversal. It is a separate constant
// with the same value as the cortex package's extension-chain cap.
const MaxChainDepth = 16

// Chain performs Signet chain validation and the Brand append
// operation.
type Chain struct {
	Router    *router.Router
	Allocator hal.Allocator
	Clock     hal.Clock
}

func New(r *router.Router, alloc hal.Allocator, clock hal.Clock) *Chain {
	return &Chain{Router: r, Allocator: alloc, Clock: clock}
}

func blockSectors(vol *volume.Volume) uint32 {
	if vol.Info.SectorSize == 0 {
		return 0
	}
	return vol.Info.BlockSize / vol.Info.SectorSize
}

func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

func headBlockOf(anchor *volume.Anchor) uint64 {
	if !anchor.DataClass.Has(volume.ClassExtended) {
		return sentinelBlock
	}
	return bitcodec.GetU64(anchor.InlineBuffer[:], 0)
}

// validateChainAndGetTail walks the chain rooted at headBlock newest ->
// oldest, enforcing the topology, temporal, and protocol checks, and
// returns the hash of the current head so a new block can
// link onto it as its prev_seal_hash.
func (c *Chain) validateChainAndGetTail(ctx context.Context, vol *volume.Volume, headBlock uint64, anchor *volume.Anchor, fileID addr.U128) (addr.U128, status.Code, error) {
	if headBlock == sentinelBlock {
		return addr.U128{}, status.OK, nil
	}

	volUUID := uuidToU128(vol.Info.UUID)
	sectorsPerBlock := blockSectors(vol)

	var headHash addr.U128
	var pendingClaim *addr.U128
	var prevTimestamp uint64
	haveTimestamp := false
	prevLBA := sentinelBlock

	next := headBlock
	for depth := 0; ; depth++ {
		if depth >= MaxChainDepth {
			return addr.U128{}, status.Tampered, status.New(status.Tampered)
		}
		lba := next * uint64(sectorsPerBlock)
		if next == prevLBA {
			return addr.U128{}, status.Tampered, status.New(status.Tampered)
		}
		if code, err := c.boundsCheck(vol, lba); err != nil {
			return addr.U128{}, code, err
		}

		buf := make([]byte, vol.Info.BlockSize)
		if _, err := c.Router.Route(ctx, vol, hal.OpRead, lba, buf, sectorsPerBlock, fileID); err != nil {
			return addr.U128{}, status.HWIO, err
		}
		header, payloadBytes, derr := volume.DecodeHeader(buf)
		if derr != nil {
			return addr.U128{}, status.Tampered, status.New(status.Tampered)
		}
		if header.Type != volume.ExtSignet {
			// non-Signet blocks (e.g. LONGNAME) interrupt topology
			// checking without being errors.
			break
		}

		payload, perr := DecodePayload(payloadBytes)
		if perr != nil {
			return addr.U128{}, status.Tampered, status.New(status.Tampered)
		}
		if !verifyBlockCRC(buf, payload) {
			return addr.U128{}, status.DataRot, status.New(status.DataRot)
		}
		if payload.Version > ProtocolVersion {
			return addr.U128{}, status.VersionIncompat, status.New(status.VersionIncompat)
		}
		if payload.VolumeUUID != volUUID {
			return addr.U128{}, status.IDMismatch, status.New(status.IDMismatch)
		}
		if payload.BoundSeedID != anchor.SeedID {
			return addr.U128{}, status.IDMismatch, status.New(status.IDMismatch)
		}
		if haveTimestamp && payload.TimestampNS > prevTimestamp {
			return addr.U128{}, status.TimeParadox, status.New(status.TimeParadox)
		}
		prevTimestamp, haveTimestamp = payload.TimestampNS, true

		thisHash := TopologyHash(volUUID, buf)
		if depth == 0 {
			headHash = thisHash
		}
		if pendingClaim != nil && *pendingClaim != thisHash {
			return addr.U128{}, status.Tampered, status.New(status.Tampered)
		}

		if header.NextExtLBA == sentinelBlock {
			// genesis: the tail Signet block must have prev_seal_hash==0.
			if payload.PrevSealHash != (addr.U128{}) {
				return addr.U128{}, status.Tampered, status.New(status.Tampered)
			}
			return headHash, status.OK, nil
		}

		claim := payload.PrevSealHash
		pendingClaim = &claim
		prevLBA = next
		next = header.NextExtLBA
	}

	return headHash, status.OK, nil
}

func (c *Chain) boundsCheck(vol *volume.Volume, lba uint64) (status.Code, error) {
	if len(vol.Devices) == 0 {
		return status.Geometry, status.New(status.Geometry)
	}
	caps := vol.Devices[0].Handle.Caps()
	if caps.LogicalBlockSize == 0 {
		return status.OK, nil
	}
	deviceSectors := caps.TotalCapacityLo / uint64(caps.LogicalBlockSize)
	if deviceSectors > 0 && lba >= deviceSectors {
		return status.Tampered, status.New(status.Tampered)
	}
	return status.OK, nil
}

// Brand appends a new Signet block to the chain bound to anchor, mutating
// the in-memory anchor only after the new block and a barrier have both
// completed.
func (c *Chain) Brand(ctx context.Context, vol *volume.Volume, anchor *volume.Anchor, authorID uint64, signature [SignatureSize]byte, pubkey [PubkeySize]byte) error {
	if vol.Info.ReadOnly {
		return status.New(status.AccessDenied)
	}
	fileID := anchor.SeedID

	if !anchor.DataClass.Has(volume.ClassExtended) && !allZero(anchor.InlineBuffer[:]) {
		if err := c.migrateInline(ctx, vol, anchor, fileID); err != nil {
			return err
		}
	}
	headBlock := headBlockOf(anchor)

	prevHash, code, err := c.validateChainAndGetTail(ctx, vol, headBlock, anchor, fileID)
	if err != nil {
		return status.Wrap(code, err)
	}

	newLBA, aerr := c.Allocator.AllocHorizon(ctx)
	if aerr != nil {
		return status.Wrap(status.NoMem, aerr)
	}

	volUUID := uuidToU128(vol.Info.UUID)
	sectorsPerBlock := blockSectors(vol)
	payload := &Payload{
		Version:      ProtocolVersion,
		AuthorID:     authorID,
		TimestampNS:  c.Clock.NowNS(),
		BoundSeedID:  anchor.SeedID,
		VolumeUUID:   volUUID,
		PrevSealHash: prevHash,
		SelfBlockIdx: newLBA / uint64(sectorsPerBlock),
		Signature:    signature,
		PubkeyFP:     pubkeyFingerprint(volUUID, pubkey[:]),
	}
	header := volume.ExtensionHeader{Type: volume.ExtSignet, NextExtLBA: headBlock}

	block, berr := buildBlock(vol, header, payload)
	if berr != nil {
		c.Allocator.FreeBlock(ctx, newLBA)
		return status.Wrap(status.InvalidArgument, berr)
	}

	if _, werr := c.Router.Route(ctx, vol, hal.OpWrite, newLBA, block, sectorsPerBlock, fileID); werr != nil {
		c.Allocator.FreeBlock(ctx, newLBA)
		return status.Wrap(status.HWIO, werr)
	}
	if err := vol.Devices[0].Handle.Barrier(ctx); err != nil {
		c.Allocator.FreeBlock(ctx, newLBA)
		return status.Wrap(status.HWIO, err)
	}

	// Only now mutate the in-memory anchor -- a crash before this point
	// leaves an unreferenced seal, a leak, not a corruption.
	entropy := entropyFromSignature(volUUID, signature[:])
	vector := anchor.OrbitVectorU64()
	vector ^= entropy
	vector = rotl48(vector, 19)
	vector |= 1
	anchor.SetOrbitVectorU64(vector)

	newExtIdx := newLBA / uint64(sectorsPerBlock)
	for i := range anchor.InlineBuffer {
		anchor.InlineBuffer[i] = 0
	}
	bitcodec.PutU64(anchor.InlineBuffer[:], 0, newExtIdx)
	anchor.DataClass |= volume.ClassExtended
	anchor.RecomputeChecksum()

	return nil
}

// migrateInline moves an inline short name out to a LONGNAME extension
// block so the anchor can point to a Signet chain head instead.
func (c *Chain) migrateInline(ctx context.Context, vol *volume.Volume, anchor *volume.Anchor, fileID addr.U128) error {
	lba, err := c.Allocator.AllocHorizon(ctx)
	if err != nil {
		return status.Wrap(status.NoMem, err)
	}
	sectorsPerBlock := blockSectors(vol)
	header := volume.ExtensionHeader{Type: volume.ExtLongName, NextExtLBA: sentinelBlock}
	payload := append([]byte(nil), anchor.InlineBuffer[:]...)
	block, herr := header.EncodeHeader(int(vol.Info.BlockSize), payload)
	if herr != nil {
		c.Allocator.FreeBlock(ctx, lba)
		return status.Wrap(status.InvalidArgument, herr)
	}
	if _, werr := c.Router.Route(ctx, vol, hal.OpWrite, lba, block, sectorsPerBlock, fileID); werr != nil {
		c.Allocator.FreeBlock(ctx, lba)
		return status.Wrap(status.HWIO, werr)
	}
	if err := vol.Devices[0].Handle.Barrier(ctx); err != nil {
		return status.Wrap(status.HWIO, err)
	}

	newExtIdx := lba / uint64(sectorsPerBlock)
	for i := range anchor.InlineBuffer {
		anchor.InlineBuffer[i] = 0
	}
	bitcodec.PutU64(anchor.InlineBuffer[:], 0, newExtIdx)
	anchor.DataClass |= volume.ClassExtended
	anchor.RecomputeChecksum()
	return nil
}
