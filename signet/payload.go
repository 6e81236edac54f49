// Package signet implements the Signet protocol: an
// append-only cryptographic provenance chain of extension blocks attached
// to a Cortex anchor, with topology verification via keyed SipHash
// linkage, temporal monotonicity, and the in-memory "etch" that mixes
// signature entropy into an anchor's orbit vector.
package signet

import (
	"fmt"

	"github.com/hn4dev/hn4core/addr"
	"github.com/hn4dev/hn4core/bitcodec"
	"github.com/hn4dev/hn4core/volume"
)

// Signet Payload byte offsets within the extension block's payload
// region.
const (
	payloadOffMagic        = 0x00
	payloadOffVersion      = 0x04
	payloadOffAuthorID     = 0x06
	payloadOffTimestampNS  = 0x0e
	payloadOffBoundSeedID  = 0x16 // 16 bytes
	payloadOffVolumeUUID   = 0x26 // 16 bytes
	payloadOffPrevSealHash = 0x36 // 16 bytes
	payloadOffSelfBlockIdx = 0x46
	payloadOffSignature    = 0x4e // 64 bytes
	payloadOffPubkeyFP     = 0x8e // 32 bytes
	payloadOffCRC          = 0xae
	PayloadSize            = 0xb2 // 178 bytes

	// ProtocolVersion is the current Signet wire version.
	ProtocolVersion uint16 = 1

	SignatureSize = 64
	PubkeySize    = 32
	PubkeyFPSize  = 32
)

// sentinelBlock marks "no next block" in a chain pointer, matching the
// cortex package's extension-chain sentinel convention.
const sentinelBlock = ^uint64(0)

// Payload is the decoded form of a Signet extension block's payload.
// extension_header + Payload is required to fit in <= 512 bytes,
// comfortably true at ExtHeaderSize(20) + PayloadSize(178).
type Payload struct {
	Version      uint16
	AuthorID     uint64
	TimestampNS  uint64
	BoundSeedID  addr.U128
	VolumeUUID   addr.U128
	PrevSealHash addr.U128
	SelfBlockIdx uint64
	Signature    [SignatureSize]byte
	PubkeyFP     [PubkeyFPSize]byte
	CRC          uint32
}

func (p *Payload) encodeInto(b []byte) {
	bitcodec.PutU32(b, payloadOffMagic, volume.MagicSign)
	bitcodec.PutU16(b, payloadOffVersion, p.Version)
	bitcodec.PutU64(b, payloadOffAuthorID, p.AuthorID)
	bitcodec.PutU64(b, payloadOffTimestampNS, p.TimestampNS)
	bitcodec.PutU128(b, payloadOffBoundSeedID, p.BoundSeedID.Lo, p.BoundSeedID.Hi)
	bitcodec.PutU128(b, payloadOffVolumeUUID, p.VolumeUUID.Lo, p.VolumeUUID.Hi)
	bitcodec.PutU128(b, payloadOffPrevSealHash, p.PrevSealHash.Lo, p.PrevSealHash.Hi)
	bitcodec.PutU64(b, payloadOffSelfBlockIdx, p.SelfBlockIdx)
	copy(b[payloadOffSignature:payloadOffSignature+SignatureSize], p.Signature[:])
	copy(b[payloadOffPubkeyFP:payloadOffPubkeyFP+PubkeyFPSize], p.PubkeyFP[:])
}

// encodeWithoutCRC returns a PayloadSize buffer with every field but the
// trailing CRC populated; the caller fills the CRC once it knows the full
// header+payload prefix it must cover.
func (p *Payload) encodeWithoutCRC() []byte {
	b := make([]byte, PayloadSize)
	p.encodeInto(b)
	return b
}

// DecodePayload parses a PayloadSize-byte buffer, verifying the embedded
// Signet magic.
func DecodePayload(b []byte) (*Payload, error) {
	if len(b) < PayloadSize {
		return nil, fmt.Errorf("signet: payload too small: %d bytes", len(b))
	}
	if magic := bitcodec.GetU32(b, payloadOffMagic); magic != volume.MagicSign {
		return nil, fmt.Errorf("signet: bad magic %#x", magic)
	}
	p := &Payload{
		Version:      bitcodec.GetU16(b, payloadOffVersion),
		AuthorID:     bitcodec.GetU64(b, payloadOffAuthorID),
		TimestampNS:  bitcodec.GetU64(b, payloadOffTimestampNS),
		SelfBlockIdx: bitcodec.GetU64(b, payloadOffSelfBlockIdx),
		CRC:          bitcodec.GetU32(b, payloadOffCRC),
	}
	p.BoundSeedID.Lo, p.BoundSeedID.Hi = bitcodec.GetU128(b, payloadOffBoundSeedID)
	p.VolumeUUID.Lo, p.VolumeUUID.Hi = bitcodec.GetU128(b, payloadOffVolumeUUID)
	p.PrevSealHash.Lo, p.PrevSealHash.Hi = bitcodec.GetU128(b, payloadOffPrevSealHash)
	copy(p.Signature[:], b[payloadOffSignature:payloadOffSignature+SignatureSize])
	copy(p.PubkeyFP[:], b[payloadOffPubkeyFP:payloadOffPubkeyFP+PubkeyFPSize])
	return p, nil
}

// buildBlock assembles a full extension block for payload, computing the
// CRC32C over header+payload up to (not including) the integrity_crc
// field, and stamps payload.CRC with the same value.
func buildBlock(vol *volume.Volume, header volume.ExtensionHeader, payload *Payload) ([]byte, error) {
	block, err := header.EncodeHeader(int(vol.Info.BlockSize), payload.encodeWithoutCRC())
	if err != nil {
		return nil, err
	}
	crcOff := volume.ExtHeaderSize + payloadOffCRC
	crc := bitcodec.CRCFresh(block[:crcOff])
	bitcodec.PutU32(block, crcOff, crc)
	payload.CRC = crc
	return block, nil
}

// verifyBlockCRC recomputes the header+payload CRC over the raw block
// bytes and compares it against both the on-wire field and the decoded
// payload's CRC (they must agree; DecodePayload copies the former into
// the latter).
func verifyBlockCRC(raw []byte, payload *Payload) bool {
	crcOff := volume.ExtHeaderSize + payloadOffCRC
	if len(raw) < crcOff+4 {
		return false
	}
	want := bitcodec.GetU32(raw, crcOff)
	got := bitcodec.CRCFresh(raw[:crcOff])
	return want == got && payload.CRC == want
}
