package volume

import (
	"github.com/hn4dev/hn4core/addr"
	"github.com/hn4dev/hn4core/bitcodec"
)

// DataClass bits carried in Anchor.DataClass.
type DataClass uint64

const (
	ClassValid     DataClass = 1 << 0
	ClassTombstone DataClass = 1 << 1
	ClassExtended  DataClass = 1 << 2
	ClassNano      DataClass = 1 << 3
)

func (d DataClass) Has(bit DataClass) bool { return d&bit == bit }

// AnchorSize is the fixed on-disk size of one Cortex slot: commonly 128
// bytes, one cache-line multiple.
const AnchorSize = 128

// Anchor byte offsets within its fixed-size slot.
const (
	anOffSeedID       = 0x00 // 16 bytes
	anOffDataClass    = 0x10
	anOffWriteGen     = 0x18
	anOffTagFilter    = 0x1c
	anOffCreateClock  = 0x24
	anOffModClock     = 0x28
	anOffOrbitVector  = 0x30 // 6 bytes
	anOffInlineBuffer = 0x36 // 24 bytes
	anOffChecksum     = AnchorSize - 4
)

// Anchor is one fixed-size Cortex entry.
type Anchor struct {
	SeedID       addr.U128
	DataClass    DataClass
	WriteGen     uint32
	TagFilter    uint64
	CreateClock  uint32
	ModClock     uint64
	OrbitVector  [6]byte
	InlineBuffer [24]byte
	Checksum     uint32
}

// IsWall reports whether slot is an empty, never-used probe-chain
// terminator: SeedID all-zero and DataClass==0.
func (a *Anchor) IsWall() bool {
	return a.SeedID.Lo == 0 && a.SeedID.Hi == 0 && a.DataClass == 0
}

// Encode serializes a into an AnchorSize-byte buffer with checksum
// computed over the buffer with the checksum field zeroed.
func (a *Anchor) Encode() []byte {
	b := make([]byte, AnchorSize)
	a.encodeInto(b)
	crc := bitcodec.CRCFresh(b[:anOffChecksum])
	bitcodec.PutU32(b, anOffChecksum, crc)
	return b
}

func (a *Anchor) encodeInto(b []byte) {
	bitcodec.PutU128(b, anOffSeedID, a.SeedID.Lo, a.SeedID.Hi)
	bitcodec.PutU64(b, anOffDataClass, uint64(a.DataClass))
	bitcodec.PutU32(b, anOffWriteGen, a.WriteGen)
	bitcodec.PutU64(b, anOffTagFilter, a.TagFilter)
	bitcodec.PutU32(b, anOffCreateClock, a.CreateClock)
	bitcodec.PutU64(b, anOffModClock, a.ModClock)
	copy(b[anOffOrbitVector:anOffOrbitVector+6], a.OrbitVector[:])
	copy(b[anOffInlineBuffer:anOffInlineBuffer+24], a.InlineBuffer[:])
}

// DecodeAnchor parses an AnchorSize-byte slot into an Anchor, without
// verifying its checksum (callers that need verification should compare
// against VerifyChecksum explicitly, as the Cortex probe does).
func DecodeAnchor(b []byte) *Anchor {
	lo, hi := bitcodec.GetU128(b, anOffSeedID)
	a := &Anchor{
		SeedID:      addr.U128{Lo: lo, Hi: hi},
		DataClass:   DataClass(bitcodec.GetU64(b, anOffDataClass)),
		WriteGen:    bitcodec.GetU32(b, anOffWriteGen),
		TagFilter:   bitcodec.GetU64(b, anOffTagFilter),
		CreateClock: bitcodec.GetU32(b, anOffCreateClock),
		ModClock:    bitcodec.GetU64(b, anOffModClock),
		Checksum:    bitcodec.GetU32(b, anOffChecksum),
	}
	copy(a.OrbitVector[:], b[anOffOrbitVector:anOffOrbitVector+6])
	copy(a.InlineBuffer[:], b[anOffInlineBuffer:anOffInlineBuffer+24])
	return a
}

// VerifyChecksum recomputes the CRC of a with its checksum field zeroed
// and compares it against the checksum stored at decode time.
func (a *Anchor) VerifyChecksum() bool {
	b := make([]byte, AnchorSize)
	a.encodeInto(b)
	return bitcodec.CRCFresh(b[:anOffChecksum]) == a.Checksum
}

// RecomputeChecksum fills in a.Checksum from the anchor's current fields.
func (a *Anchor) RecomputeChecksum() {
	b := make([]byte, AnchorSize)
	a.encodeInto(b)
	a.Checksum = bitcodec.CRCFresh(b[:anOffChecksum])
}

// GenAfter compares two write_gen values using signed difference
// semantics so a future 32-bit wraparound is tolerated:
// returns true if a is strictly newer than b.
func GenAfter(a, b uint32) bool {
	return int32(a-b) > 0
}

// OrbitVectorU64 loads the 6-byte orbit vector as a little-endian u64 in
// its low 48 bits.
func (a *Anchor) OrbitVectorU64() uint64 {
	var v uint64
	for i := 5; i >= 0; i-- {
		v = (v << 8) | uint64(a.OrbitVector[i])
	}
	return v
}

// SetOrbitVectorU64 stores the low 48 bits of v back as 6 little-endian
// bytes.
func (a *Anchor) SetOrbitVectorU64(v uint64) {
	for i := 0; i < 6; i++ {
		a.OrbitVector[i] = byte(v >> (8 * uint(i)))
	}
}
