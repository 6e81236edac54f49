package volume

import (
	"testing"

	deep "github.com/go-test/deep"
	uuid "github.com/satori/go.uuid"
)

func sampleSuperblock() *SuperblockInfo {
	return &SuperblockInfo{
		UUID:            uuid.NewV4(),
		BlockSize:       4096,
		CapacityBytesLo: 1 << 40,
		EpochStart:      1,
		CortexStart:     1024,
		BitmapStart:     2048,
		QMaskStart:      3072,
		FluxStart:       4096,
		HorizonStart:    5120,
		EpochID:         7,
		StateFlags:      StateClean,
		DeviceType:      1,
		HWCaps:          HWCapNVM,
		FormatProfile:   ProfileHyperCloud,
		SectorSize:      512,
	}
}

func TestSuperblockEncodeDecodeRoundTrip(t *testing.T) {
	sb := sampleSuperblock()
	buf := sb.Encode()
	if len(buf) != SuperblockSize {
		t.Fatalf("Encode produced %d bytes, want %d", len(buf), SuperblockSize)
	}
	got, err := DecodeSuperblock(buf)
	if err != nil {
		t.Fatalf("DecodeSuperblock: %v", err)
	}
	if diff := deep.Equal(got, sb); diff != nil {
		t.Fatalf("round-trip mismatch: %v", diff)
	}
}

func TestSuperblockReadOnlyFlag(t *testing.T) {
	sb := sampleSuperblock()
	sb.ReadOnly = true
	buf := sb.Encode()
	got, err := DecodeSuperblock(buf)
	if err != nil {
		t.Fatalf("DecodeSuperblock: %v", err)
	}
	if !got.ReadOnly {
		t.Fatal("ReadOnly flag lost across round-trip")
	}
}

func TestSuperblockBadMagic(t *testing.T) {
	sb := sampleSuperblock()
	buf := sb.Encode()
	buf[0] ^= 0xFF
	if _, err := DecodeSuperblock(buf); err == nil {
		t.Fatal("DecodeSuperblock accepted a corrupted magic")
	}
}

func TestSuperblockChecksumMismatch(t *testing.T) {
	sb := sampleSuperblock()
	buf := sb.Encode()
	buf[sbOffCortexStart] ^= 0xFF
	if _, err := DecodeSuperblock(buf); err == nil {
		t.Fatal("DecodeSuperblock accepted a checksum mismatch")
	}
}

func TestHasStateAndSetState(t *testing.T) {
	sb := sampleSuperblock()
	if sb.HasState(StateDegraded) {
		t.Fatal("fresh superblock reports DEGRADED")
	}
	sb.SetState(StateDegraded | StateDirty)
	if !sb.HasState(StateDegraded | StateDirty) {
		t.Fatal("SetState did not OR in the requested bits")
	}
}
