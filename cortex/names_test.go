package cortex

import (
	"bytes"
	"context"
	"testing"

	"github.com/pierrec/lz4/v4"

	"github.com/hn4dev/hn4core/addr"
	"github.com/hn4dev/hn4core/hal"
	"github.com/hn4dev/hn4core/hal/memhal"
	"github.com/hn4dev/hn4core/router"
	"github.com/hn4dev/hn4core/volume"
)

func namesVolume() (*volume.Volume, *memhal.Device, *router.Router) {
	const sectorSize = 512
	const sectorsPerBlock = 2
	dev := memhal.New(sectorSize, 64, hal.Caps{LogicalBlockSize: sectorSize, TotalCapacityLo: sectorSize * 64})
	v := &volume.Volume{Mode: volume.ModeSingle, Devices: []*volume.DeviceEntry{volume.NewDeviceEntry(dev)}}
	v.Info.SectorSize = sectorSize
	v.Info.BlockSize = sectorSize * sectorsPerBlock
	v.Info.FluxStart = 0
	r := router.New(memhal.Sleeper{})
	return v, dev, r
}

func writeLongNameBlock(t *testing.T, v *volume.Volume, dev *memhal.Device, blockIdx uint64, next uint64, payload []byte, compressed bool) {
	t.Helper()
	h := volume.ExtensionHeader{Type: volume.ExtLongName, NextExtLBA: next}
	if compressed {
		h.Flags = volume.ExtFlagCompressed
	}
	block, err := h.EncodeHeader(int(v.Info.BlockSize), payload)
	if err != nil {
		t.Fatalf("EncodeHeader: %v", err)
	}
	sectorsPerBlock := v.Info.BlockSize / v.Info.SectorSize
	lba := blockIdx * uint64(sectorsPerBlock)
	if err := dev.SyncIO(context.Background(), hal.OpWrite, lba, block, sectorsPerBlock); err != nil {
		t.Fatalf("seed block %d: %v", blockIdx, err)
	}
}

func TestResolveNameInlineShortName(t *testing.T) {
	a := &volume.Anchor{}
	copy(a.InlineBuffer[:], "small.txt")
	name, err := ResolveName(context.Background(), nil, nil, a)
	if err != nil {
		t.Fatalf("ResolveName: %v", err)
	}
	if name != "small.txt" {
		t.Fatalf("got %q, want small.txt", name)
	}
}

func TestResolveNameWalksExtensionChain(t *testing.T) {
	v, dev, rt := namesVolume()
	fileID := addr.U128{Lo: 1}

	writeLongNameBlock(t, v, dev, 1, ^uint64(0), []byte("-archive.tar.gz\x00"), false)
	writeLongNameBlock(t, v, dev, 0, 1, []byte("-2024"), false)

	a := &volume.Anchor{SeedID: fileID, DataClass: volume.ClassExtended}
	putU64InlineHead(a, 0)
	copy(a.InlineBuffer[8:24], "backup")

	name, err := ResolveName(context.Background(), rt, v, a)
	if err != nil {
		t.Fatalf("ResolveName: %v", err)
	}
	if name != "backup-2024-archive.tar.gz" {
		t.Fatalf("got %q", name)
	}
}

func TestResolveNameDecompressesLZ4Payload(t *testing.T) {
	v, dev, rt := namesVolume()
	fileID := addr.U128{Lo: 2}

	raw := []byte("decompressed-tail.bin\x00")
	var compressed bytes.Buffer
	w := lz4.NewWriter(&compressed)
	if _, err := w.Write(raw); err != nil {
		t.Fatalf("lz4 write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("lz4 close: %v", err)
	}
	writeLongNameBlock(t, v, dev, 0, ^uint64(0), compressed.Bytes(), true)

	a := &volume.Anchor{SeedID: fileID, DataClass: volume.ClassExtended}
	putU64InlineHead(a, 0)

	name, err := ResolveName(context.Background(), rt, v, a)
	if err != nil {
		t.Fatalf("ResolveName: %v", err)
	}
	if name != "decompressed-tail.bin" {
		t.Fatalf("got %q", name)
	}
}

func TestResolveNameSelfLoopStopsWithoutHang(t *testing.T) {
	v, dev, rt := namesVolume()
	fileID := addr.U128{Lo: 3}

	// Block 0 points to itself: must be caught instead of looping forever.
	writeLongNameBlock(t, v, dev, 0, 0, []byte("partial"), false)

	a := &volume.Anchor{SeedID: fileID, DataClass: volume.ClassExtended}
	putU64InlineHead(a, 0)

	name, err := ResolveName(context.Background(), rt, v, a)
	if err != nil {
		t.Fatalf("ResolveName should not error on a self-loop, got %v", err)
	}
	if name != "partial" {
		t.Fatalf("got %q, want the first block's payload then stop", name)
	}
}

func TestResolveNameDepthCapStopsTraversal(t *testing.T) {
	v, dev, rt := namesVolume()
	fileID := addr.U128{Lo: 4}

	for i := uint64(0); i < uint64(MaxChainDepth)+4; i++ {
		next := i + 1
		writeLongNameBlock(t, v, dev, i, next, []byte("x"), false)
	}

	a := &volume.Anchor{SeedID: fileID, DataClass: volume.ClassExtended}
	putU64InlineHead(a, 0)

	name, err := ResolveName(context.Background(), rt, v, a)
	if err != nil {
		t.Fatalf("ResolveName: %v", err)
	}
	if len(name) > MaxChainDepth {
		t.Fatalf("traversal exceeded the depth cap: %d bytes", len(name))
	}
}

// putU64InlineHead writes head (a block index) into the first 8 bytes of
// the anchor's inline buffer, matching the extension-chain head encoding.
func putU64InlineHead(a *volume.Anchor, head uint64) {
	for i := 0; i < 8; i++ {
		a.InlineBuffer[i] = byte(head >> (8 * uint(i)))
	}
}
