package router

import (
	"context"
	"testing"

	"github.com/hn4dev/hn4core/addr"
	"github.com/hn4dev/hn4core/hal"
	"github.com/hn4dev/hn4core/hal/memhal"
	"github.com/hn4dev/hn4core/status"
	"github.com/hn4dev/hn4core/volume"
)

func parityVolume(n int, nSectors uint64) (*volume.Volume, []*memhal.Device) {
	devs := make([]*memhal.Device, n)
	entries := make([]*volume.DeviceEntry, n)
	for i := range devs {
		devs[i] = memhal.New(512, nSectors, flashCaps(nSectors))
		entries[i] = volume.NewDeviceEntry(devs[i])
	}
	v := &volume.Volume{Mode: volume.ModeParity, Devices: entries}
	v.Info.SectorSize = 512
	return v, devs
}

// Parity writes are rejected outright: RAID-5 write-hole management is
// out of scope.
func TestParityWriteRejected(t *testing.T) {
	ctx := context.Background()
	v, _ := parityVolume(3, 512)

	r := New(memhal.Sleeper{})
	buf := make([]byte, 512)
	code, err := r.Route(ctx, v, hal.OpWrite, 0, buf, 1, addr.U128{})
	if code != status.AccessDenied || err == nil {
		t.Fatalf("expected ACCESS_DENIED for a parity write, got %s/%v", code, err)
	}
}

// A parity read double fault (the failing data column plus one
// of its reconstruction peers both unavailable) surfaces PARITY_BROKEN.
func TestParityReadDoubleFault(t *testing.T) {
	ctx := context.Background()
	v, devs := parityVolume(3, 512)

	devs[0].FailAlways(hal.OpRead, true)
	v.MarkOffline(1)

	r := New(memhal.Sleeper{})
	buf := make([]byte, 512)
	code, err := r.Route(ctx, v, hal.OpRead, 0, buf, 1, addr.U128{})
	if code != status.ParityBroken || err == nil {
		t.Fatalf("expected PARITY_BROKEN on a double fault, got %s/%v", code, err)
	}
}

// A single-fault parity read should reconstruct transparently via XOR.
func TestParityReadSingleFaultReconstructs(t *testing.T) {
	ctx := context.Background()
	v, devs := parityVolume(3, 512)

	data0 := make([]byte, 512)
	data1 := make([]byte, 512)
	copy(data0, "column-zero-data")
	copy(data1, "column-one--data")
	parity := make([]byte, 512)
	for i := range parity {
		parity[i] = data0[i] ^ data1[i]
	}
	if err := devs[0].SyncIO(ctx, hal.OpWrite, 0, data0, 1); err != nil {
		t.Fatalf("seed col0: %v", err)
	}
	if err := devs[1].SyncIO(ctx, hal.OpWrite, 0, data1, 1); err != nil {
		t.Fatalf("seed col1: %v", err)
	}
	if err := devs[2].SyncIO(ctx, hal.OpWrite, 0, parity, 1); err != nil {
		t.Fatalf("seed parity: %v", err)
	}
	devs[0].FailAlways(hal.OpRead, true)

	r := New(memhal.Sleeper{})
	out := make([]byte, 512)
	code, err := r.Route(ctx, v, hal.OpRead, 0, out, 1, addr.U128{})
	if err != nil || code != status.OK {
		t.Fatalf("expected transparent reconstruction, got %s/%v", code, err)
	}
	if string(out[:16]) != "column-zero-data" {
		t.Fatalf("reconstructed %q, want %q", out[:16], "column-zero-data")
	}
}
