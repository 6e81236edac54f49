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

func flashCaps(nSectors uint64) hal.Caps {
	return hal.Caps{LogicalBlockSize: 512, TotalCapacityLo: 512 * nSectors}
}

func mirrorVolume(n int, nSectors uint64) (*volume.Volume, []*memhal.Device) {
	devs := make([]*memhal.Device, n)
	entries := make([]*volume.DeviceEntry, n)
	for i := range devs {
		devs[i] = memhal.New(512, nSectors, flashCaps(nSectors))
		entries[i] = volume.NewDeviceEntry(devs[i])
	}
	v := &volume.Volume{Mode: volume.ModeMirror, Devices: entries}
	v.Info.SectorSize = 512
	return v, devs
}

// Mirror read with one dead mirror.
func TestMirrorReadWithOneDead(t *testing.T) {
	ctx := context.Background()
	v, devs := mirrorVolume(3, 32)

	want := []byte("healthy-sector--")
	buf := make([]byte, 512)
	copy(buf, want)
	if err := devs[0].SyncIO(ctx, hal.OpWrite, 0, buf, 1); err != nil {
		t.Fatalf("seed write: %v", err)
	}
	if err := devs[2].SyncIO(ctx, hal.OpWrite, 0, buf, 1); err != nil {
		t.Fatalf("seed write: %v", err)
	}
	v.MarkOffline(1)

	r := New(memhal.Sleeper{})
	out := make([]byte, 512)
	code, err := r.Route(ctx, v, hal.OpRead, 0, out, 1, addr.U128{})
	if err != nil || code != status.OK {
		t.Fatalf("mirror read failed: code=%s err=%v", code, err)
	}
	if string(out[:len(want)]) != string(want) {
		t.Fatalf("read %q, want %q", out[:len(want)], want)
	}
	if v.Devices[1].Status() != volume.StatusOffline {
		t.Fatal("already-offline mirror 1 should remain offline")
	}
	if v.Devices[0].Status() != volume.StatusOnline || v.Devices[2].Status() != volume.StatusOnline {
		t.Fatal("healthy mirrors should remain online")
	}
}

// Mirror write partial failure.
func TestMirrorWritePartialFailure(t *testing.T) {
	ctx := context.Background()
	v, devs := mirrorVolume(2, 32)
	devs[1].FailAlways(hal.OpWrite, true)

	r := New(memhal.Sleeper{})
	buf := make([]byte, 512)
	code, err := r.Route(ctx, v, hal.OpWrite, 0, buf, 1, addr.U128{})
	if code != status.HWIO || err == nil {
		t.Fatalf("expected HW_IO, got code=%s err=%v", code, err)
	}
	if v.Devices[1].Status() != volume.StatusOffline {
		t.Fatal("failing mirror should transition OFFLINE")
	}
	if v.Devices[0].Status() != volume.StatusOnline {
		t.Fatal("successful mirror A should not be rolled back or marked offline")
	}
	if !v.Info.HasState(volume.StateDegraded | volume.StateDirty) {
		t.Fatal("volume should carry DEGRADED|DIRTY after partial mirror failure")
	}
}

func TestRouteSingleDeviceForwardsDirectly(t *testing.T) {
	ctx := context.Background()
	dev := memhal.New(512, 8, flashCaps(8))
	v := &volume.Volume{Mode: volume.ModeSingle, Devices: []*volume.DeviceEntry{volume.NewDeviceEntry(dev)}}
	v.Info.SectorSize = 512

	r := New(memhal.Sleeper{})
	buf := make([]byte, 512)
	copy(buf, "single-device-path")
	if _, err := r.Route(ctx, v, hal.OpWrite, 0, buf, 1, addr.U128{}); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := make([]byte, 512)
	if _, err := r.Route(ctx, v, hal.OpRead, 0, out, 1, addr.U128{}); err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(out[:18]) != "single-device-path" {
		t.Fatalf("got %q", out[:18])
	}
}

func TestRouteSingleDeviceOfflineFails(t *testing.T) {
	ctx := context.Background()
	dev := memhal.New(512, 8, flashCaps(8))
	v := &volume.Volume{Mode: volume.ModeSingle, Devices: []*volume.DeviceEntry{volume.NewDeviceEntry(dev)}}
	v.MarkOffline(0)

	r := New(memhal.Sleeper{})
	buf := make([]byte, 512)
	code, err := r.Route(ctx, v, hal.OpRead, 0, buf, 1, addr.U128{})
	if code != status.HWIO || err == nil {
		t.Fatalf("expected HW_IO against an offline sole device, got %s/%v", code, err)
	}
}
