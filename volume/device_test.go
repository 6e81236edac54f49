package volume

import (
	"testing"

	"github.com/hn4dev/hn4core/hal"
	"github.com/hn4dev/hn4core/hal/memhal"
)

func testCaps() hal.Caps {
	return hal.Caps{LogicalBlockSize: 512, TotalCapacityLo: 512 * 16}
}

func TestDeviceEntryMarkOfflineIsMonotonic(t *testing.T) {
	d := NewDeviceEntry(memhal.New(512, 16, testCaps()))
	if d.Status() != StatusOnline {
		t.Fatal("new device entry is not ONLINE")
	}
	if !d.MarkOffline() {
		t.Fatal("first MarkOffline should report a transition")
	}
	if d.Status() != StatusOffline {
		t.Fatal("device did not transition OFFLINE")
	}
	if d.MarkOffline() {
		t.Fatal("second MarkOffline should be a no-op, not a transition")
	}
}

func TestVolumeSnapshotIsolated(t *testing.T) {
	dev := memhal.New(512, 16, testCaps())
	v := &Volume{Devices: []*DeviceEntry{NewDeviceEntry(dev)}}
	snap := v.Snapshot()
	if len(snap) != 1 || snap[0].Status != StatusOnline {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	v.MarkOffline(0)
	if snap[0].Status != StatusOnline {
		t.Fatal("stack-local snapshot observed a later mutation")
	}
	if v.Devices[0].Status() != StatusOffline {
		t.Fatal("live device entry did not transition")
	}
}
