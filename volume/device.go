package volume

import (
	"sync/atomic"

	"github.com/hn4dev/hn4core/hal"
)

// DeviceStatus is the lifecycle state of one array member.
// Transitions are monotonic: once Offline, a DeviceEntry never returns to
// Online without external intervention (mount-time repair is out of
// scope).
type DeviceStatus uint32

const (
	StatusOnline DeviceStatus = iota
	StatusOffline
)

// DeviceEntry is one member of a Volume's array.
type DeviceEntry struct {
	Handle hal.Device
	status uint32 // atomic DeviceStatus
}

// NewDeviceEntry wraps handle as an Online array member.
func NewDeviceEntry(handle hal.Device) *DeviceEntry {
	return &DeviceEntry{Handle: handle, status: uint32(StatusOnline)}
}

// Status loads the current status with acquire semantics.
func (d *DeviceEntry) Status() DeviceStatus {
	return DeviceStatus(atomic.LoadUint32(&d.status))
}

// MarkOffline transitions the device ONLINE→OFFLINE via CAS with release
// ordering. It is idempotent: marking an already-OFFLINE device again is a
// no-op and returns false (it was not *this* call that took it offline).
func (d *DeviceEntry) MarkOffline() (transitioned bool) {
	return atomic.CompareAndSwapUint32(&d.status, uint32(StatusOnline), uint32(StatusOffline))
}

// Snapshot is an immutable, stack-local copy of one array member's status
// taken under the volume's array spinlock.
type Snapshot struct {
	Handle hal.Device
	Status DeviceStatus
}
