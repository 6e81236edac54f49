// Package hal declares the Hardware Abstraction Layer surface that HN4's
// core consumes. The concrete HAL is explicitly out of scope for
// the core; this package only fixes the interface so the core can be
// compiled and tested against the fakes/reference implementations in
// hal/memhal and hal/filehal.
package hal

import "context"

// Op identifies the kind of I/O the Spatial Router issues.
type Op int

const (
	OpRead Op = iota
	OpWrite
	OpFlush
	OpDiscard
	OpZoneAppend
)

func (o Op) String() string {
	switch o {
	case OpRead:
		return "READ"
	case OpWrite:
		return "WRITE"
	case OpFlush:
		return "FLUSH"
	case OpDiscard:
		return "DISCARD"
	case OpZoneAppend:
		return "ZONE_APPEND"
	default:
		return "UNKNOWN"
	}
}

// HWFlag are capability bits reported by Caps.HWFlags.
type HWFlag uint32

const (
	HWRotational HWFlag = 1 << iota
	HWZNSNative
	HWNVM
)

// Caps describes the capabilities of a single device handle.
type Caps struct {
	LogicalBlockSize uint32
	TotalCapacityLo  uint64
	TotalCapacityHi  uint64
	ZoneSizeBytes    uint64
	HWFlags          HWFlag
}

// Device is a single block-addressed device handle, as consumed by the
// Spatial Router. Implementations must be safe for concurrent use by
// multiple goroutines issuing independent I/O.
type Device interface {
	// SyncIO performs a single blocking I/O of n sectors at lba.
	SyncIO(ctx context.Context, op Op, lba uint64, buf []byte, nSectors uint32) error
	// Barrier forces previously completed writes to stable media.
	Barrier(ctx context.Context) error
	// Caps reports the device's fixed capabilities.
	Caps() Caps
	// Prefetch issues a non-blocking read-ahead hint; implementations may
	// no-op.
	Prefetch(ctx context.Context, lba uint64, nSectors uint32)
}

// Allocator is the external block allocator the Signet chain and
// extension-chain writers use to obtain and release Horizon blocks.
// Its mechanics are out of the core's scope; only this
// narrow contract is consumed.
type Allocator interface {
	AllocHorizon(ctx context.Context) (lba uint64, err error)
	FreeBlock(ctx context.Context, lba uint64) error
}

// Clock exposes the HAL's monotonic nanosecond clock (get_time_ns).
type Clock interface {
	NowNS() uint64
}

// MicroSleeper exposes the HAL's micro_sleep primitive, used by the
// router's bounded retry/backoff loops.
type MicroSleeper interface {
	MicroSleep(microseconds uint64)
}
