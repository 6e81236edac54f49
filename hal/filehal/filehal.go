// Package filehal is the reference HAL implementation backing a single
// host file or block device, built directly on golang.org/x/sys/unix
// for positioned I/O and explicit durability barriers. It exists because the core needs something real
// to run against outside of hal/memhal; the HAL itself remains out of the
// core's scope.
package filehal

import (
	"context"
	"os"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/hn4dev/hn4core/hal"
	"github.com/hn4dev/hn4core/status"
)

// Device is a HAL device backed by a single open *os.File, using pread(2)/
// pwrite(2) for sync_io, fdatasync(2) for barrier, and flock(2) to enforce
// the single-mounter discipline the volume layer assumes.
type Device struct {
	f          *os.File
	sectorSize uint32
	caps       hal.Caps
}

// Open opens path for read/write, takes an exclusive flock, and wraps it
// as a hal.Device. sectorSize is the logical block size to report via
// Caps(). Page-cache bypass is left to the caller's mount policy; HN4
// does not require O_DIRECT to function.
func Open(path string, sectorSize uint32, caps hal.Caps) (*Device, error) {
	flags := os.O_RDWR | os.O_CREATE
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, status.Wrap(status.HWIO, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, status.Wrap(status.AccessDenied, err)
	}
	return &Device{f: f, sectorSize: sectorSize, caps: caps}, nil
}

func (d *Device) Close() error {
	unix.Flock(int(d.f.Fd()), unix.LOCK_UN)
	return d.f.Close()
}

func (d *Device) SyncIO(ctx context.Context, op hal.Op, lba uint64, buf []byte, nSectors uint32) error {
	offset := int64(lba) * int64(d.sectorSize)
	n := int(nSectors) * int(d.sectorSize)
	switch op {
	case hal.OpRead:
		if _, err := unix.Pread(int(d.f.Fd()), buf[:n], offset); err != nil {
			return status.Wrap(status.HWIO, err)
		}
	case hal.OpWrite, hal.OpZoneAppend:
		if _, err := unix.Pwrite(int(d.f.Fd()), buf[:n], offset); err != nil {
			return status.Wrap(status.HWIO, err)
		}
	case hal.OpDiscard:
		// best-effort; not all backing filesystems support punch-hole.
		_ = unix.Fallocate(int(d.f.Fd()), unix.FALLOC_FL_PUNCH_HOLE|unix.FALLOC_FL_KEEP_SIZE, offset, int64(n))
	case hal.OpFlush:
		return d.Barrier(ctx)
	}
	return nil
}

func (d *Device) Barrier(ctx context.Context) error {
	if err := unix.Fdatasync(int(d.f.Fd())); err != nil {
		log.WithError(err).Error("filehal: fdatasync failed")
		return status.Wrap(status.HWIO, err)
	}
	return nil
}

func (d *Device) Caps() hal.Caps { return d.caps }

func (d *Device) Prefetch(ctx context.Context, lba uint64, nSectors uint32) {
	offset := int64(lba) * int64(d.sectorSize)
	length := int64(nSectors) * int64(d.sectorSize)
	_ = unix.Fadvise(int(d.f.Fd()), offset, length, unix.FADV_WILLNEED)
}
