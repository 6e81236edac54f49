package main

import (
	"os"

	"github.com/pkg/xattr"

	"github.com/hn4dev/hn4core/hal"
	"github.com/hn4dev/hn4core/volume"
)

// readSuperblock decodes the primary superblock mirror at sector 0.
func readSuperblock(path string) (*volume.SuperblockInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, volume.SuperblockSize)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return nil, err
	}
	return volume.DecodeSuperblock(buf)
}

func deviceCaps(sb *volume.SuperblockInfo) hal.Caps {
	var flags hal.HWFlag
	if sb.HWCaps&volume.HWCapRotational != 0 {
		flags |= hal.HWRotational
	}
	if sb.HWCaps&volume.HWCapZNSNative != 0 {
		flags |= hal.HWZNSNative
	}
	if sb.HWCaps&volume.HWCapNVM != 0 {
		flags |= hal.HWNVM
	}
	return hal.Caps{
		LogicalBlockSize: sb.SectorSize,
		TotalCapacityLo:  sb.CapacityBytesLo,
		TotalCapacityHi:  sb.CapacityBytesHi,
		HWFlags:          flags,
	}
}

// setXattr tags destPath with a single extended attribute, best-effort:
// not every host filesystem supports xattrs.
func setXattr(destPath, name string, value []byte) error {
	return xattr.Set(destPath, name, value)
}
