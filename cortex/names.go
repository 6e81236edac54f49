package cortex

import (
	"bytes"
	"context"

	"github.com/hn4dev/hn4core/addr"
	"github.com/hn4dev/hn4core/bitcodec"
	"github.com/hn4dev/hn4core/hal"
	"github.com/hn4dev/hn4core/router"
	"github.com/hn4dev/hn4core/volume"

	"github.com/pierrec/lz4/v4"
)

// MaxChainDepth bounds extension-chain traversal to 16 hops and doubles
// as the cycle-detection backstop: cycles are caught by the depth cap and
// a "previous LBA" sentinel, never by a graph algorithm. The signet
// package declares its own cap of the same value.
const MaxChainDepth = 16

const sentinelLBA = ^uint64(0)

// ResolveName reconstructs an anchor's object name, following its
// extension chain when DataClass has ClassExtended set.
func ResolveName(ctx context.Context, rt *router.Router, vol *volume.Volume, a *volume.Anchor) (string, error) {
	if !a.DataClass.Has(volume.ClassExtended) {
		return inlineShortName(a.InlineBuffer[:]), nil
	}
	headBlock := bitcodec.GetU64(a.InlineBuffer[:], 0)
	prefix := string(trimNull(a.InlineBuffer[8:24]))
	rest, err := walkLongName(ctx, rt, vol, headBlock, a.SeedID)
	if err != nil {
		return prefix, err
	}
	return prefix + rest, nil
}

// CompareName reports whether an anchor's resolved name equals target.
func CompareName(ctx context.Context, rt *router.Router, vol *volume.Volume, a *volume.Anchor, target string) (bool, error) {
	name, err := ResolveName(ctx, rt, vol, a)
	if err != nil {
		return false, err
	}
	return name == target, nil
}

func inlineShortName(buf []byte) string {
	return string(trimNull(buf))
}

func trimNull(b []byte) []byte {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return b[:i]
	}
	return b
}

// walkLongName walks the extension chain starting at headBlock (FS-block
// units), concatenating LONGNAME payload bytes until a null terminator,
// magic mismatch, HAL error, depth cap, or self-loop stops traversal.
// Validation failures abort silently, returning whatever was
// accumulated so far with no error.
func walkLongName(ctx context.Context, rt *router.Router, vol *volume.Volume, headBlock uint64, fileID addr.U128) (string, error) {
	var out bytes.Buffer
	next := headBlock
	prevLBA := sentinelLBA
	sectorsPerBlock := blockSectors(vol)

	for depth := 0; depth < MaxChainDepth; depth++ {
		lba := next * uint64(sectorsPerBlock)
		if !validExtPointer(vol, lba) {
			break
		}
		if lba == prevLBA {
			break // self-loop: same next_ext_lba two iterations running
		}
		buf := make([]byte, vol.Info.BlockSize)
		if _, err := rt.Route(ctx, vol, hal.OpRead, lba, buf, sectorsPerBlock, fileID); err != nil {
			return out.String(), nil
		}
		header, payload, derr := volume.DecodeHeader(buf)
		if derr != nil {
			break
		}
		if header.Type != volume.ExtLongName {
			break
		}
		decoded, derr := decompressPayload(header, payload)
		if derr != nil {
			break
		}
		if i := bytes.IndexByte(decoded, 0); i >= 0 {
			out.Write(decoded[:i])
			break
		}
		out.Write(decoded)
		prevLBA = lba
		next = header.NextExtLBA
		if next == sentinelLBA {
			break
		}
	}
	return out.String(), nil
}

// validExtPointer screens an extension-chain pointer before following it: the
// LBA must be non-sentinel, block-size aligned, at or beyond flux_start,
// and within device bounds (bounds checking beyond flux_start is left to
// the router/HAL, which rejects out-of-range reads).
func validExtPointer(vol *volume.Volume, lba uint64) bool {
	if lba == sentinelLBA {
		return false
	}
	sectorsPerBlock := uint64(blockSectors(vol))
	if sectorsPerBlock == 0 || lba%sectorsPerBlock != 0 {
		return false
	}
	if lba < vol.Info.FluxStart {
		return false
	}
	return true
}

func blockSectors(vol *volume.Volume) uint32 {
	if vol.Info.SectorSize == 0 {
		return 0
	}
	return vol.Info.BlockSize / vol.Info.SectorSize
}

func decompressPayload(h *volume.ExtensionHeader, payload []byte) ([]byte, error) {
	if h.Flags&volume.ExtFlagCompressed == 0 {
		return payload, nil
	}
	out := make([]byte, 0, len(payload)*3)
	buf := make([]byte, 4096)
	r := lz4.NewReader(bytes.NewReader(payload))
	for {
		n, err := r.Read(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err != nil {
			break
		}
	}
	return out, nil
}
