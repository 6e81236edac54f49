package signet

import (
	"bytes"
	"context"

	"github.com/ulikunitz/xz"

	"github.com/hn4dev/hn4core/hal"
	"github.com/hn4dev/hn4core/volume"
)

// ExportChain walks the Signet chain bound to anchor and serializes the
// anchor plus every chain block into an xz-compressed blob for offline
// audit: a cold, infrequent archival path, contrasted
// with the cortex extension chain's hot lz4 payload compression. It does
// not re-validate topology -- callers that need an audit guarantee should
// validate first via Chain.Brand's underlying walk or a dedicated verify
// call.
func (c *Chain) ExportChain(ctx context.Context, vol *volume.Volume, anchor *volume.Anchor) ([]byte, error) {
	fileID := anchor.SeedID

	var raw bytes.Buffer
	raw.Write(anchor.Encode())

	sectorsPerBlock := blockSectors(vol)
	next := headBlockOf(anchor)
	prev := sentinelBlock
	for depth := 0; depth < MaxChainDepth && next != sentinelBlock; depth++ {
		if next == prev {
			break
		}
		lba := next * uint64(sectorsPerBlock)
		buf := make([]byte, vol.Info.BlockSize)
		if _, err := c.Router.Route(ctx, vol, hal.OpRead, lba, buf, sectorsPerBlock, fileID); err != nil {
			break
		}
		raw.Write(buf)
		header, _, derr := volume.DecodeHeader(buf)
		if derr != nil {
			break
		}
		prev = next
		next = header.NextExtLBA
	}

	var compressed bytes.Buffer
	w, err := xz.NewWriter(&compressed)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(raw.Bytes()); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return compressed.Bytes(), nil
}
