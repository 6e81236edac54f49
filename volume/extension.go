package volume

import (
	"fmt"

	"github.com/hn4dev/hn4core/bitcodec"
)

// ExtType identifies the payload format of an extension block.
type ExtType uint16

const (
	ExtTag ExtType = iota
	ExtLongName
	ExtVector
	ExtSignet
)

// ExtFlag are header flags; ExtFlagCompressed marks an lz4-compressed
// payload.
type ExtFlag uint16

const (
	ExtFlagCompressed ExtFlag = 1 << 0
)

// Extension block header byte offsets. Payload begins at ExtHeaderSize.
const (
	extOffMagic      = 0x00
	extOffType       = 0x04
	extOffFlags      = 0x06
	extOffNextExtLBA = 0x08
	extOffPayloadLen = 0x10
	ExtHeaderSize    = 0x14
)

// ExtensionHeader is the fixed-size prefix of every extension block.
type ExtensionHeader struct {
	Type       ExtType
	Flags      ExtFlag
	NextExtLBA uint64
	PayloadLen uint32
}

// EncodeHeader writes h followed by payload into a single FS-block-sized
// buffer, zero-padding the remainder.
func (h *ExtensionHeader) EncodeHeader(blockSize int, payload []byte) ([]byte, error) {
	if ExtHeaderSize+len(payload) > blockSize {
		return nil, fmt.Errorf("extension: payload of %d bytes does not fit in %d-byte block", len(payload), blockSize)
	}
	b := make([]byte, blockSize)
	bitcodec.PutU32(b, extOffMagic, MagicMeta)
	bitcodec.PutU16(b, extOffType, uint16(h.Type))
	bitcodec.PutU16(b, extOffFlags, uint16(h.Flags))
	bitcodec.PutU64(b, extOffNextExtLBA, h.NextExtLBA)
	bitcodec.PutU32(b, extOffPayloadLen, uint32(len(payload)))
	copy(b[ExtHeaderSize:], payload)
	return b, nil
}

// DecodeHeader parses the header prefix of a full FS block and returns the
// header plus the payload slice it describes (trimmed to PayloadLen).
func DecodeHeader(b []byte) (*ExtensionHeader, []byte, error) {
	if len(b) < ExtHeaderSize {
		return nil, nil, fmt.Errorf("extension: block too small for header")
	}
	magic := bitcodec.GetU32(b, extOffMagic)
	if magic != MagicMeta {
		return nil, nil, fmt.Errorf("extension: bad magic %#x", magic)
	}
	h := &ExtensionHeader{
		Type:       ExtType(bitcodec.GetU16(b, extOffType)),
		Flags:      ExtFlag(bitcodec.GetU16(b, extOffFlags)),
		NextExtLBA: bitcodec.GetU64(b, extOffNextExtLBA),
		PayloadLen: bitcodec.GetU32(b, extOffPayloadLen),
	}
	end := ExtHeaderSize + int(h.PayloadLen)
	if end > len(b) {
		return nil, nil, fmt.Errorf("extension: payload_len %d exceeds block", h.PayloadLen)
	}
	return h, b[ExtHeaderSize:end], nil
}
