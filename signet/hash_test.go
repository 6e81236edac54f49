package signet

import (
	"testing"

	"github.com/hn4dev/hn4core/addr"
)

func TestTopologyHashDeterministic(t *testing.T) {
	vol := addr.U128{Lo: 1, Hi: 2}
	block := []byte("fixed block contents for hashing")

	a := TopologyHash(vol, block)
	b := TopologyHash(vol, block)
	if a != b {
		t.Fatalf("TopologyHash is not deterministic: %+v != %+v", a, b)
	}

	other := TopologyHash(addr.U128{Lo: 1, Hi: 3}, block)
	if a == other {
		t.Fatal("TopologyHash should depend on the volume key, not just the block")
	}
}

func TestTopologyHashSensitiveToSingleByteFlip(t *testing.T) {
	vol := addr.U128{Lo: 9, Hi: 9}
	block := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	flipped := append([]byte(nil), block...)
	flipped[3] ^= 0x01

	if TopologyHash(vol, block) == TopologyHash(vol, flipped) {
		t.Fatal("a single-byte flip should change the topology hash")
	}
}

func TestPubkeyFingerprintDeterministic(t *testing.T) {
	vol := addr.U128{Lo: 1, Hi: 2}
	pubkey := make([]byte, PubkeySize)
	for i := range pubkey {
		pubkey[i] = byte(i)
	}
	a := pubkeyFingerprint(vol, pubkey)
	b := pubkeyFingerprint(vol, pubkey)
	if a != b {
		t.Fatal("pubkeyFingerprint is not deterministic")
	}
}

func TestRotl48RoundTrips(t *testing.T) {
	v := uint64(0x0000123456789abc) & ((1 << 48) - 1)
	rotated := rotl48(v, 19)
	back := rotl48(rotated, 48-19)
	if back != v {
		t.Fatalf("rotl48 round trip failed: got %#x, want %#x", back, v)
	}
}

func TestRotl48ZeroShiftIsIdentity(t *testing.T) {
	v := uint64(0xABCDEF)
	if rotl48(v, 0) != v {
		t.Fatal("rotl48 with n=0 must be the identity")
	}
}
