package volume

import "testing"

func TestExtensionHeaderEncodeDecodeRoundTrip(t *testing.T) {
	h := &ExtensionHeader{Type: ExtLongName, NextExtLBA: 77}
	payload := []byte("rest-of-a-long-filename.bin")

	block, err := h.EncodeHeader(512, payload)
	if err != nil {
		t.Fatalf("EncodeHeader: %v", err)
	}
	if len(block) != 512 {
		t.Fatalf("block is %d bytes, want 512", len(block))
	}

	gotHeader, gotPayload, err := DecodeHeader(block)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if gotHeader.Type != h.Type || gotHeader.NextExtLBA != h.NextExtLBA {
		t.Fatalf("header mismatch: got %+v, want type=%v next=%v", gotHeader, h.Type, h.NextExtLBA)
	}
	if string(gotPayload) != string(payload) {
		t.Fatalf("payload mismatch: got %q, want %q", gotPayload, payload)
	}
}

func TestExtensionHeaderRejectsOversizedPayload(t *testing.T) {
	h := &ExtensionHeader{Type: ExtVector}
	_, err := h.EncodeHeader(32, make([]byte, 64))
	if err == nil {
		t.Fatal("EncodeHeader accepted a payload larger than the block")
	}
}

func TestDecodeHeaderRejectsBadMagic(t *testing.T) {
	block := make([]byte, 512)
	if _, _, err := DecodeHeader(block); err == nil {
		t.Fatal("DecodeHeader accepted an all-zero (no magic) block")
	}
}
