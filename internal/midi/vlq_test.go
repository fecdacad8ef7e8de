package midi

import (
	"bytes"
	"testing"
)

func TestVarLenRoundTrip(t *testing.T) {
	values := []uint32{
		0, 1, 0x40, 0x7F, // single byte
		0x80, 0x2000, 0x3FFF, // two bytes
		0x4000, 0x100000, 0x1FFFFF, // three bytes
		0x200000, 0x8000000, MaxVarLen, // four bytes
	}
	for _, v := range values {
		enc := appendVarLen(nil, v)
		got, pos, err := readVarLen(enc, 0)
		if err != nil {
			t.Fatalf("readVarLen(%#x): %v", v, err)
		}
		if got != v {
			t.Errorf("round trip %#x: got %#x", v, got)
		}
		if pos != len(enc) {
			t.Errorf("round trip %#x: consumed %d of %d bytes", v, pos, len(enc))
		}
	}
}

func TestVarLenCanonicalLengths(t *testing.T) {
	tests := []struct {
		v    uint32
		want int
	}{
		{0, 1},
		{0x7F, 1},
		{0x80, 2},
		{0x3FFF, 2},
		{0x4000, 3},
		{0x1FFFFF, 3},
		{0x200000, 4},
		{MaxVarLen, 4},
	}
	for _, tt := range tests {
		if got := len(appendVarLen(nil, tt.v)); got != tt.want {
			t.Errorf("encode(%#x): %d bytes, want %d", tt.v, got, tt.want)
		}
	}
}

func TestVarLenKnownEncodings(t *testing.T) {
	tests := []struct {
		v    uint32
		want []byte
	}{
		{0x00, []byte{0x00}},
		{0x40, []byte{0x40}},
		{0x7F, []byte{0x7F}},
		{0x80, []byte{0x81, 0x00}},
		{0x2000, []byte{0xC0, 0x00}},
		{0x3FFF, []byte{0xFF, 0x7F}},
		{MaxVarLen, []byte{0xFF, 0xFF, 0xFF, 0x7F}},
	}
	for _, tt := range tests {
		if got := appendVarLen(nil, tt.v); !bytes.Equal(got, tt.want) {
			t.Errorf("encode(%#x) = % X, want % X", tt.v, got, tt.want)
		}
	}
}

func TestVarLenTruncated(t *testing.T) {
	// continuation bit set but nothing follows
	if _, _, err := readVarLen([]byte{0x81}, 0); err == nil {
		t.Error("expected error decoding truncated quantity")
	}
}
