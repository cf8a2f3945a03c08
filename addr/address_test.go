package addr

import "testing"

func TestDecodeReconstructRoundTrip(t *testing.T) {
	cases := []struct {
		name                 string
		address              uint64
		indexBits, offsetBits uint
	}{
		{"direct-mapped small lines", 0x000000F0, 2, 4},
		{"fully associative", 0xDEADBEEF, 0, 6},
		{"no index bits, no offset bits", 0x1, 0, 0},
		{"wide offset", 0xFFFFFFFF, 4, 16},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			b := Decode(c.address, c.indexBits, c.offsetBits)
			if got := b.Reconstruct(); got != c.address {
				t.Fatalf("round trip failed: decode(%#x).reconstruct() = %#x", c.address, got)
			}
			if b.TagBits+b.IndexBits+b.OffsetBits != EffectiveWidth {
				t.Fatalf("bit widths do not sum to %d: got %d+%d+%d", EffectiveWidth, b.TagBits, b.IndexBits, b.OffsetBits)
			}
		})
	}
}

func TestDecodeFields(t *testing.T) {
	// 4 sets (2 index bits), 16-byte lines (4 offset bits).
	b := Decode(0x40, 2, 4)
	if b.Offset != 0 {
		t.Errorf("offset = %#x, want 0", b.Offset)
	}
	if b.Index != 0 {
		t.Errorf("index = %#x, want 0 (0x40 >> 4 = 4, 4 & 0b11 = 0)", b.Index)
	}
	if b.Tag != 1 {
		t.Errorf("tag = %#x, want 1 (0x40 >> 6 = 1)", b.Tag)
	}
}

func TestIndexBitsForRejectsNonPowerOfTwo(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for non-power-of-two set count")
		}
	}()
	IndexBitsFor(3)
}

func TestOffsetBitsForZero(t *testing.T) {
	if got := OffsetBitsFor(1); got != 0 {
		t.Errorf("OffsetBitsFor(1) = %d, want 0", got)
	}
	if got := OffsetBitsFor(16); got != 4 {
		t.Errorf("OffsetBitsFor(16) = %d, want 4", got)
	}
}
