package tlb

import (
	"testing"

	"memhier/pagetable"
)

func TestTranslateFirstAccessIsMiss(t *testing.T) {
	tl := New(2, 1, 16)
	key := tl.KeyAddress(0x00)
	if tl.Translate(key, 1) {
		t.Fatal("first lookup of an unmapped page must miss")
	}
}

func TestTranslateRepeatedAccessIsHit(t *testing.T) {
	tl := New(2, 1, 16)
	key := tl.KeyAddress(0x00)
	tl.Translate(key, 1)
	if !tl.Translate(key, 2) {
		t.Fatal("second lookup of an already-resident page must hit")
	}
}

func TestKeyAddressIgnoresPageOffset(t *testing.T) {
	tl := New(2, 1, 16)
	a := tl.KeyAddress(0x01)
	b := tl.KeyAddress(0x0F)
	if a.Tag != b.Tag || a.Index != b.Index {
		t.Fatalf("addresses within the same page must decode to the same TLB key, got %+v vs %+v", a, b)
	}
}

// Scenario 6: once a physical frame backing a TLB-resident translation is
// reused by the page table for a different virtual page, the stale TLB
// line must be evicted so a subsequent lookup cannot silently report a hit
// for a mapping that no longer exists.
func TestInvalidatePageSuppressesStaleHit(t *testing.T) {
	pt := pagetable.New(2, 1, 16)
	tl := New(1, 1, 16)

	// Map VPN 0, and record its translation in the TLB.
	phys0, _ := pt.Translate(0x00, 1)
	key0 := tl.KeyAddress(0x00)
	tl.Translate(key0, 1)

	if !tl.Translate(key0, 2) {
		t.Fatal("VPN 0's translation should still be TLB-resident before eviction")
	}

	// Force the page table to evict VPN 0's only frame to map VPN 1.
	pt.Translate(0x10, 3)

	evicted := tl.InvalidatePage(phys0, pt)
	if len(evicted) == 0 {
		t.Fatal("expected the stale TLB line for VPN 0 to be invalidated")
	}

	if tl.Translate(key0, 4) {
		t.Fatal("TLB must not report a hit for a translation invalidated by frame reuse")
	}
}

func TestInvalidatePageLeavesUnrelatedEntriesIntact(t *testing.T) {
	pt := pagetable.New(4, 4, 16)
	tl := New(4, 1, 16)

	phys0, _ := pt.Translate(0x00, 1)
	pt.Translate(0x10, 2)
	key0 := tl.KeyAddress(0x00)
	key1 := tl.KeyAddress(0x10)
	tl.Translate(key0, 1)
	tl.Translate(key1, 2)

	// VPN 0's frame is not reused here, so invalidating some unrelated
	// physical address must not disturb either resident TLB line.
	tl.InvalidatePage(phys0^0xF0, pt)

	if !tl.Translate(key0, 3) || !tl.Translate(key1, 4) {
		t.Fatal("unrelated invalidation must not evict unrelated TLB entries")
	}
}
