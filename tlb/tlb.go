// Package tlb implements the translation lookaside buffer as a
// cache.Cache whose tag space is virtual page numbers rather than byte
// addresses, the way github.com/mknyszek/goat reuses one allocator shape
// (PageAllocator) across multiple concrete policies instead of growing a
// bespoke structure per caller.
package tlb

import (
	"memhier/addr"
	"memhier/cache"
	"memhier/pagetable"

	"github.com/sirupsen/logrus"
)

// TLB caches virtual-page -> physical-page translations.
type TLB struct {
	c              *cache.Cache
	indexBits      uint
	pageOffsetBits uint
}

// New constructs a TLB with the given number of sets and set size
// (associativity). Its block size is the page size, and its eviction
// policy is always LRU per the spec.
func New(numSets, setSize, pageSize uint64) *TLB {
	logrus.WithFields(logrus.Fields{
		"sets":      numSets,
		"set_size":  setSize,
		"page_size": pageSize,
		"policy":    cache.LRU,
	}).Info("creating TLB")
	return &TLB{
		c:              cache.New(numSets, setSize, pageSize, cache.LRU),
		indexBits:      addr.IndexBitsFor(numSets),
		pageOffsetBits: addr.OffsetBitsFor(pageSize),
	}
}

// KeyAddress decodes the TLB lookup key for a virtual address: the address
// is page-masked and shifted right by the page-offset bits, then decoded
// with offsetBits=0 since the whole key lives in tag||index — the TLB
// indexes pages, not bytes.
func (t *TLB) KeyAddress(virtualAddress uint64) addr.Block {
	pageNumber := virtualAddress >> t.pageOffsetBits
	return addr.Decode(pageNumber, t.indexBits, 0)
}

// Translate reports whether the virtual page's translation is resident in
// the TLB, refreshing its LRU timestamp on a hit and installing it on a
// miss. A true return here is only a valid hit once combined with a
// successful page-table lookup for the same address — see the orchestrator
// in package sim for why a stale TLB entry cannot occur (invalidation on
// page eviction is explicit, via InvalidatePage).
func (t *TLB) Translate(key addr.Block, now uint64) bool {
	hit, _ := t.c.ReadAndAllocate(key, now)
	return hit
}

// InvalidatePage enumerates page-table entries mapping physicalAddress's
// page and evicts the corresponding TLB lines. Returns the evicted blocks.
func (t *TLB) InvalidatePage(physicalAddress uint64, pt *pagetable.PageTable) []*cache.Block {
	ppn := pt.PPN(physicalAddress)
	var evicted []*cache.Block
	for _, e := range pt.Entries() {
		if e == nil || e.PhysicalPageNumber() != ppn {
			continue
		}
		key := addr.Decode(e.VirtualPageNumber(), t.indexBits, 0)
		if b := t.c.Invalidate(key); b != nil {
			evicted = append(evicted, b)
		}
	}
	if len(evicted) > 0 {
		logrus.WithField("count", len(evicted)).Warn("evicted TLB lines for reused physical frame")
	}
	return evicted
}
