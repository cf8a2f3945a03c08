// Package pagetable implements a demand-paged virtual-to-physical page map
// with LRU-based physical-frame reclamation.
//
// The split between entries (VPN -> entry) and a separate bookkeeping
// vector (PPN -> last access time) mirrors github.com/mknyszek/goat's
// simulation/toolbox/page.Go114 allocator, which keeps its own free-frame
// scan (findFirstFree) independent from whatever currently owns each frame,
// to avoid rescanning every virtual mapping on every eviction.
package pagetable

import (
	"math/bits"

	"github.com/sirupsen/logrus"
)

// Entry is a single virtual-page to physical-page mapping.
type Entry struct {
	PhysicalAddress uint64
	VirtualAddress  uint64
	LastAccessTime  uint64
	PageSize        uint64
}

// PhysicalPageNumber returns the entry's physical address shifted right by
// the page-offset bit count.
func (e Entry) PhysicalPageNumber() uint64 {
	return e.PhysicalAddress >> bits.TrailingZeros64(e.PageSize)
}

// VirtualPageNumber returns the entry's virtual address shifted right by
// the page-offset bit count.
func (e Entry) VirtualPageNumber() uint64 {
	return e.VirtualAddress >> bits.TrailingZeros64(e.PageSize)
}

// PageTable maps virtual page numbers to physical frames, evicting the
// least-recently-accessed frame to make room when every physical frame is
// in use.
type PageTable struct {
	virtualPages  uint64
	physicalPages uint64
	pageSize      uint64
	offsetBits    uint

	entries     []*Entry // length virtualPages, indexed by VPN
	bookkeeping []uint64 // length physicalPages; 0 means free

	allocated uint64
}

// New constructs a PageTable for the given geometry. virtualPages,
// physicalPages and pageSize must all be powers of two.
func New(virtualPages, physicalPages, pageSize uint64) *PageTable {
	offsetBits := uint(bits.TrailingZeros64(pageSize))
	logrus.WithFields(logrus.Fields{
		"virtual_pages":  virtualPages,
		"physical_pages": physicalPages,
		"page_size":      pageSize,
	}).Info("creating page table")
	return &PageTable{
		virtualPages:  virtualPages,
		physicalPages: physicalPages,
		pageSize:      pageSize,
		offsetBits:    offsetBits,
		entries:       make([]*Entry, virtualPages),
		bookkeeping:   make([]uint64, physicalPages),
	}
}

// OffsetBits returns the number of page-offset bits (log2 of page size).
func (pt *PageTable) OffsetBits() uint { return pt.offsetBits }

// VPN returns the virtual page number for a virtual address.
func (pt *PageTable) VPN(virtualAddress uint64) uint64 {
	return virtualAddress >> pt.offsetBits
}

// PPN returns the physical page number for a physical address.
func (pt *PageTable) PPN(physicalAddress uint64) uint64 {
	return physicalAddress >> pt.offsetBits
}

// Offset returns the page offset of an address (its low offsetBits bits).
func (pt *PageTable) Offset(address uint64) uint64 {
	return address & (pt.pageSize - 1)
}

// Entries exposes a read-only view over the page table's VPN-indexed
// entries, so callers like the TLB's page invalidator can enumerate
// mappings without coupling the two packages together.
func (pt *PageTable) Entries() []*Entry {
	return pt.entries
}

// Translate resolves a virtual address to a physical address, allocating
// and possibly evicting a physical frame on a page fault. Returns the
// physical address and whether the lookup was a hit (i.e. not a fault).
// Panics on an out-of-range VPN, a programming invariant violation by the
// caller.
func (pt *PageTable) Translate(virtualAddress, now uint64) (physicalAddress uint64, hit bool) {
	vpn := pt.VPN(virtualAddress)
	if vpn >= uint64(len(pt.entries)) {
		panic("pagetable: virtual page number out of range")
	}

	entry := pt.entries[vpn]
	hit = entry != nil
	if !hit {
		pt.allocatePhysicalPage(vpn, virtualAddress, now)
		entry = pt.entries[vpn]
	}
	entry.LastAccessTime = now
	offset := pt.Offset(virtualAddress)
	physicalAddress = entry.PhysicalAddress | offset
	pt.markFrameAccessed(pt.PPN(physicalAddress), now)
	return physicalAddress, hit
}

// allocatePhysicalPage installs a new mapping for vpn, evicting the
// least-recently-used frame first if the table is already full.
func (pt *PageTable) allocatePhysicalPage(vpn, virtualAddress, now uint64) uint64 {
	if pt.allocated >= pt.physicalPages {
		pt.evict()
	}
	frame := pt.firstFreeFrame()
	pt.entries[vpn] = &Entry{
		PhysicalAddress: frame << pt.offsetBits,
		VirtualAddress:  virtualAddress,
		LastAccessTime:  now,
		PageSize:        pt.pageSize,
	}
	pt.markFrameAccessed(frame, now)
	pt.allocated++
	logrus.WithFields(logrus.Fields{
		"vpn":   vpn,
		"frame": frame,
	}).Trace("allocated physical page")
	return frame
}

func (pt *PageTable) firstFreeFrame() uint64 {
	for i, t := range pt.bookkeeping {
		if t == 0 {
			return uint64(i)
		}
	}
	panic("pagetable: no free physical frame after eviction; bookkeeping is inconsistent")
}

func (pt *PageTable) markFrameAccessed(frame, now uint64) {
	pt.bookkeeping[frame] = now
}

// evict selects the physical frame with the minimum bookkeeping timestamp
// (LRU) among non-free frames, preferring any already-free frame instead.
// It marks the chosen frame free and invalidates every entry pointing at
// it.
func (pt *PageTable) evict() {
	minTime := ^uint64(0)
	minFrame := uint64(0)
	for frame, t := range pt.bookkeeping {
		if t == 0 {
			minFrame = uint64(frame)
			minTime = 0
			break
		}
		if t < minTime {
			minTime = t
			minFrame = uint64(frame)
		}
	}
	wasFree := minTime == 0
	pt.bookkeeping[minFrame] = 0
	pt.InvalidatePageNumber(minFrame)
	if !wasFree {
		pt.allocated--
	}
	logrus.WithField("frame", minFrame).Trace("evicted physical frame")
}

// InvalidatePageNumber clears every entry whose physical page number equals
// p. Normally there is at most one such entry; this is defensive.
func (pt *PageTable) InvalidatePageNumber(p uint64) {
	for i, e := range pt.entries {
		if e != nil && e.PhysicalPageNumber() == p {
			pt.entries[i] = nil
		}
	}
}
