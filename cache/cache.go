// Package cache implements a set-associative cache of tagged blocks with a
// pluggable eviction policy. It is shared, unmodified, by the L1 data
// cache, the L2 cache and the TLB — the TLB is simply a Cache whose tag
// space is page numbers instead of byte addresses.
//
// This mirrors how github.com/mknyszek/goat's simulation/toolbox treats its
// page/stack/object allocators as distinct policies layered over common
// address-space bookkeeping rather than reimplementing storage per caller.
package cache

import "memhier/addr"

// Cache is a vector of Sets indexed by a decoded address's Index field.
type Cache struct {
	sets          []*Set
	associativity uint64
	blockSize     uint64
	policy        Policy
}

// New constructs a Cache with the given number of sets, associativity
// (ways per set), block size in bytes, and eviction policy. numSets must be
// a power of two so that indexing by a bit-slice of the address is exact;
// this is checked by addr.IndexBitsFor at the caller's geometry-derivation
// site, not here, since Cache itself only needs the resulting count.
func New(numSets, associativity, blockSize uint64, policy Policy) *Cache {
	if numSets == 0 || associativity == 0 || blockSize == 0 {
		panic("cache: numSets, associativity and blockSize must all be non-zero")
	}
	sets := make([]*Set, numSets)
	for i := range sets {
		sets[i] = newSet(associativity, blockSize, policy)
	}
	return &Cache{
		sets:          sets,
		associativity: associativity,
		blockSize:     blockSize,
		policy:        policy,
	}
}

// Associativity returns the number of ways per set.
func (c *Cache) Associativity() uint64 { return c.associativity }

// BlockSize returns the configured line size in bytes.
func (c *Cache) BlockSize() uint64 { return c.blockSize }

// NumSets returns the number of sets in the cache.
func (c *Cache) NumSets() uint64 { return uint64(len(c.sets)) }

// Policy returns the configured eviction policy.
func (c *Cache) Policy() Policy { return c.policy }

func (c *Cache) set(index uint64) *Set {
	if index >= uint64(len(c.sets)) {
		panic("cache: index out of range; mis-wired geometry")
	}
	return c.sets[index]
}

// IsHit reports whether ba is resident, without mutating any timestamps.
func (c *Cache) IsHit(ba addr.Block) bool {
	return c.set(ba.Index).isHit(ba.Tag)
}

// TryRead updates the block's LastAccess on a hit without allocating on a
// miss. Returns whether it was a hit.
func (c *Cache) TryRead(ba addr.Block, now uint64) bool {
	return c.set(ba.Index).tryRead(ba.Tag, now)
}

// TryWrite updates the block's LastAccess/Dirty on a hit without
// allocating on a miss (no-write-allocate). Returns whether it was a hit.
func (c *Cache) TryWrite(ba addr.Block, now uint64) bool {
	return c.set(ba.Index).tryWrite(ba.Tag, now)
}

// ReadAndAllocate performs a read, allocating the line on a miss. Returns
// whether the access was a hit (observed before the allocate) and the
// evicted block, if the allocation forced an eviction.
func (c *Cache) ReadAndAllocate(ba addr.Block, now uint64) (hit bool, evicted *Block) {
	return c.set(ba.Index).readAndAllocate(ba, now)
}

// WriteAndAllocate performs a write, allocating the line on a miss
// (write-allocate). Returns whether the access was a hit and the evicted
// block, if any.
func (c *Cache) WriteAndAllocate(ba addr.Block, now uint64) (hit bool, evicted *Block) {
	return c.set(ba.Index).writeAndAllocate(ba, now)
}

// Invalidate removes the resident block at ba, if any, and returns it.
func (c *Cache) Invalidate(ba addr.Block) *Block {
	return c.set(ba.Index).invalidate(ba.Tag)
}
