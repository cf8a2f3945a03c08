// Package dcache implements the L1 data cache and L2 cache, both of which
// wrap a cache.Cache and add write-allocate policy plus per-bank hit/miss
// counters, the way github.com/mknyszek/goat's page allocator wraps a
// shared storage abstraction with policy-specific bookkeeping instead of
// duplicating the set-associative storage itself.
package dcache

import (
	"memhier/addr"
	"memhier/cache"

	"github.com/sirupsen/logrus"
)

// Level is a named cache level, used only for logging so the same type can
// back both the L1 DataCache and the L2Cache without L2 pretending to be an
// L1.
type Level string

const (
	L1 Level = "L1"
	L2 Level = "L2"
)

// DataCache wraps a cache.Cache with a write-allocate flag and per-bank
// counters. It is used for both the L1 data cache and the L2 cache.
type DataCache struct {
	level         Level
	c             *cache.Cache
	writeAllocate bool
	reads         uint64
	writes        uint64
	readMisses    uint64
	writeMisses   uint64
}

// New constructs a DataCache. writeThrough implies no-write-allocate;
// write-back implies write-allocate.
func New(level Level, numSets, associativity, blockSize uint64, policy cache.Policy, writeThrough bool) *DataCache {
	logrus.WithFields(logrus.Fields{
		"level":         level,
		"sets":          numSets,
		"associativity": associativity,
		"block_size":    blockSize,
		"policy":        policy,
		"write_through": writeThrough,
	}).Info("creating cache")
	return &DataCache{
		level:         level,
		c:             cache.New(numSets, associativity, blockSize, policy),
		writeAllocate: !writeThrough,
	}
}

// IsWriteAllocate reports whether a write miss allocates a line.
func (d *DataCache) IsWriteAllocate() bool { return d.writeAllocate }

// IsWriteThrough reports whether the cache is configured write-through.
func (d *DataCache) IsWriteThrough() bool { return !d.writeAllocate }

// Underlying exposes the wrapped cache, e.g. for geometry introspection by
// the report package.
func (d *DataCache) Underlying() *cache.Cache { return d.c }

// Reads, Writes, ReadMisses, WriteMisses return the running per-bank
// counters.
func (d *DataCache) Reads() uint64       { return d.reads }
func (d *DataCache) Writes() uint64      { return d.writes }
func (d *DataCache) ReadMisses() uint64  { return d.readMisses }
func (d *DataCache) WriteMisses() uint64 { return d.writeMisses }

// Read always allocates on miss. Returns whether it was a hit.
func (d *DataCache) Read(ba addr.Block, now uint64) bool {
	d.reads++
	hit, _ := d.c.ReadAndAllocate(ba, now)
	if !hit {
		d.readMisses++
	}
	return hit
}

// Write allocates on miss only when the cache is write-allocate; otherwise
// it is a no-write-allocate try-write. Returns whether it was a hit.
func (d *DataCache) Write(ba addr.Block, now uint64) bool {
	d.writes++
	var hit bool
	if d.writeAllocate {
		hit, _ = d.c.WriteAndAllocate(ba, now)
	} else {
		hit = d.c.TryWrite(ba, now)
	}
	if !hit {
		d.writeMisses++
	}
	return hit
}

// Access dispatches to Read or Write based on isRead.
func (d *DataCache) Access(isRead bool, ba addr.Block, now uint64) bool {
	if isRead {
		return d.Read(ba, now)
	}
	return d.Write(ba, now)
}

// InvalidatePage enumerates the block addresses spanning the page starting
// at physicalAddress (page_size / block_size of them) and invalidates each
// resident block, returning the ones evicted.
func (d *DataCache) InvalidatePage(physicalAddress, pageSize uint64, indexBits, offsetBits uint) []*cache.Block {
	blockSize := d.c.BlockSize()
	numBlocks := pageSize / blockSize
	if numBlocks*blockSize != pageSize {
		panic("dcache: page size is not a whole multiple of block size")
	}
	var evicted []*cache.Block
	for i := uint64(0); i < numBlocks; i++ {
		ba := addr.Decode(physicalAddress+i*blockSize, indexBits, offsetBits)
		if b := d.c.Invalidate(ba); b != nil {
			evicted = append(evicted, b)
		}
	}
	if len(evicted) > 0 {
		logrus.WithFields(logrus.Fields{
			"level": d.level,
			"count": len(evicted),
		}).Warn("evicted cache lines for reused physical frame")
	}
	return evicted
}
