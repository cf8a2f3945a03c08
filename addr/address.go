// Package addr decodes integer addresses into the (tag, index, offset)
// triples that every level of the memory hierarchy keys its lookups by.
//
// The split mirrors how github.com/mknyszek/goat's toolbox package treats
// Address and Bytes as small value types with alignment helpers rather than
// bare uint64 math scattered through the simulator.
package addr

import "math/bits"

// EffectiveWidth is the address width, in bits, that every geometry in this
// simulator is defined relative to.
const EffectiveWidth = 32

// Block is the decoded view of an address for a specific cache or page-table
// geometry: tag_bits + index_bits + offset_bits == EffectiveWidth.
type Block struct {
	Tag    uint64
	Index  uint64
	Offset uint64

	TagBits    uint
	IndexBits  uint
	OffsetBits uint
}

// Decode splits address into a tag/index/offset triple given the number of
// index and offset bits. Tag bits are whatever remains of EffectiveWidth.
//
// The TLB's page-number keys are decoded with offsetBits == 0, since the
// whole key already lives in tag||index (see tlb.KeyAddress).
func Decode(address uint64, indexBits, offsetBits uint) Block {
	if indexBits+offsetBits > EffectiveWidth {
		panic("addr: indexBits+offsetBits exceeds the effective address width")
	}
	offsetMask := mask(offsetBits)
	indexMask := mask(indexBits)

	offset := address & offsetMask
	index := (address >> offsetBits) & indexMask
	tag := address >> (offsetBits + indexBits)

	return Block{
		Tag:        tag,
		Index:      index,
		Offset:     offset,
		TagBits:    EffectiveWidth - indexBits - offsetBits,
		IndexBits:  indexBits,
		OffsetBits: offsetBits,
	}
}

// Reconstruct rebuilds the original integer address from the decoded triple.
func (b Block) Reconstruct() uint64 {
	return (b.Tag << (b.IndexBits + b.OffsetBits)) | (b.Index << b.OffsetBits) | b.Offset
}

func mask(bitsWide uint) uint64 {
	if bitsWide == 0 {
		return 0
	}
	if bitsWide >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << bitsWide) - 1
}

// IndexBitsFor returns the number of index bits implied by a count of sets.
// count must be a power of two; it is a programming invariant violation
// otherwise (mis-wired geometry, not a runtime condition).
func IndexBitsFor(count uint64) uint {
	if count == 0 || count&(count-1) != 0 {
		panic("addr: set/page count must be a power of two")
	}
	return uint(bits.TrailingZeros64(count))
}

// OffsetBitsFor returns the number of offset bits implied by a block or page
// size in bytes. size must be a power of two.
func OffsetBitsFor(size uint64) uint {
	if size == 0 || size&(size-1) != 0 {
		panic("addr: block/page size must be a power of two")
	}
	return uint(bits.TrailingZeros64(size))
}
