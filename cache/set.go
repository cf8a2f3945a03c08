package cache

import "memhier/addr"

// Set is one row of a set-associative cache: up to associativity resident
// blocks, all sharing the same index.
type Set struct {
	slots     []*Block // nil entries are empty slots
	blockSize uint64
	policy    Policy
}

func newSet(associativity uint64, blockSize uint64, policy Policy) *Set {
	return &Set{
		slots:     make([]*Block, associativity),
		blockSize: blockSize,
		policy:    policy,
	}
}

func (s *Set) full() bool {
	for _, b := range s.slots {
		if b == nil {
			return false
		}
	}
	return true
}

func (s *Set) find(tag uint64) (*Block, int) {
	for i, b := range s.slots {
		if b != nil && b.Tag == tag {
			return b, i
		}
	}
	return nil, -1
}

func (s *Set) firstEmpty() int {
	for i, b := range s.slots {
		if b == nil {
			return i
		}
	}
	return -1
}

// evict removes and returns the block the configured policy selects.
// Returns nil if the set is not full: there is nothing to evict, and this
// doubles as the safety net callers rely on instead of asserting fullness
// themselves.
func (s *Set) evict() *Block {
	if !s.full() {
		return nil
	}
	victim := s.policy.evict(s.slots)
	evicted := s.slots[victim]
	s.slots[victim] = nil
	return evicted
}

// isHit reports whether block.Tag is resident, without mutating anything.
func (s *Set) isHit(tag uint64) bool {
	_, idx := s.find(tag)
	return idx >= 0
}

// tryRead updates LastAccess on a hit and reports whether it was one.
func (s *Set) tryRead(tag, now uint64) bool {
	b, idx := s.find(tag)
	if idx < 0 {
		return false
	}
	b.touchRead(now)
	return true
}

// tryWrite updates LastAccess/Dirty on a hit and reports whether it was one.
func (s *Set) tryWrite(tag, now uint64) bool {
	b, idx := s.find(tag)
	if idx < 0 {
		return false
	}
	b.touchWrite(now)
	return true
}

// allocate evicts (if full), installs a fresh block for tag/index, and
// returns the evicted block, if any.
func (s *Set) allocate(tag, index, now uint64) *Block {
	var evicted *Block
	if s.full() {
		evicted = s.evict()
	}
	slot := s.firstEmpty()
	if slot < 0 {
		panic("cache: no empty slot after eviction; set bookkeeping is inconsistent")
	}
	s.slots[slot] = newBlock(tag, index, s.blockSize, now)
	return evicted
}

// readAndAllocate performs a read, allocating the line on a miss. Returns
// the evicted block, if any, and whether the access was a hit observed
// before the allocation.
func (s *Set) readAndAllocate(ba addr.Block, now uint64) (hit bool, evicted *Block) {
	hit = s.isHit(ba.Tag)
	if hit {
		s.tryRead(ba.Tag, now)
		return hit, nil
	}
	evicted = s.allocate(ba.Tag, ba.Index, now)
	if !s.tryRead(ba.Tag, now) {
		panic("cache: freshly allocated block is not resident")
	}
	return hit, evicted
}

// writeAndAllocate mirrors readAndAllocate for writes (write-allocate
// policy): the freshly allocated block is marked dirty.
func (s *Set) writeAndAllocate(ba addr.Block, now uint64) (hit bool, evicted *Block) {
	hit = s.isHit(ba.Tag)
	if hit {
		s.tryWrite(ba.Tag, now)
		return hit, nil
	}
	evicted = s.allocate(ba.Tag, ba.Index, now)
	if !s.tryWrite(ba.Tag, now) {
		panic("cache: freshly allocated block is not resident")
	}
	return hit, evicted
}

// invalidate removes the resident block with the given tag, if any, and
// returns it.
func (s *Set) invalidate(tag uint64) *Block {
	b, idx := s.find(tag)
	if idx < 0 {
		return nil
	}
	s.slots[idx] = nil
	return b
}
