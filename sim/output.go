package sim

import (
	"memhier/addr"
	"memhier/trace"
)

// AccessOutput records everything observed while simulating one access, for
// the report renderer. Optional fields are nil/absent exactly when the
// corresponding subsystem was disabled or not consulted for this access,
// grounded on original_source/src/output.rs's AccessOutput.
type AccessOutput struct {
	Access trace.Operation

	VirtualAddress     *uint64
	PhysicalAddress    uint64
	VirtualPageNumber  *uint64
	PhysicalPageNumber uint64
	PageOffset         uint64

	TLBAddress   *addr.Block
	TLBHit       *bool
	PageTableHit *bool

	DCAddress addr.Block
	DCHit     bool

	L2Address *addr.Block
	L2Hit     *bool
}

// bankCounter tallies hits and misses for one statistics bank.
type bankCounter struct {
	Hits   uint64
	Misses uint64
}

func (b *bankCounter) record(hit bool) {
	if hit {
		b.Hits++
	} else {
		b.Misses++
	}
}

// HitRatio returns Hits / (Hits+Misses), or 0 if there were no accesses.
func (b bankCounter) HitRatio() float64 {
	total := b.Hits + b.Misses
	if total == 0 {
		return 0
	}
	return float64(b.Hits) / float64(total)
}

// Output accumulates per-access records and per-bank statistics over an
// entire simulated trace.
type Output struct {
	Accesses []AccessOutput

	TLB       bankCounter
	PageTable bankCounter
	DC        bankCounter
	L2        bankCounter

	MainMemoryRefs uint64
	PageTableRefs  uint64
	DiskRefs       uint64

	TotalReads  uint64
	TotalWrites uint64
}

func newOutput() *Output {
	return &Output{}
}

func (o *Output) addAccess(rec AccessOutput) {
	o.Accesses = append(o.Accesses, rec)
	if rec.Access.IsRead {
		o.TotalReads++
	} else {
		o.TotalWrites++
	}
}

func (o *Output) addTLBAccess(hit bool) {
	o.TLB.record(hit)
}

func (o *Output) addPageTableAccess(hit bool) {
	o.PageTable.record(hit)
	o.PageTableRefs++
	if !hit {
		o.DiskRefs++
	}
}

func (o *Output) addDCAccess(hit bool) {
	o.DC.record(hit)
}

func (o *Output) addL2Access(hit bool) {
	o.L2.record(hit)
}
