// Package report renders a simulation's configuration, per-access table and
// summary statistics as the plain-text report described by the external
// interfaces: a fixed-width table followed by a statistics block. Column
// layout and blanking rules are grounded directly on
// original_source/src/output.rs's Display impl for AccessOutput.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"memhier/config"
	"memhier/sim"
)

// WriteConfig echoes the parsed configuration, matching the section-by-
// section prose of original_source/src/config.rs's Display impls.
func WriteConfig(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "Data TLB contains %d sets.\nEach set contains %d entries.\n",
		cfg.TLB.NumberOfSets, cfg.TLB.SetSize)
	fmt.Fprintf(w, "Number of virtual pages is %d.\nNumber of physical pages is %d.\nEach page contains %d bytes.\n",
		cfg.PageTable.NumberOfVirtualPages, cfg.PageTable.NumberOfPhysicalPages, cfg.PageTable.PageSize)
	writeCacheConfig(w, "D-cache", cfg.DataCache)
	writeCacheConfig(w, "L2-cache", cfg.L2Cache)

	addressKind := "virtual"
	if !cfg.VirtualAddressesEnabled {
		addressKind = "physical"
	}
	fmt.Fprintf(w, "The addresses read in are %s addresses.\n", addressKind)
	if !cfg.TLBEnabled {
		fmt.Fprintln(w, "TLB is disabled in this configuration.")
	}
	if !cfg.L2CacheEnabled {
		fmt.Fprintln(w, "L2 cache is disabled in this configuration.")
	}
}

func writeCacheConfig(w io.Writer, name string, c config.CacheConfig) {
	allocate := ""
	through := "back"
	if c.WriteThrough {
		allocate = "no "
		through = "through"
	}
	fmt.Fprintf(w, "%s contains %d sets.\nEach set contains %d entries.\nEach line is %d bytes.\nThe cache uses a %swrite-allocate and write-%s policy.\n",
		name, c.NumberOfSets, c.SetSize, c.LineSize, allocate, through)
}

// WriteTable renders the per-access table described in the external
// interfaces: one row per access, columns for disabled subsystems or
// unconsulted lower levels rendered as spaces.
func WriteTable(w io.Writer, out *sim.Output) {
	tw := tabwriter.NewWriter(w, 0, 4, 1, ' ', 0)
	fmt.Fprintln(tw, "Virtual/Physical Address\tVPN\tPageOff\tTLB Tag\tTLB Idx\tTLB Res\tPT Res\tPhys PN\tDC Tag\tDC Idx\tDC Res\tL2 Tag\tL2 Idx\tL2 Res")
	for _, rec := range out.Accesses {
		writeRow(tw, rec)
	}
	tw.Flush()
}

func writeRow(w io.Writer, rec sim.AccessOutput) {
	var addrCol string
	if rec.VirtualAddress != nil {
		addrCol = fmt.Sprintf("%08x", *rec.VirtualAddress)
	} else {
		addrCol = fmt.Sprintf("%08x", rec.PhysicalAddress)
	}
	vpnCol := blank()
	if rec.VirtualPageNumber != nil {
		vpnCol = fmt.Sprintf("%x", *rec.VirtualPageNumber)
	}

	tlbTagCol, tlbIdxCol := blank(), blank()
	if rec.TLBAddress != nil {
		tlbTagCol = fmt.Sprintf("%x", rec.TLBAddress.Tag)
		tlbIdxCol = fmt.Sprintf("%x", rec.TLBAddress.Index)
	}
	tlbResCol := blank()
	if rec.TLBHit != nil {
		tlbResCol = hitMiss(*rec.TLBHit)
	}
	ptResCol := blank()
	if rec.PageTableHit != nil && !(rec.TLBHit != nil && *rec.TLBHit) {
		ptResCol = hitMiss(*rec.PageTableHit)
	}

	l2TagCol, l2IdxCol, l2ResCol := blank(), blank(), blank()
	if !rec.DCHit {
		if rec.L2Address != nil {
			l2TagCol = fmt.Sprintf("%x", rec.L2Address.Tag)
			l2IdxCol = fmt.Sprintf("%x", rec.L2Address.Index)
		}
		if rec.L2Hit != nil {
			l2ResCol = hitMiss(*rec.L2Hit)
		}
	}

	fmt.Fprintf(w, "%s\t%s\t%x\t%s\t%s\t%s\t%s\t%x\t%x\t%x\t%s\t%s\t%s\t%s\n",
		addrCol, vpnCol, rec.PageOffset,
		tlbTagCol, tlbIdxCol, tlbResCol, ptResCol,
		rec.PhysicalPageNumber, rec.DCAddress.Tag, rec.DCAddress.Index, hitMiss(rec.DCHit),
		l2TagCol, l2IdxCol, l2ResCol)
}

func hitMiss(hit bool) string {
	if hit {
		return "hit "
	}
	return "miss"
}

func blank() string { return "" }

// WriteStatistics renders the trailing hit/miss/ratio block and the
// main-memory, page-table and disk reference counts.
func WriteStatistics(w io.Writer, out *sim.Output) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "TLB hits: %d\nTLB misses: %d\nTLB hit ratio: %.6f\n",
		out.TLB.Hits, out.TLB.Misses, out.TLB.HitRatio())
	fmt.Fprintf(w, "Page table hits: %d\nPage table misses: %d\nPage table hit ratio: %.6f\n",
		out.PageTable.Hits, out.PageTable.Misses, out.PageTable.HitRatio())
	fmt.Fprintf(w, "DC hits: %d\nDC misses: %d\nDC hit ratio: %.6f\n",
		out.DC.Hits, out.DC.Misses, out.DC.HitRatio())
	fmt.Fprintf(w, "L2 hits: %d\nL2 misses: %d\nL2 hit ratio: %.6f\n",
		out.L2.Hits, out.L2.Misses, out.L2.HitRatio())
	fmt.Fprintf(w, "Main memory references: %d\n", out.MainMemoryRefs)
	fmt.Fprintf(w, "Page table references: %d\n", out.PageTableRefs)
	fmt.Fprintf(w, "Disk references: %d\n", out.DiskRefs)
	fmt.Fprintf(w, "Total reads: %d\n", out.TotalReads)
	fmt.Fprintf(w, "Total writes: %d\n", out.TotalWrites)
}
