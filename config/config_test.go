package config

import (
	"strings"
	"testing"
)

const sampleConfig = `Data TLB configuration
Number of sets: 4
Set size: 2

Page Table configuration
Number of virtual pages: 16
Number of physical pages: 8
Page size: 256

Data Cache configuration
Number of sets: 8
Set size: 2
Line size: 16
Write through/no write allocate: n

L2 Cache configuration
Number of sets: 16
Set size: 4
Line size: 32
Write through/no write allocate: y

Virtual addresses: y
TLB: y
L2 cache: y
`

func TestParseFullConfig(t *testing.T) {
	cfg, err := Parse(strings.NewReader(sampleConfig))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.TLB.NumberOfSets != 4 || cfg.TLB.SetSize != 2 {
		t.Errorf("TLB = %+v", cfg.TLB)
	}
	if cfg.PageTable.NumberOfVirtualPages != 16 || cfg.PageTable.NumberOfPhysicalPages != 8 || cfg.PageTable.PageSize != 256 {
		t.Errorf("PageTable = %+v", cfg.PageTable)
	}
	if cfg.DataCache.WriteThrough {
		t.Errorf("DataCache.WriteThrough = true, want false")
	}
	if !cfg.L2Cache.WriteThrough {
		t.Errorf("L2Cache.WriteThrough = false, want true")
	}
	if !cfg.VirtualAddressesEnabled || !cfg.TLBEnabled || !cfg.L2CacheEnabled {
		t.Errorf("expected all three feature flags enabled, got va=%v tlb=%v l2=%v",
			cfg.VirtualAddressesEnabled, cfg.TLBEnabled, cfg.L2CacheEnabled)
	}
}

func TestParseRejectsWrongHeader(t *testing.T) {
	bad := strings.Replace(sampleConfig, "Data TLB configuration", "Wrong header", 1)
	if _, err := Parse(strings.NewReader(bad)); err == nil {
		t.Fatal("expected an error for a mismatched section header")
	}
}

func TestParseRejectsNonPowerOfTwo(t *testing.T) {
	bad := strings.Replace(sampleConfig, "Number of sets: 4", "Number of sets: 3", 1)
	if _, err := Parse(strings.NewReader(bad)); err == nil {
		t.Fatal("expected an error for a non-power-of-two set count")
	}
}

func TestParseRejectsNonBoolean(t *testing.T) {
	bad := strings.Replace(sampleConfig, "Virtual addresses: y", "Virtual addresses: maybe", 1)
	if _, err := Parse(strings.NewReader(bad)); err == nil {
		t.Fatal("expected an error for a non y/n boolean field")
	}
}

func TestParseRejectsTruncatedFile(t *testing.T) {
	truncated := "Data TLB configuration\nNumber of sets: 4\n"
	if _, err := Parse(strings.NewReader(truncated)); err == nil {
		t.Fatal("expected an error for a truncated configuration file")
	}
}

func TestParseSkipsBlankLinesBetweenEntries(t *testing.T) {
	spaced := strings.ReplaceAll(sampleConfig, "\n", "\n\n")
	if _, err := Parse(strings.NewReader(spaced)); err != nil {
		t.Fatalf("Parse with extra blank lines failed: %v", err)
	}
}
