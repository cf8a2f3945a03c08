// Package config reads the sectioned key/value configuration file that
// describes a simulator's geometry. The format is bespoke to this
// simulator, so it is hand-rolled with bufio.Scanner the way goat's own
// trace-header readers hand-roll their binary framing (see the module's
// DESIGN.md for why no ecosystem sectioned-key-value parser fits here)
// rather than reaching for a general-purpose format like YAML or TOML that
// nothing in this system's external interface calls for.
package config

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// TLBConfig describes the geometry of the translation lookaside buffer.
type TLBConfig struct {
	NumberOfSets uint64
	SetSize      uint64
}

// PageTableConfig describes the geometry of the page table.
type PageTableConfig struct {
	NumberOfVirtualPages  uint64
	NumberOfPhysicalPages uint64
	PageSize              uint64
}

// CacheConfig describes the geometry shared by the L1 data cache and the L2
// cache.
type CacheConfig struct {
	NumberOfSets uint64
	SetSize      uint64
	LineSize     uint64
	WriteThrough bool
}

// Config is the fully parsed simulator configuration.
type Config struct {
	TLB       TLBConfig
	PageTable PageTableConfig
	DataCache CacheConfig
	L2Cache   CacheConfig

	VirtualAddressesEnabled bool
	TLBEnabled              bool
	L2CacheEnabled          bool
}

// Parse reads a Config from r, in the fixed section order documented in the
// module's external interfaces: TLB, page table, data cache, L2 cache, then
// the three trailing y/n flags.
func Parse(r io.Reader) (*Config, error) {
	s := newSectionScanner(r)

	tlb, err := parseTLBConfig(s)
	if err != nil {
		return nil, err
	}
	pt, err := parsePageTableConfig(s)
	if err != nil {
		return nil, err
	}
	dc, err := parseCacheConfig(s, "Data Cache configuration")
	if err != nil {
		return nil, err
	}
	l2, err := parseCacheConfig(s, "L2 Cache configuration")
	if err != nil {
		return nil, err
	}

	virtualAddresses, err := s.boolField("Virtual addresses")
	if err != nil {
		return nil, err
	}
	tlbEnabled, err := s.boolField("TLB")
	if err != nil {
		return nil, err
	}
	l2Enabled, err := s.boolField("L2 cache")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		TLB:                     tlb,
		PageTable:               pt,
		DataCache:               dc,
		L2Cache:                 l2,
		VirtualAddressesEnabled: virtualAddresses,
		TLBEnabled:              tlbEnabled,
		L2CacheEnabled:          l2Enabled,
	}
	logrus.WithFields(logrus.Fields{
		"virtual_addresses": cfg.VirtualAddressesEnabled,
		"tlb":               cfg.TLBEnabled,
		"l2":                cfg.L2CacheEnabled,
	}).Info("parsed simulator configuration")
	return cfg, nil
}

func parseTLBConfig(s *sectionScanner) (TLBConfig, error) {
	if err := s.header("Data TLB configuration"); err != nil {
		return TLBConfig{}, err
	}
	numSets, err := s.powerOfTwoField("Number of sets")
	if err != nil {
		return TLBConfig{}, err
	}
	setSize, err := s.powerOfTwoField("Set size")
	if err != nil {
		return TLBConfig{}, err
	}
	return TLBConfig{NumberOfSets: numSets, SetSize: setSize}, nil
}

func parsePageTableConfig(s *sectionScanner) (PageTableConfig, error) {
	if err := s.header("Page Table configuration"); err != nil {
		return PageTableConfig{}, err
	}
	virtualPages, err := s.powerOfTwoField("Number of virtual pages")
	if err != nil {
		return PageTableConfig{}, err
	}
	physicalPages, err := s.powerOfTwoField("Number of physical pages")
	if err != nil {
		return PageTableConfig{}, err
	}
	pageSize, err := s.powerOfTwoField("Page size")
	if err != nil {
		return PageTableConfig{}, err
	}
	return PageTableConfig{
		NumberOfVirtualPages:  virtualPages,
		NumberOfPhysicalPages: physicalPages,
		PageSize:              pageSize,
	}, nil
}

func parseCacheConfig(s *sectionScanner, header string) (CacheConfig, error) {
	if err := s.header(header); err != nil {
		return CacheConfig{}, err
	}
	numSets, err := s.powerOfTwoField("Number of sets")
	if err != nil {
		return CacheConfig{}, err
	}
	setSize, err := s.powerOfTwoField("Set size")
	if err != nil {
		return CacheConfig{}, err
	}
	lineSize, err := s.powerOfTwoField("Line size")
	if err != nil {
		return CacheConfig{}, err
	}
	writeThrough, err := s.boolField("Write through/no write allocate")
	if err != nil {
		return CacheConfig{}, err
	}
	return CacheConfig{
		NumberOfSets: numSets,
		SetSize:      setSize,
		LineSize:     lineSize,
		WriteThrough: writeThrough,
	}, nil
}

// sectionScanner reads the sectioned key/value format line by line,
// skipping blank lines between entries.
type sectionScanner struct {
	sc *bufio.Scanner
}

func newSectionScanner(r io.Reader) *sectionScanner {
	return &sectionScanner{sc: bufio.NewScanner(r)}
}

func (s *sectionScanner) nextNonBlank() (string, bool) {
	for s.sc.Scan() {
		line := strings.TrimSpace(s.sc.Text())
		if line == "" {
			continue
		}
		return line, true
	}
	return "", false
}

func (s *sectionScanner) header(text string) error {
	line, ok := s.nextNonBlank()
	if !ok {
		return errors.Errorf("config: expected header %q, got end of file", text)
	}
	if line != text {
		return errors.Errorf("config: expected header %q, got %q", text, line)
	}
	return nil
}

func (s *sectionScanner) keyValue(key string) (string, error) {
	line, ok := s.nextNonBlank()
	if !ok {
		return "", errors.Errorf("config: expected field %q, got end of file", key)
	}
	parts := strings.SplitN(line, ":", 2)
	if len(parts) != 2 {
		return "", errors.Errorf("config: expected %q: <value>, got %q", key, line)
	}
	gotKey := strings.TrimSpace(parts[0])
	if gotKey != key {
		return "", errors.Errorf("config: expected field %q, got %q", key, gotKey)
	}
	return strings.TrimSpace(parts[1]), nil
}

func (s *sectionScanner) decimalField(key string) (uint64, error) {
	raw, err := s.keyValue(key)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "config: field %q must be a decimal number, got %q", key, raw)
	}
	return v, nil
}

func (s *sectionScanner) powerOfTwoField(key string) (uint64, error) {
	v, err := s.decimalField(key)
	if err != nil {
		return 0, err
	}
	if v == 0 || v&(v-1) != 0 {
		return 0, errors.Errorf("config: field %q must be a power of two >= 1, got %d", key, v)
	}
	return v, nil
}

func (s *sectionScanner) boolField(key string) (bool, error) {
	raw, err := s.keyValue(key)
	if err != nil {
		return false, err
	}
	switch raw {
	case "y", "Y":
		return true, nil
	case "n", "N":
		return false, nil
	default:
		return false, errors.Errorf("config: field %q must be y/Y or n/N, got %q", key, raw)
	}
}
