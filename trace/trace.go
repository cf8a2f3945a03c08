// Package trace reads the line-oriented memory access trace: one
// `<K>:<HEX>` operation per line, K in {R, W}. This mirrors
// github.com/mknyszek/goat's own Parser/Source split — a Source is
// anything seekable and addressable (goat's is a binary batch trace backed
// by mmap; this one is text, read a line at a time) — but drops goat's
// varint batch framing and errgroup-based parallel indexing, since this
// trace format has no batches or per-processor sharding to parallelize.
package trace

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Operation is a single memory access: a read or a write to an address.
type Operation struct {
	IsRead  bool
	Address uint64
}

// Source is a trace backing store: anything that can be read at an offset
// and reports its own length, the same shape goat uses for its mmap'd
// binary trace files.
type Source interface {
	io.ReaderAt
	Len() int
}

// Parser reads Operations one at a time from a line-oriented trace.
type Parser struct {
	sc    *bufio.Scanner
	ended bool

	read  *atomic.Int64 // bytes consumed so far; nil when not tracked
	total int64         // total trace length; 0 when unknown (e.g. stdin)
}

// NewFromSource constructs a Parser over a random-access Source, such as an
// mmap'd trace file, by scanning lines out of a SectionReader spanning the
// whole source. Unlike New, the resulting Parser's Progress is meaningful,
// since the source's total length is known up front.
func NewFromSource(src Source) *Parser {
	r := io.NewSectionReader(src, 0, int64(src.Len()))
	p := New(r)
	p.total = int64(src.Len())
	return p
}

// New constructs a Parser over any io.Reader, e.g. standard input. Progress
// always reports 0 for a Parser built this way, since the total size of an
// arbitrary io.Reader isn't known in advance.
func New(r io.Reader) *Parser {
	read := &atomic.Int64{}
	return &Parser{
		sc:   bufio.NewScanner(&countingReader{r: r, n: read}),
		read: read,
	}
}

// Progress reports how far the parser has read through a length-known
// source, as a fraction in [0,1]. It is safe to call concurrently with
// Next, for a spinner goroutine sampling progress on a timer. It returns 0
// when the total length is unknown.
func (p *Parser) Progress() float64 {
	if p.total <= 0 {
		return 0
	}
	n := p.read.Load()
	if n >= p.total {
		return 1
	}
	return float64(n) / float64(p.total)
}

// countingReader wraps an io.Reader, tallying bytes read into an atomic
// counter so Parser.Progress can be sampled from another goroutine without
// synchronizing with the scanner itself.
type countingReader struct {
	r io.Reader
	n *atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}

// Next returns the next operation in the trace. The second return value is
// false at end of file or on a malformed line — malformed lines end the
// trace silently rather than aborting the program, per the external
// interface's trace-error handling rule.
func (p *Parser) Next() (Operation, bool) {
	if p.ended {
		return Operation{}, false
	}
	for p.sc.Scan() {
		line := strings.TrimSpace(p.sc.Text())
		if line == "" {
			continue
		}
		op, ok := parseLine(line)
		if !ok {
			logrus.WithField("line", line).Error("malformed trace line; ending trace")
			p.ended = true
			return Operation{}, false
		}
		return op, true
	}
	p.ended = true
	return Operation{}, false
}

// ReadAll drains the parser into a slice, for tests and small traces.
func (p *Parser) ReadAll() []Operation {
	var ops []Operation
	for {
		op, ok := p.Next()
		if !ok {
			return ops
		}
		ops = append(ops, op)
	}
}

func parseLine(line string) (Operation, bool) {
	kind, rest, found := strings.Cut(line, ":")
	if !found {
		return Operation{}, false
	}
	kind = strings.TrimSpace(kind)
	rest = strings.TrimSpace(rest)

	var isRead bool
	switch kind {
	case "R":
		isRead = true
	case "W":
		isRead = false
	default:
		return Operation{}, false
	}

	addr, err := strconv.ParseUint(rest, 16, 64)
	if err != nil {
		return Operation{}, false
	}
	return Operation{IsRead: isRead, Address: addr}, true
}
