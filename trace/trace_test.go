package trace

import (
	"io"
	"strings"
	"testing"
)

func TestParsesReadsAndWrites(t *testing.T) {
	p := New(strings.NewReader("R:00000000\nW:40\n"))
	ops := p.ReadAll()
	want := []Operation{
		{IsRead: true, Address: 0x00},
		{IsRead: false, Address: 0x40},
	}
	if len(ops) != len(want) {
		t.Fatalf("got %d operations, want %d", len(ops), len(want))
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Errorf("op %d = %+v, want %+v", i, ops[i], want[i])
		}
	}
}

func TestSkipsBlankLines(t *testing.T) {
	p := New(strings.NewReader("\nR:00\n\n\nR:10\n"))
	ops := p.ReadAll()
	if len(ops) != 2 {
		t.Fatalf("got %d operations, want 2", len(ops))
	}
}

func TestMalformedLineEndsTraceSilently(t *testing.T) {
	p := New(strings.NewReader("R:00\nbogus\nR:10\n"))
	ops := p.ReadAll()
	if len(ops) != 1 {
		t.Fatalf("got %d operations, want 1 (trace should stop at the malformed line)", len(ops))
	}
	if ops[0].Address != 0x00 {
		t.Errorf("first operation address = %#x, want 0", ops[0].Address)
	}
}

func TestEmptyTraceYieldsNoOperations(t *testing.T) {
	p := New(strings.NewReader(""))
	if ops := p.ReadAll(); len(ops) != 0 {
		t.Fatalf("got %d operations from an empty trace, want 0", len(ops))
	}
}

type sliceSource []byte

func (s sliceSource) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(s)) {
		return 0, io.EOF
	}
	n := copy(p, s[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (s sliceSource) Len() int { return len(s) }

func TestNewFromSourceReadsFullExtent(t *testing.T) {
	p := NewFromSource(sliceSource("R:00\nW:10\n"))
	ops := p.ReadAll()
	if len(ops) != 2 {
		t.Fatalf("got %d operations, want 2", len(ops))
	}
}

func TestProgressUnknownForPlainReader(t *testing.T) {
	p := New(strings.NewReader("R:00\n"))
	if prog := p.Progress(); prog != 0 {
		t.Fatalf("Progress() = %v for a length-unknown source, want 0", prog)
	}
	p.ReadAll()
	if prog := p.Progress(); prog != 0 {
		t.Fatalf("Progress() = %v after draining a length-unknown source, want 0", prog)
	}
}

func TestProgressAdvancesAndReachesOneForSource(t *testing.T) {
	p := NewFromSource(sliceSource("R:00\nW:10\nR:20\n"))
	if prog := p.Progress(); prog != 0 {
		t.Fatalf("Progress() = %v before reading, want 0", prog)
	}
	p.ReadAll()
	if prog := p.Progress(); prog != 1 {
		t.Fatalf("Progress() = %v after draining a fully-read source, want 1", prog)
	}
}
