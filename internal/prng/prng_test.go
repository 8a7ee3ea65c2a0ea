package prng

import "testing"

func TestLCGDeterministic(t *testing.T) {
	a, b := New(42), New(42)
	for i := 0; i < 100; i++ {
		if x, y := a.Next(), b.Next(); x != y {
			t.Fatalf("step %d: got %d and %d", i, x, y)
		}
	}
}

func TestUint64NRange(t *testing.T) {
	p := New(7)
	if got := p.Uint64N(0); got != 0 {
		t.Fatalf("Uint64N(0): got %d want 0", got)
	}
	for i := 0; i < 1000; i++ {
		if v := p.Uint64N(5); v >= 5 {
			t.Fatalf("Uint64N(5) out of range: %d", v)
		}
	}
}

func TestBytesUsesAlphabet(t *testing.T) {
	alphabet := []byte("xyz")
	for _, gen := range []func(int, []byte) []byte{New(1).Bytes, New(1).Skewed} {
		out := gen(500, alphabet)
		if len(out) != 500 {
			t.Fatalf("length: got %d want 500", len(out))
		}
		for i, b := range out {
			if b != 'x' && b != 'y' && b != 'z' {
				t.Fatalf("byte %d outside alphabet: %q", i, b)
			}
		}
	}
}
