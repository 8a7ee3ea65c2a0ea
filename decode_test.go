package huffman

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/seiflotfy/huffman/internal/prng"
)

func packFor(t testing.TB, data []byte) (*Tree, *PackedBuffer) {
	t.Helper()
	tree, codes := mustCodes(t, data)
	packed, err := Pack(data, codes)
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}
	return tree, packed
}

func TestUnpackRoundTrip(t *testing.T) {
	inputs := []string{
		"abb",
		"a",
		"aaaa",
		"ab",
		"hello world\nhello again\n",
		string(allBytes()),
		"\x00\x00\x00\xff",
	}
	for _, in := range inputs {
		tree, packed := packFor(t, []byte(in))
		got, err := Unpack(packed, tree)
		if err != nil {
			t.Fatalf("Unpack(%q) failed: %v", in, err)
		}
		if string(got) != in {
			t.Fatalf("round trip: got %q want %q", got, in)
		}
	}
}

func TestUnpackRandomInputs(t *testing.T) {
	rng := prng.New(42)
	alphabets := [][]byte{
		[]byte("ab"),
		[]byte("0123456789"),
		[]byte("the quick brown fox\n"),
		allBytes(),
	}
	for _, alphabet := range alphabets {
		for _, n := range []int{1, 2, 7, 8, 9, 100, 1000} {
			for _, data := range [][]byte{rng.Bytes(n, alphabet), rng.Skewed(n, alphabet)} {
				tree, packed := packFor(t, data)
				got, err := Unpack(packed, tree)
				if err != nil {
					t.Fatalf("Unpack failed for n=%d: %v", n, err)
				}
				if !bytes.Equal(got, data) {
					t.Fatalf("round trip mismatch for n=%d", n)
				}
			}
		}
	}
}

func TestAppendUnpacked(t *testing.T) {
	tree, packed := packFor(t, []byte("abb"))
	got, err := AppendUnpacked([]byte("x:"), packed, tree)
	if err != nil {
		t.Fatalf("AppendUnpacked failed: %v", err)
	}
	if string(got) != "x:abb" {
		t.Fatalf("got %q want %q", got, "x:abb")
	}
}

func TestUnpackSingleSymbolRejectsOneBit(t *testing.T) {
	tree, _ := packFor(t, []byte("aaaa"))
	_, err := Unpack(&PackedBuffer{Bytes: []byte{0x80}, Padding: 4}, tree)
	if !errors.Is(err, ErrCorruptStream) {
		t.Fatalf("expected ErrCorruptStream, got %v", err)
	}
}

func TestUnpackEndsInsideCode(t *testing.T) {
	tree, _ := packFor(t, []byte("abcd"))
	// One data bit is half of a two-bit code.
	_, err := Unpack(&PackedBuffer{Bytes: []byte{0x80}, Padding: 7}, tree)
	if !errors.Is(err, ErrCorruptStream) {
		t.Fatalf("expected ErrCorruptStream, got %v", err)
	}
}

func TestUnpackRejectsBadPadding(t *testing.T) {
	tree, packed := packFor(t, []byte("aaaabbc"))
	cases := []struct {
		name string
		buf  PackedBuffer
	}{
		{"padding above 7", PackedBuffer{Bytes: packed.Bytes, Padding: 8}},
		{"non-zero filler", PackedBuffer{Bytes: []byte{0x0a, 0xc1}, Padding: 6}},
		{"padding on empty buffer", PackedBuffer{Padding: 3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Unpack(&tc.buf, tree)
			if !errors.Is(err, ErrCorruptStream) {
				t.Fatalf("expected ErrCorruptStream, got %v", err)
			}
		})
	}
}

func TestUnpackNilTree(t *testing.T) {
	_, packed := packFor(t, []byte("abb"))
	if _, err := Unpack(packed, nil); !errors.Is(err, ErrCorruptStream) {
		t.Fatalf("expected ErrCorruptStream, got %v", err)
	}
}

func TestUnpackEmptyBuffer(t *testing.T) {
	tree, _ := packFor(t, []byte("abb"))
	got, err := Unpack(&PackedBuffer{}, tree)
	if err != nil {
		t.Fatalf("Unpack failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no symbols, got %q", got)
	}
}

// Flipping any single bit must either be detected or decode to something
// other than the original.
func TestUnpackBitFlips(t *testing.T) {
	inputs := []string{"aaaabbc", "aaaa", "hello world", "abcd"}
	for _, in := range inputs {
		tree, packed := packFor(t, []byte(in))
		for i := 0; i < len(packed.Bytes)*8; i++ {
			flipped := append([]byte(nil), packed.Bytes...)
			flipped[i/8] ^= 0x80 >> (i % 8)
			got, err := Unpack(&PackedBuffer{Bytes: flipped, Padding: packed.Padding}, tree)
			if err != nil {
				if !errors.Is(err, ErrCorruptStream) {
					t.Fatalf("%q bit %d: unexpected error %v", in, i, err)
				}
				continue
			}
			if string(got) == in {
				t.Fatalf("%q bit %d: flip decoded to the original", in, i)
			}
		}
	}
}

func TestUnpackConcurrent(t *testing.T) {
	data := prng.New(3).Skewed(4096, []byte("abcdefgh"))
	tree, packed := packFor(t, data)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := Unpack(packed, tree)
			if err != nil {
				errs <- err
				return
			}
			if !bytes.Equal(got, data) {
				errs <- errors.New("concurrent decode mismatch")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}

func TestArchiveConcurrentDecompress(t *testing.T) {
	data := prng.New(9).Skewed(4096, []byte("ijklmnop"))
	archive, err := NewEncoder().Encode(data)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if _, err := archive.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	loaded := &Archive{}
	if _, err := loaded.ReadFrom(&buf); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := loaded.Decompress()
			if err != nil {
				errs <- err
				return
			}
			if !bytes.Equal(got, data) {
				errs <- errors.New("concurrent archive decode mismatch")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}

func TestUnpackNilBuffer(t *testing.T) {
	tree, _ := packFor(t, []byte("abb"))
	if _, err := Unpack(nil, tree); !errors.Is(err, ErrCorruptStream) {
		t.Fatalf("expected ErrCorruptStream, got %v", err)
	}
}
