package lz77

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/seiflotfy/huffman/internal/prng"
)

func TestTokens(t *testing.T) {
	cases := []struct {
		input string
		want  []Token
	}{
		{"abc", []Token{{Literal: 'a'}, {Literal: 'b'}, {Literal: 'c'}}},
		{"aaaa", []Token{{Literal: 'a'}, {Match: true, Distance: 1, Length: 3}}},
		{"abababab", []Token{{Literal: 'a'}, {Literal: 'b'}, {Match: true, Distance: 2, Length: 6}}},
		{"abxab", []Token{{Literal: 'a'}, {Literal: 'b'}, {Literal: 'x'}, {Match: true, Distance: 3, Length: 2}}},
	}
	c := NewCompressor()
	for _, tc := range cases {
		require.Equal(t, tc.want, c.Tokens([]byte(tc.input)), "input %q", tc.input)
	}
}

func TestTokensEqualLengthPrefersDistant(t *testing.T) {
	tokens := NewCompressor().Tokens([]byte("abzabyab"))
	last := tokens[len(tokens)-1]
	require.True(t, last.Match)
	require.Equal(t, uint16(6), last.Distance)
	require.Equal(t, uint8(2), last.Length)
}

func TestTokensMatchLengthLimit(t *testing.T) {
	data := bytes.Repeat([]byte{'z'}, 100)
	for _, tok := range NewCompressor().Tokens(data) {
		if tok.Match {
			require.LessOrEqual(t, int(tok.Length), MaxMatchLength)
			require.GreaterOrEqual(t, int(tok.Length), 2)
		}
	}
}

func TestWindowSize(t *testing.T) {
	require.Equal(t, DefaultWindowSize, NewCompressor().WindowSize())
	require.Equal(t, MaxWindowSize, NewCompressor(WithWindowSize(5000)).WindowSize())
	require.Equal(t, 1, NewCompressor(WithWindowSize(0)).WindowSize())

	// A repeat 30 bytes back is out of reach of the default window.
	data := []byte("0123456789abcdefghijklmnopqrst0123")
	for _, tok := range NewCompressor().Tokens(data) {
		require.False(t, tok.Match, "unexpected match %v", tok)
	}
	tokens := NewCompressor(WithWindowSize(30)).Tokens(data)
	require.Equal(t, Token{Match: true, Distance: 30, Length: 4}, tokens[len(tokens)-1])
}

func TestCompressKnownBytes(t *testing.T) {
	// 0 01100001 | 1 000000000001 0011 | 000000
	got, err := NewCompressor().Compress([]byte("aaaa"))
	require.NoError(t, err)
	require.Equal(t, []byte{0x30, 0xc0, 0x04, 0xc0}, got)
}

func TestCompressEmpty(t *testing.T) {
	got, err := NewCompressor().Compress(nil)
	require.NoError(t, err)
	require.Empty(t, got)

	out, err := Decompress(got)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestRoundTrip(t *testing.T) {
	rng := prng.New(21)
	inputs := [][]byte{
		[]byte("a"),
		[]byte("to be or not to be, that is the question\n"),
		rng.Skewed(5000, []byte("abcdef")),
		rng.Bytes(3000, []byte("0123456789")),
	}
	for _, sample := range []string{"sample.txt", "access.log"} {
		data, err := os.ReadFile(filepath.Join("..", "testdata", sample))
		require.NoError(t, err)
		inputs = append(inputs, data)
	}
	for _, window := range []int{1, DefaultWindowSize, MaxWindowSize} {
		c := NewCompressor(WithWindowSize(window))
		for _, in := range inputs {
			packed, err := c.Compress(in)
			require.NoError(t, err)
			got, err := Decompress(packed)
			require.NoError(t, err)
			require.True(t, bytes.Equal(in, got), "window %d: round trip mismatch for %d bytes", window, len(in))
		}
	}
}

func TestAppendDecompressed(t *testing.T) {
	packed, err := NewCompressor().Compress([]byte("aaaa"))
	require.NoError(t, err)
	got, err := AppendDecompressed([]byte("x:"), packed)
	require.NoError(t, err)
	require.Equal(t, "x:aaaa", string(got))
}

func TestDecompressRejectsCorruptStreams(t *testing.T) {
	cases := map[string][]byte{
		// match at the start has nothing to copy
		"distance beyond output": {0x80, 0x08, 0x80},
		// literal 'a' then a match of distance 0
		"zero distance": {0x30, 0xc0, 0x00, 0xc0},
		// literal 'a' then distance 1, length 0
		"zero length": {0x30, 0xc0, 0x04, 0x00},
		// literal then a match flag with too few bits behind it
		"truncated match": {0x30, 0xc0, 0x00},
		// literal 'a' followed by set padding bits
		"non-zero padding": {0x30, 0x81},
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decompress(src)
			require.True(t, errors.Is(err, ErrCorruptStream), "got %v", err)
		})
	}
}

func TestTokenString(t *testing.T) {
	require.Equal(t, "<0, 97>", Token{Literal: 'a'}.String())
	require.Equal(t, "<1, 3, 5>", Token{Match: true, Distance: 3, Length: 5}.String())
}

func FuzzRoundTrip(f *testing.F) {
	f.Add([]byte("hello hello hello"), 20)
	f.Add([]byte("aaaaaaaaaaaaaaaaaaaaaaaa"), 1)
	f.Add([]byte("null\x00byte\x00null"), 400)

	f.Fuzz(func(t *testing.T, data []byte, window int) {
		packed, err := NewCompressor(WithWindowSize(window)).Compress(data)
		if err != nil {
			t.Fatalf("Compress failed: %v", err)
		}
		got, err := Decompress(packed)
		if err != nil {
			t.Fatalf("Decompress failed: %v", err)
		}
		if !bytes.Equal(got, data) {
			t.Fatalf("round trip: got %q want %q", got, data)
		}
	})
}

func BenchmarkCompress(b *testing.B) {
	data, err := os.ReadFile(filepath.Join("..", "testdata", "sample.txt"))
	if err != nil {
		b.Fatal(err)
	}
	c := NewCompressor()
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	var packed []byte
	for i := 0; i < b.N; i++ {
		packed, err = c.Compress(data)
		if err != nil {
			b.Fatal(err)
		}
	}
	b.ReportMetric(float64(len(data))/float64(len(packed)), "ratio")
}
