// Package lz77 is a small sliding-window compressor for byte text.
//
// The stream is a sequence of tokens written most significant bit first:
//
//	literal  0 | byte[8]
//	match    1 | distance[12] | length[4]
//
// A match copies length bytes starting distance bytes back; the copy may
// overlap the bytes it produces. The stream is zero padded to a whole byte
// and a decoder stops once fewer than nine bits remain.
package lz77

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/icza/bitio"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("lz77")

func init() {
	logging.SetLevel(logging.WARNING, "lz77")
}

const (
	DefaultWindowSize = 20
	MaxWindowSize     = 400
	// MaxMatchLength is the longest match the 4-bit length field holds that
	// the lookahead buffer can produce.
	MaxMatchLength = 14
	minMatchLength = 2

	lookaheadSize = 15
	distanceBits  = 12
	lengthBits    = 4
	literalBits   = 1 + 8
	matchBits     = 1 + distanceBits + lengthBits
)

var (
	// ErrCorruptStream indicates a token stream that cannot be decoded.
	ErrCorruptStream = errors.New("corrupt lz77 stream")
)

// Config holds configuration for the compressor.
type Config struct {
	WindowSize int // Bytes searched behind the current position
}

// Option is a functional option for configuring the compressor.
type Option func(*Config)

// WithWindowSize sets how far back matches are searched. Values are clamped
// to [1, MaxWindowSize].
func WithWindowSize(n int) Option {
	return func(c *Config) {
		c.WindowSize = min(max(n, 1), MaxWindowSize)
	}
}

// Token is one literal byte or one back reference.
type Token struct {
	Match    bool
	Literal  byte
	Distance uint16
	Length   uint8
}

func (t Token) String() string {
	if t.Match {
		return fmt.Sprintf("<1, %d, %d>", t.Distance, t.Length)
	}
	return fmt.Sprintf("<0, %d>", t.Literal)
}

// Compressor turns byte text into a token stream.
type Compressor struct {
	config Config
}

// NewCompressor creates a compressor with the given options.
func NewCompressor(opts ...Option) *Compressor {
	cfg := Config{WindowSize: DefaultWindowSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Compressor{config: cfg}
}

// WindowSize returns the configured search window.
func (c *Compressor) WindowSize() int { return c.config.WindowSize }

// Tokens splits data into literals and back references. At each position it
// takes the longest match of at least two bytes; among equally long matches
// the most distant one wins.
func (c *Compressor) Tokens(data []byte) []Token {
	var tokens []Token
	for pos := 0; pos < len(data); {
		distance, length := c.longestMatch(data, pos)
		if length >= minMatchLength {
			tokens = append(tokens, Token{Match: true, Distance: uint16(distance), Length: uint8(length)})
			pos += length
			continue
		}
		tokens = append(tokens, Token{Literal: data[pos]})
		pos++
	}
	return tokens
}

func (c *Compressor) longestMatch(data []byte, pos int) (distance, length int) {
	limit := min(lookaheadSize-1, len(data)-pos)
	for d := min(c.config.WindowSize, pos); d > 0; d-- {
		n := 0
		for n < limit && data[pos+n] == data[pos+n-d] {
			n++
		}
		if n > length {
			distance, length = d, n
		}
	}
	return distance, length
}

// Compress encodes data as a padded token stream.
func (c *Compressor) Compress(data []byte) ([]byte, error) {
	tokens := c.Tokens(data)
	var buf bytes.Buffer
	w := bitio.NewWriter(&buf)
	for _, t := range tokens {
		if err := writeToken(w, t); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	log.Debugf("lz77: %d bytes into %d tokens, %d bytes", len(data), len(tokens), buf.Len())
	return buf.Bytes(), nil
}

func writeToken(w *bitio.Writer, t Token) error {
	if !t.Match {
		if err := w.WriteBool(false); err != nil {
			return err
		}
		return w.WriteByte(t.Literal)
	}
	if err := w.WriteBool(true); err != nil {
		return err
	}
	if err := w.WriteBits(uint64(t.Distance), distanceBits); err != nil {
		return err
	}
	return w.WriteBits(uint64(t.Length), lengthBits)
}

// Decompress decodes a token stream written by Compress.
func Decompress(src []byte) ([]byte, error) {
	return AppendDecompressed(nil, src)
}

// AppendDecompressed decodes src and appends the text to dst. Back
// references may only reach bytes decoded from src itself.
func AppendDecompressed(dst, src []byte) ([]byte, error) {
	start := len(dst)
	r := bitio.NewReader(bytes.NewReader(src))
	remaining := len(src) * 8
	for remaining >= literalBits {
		match, err := r.ReadBool()
		if err != nil {
			return dst, err
		}
		if !match {
			b, err := r.ReadByte()
			if err != nil {
				return dst, err
			}
			dst = append(dst, b)
			remaining -= literalBits
			continue
		}
		if remaining < matchBits {
			return dst, fmt.Errorf("%w: match token cut short at %d bits", ErrCorruptStream, remaining)
		}
		fields, err := r.ReadBits(distanceBits + lengthBits)
		if err != nil {
			return dst, err
		}
		remaining -= matchBits
		distance := int(fields >> lengthBits)
		length := int(fields & (1<<lengthBits - 1))
		produced := len(dst) - start
		if distance == 0 || distance > produced {
			return dst, fmt.Errorf("%w: distance %d with %d bytes decoded", ErrCorruptStream, distance, produced)
		}
		if length == 0 {
			return dst, fmt.Errorf("%w: zero-length match", ErrCorruptStream)
		}
		for i := 0; i < length; i++ {
			dst = append(dst, dst[len(dst)-distance])
		}
	}
	if remaining > 0 {
		tail, err := r.ReadBits(uint8(remaining))
		if err != nil {
			return dst, err
		}
		if tail != 0 {
			return dst, fmt.Errorf("%w: non-zero padding", ErrCorruptStream)
		}
	}
	return dst, nil
}
