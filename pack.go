package huffman

import (
	"bytes"
	"fmt"

	"github.com/icza/bitio"
)

// PackedBuffer is a byte-aligned encoded bit stream. The last Padding bits
// of the final byte are zero filler.
type PackedBuffer struct {
	Bytes   []byte
	Padding uint8
}

// BitLen returns the number of data bits, excluding padding.
func (p *PackedBuffer) BitLen() uint64 {
	if len(p.Bytes) == 0 {
		return 0
	}
	return uint64(len(p.Bytes))*8 - uint64(p.Padding)
}

// Pack concatenates the code of every symbol of data, most significant bit
// first, and pads the result with zero bits to a whole number of bytes.
//
// Every symbol of data must have a code; otherwise the error wraps
// ErrCodeTableMiss. That only happens when codes was derived from a
// different input.
func Pack(data []byte, codes *CodeTable) (*PackedBuffer, error) {
	if codes == nil {
		return nil, fmt.Errorf("%w: no code table", ErrCodeTableMiss)
	}
	var bits uint64
	for i, b := range data {
		code, ok := codes.Lookup(b)
		if !ok {
			return nil, fmt.Errorf("%w: symbol %d at offset %d", ErrCodeTableMiss, b, i)
		}
		bits += uint64(code.n)
	}

	var buf bytes.Buffer
	buf.Grow(int((bits + 7) / 8))
	w := bitio.NewWriter(&buf)
	for _, b := range data {
		if err := writeCode(w, codes.codes[b]); err != nil {
			return nil, err
		}
	}
	padding, err := w.Align()
	if err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	packed := &PackedBuffer{Bytes: buf.Bytes(), Padding: padding}
	if packed.BitLen() != bits {
		return nil, fmt.Errorf("packed %d bits, expected %d", packed.BitLen(), bits)
	}
	return packed, nil
}

func writeCode(w *bitio.Writer, c Code) error {
	remaining := c.Len()
	for _, word := range c.words {
		if remaining == 0 {
			break
		}
		n := remaining
		if n > 64 {
			n = 64
		}
		if err := w.WriteBits(word>>(64-uint(n)), uint8(n)); err != nil {
			return err
		}
		remaining -= n
	}
	return nil
}
