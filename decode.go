package huffman

import (
	"bytes"
	"fmt"

	"github.com/icza/bitio"
)

// Unpack decodes buf with the tree that produced its codes.
func Unpack(buf *PackedBuffer, t *Tree) ([]byte, error) {
	return AppendUnpacked(nil, buf, t)
}

// AppendUnpacked decodes buf with t and appends the symbols to dst.
//
// The padding bits are dropped and the remaining bits must walk the tree
// from root to leaf an exact number of times. Any other outcome, including
// non-zero filler, is reported as ErrCorruptStream. On error dst is returned
// with whatever was decoded before the failure.
func AppendUnpacked(dst []byte, buf *PackedBuffer, t *Tree) ([]byte, error) {
	if t == nil || t.root == nil {
		return dst, fmt.Errorf("%w: no tree", ErrCorruptStream)
	}
	if buf == nil {
		return dst, fmt.Errorf("%w: no buffer", ErrCorruptStream)
	}
	if buf.Padding > 7 {
		return dst, fmt.Errorf("%w: padding %d out of range", ErrCorruptStream, buf.Padding)
	}
	if len(buf.Bytes) == 0 {
		if buf.Padding != 0 {
			return dst, fmt.Errorf("%w: padding %d on empty buffer", ErrCorruptStream, buf.Padding)
		}
		return dst, nil
	}
	if last := buf.Bytes[len(buf.Bytes)-1]; last&(1<<buf.Padding-1) != 0 {
		return dst, fmt.Errorf("%w: non-zero padding bits %08b", ErrCorruptStream, last)
	}

	r := bitio.NewReader(bytes.NewReader(buf.Bytes))
	bits := buf.BitLen()
	root := t.root

	if root.IsLeaf() {
		for i := uint64(0); i < bits; i++ {
			bit, err := r.ReadBool()
			if err != nil {
				return dst, err
			}
			if bit {
				return dst, fmt.Errorf("%w: bit %d is 1 for a single-symbol code", ErrCorruptStream, i)
			}
			dst = append(dst, root.symbol)
		}
		return dst, nil
	}

	node := root
	for i := uint64(0); i < bits; i++ {
		bit, err := r.ReadBool()
		if err != nil {
			return dst, err
		}
		if bit {
			node = node.one
		} else {
			node = node.zero
		}
		if node.IsLeaf() {
			dst = append(dst, node.symbol)
			node = root
		}
	}
	if node != root {
		return dst, fmt.Errorf("%w: stream ends inside a code after %d bits", ErrCorruptStream, bits)
	}
	return dst, nil
}
