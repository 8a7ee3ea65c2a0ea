package huffman

import (
	"strings"
)

// Code is a bit string of 1 to 255 bits, the root-to-leaf path of a symbol.
// Bits are stored most significant first.
type Code struct {
	words [4]uint64
	n     uint16
}

// Len returns the number of bits in c.
func (c Code) Len() int { return int(c.n) }

// Bit returns bit i of c as 0 or 1.
func (c Code) Bit(i int) uint {
	return uint(c.words[i/64]>>(63-uint(i%64))) & 1
}

// append returns c extended by one bit; c itself is unchanged.
func (c Code) append(bit uint) Code {
	if bit != 0 {
		c.words[c.n/64] |= 1 << (63 - c.n%64)
	}
	c.n++
	return c
}

// HasPrefix reports whether p is a prefix of c.
func (c Code) HasPrefix(p Code) bool {
	if p.n > c.n {
		return false
	}
	for i := 0; i < p.Len(); i++ {
		if c.Bit(i) != p.Bit(i) {
			return false
		}
	}
	return true
}

// String renders c as a string of '0' and '1'.
func (c Code) String() string {
	var sb strings.Builder
	sb.Grow(c.Len())
	for i := 0; i < c.Len(); i++ {
		sb.WriteByte('0' + byte(c.Bit(i)))
	}
	return sb.String()
}

// CodeTable maps each symbol of a tree to its code.
type CodeTable struct {
	codes   [alphabetSize]Code
	present [alphabetSize]bool
	n       int
}

// GenerateCodes walks t depth first and records the path to every leaf,
// 0 for the Zero child and 1 for the One child. A tree that is a single leaf
// gets the one-bit code 0.
func GenerateCodes(t *Tree) *CodeTable {
	ct := &CodeTable{}
	if t == nil || t.root == nil {
		return ct
	}
	if t.root.IsLeaf() {
		ct.set(t.root.symbol, Code{}.append(0))
		return ct
	}
	ct.walk(t.root, Code{})
	return ct
}

func (ct *CodeTable) walk(n *Node, path Code) {
	if n.IsLeaf() {
		ct.set(n.symbol, path)
		return
	}
	ct.walk(n.zero, path.append(0))
	ct.walk(n.one, path.append(1))
}

func (ct *CodeTable) set(s Symbol, c Code) {
	if !ct.present[s] {
		ct.n++
	}
	ct.codes[s] = c
	ct.present[s] = true
}

// Lookup returns the code for s and whether s has one.
func (ct *CodeTable) Lookup(s Symbol) (Code, bool) {
	return ct.codes[s], ct.present[s]
}

// Len returns the number of symbols with a code.
func (ct *CodeTable) Len() int { return ct.n }

// Symbols returns the coded symbols in ascending order.
func (ct *CodeTable) Symbols() []Symbol {
	symbols := make([]Symbol, 0, ct.n)
	for s, ok := range ct.present {
		if ok {
			symbols = append(symbols, Symbol(s))
		}
	}
	return symbols
}

// EncodedBits returns the number of bits needed to encode an input with the
// frequencies in freq, before padding. Symbols without a code are ignored.
func (ct *CodeTable) EncodedBits(freq *FrequencyTable) uint64 {
	var bits uint64
	for _, s := range freq.Symbols() {
		if ct.present[s] {
			bits += freq.Count(s) * uint64(ct.codes[s].n)
		}
	}
	return bits
}
