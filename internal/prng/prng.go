// Package prng provides a small deterministic generator for reproducible
// test inputs.
package prng

// LCG is a linear congruential generator with the Numerical Recipes 64-bit
// constants. Equal seeds give equal sequences on every platform.
type LCG struct {
	state uint64
}

// New creates a generator with the given seed.
func New(seed uint64) *LCG {
	return &LCG{state: seed}
}

// Next advances the generator and returns its state.
func (p *LCG) Next() uint64 {
	p.state = p.state*6364136223846793005 + 1442695040888963407
	return p.state
}

// Uint64N returns a number in [0, n).
func (p *LCG) Uint64N(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	// high bits have the longer period
	return (p.Next() >> 32) % n
}

// Bytes returns n bytes drawn from alphabet.
func (p *LCG) Bytes(n int, alphabet []byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = alphabet[p.Uint64N(uint64(len(alphabet)))]
	}
	return out
}

// Skewed returns n bytes drawn from alphabet where earlier symbols are more
// likely, roughly halving in probability from one symbol to the next.
func (p *LCG) Skewed(n int, alphabet []byte) []byte {
	out := make([]byte, n)
	for i := range out {
		j := 0
		for j < len(alphabet)-1 && p.Next()>>63 == 1 {
			j++
		}
		out[i] = alphabet[j]
	}
	return out
}
