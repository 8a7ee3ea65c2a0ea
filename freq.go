package huffman

import (
	"fmt"
	"math"
	"sort"
)

// FrequencyTable maps each symbol present in some input to its occurrence
// count. It is read-only once constructed.
type FrequencyTable struct {
	counts   [alphabetSize]uint64
	distinct int
	total    uint64
}

// SymbolCount pairs a symbol with its count.
type SymbolCount struct {
	Symbol Symbol
	Count  uint64
}

// CountFrequencies scans data one byte at a time, newlines included, and
// returns the count of every symbol seen. Empty input yields an empty table.
func CountFrequencies(data []byte) *FrequencyTable {
	ft := &FrequencyTable{}
	ft.add(data)
	return ft
}

// NewFrequencyTable builds a table from explicit counts. Zero counts are
// rejected, as are tables whose total does not fit in a uint64.
func NewFrequencyTable(counts map[Symbol]uint64) (*FrequencyTable, error) {
	ft := &FrequencyTable{}
	for s, c := range counts {
		if c == 0 {
			return nil, fmt.Errorf("zero count for symbol %d", s)
		}
		if ft.total > math.MaxUint64-c {
			return nil, fmt.Errorf("frequency total overflows at symbol %d", s)
		}
		ft.counts[s] = c
		ft.total += c
		ft.distinct++
	}
	return ft, nil
}

// add is only used while a table is being built.
func (ft *FrequencyTable) add(data []byte) {
	for _, b := range data {
		if ft.counts[b] == 0 {
			ft.distinct++
		}
		ft.counts[b]++
	}
	ft.total += uint64(len(data))
}

// Count returns the number of occurrences of s.
func (ft *FrequencyTable) Count(s Symbol) uint64 {
	return ft.counts[s]
}

// Len returns the number of distinct symbols.
func (ft *FrequencyTable) Len() int {
	return ft.distinct
}

// Total returns the sum of all counts.
func (ft *FrequencyTable) Total() uint64 {
	return ft.total
}

// Symbols returns the distinct symbols in ascending order.
func (ft *FrequencyTable) Symbols() []Symbol {
	symbols := make([]Symbol, 0, ft.distinct)
	for s, c := range ft.counts {
		if c > 0 {
			symbols = append(symbols, Symbol(s))
		}
	}
	return symbols
}

// ByFrequency returns the symbols ordered by descending count, ties broken by
// ascending symbol value.
func (ft *FrequencyTable) ByFrequency() []SymbolCount {
	entries := make([]SymbolCount, 0, ft.distinct)
	for _, s := range ft.Symbols() {
		entries = append(entries, SymbolCount{Symbol: s, Count: ft.counts[s]})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})
	return entries
}

// Equal reports whether both tables hold the same counts.
func (ft *FrequencyTable) Equal(other *FrequencyTable) bool {
	if ft == nil || other == nil {
		return ft == other
	}
	return ft.counts == other.counts
}
