// Package huffman compresses byte text with Huffman coding.
//
// The pipeline is CountFrequencies, BuildTree, GenerateCodes, Pack and, in
// reverse, Unpack. Encoder runs the whole pipeline once per input; Model
// trains a code on samples and reuses it.
//
// Codes are deterministic: equal weights are merged in creation order
// (leaves by ascending symbol, then internal nodes as they are made), and of
// each merged pair the first node removed is reached with bit 1. For the
// input "abb" this gives a=1, b=0 and the single packed byte 0x80 with five
// padding bits.
//
// An Archive can be decoded in the same process through the tree it holds,
// or written with WriteTo and decoded later after ReadFrom, which rebuilds
// the tree from the stored frequency table. The archive stores the padding
// count and symbol count next to the packed bytes; see archive.go for the
// layout.
package huffman
