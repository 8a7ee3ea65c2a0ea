package huffman

import (
	"container/heap"

	"github.com/op/go-logging"
)

// Node is a vertex of a Huffman tree. A leaf carries a symbol; an internal
// node carries the summed weight of exactly two children. Nodes are never
// modified after the tree is built.
type Node struct {
	weight    uint64
	symbol    Symbol
	zero, one *Node
}

// IsLeaf reports whether n carries a symbol.
func (n *Node) IsLeaf() bool { return n.zero == nil }

// Symbol returns the leaf's symbol. It is meaningless for internal nodes.
func (n *Node) Symbol() Symbol { return n.symbol }

// Weight returns the frequency of a leaf or the summed frequency of a subtree.
func (n *Node) Weight() uint64 { return n.weight }

// Zero returns the child reached by a 0 bit, or nil for a leaf.
func (n *Node) Zero() *Node { return n.zero }

// One returns the child reached by a 1 bit, or nil for a leaf.
func (n *Node) One() *Node { return n.one }

// Tree is a Huffman tree. It is safe for concurrent read-only use.
type Tree struct {
	root   *Node
	leaves int
}

// Root returns the root node.
func (t *Tree) Root() *Node { return t.root }

// Leaves returns the number of symbols in the tree.
func (t *Tree) Leaves() int { return t.leaves }

// Codes derives the code table for t.
func (t *Tree) Codes() *CodeTable { return GenerateCodes(t) }

// BuildTree builds the Huffman tree for freq.
//
// Nodes are merged lowest weight first. Equal weights are ordered by
// creation: leaves in ascending symbol order, then internal nodes in the
// order they were made. Of each merged pair, the first node removed becomes
// the One child and the second the Zero child.
//
// A single-symbol table yields a tree whose root is that leaf; its code is
// the single bit 0.
func BuildTree(freq *FrequencyTable) (*Tree, error) {
	if freq == nil || freq.Len() == 0 {
		return nil, ErrEmptyAlphabet
	}
	h := newNodeHeap(freq)
	seq := len(h)
	for h.Len() > 1 {
		a := heap.Pop(&h).(heapItem)
		b := heap.Pop(&h).(heapItem)
		heap.Push(&h, heapItem{
			seq: seq,
			node: &Node{
				weight: a.node.weight + b.node.weight,
				one:    a.node,
				zero:   b.node,
			},
		})
		seq++
	}
	root := heap.Pop(&h).(heapItem).node
	if log.IsEnabledFor(logging.DEBUG) {
		log.Debugf("built tree over %d symbols, weight %d", freq.Len(), root.weight)
	}
	return &Tree{root: root, leaves: freq.Len()}, nil
}

// Heap of tree nodes, a priority queue used during tree building.

type heapItem struct {
	seq  int
	node *Node
}

type nodeHeap []heapItem

func newNodeHeap(freq *FrequencyTable) nodeHeap {
	h := make(nodeHeap, 0, freq.Len())
	for i, s := range freq.Symbols() {
		h = append(h, heapItem{
			seq:  i,
			node: &Node{weight: freq.Count(s), symbol: s},
		})
	}
	heap.Init(&h)
	return h
}

func (h nodeHeap) Len() int { return len(h) }
func (h nodeHeap) Less(i, j int) bool {
	if h[i].node.weight != h[j].node.weight {
		return h[i].node.weight < h[j].node.weight
	}
	return h[i].seq < h[j].seq
}
func (h nodeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *nodeHeap) Push(x any) {
	*h = append(*h, x.(heapItem))
}

func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}
