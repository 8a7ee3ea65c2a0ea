package huffman

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

const treeCacheSize = 128

// treeCache holds trees rebuilt for deserialized archives, keyed by the raw
// frequency encoding. Trees are immutable, so sharing them is safe.
var treeCache = mustNewTreeCache(treeCacheSize)

func mustNewTreeCache(size int) *lru.Cache[string, *Tree] {
	c, err := lru.New[string, *Tree](size)
	if err != nil {
		panic(err)
	}
	return c
}

func cachedTree(ft *FrequencyTable) (*Tree, error) {
	key := string(encodeFrequencies(ft))
	if tree, ok := treeCache.Get(key); ok {
		return tree, nil
	}
	tree, err := BuildTree(ft)
	if err != nil {
		return nil, err
	}
	treeCache.Add(key, tree)
	return tree, nil
}
