package index

import (
	"fmt"
	"sort"
)

const (
	// DefaultFanout is the maximum number of keys a node may hold before
	// it is split.
	DefaultFanout = 32

	// DefaultMinKeys is the utilization floor: a node holding fewer keys
	// is counted as underutilized by the compaction strategy.
	DefaultMinKeys = 2

	nilNode = int32(-1)
)

// Entry is a single key/value pair stored in the tree.
type Entry struct {
	Key   int64
	Value string
}

// node is either a leaf (parallel keys/values, a forward link to the next
// leaf) or an internal node (separator keys plus len(keys)+1 children).
// All references between nodes are arena indices.
type node struct {
	leaf     bool
	keys     []int64
	values   []string
	children []int32
	next     int32
	hash     Hash
}

// Tree is an ordered map from int64 key to string value, organized as a
// fan-out-bounded B+-tree whose nodes carry content hashes computed
// bottom-up. The root hash authenticates every key, value, and separator
// in the tree.
type Tree struct {
	arena   []node
	root    int32
	fanout  int
	minKeys int
}

// New creates an empty tree with the given fan-out bound. A fanout of
// zero or less selects DefaultFanout.
func New(fanout int) *Tree {
	if fanout <= 0 {
		fanout = DefaultFanout
	}
	t := &Tree{
		fanout:  fanout,
		minKeys: DefaultMinKeys,
	}
	t.root = t.alloc(node{leaf: true, next: nilNode})
	t.recomputeHash(t.root)
	return t
}

// Fanout returns the tree's fan-out bound.
func (t *Tree) Fanout() int {
	return t.fanout
}

// RootHash returns the content hash of the root node, which authenticates
// the whole tree.
func (t *Tree) RootHash() Hash {
	return t.arena[t.root].hash
}

// Size returns the number of stored entries.
func (t *Tree) Size() int {
	count := 0
	for i := range t.arena {
		if t.arena[i].leaf {
			count += len(t.arena[i].keys)
		}
	}
	return count
}

// NodeCount returns the total number of nodes in the arena.
func (t *Tree) NodeCount() int {
	return len(t.arena)
}

// UnderutilizedCount returns the number of nodes holding fewer keys than
// the utilization floor.
func (t *Tree) UnderutilizedCount() int {
	count := 0
	for i := range t.arena {
		if len(t.arena[i].keys) < t.minKeys {
			count++
		}
	}
	return count
}

func (t *Tree) alloc(n node) int32 {
	t.arena = append(t.arena, n)
	return int32(len(t.arena) - 1)
}

// recomputeHash refreshes a node's content hash from its current content
// and, for internal nodes, its children's stored hashes. Callers must
// refresh children before parents.
func (t *Tree) recomputeHash(ni int32) {
	n := &t.arena[ni]
	if n.leaf {
		n.hash = leafHash(n.keys, n.values)
		return
	}
	childHashes := make([]Hash, len(n.children))
	for i, ci := range n.children {
		childHashes[i] = t.arena[ci].hash
	}
	n.hash = internalHash(n.keys, childHashes)
}

// Insert adds a key/value pair. Duplicate keys are rejected with
// ErrDuplicateKey before any mutation takes place. After the insertion
// every node on the descent path has its hash recomputed child-first,
// and a root split grows the tree height by exactly one.
func (t *Tree) Insert(key int64, value string) error {
	promoted, right, split, err := t.insertAt(t.root, key, value)
	if err != nil {
		return err
	}
	if split {
		oldRoot := t.root
		newRoot := t.alloc(node{
			leaf:     false,
			keys:     []int64{promoted},
			children: []int32{oldRoot, right},
			next:     nilNode,
		})
		t.root = newRoot
		t.recomputeHash(newRoot)
	}
	return nil
}

// insertAt descends recursively. When the subtree splits it returns the
// promoted separator key and the arena index of the new right sibling.
func (t *Tree) insertAt(ni int32, key int64, value string) (promoted int64, right int32, split bool, err error) {
	if t.arena[ni].leaf {
		return t.insertLeaf(ni, key, value)
	}

	n := &t.arena[ni]
	pos := sort.Search(len(n.keys), func(i int) bool { return key < n.keys[i] })
	child := n.children[pos]

	childPromoted, childRight, childSplit, err := t.insertAt(child, key, value)
	if err != nil {
		return 0, nilNode, false, err
	}

	// The arena may have grown during the recursive call; re-resolve.
	n = &t.arena[ni]
	if childSplit {
		n.keys = append(n.keys, 0)
		copy(n.keys[pos+1:], n.keys[pos:])
		n.keys[pos] = childPromoted

		n.children = append(n.children, nilNode)
		copy(n.children[pos+2:], n.children[pos+1:])
		n.children[pos+1] = childRight

		if len(n.keys) > t.fanout {
			return t.splitInternal(ni)
		}
	}
	t.recomputeHash(ni)
	return 0, nilNode, false, nil
}

func (t *Tree) insertLeaf(ni int32, key int64, value string) (promoted int64, right int32, split bool, err error) {
	n := &t.arena[ni]
	pos := sort.Search(len(n.keys), func(i int) bool { return n.keys[i] >= key })
	if pos < len(n.keys) && n.keys[pos] == key {
		return 0, nilNode, false, fmt.Errorf("%w: %d", ErrDuplicateKey, key)
	}

	n.keys = append(n.keys, 0)
	copy(n.keys[pos+1:], n.keys[pos:])
	n.keys[pos] = key

	n.values = append(n.values, "")
	copy(n.values[pos+1:], n.values[pos:])
	n.values[pos] = value

	if len(n.keys) > t.fanout {
		return t.splitLeaf(ni)
	}
	t.recomputeHash(ni)
	return 0, nilNode, false, nil
}

// splitLeaf moves the upper half of a leaf into a new right sibling and
// promotes the sibling's first key as the separator. Leaf forward links
// are rethreaded so range scans stay a single pass.
func (t *Tree) splitLeaf(ni int32) (promoted int64, right int32, split bool, err error) {
	mid := len(t.arena[ni].keys) / 2

	rightNode := node{
		leaf:   true,
		keys:   append([]int64(nil), t.arena[ni].keys[mid:]...),
		values: append([]string(nil), t.arena[ni].values[mid:]...),
		next:   t.arena[ni].next,
	}
	ri := t.alloc(rightNode)

	n := &t.arena[ni]
	n.keys = n.keys[:mid]
	n.values = n.values[:mid]
	n.next = ri

	t.recomputeHash(ni)
	t.recomputeHash(ri)
	return t.arena[ri].keys[0], ri, true, nil
}

// splitInternal moves the upper half of an internal node into a new right
// sibling and promotes the median key to the parent.
func (t *Tree) splitInternal(ni int32) (promoted int64, right int32, split bool, err error) {
	mid := len(t.arena[ni].keys) / 2
	promoted = t.arena[ni].keys[mid]

	rightNode := node{
		leaf:     false,
		keys:     append([]int64(nil), t.arena[ni].keys[mid+1:]...),
		children: append([]int32(nil), t.arena[ni].children[mid+1:]...),
		next:     nilNode,
	}
	ri := t.alloc(rightNode)

	n := &t.arena[ni]
	n.keys = n.keys[:mid]
	n.children = n.children[:mid+1]

	t.recomputeHash(ni)
	t.recomputeHash(ri)
	return promoted, ri, true, nil
}

// Search returns the value stored under key, if present.
func (t *Tree) Search(key int64) (string, bool) {
	ni := t.descend(key)
	n := &t.arena[ni]
	pos := sort.Search(len(n.keys), func(i int) bool { return n.keys[i] >= key })
	if pos < len(n.keys) && n.keys[pos] == key {
		return n.values[pos], true
	}
	return "", false
}

// descend walks from the root to the leaf whose separator range contains
// key, returning the leaf's arena index.
func (t *Tree) descend(key int64) int32 {
	ni := t.root
	for !t.arena[ni].leaf {
		n := &t.arena[ni]
		pos := sort.Search(len(n.keys), func(i int) bool { return key < n.keys[i] })
		ni = n.children[pos]
	}
	return ni
}

// RangeQuery returns the values for all keys in [start, end] in key order.
// The scan descends once to the leaf containing start and then follows
// leaf forward links.
func (t *Tree) RangeQuery(start, end int64) []string {
	var values []string
	for _, e := range t.RangeEntries(start, end) {
		values = append(values, e.Value)
	}
	return values
}

// RangeEntries returns the key/value pairs for all keys in [start, end]
// in key order.
func (t *Tree) RangeEntries(start, end int64) []Entry {
	if end < start {
		return nil
	}
	var entries []Entry
	ni := t.descend(start)
	for ni != nilNode {
		n := &t.arena[ni]
		for i, k := range n.keys {
			if k < start {
				continue
			}
			if k > end {
				return entries
			}
			entries = append(entries, Entry{Key: k, Value: n.values[i]})
		}
		ni = n.next
	}
	return entries
}

// Entries returns every stored pair in key order.
func (t *Tree) Entries() []Entry {
	// Walk to the leftmost leaf, then follow the leaf chain.
	ni := t.root
	for !t.arena[ni].leaf {
		ni = t.arena[ni].children[0]
	}
	var entries []Entry
	for ni != nilNode {
		n := &t.arena[ni]
		for i, k := range n.keys {
			entries = append(entries, Entry{Key: k, Value: n.values[i]})
		}
		ni = n.next
	}
	return entries
}

// Height returns the number of levels from root to leaf.
func (t *Tree) Height() int {
	height := 1
	ni := t.root
	for !t.arena[ni].leaf {
		height++
		ni = t.arena[ni].children[0]
	}
	return height
}
