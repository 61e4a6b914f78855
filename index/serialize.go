package index

import (
	"encoding/json"
	"fmt"
)

type nodeRecord struct {
	Leaf     bool     `json:"leaf"`
	Keys     []int64  `json:"keys"`
	Values   []string `json:"values,omitempty"`
	Children []int32  `json:"children,omitempty"`
	Next     int32    `json:"next"`
	Hash     string   `json:"hash"`
}

type treeRecord struct {
	Fanout  int          `json:"fanout"`
	MinKeys int          `json:"minKeys"`
	Root    int32        `json:"root"`
	Nodes   []nodeRecord `json:"nodes"`
}

// Encode serializes the whole arena as a flat sequence. The encoding
// preserves every key, value, child reference, and stored hash exactly,
// so Decode reproduces an identical tree.
func (t *Tree) Encode() ([]byte, error) {
	rec := treeRecord{
		Fanout:  t.fanout,
		MinKeys: t.minKeys,
		Root:    t.root,
		Nodes:   make([]nodeRecord, len(t.arena)),
	}
	for i := range t.arena {
		n := &t.arena[i]
		rec.Nodes[i] = nodeRecord{
			Leaf:     n.leaf,
			Keys:     n.keys,
			Values:   n.values,
			Children: n.children,
			Next:     n.next,
			Hash:     n.hash.String(),
		}
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tree: %w", err)
	}
	return data, nil
}

// Decode reconstructs a tree from its Encode form. Stored hashes are kept
// as serialized, not recomputed, so a later VerifyIntegrity still detects
// content tampered with while at rest. Structural invariants are checked
// before the tree is returned.
func Decode(data []byte) (*Tree, error) {
	var rec treeRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode tree: %w", err)
	}

	t := &Tree{
		fanout:  rec.Fanout,
		minKeys: rec.MinKeys,
		root:    rec.Root,
		arena:   make([]node, len(rec.Nodes)),
	}
	if t.fanout <= 0 {
		t.fanout = DefaultFanout
	}
	if t.minKeys <= 0 {
		t.minKeys = DefaultMinKeys
	}
	for i, nr := range rec.Nodes {
		h, err := ParseHash(nr.Hash)
		if err != nil {
			return nil, fmt.Errorf("failed to decode hash for node %d: %w", i, err)
		}
		t.arena[i] = node{
			leaf:     nr.Leaf,
			keys:     nr.Keys,
			values:   nr.Values,
			children: nr.Children,
			next:     nr.Next,
			hash:     h,
		}
	}
	if len(t.arena) == 0 {
		return nil, fmt.Errorf("%w: empty arena", ErrArenaInvariant)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}
