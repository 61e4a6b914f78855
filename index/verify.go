package index

import "fmt"

// Validate checks the structural invariants of the arena: every child
// reference resolves, internal nodes hold exactly len(keys)+1 children,
// and leaves hold parallel keys and values. A failure is a bug in the
// tree, reported as ErrArenaInvariant.
func (t *Tree) Validate() error {
	if t.root < 0 || int(t.root) >= len(t.arena) {
		return fmt.Errorf("%w: root index %d out of range", ErrArenaInvariant, t.root)
	}
	for i := range t.arena {
		n := &t.arena[i]
		if n.leaf {
			if len(n.keys) != len(n.values) {
				return fmt.Errorf("%w: leaf %d holds %d keys but %d values",
					ErrArenaInvariant, i, len(n.keys), len(n.values))
			}
			if n.next != nilNode && (n.next < 0 || int(n.next) >= len(t.arena)) {
				return fmt.Errorf("%w: leaf %d links to missing leaf %d", ErrArenaInvariant, i, n.next)
			}
			continue
		}
		if len(n.children) != len(n.keys)+1 {
			return fmt.Errorf("%w: internal node %d holds %d keys but %d children",
				ErrArenaInvariant, i, len(n.keys), len(n.children))
		}
		for _, ci := range n.children {
			if ci < 0 || int(ci) >= len(t.arena) {
				return fmt.Errorf("%w: node %d references missing child %d", ErrArenaInvariant, i, ci)
			}
		}
	}
	return nil
}

// VerifyIntegrity recomputes every node's content hash bottom-up from its
// current content and compares it against the stored hash. It returns
// false as soon as any node's stored hash no longer matches its content.
func (t *Tree) VerifyIntegrity() bool {
	if t.Validate() != nil {
		return false
	}
	_, ok := t.verifyNode(t.root)
	return ok
}

func (t *Tree) verifyNode(ni int32) (Hash, bool) {
	n := &t.arena[ni]
	if n.leaf {
		computed := leafHash(n.keys, n.values)
		return computed, computed == n.hash
	}
	childHashes := make([]Hash, len(n.children))
	for i, ci := range n.children {
		ch, ok := t.verifyNode(ci)
		if !ok {
			return Hash{}, false
		}
		childHashes[i] = ch
	}
	computed := internalHash(n.keys, childHashes)
	return computed, computed == n.hash
}
