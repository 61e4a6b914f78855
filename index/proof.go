package index

import (
	"fmt"
	"sort"
)

// MerkleProof proves that one value is included in the tree. ProofHashes
// holds sibling digests ordered leaf to root; IsLeft records, for each
// sibling, whether it sits to the left of the accumulated digest. The
// proof is created per request and never persisted.
type MerkleProof struct {
	TargetHash  Hash   `json:"targetHash"`
	ProofHashes []Hash `json:"proofHashes"`
	IsLeft      []bool `json:"isLeft"`
}

// Verify replays the proof against a claimed root hash. Starting from the
// target digest, each sibling is folded in on its recorded side using the
// same combination the tree uses for content hashing; the proof holds iff
// the final digest equals root.
func (p MerkleProof) Verify(root Hash) bool {
	if len(p.ProofHashes) != len(p.IsLeft) {
		return false
	}
	current := p.TargetHash
	for i, sibling := range p.ProofHashes {
		if p.IsLeft[i] {
			current = chainHash(sibling, current)
		} else {
			current = chainHash(current, sibling)
		}
	}
	return current == root
}

// Proof builds an inclusion proof for the value stored under key. The
// descent path is recorded during this traversal; nodes keep no parent
// back-references.
//
// Each level contributes one left sibling, the fold of the node's header
// seed with every element digest before the path position, followed by
// one right sibling per element after it. Verification therefore
// reconstructs each node's content hash exactly as recomputeHash does.
func (t *Tree) Proof(key int64) (MerkleProof, error) {
	type step struct {
		node int32
		pos  int
	}
	var path []step

	ni := t.root
	for !t.arena[ni].leaf {
		n := &t.arena[ni]
		pos := sort.Search(len(n.keys), func(i int) bool { return key < n.keys[i] })
		path = append(path, step{node: ni, pos: pos})
		ni = n.children[pos]
	}

	leaf := &t.arena[ni]
	pos := sort.Search(len(leaf.keys), func(i int) bool { return leaf.keys[i] >= key })
	if pos >= len(leaf.keys) || leaf.keys[pos] != key {
		return MerkleProof{}, fmt.Errorf("%w: %d", ErrKeyNotFound, key)
	}

	proof := MerkleProof{TargetHash: ValueHash(leaf.values[pos])}

	// Within the leaf: fold the header and preceding value digests into a
	// single left sibling, then emit the trailing value digests.
	prefix := chainSeed(true, leaf.keys)
	for i := 0; i < pos; i++ {
		prefix = chainHash(prefix, ValueHash(leaf.values[i]))
	}
	proof.append(prefix, true)
	for i := pos + 1; i < len(leaf.values); i++ {
		proof.append(ValueHash(leaf.values[i]), false)
	}

	// Ascend the recorded path, leaf's parent first.
	for level := len(path) - 1; level >= 0; level-- {
		n := &t.arena[path[level].node]
		taken := path[level].pos

		prefix := chainSeed(false, n.keys)
		for i := 0; i < taken; i++ {
			prefix = chainHash(prefix, t.arena[n.children[i]].hash)
		}
		proof.append(prefix, true)
		for i := taken + 1; i < len(n.children); i++ {
			proof.append(t.arena[n.children[i]].hash, false)
		}
	}

	return proof, nil
}

func (p *MerkleProof) append(sibling Hash, isLeft bool) {
	p.ProofHashes = append(p.ProofHashes, sibling)
	p.IsLeft = append(p.IsLeft, isLeft)
}
