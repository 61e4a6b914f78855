// Package index implements an arena-backed, Merkle-augmented B+-tree:
// an ordered map from int64 key to string value in which every node
// carries a content hash computed bottom-up, so the root hash
// authenticates the entire tree.
//
// All inter-node references are arena indices rather than pointers, which
// keeps ownership acyclic and makes the whole structure serializable as a
// flat sequence.
//
// # Usage
//
//	t := index.New(32)
//	if err := t.Insert(1000, "first"); err != nil { ... }
//	value, ok := t.Search(1000)
//	values := t.RangeQuery(500, 1500)
//
// # Authentication
//
// Every leaf hash covers the leaf's keys and value digests; every
// internal hash covers the node's separator keys and its children's
// hashes. VerifyIntegrity recomputes the whole structure on demand:
//
//	ok := t.VerifyIntegrity()
//
// # Inclusion proofs
//
// Proof produces a sibling-path proof for one value, verifiable against
// the root hash alone:
//
//	proof, err := t.Proof(1000)
//	valid := proof.Verify(t.RootHash())
package index
