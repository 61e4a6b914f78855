package index

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Hash is a SHA-256 content digest.
type Hash [sha256.Size]byte

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// ParseHash decodes the hex form produced by Hash.String.
func ParseHash(s string) (Hash, error) {
	var h Hash
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, err
	}
	if len(raw) != sha256.Size {
		return Hash{}, errHashLength
	}
	copy(h[:], raw)
	return h, nil
}

// ValueHash is the digest of a single stored value. It is the target hash
// of inclusion proofs for that value.
func ValueHash(value string) Hash {
	return sha256.Sum256([]byte(value))
}

// chainSeed hashes a node's canonical header: a leaf/internal flag, the
// node's keys joined by commas, and a terminating separator. The header
// digest anchors the chained content hash so that keys are authenticated
// alongside values and child hashes.
func chainSeed(leaf bool, keys []int64) Hash {
	var b bytes.Buffer
	if leaf {
		b.WriteByte('L')
	} else {
		b.WriteByte('I')
	}
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(k, 10))
	}
	b.WriteByte('|')
	return sha256.Sum256(b.Bytes())
}

// chainHash folds the next element digest into the accumulated digest.
// Inclusion proofs replay exactly this combination, so the order here and
// in MerkleProof.Verify must never diverge.
func chainHash(acc, next Hash) Hash {
	h := sha256.New()
	h.Write(acc[:])
	h.Write(next[:])
	var out Hash
	h.Sum(out[:0])
	return out
}

// leafHash computes the content hash of a leaf: the header seed chained
// with the digest of every value in key order.
func leafHash(keys []int64, values []string) Hash {
	acc := chainSeed(true, keys)
	for _, v := range values {
		acc = chainHash(acc, ValueHash(v))
	}
	return acc
}

// internalHash computes the content hash of an internal node: the header
// seed chained with every child's content hash, left to right. Hashing the
// children's hashes, not their arena indices, is what makes the root hash
// authenticate the entire subtree.
func internalHash(keys []int64, childHashes []Hash) Hash {
	acc := chainSeed(false, keys)
	for _, ch := range childHashes {
		acc = chainHash(acc, ch)
	}
	return acc
}
