package index

import "errors"

var (
	// ErrDuplicateKey is returned by Insert when the key is already present.
	// The caller decides whether to skip or treat it as fatal.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrKeyNotFound is returned by proof generation for an absent key.
	ErrKeyNotFound = errors.New("key not found")

	// ErrArenaInvariant indicates a malformed arena: a dangling child
	// reference or an internal node whose children and keys disagree.
	// It signals a bug, not a recoverable condition.
	ErrArenaInvariant = errors.New("arena invariant violated")

	errHashLength = errors.New("hash has wrong length")
)
