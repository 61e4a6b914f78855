package ps

import (
	"errors"
	"path"
)

var (
	ErrBlobNotFound        = errors.New("blob not found")
	ErrStoreNotInitialized = errors.New("blob store not initialized")
)

// Store is the checkpoint blob store. Implementations are flat
// content-addressed-by-path stores: a blob is written whole and read
// whole, and paths use forward slashes regardless of backend.
type Store interface {
	// WriteBlob stores data at the given path, replacing any previous
	// blob there.
	WriteBlob(path string, data []byte) error

	// ReadBlob returns the blob at the given path, or ErrBlobNotFound.
	ReadBlob(path string) ([]byte, error)

	// ListBlobs returns the names of blobs directly under dir.
	ListBlobs(dir string) ([]string, error)
}

// ArenaPath is where a named timeline's serialized state lives.
func ArenaPath(name string) string {
	return path.Join("timeline", name+".arena")
}

// RootHashPath is where a named timeline's root hash is pinned. The hash
// is stored separately from the arena so that a reader can check the
// arena against a root it trusts.
func RootHashPath(name string) string {
	return path.Join("integrity", name+".merkle")
}
