package ps

import (
	"errors"
	"io"
	"os"
	"path"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"
)

// FilesystemStore keeps blobs as plain files on a billy filesystem. The
// same code path serves both the in-memory store used by tests and the
// on-disk store used by local deployments.
type FilesystemStore struct {
	fs billy.Filesystem
}

// NewMemoryStore creates a store backed by an in-memory filesystem.
func NewMemoryStore() *FilesystemStore {
	return &FilesystemStore{fs: memfs.New()}
}

// NewFileStore creates a store rooted at baseDir, creating it if needed.
func NewFileStore(baseDir string) (*FilesystemStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}
	return &FilesystemStore{fs: osfs.New(baseDir)}, nil
}

func (s *FilesystemStore) WriteBlob(blobPath string, data []byte) error {
	if s == nil || s.fs == nil {
		return ErrStoreNotInitialized
	}

	if dir := path.Dir(blobPath); dir != "." {
		if err := s.fs.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	f, err := s.fs.Create(blobPath)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *FilesystemStore) ReadBlob(blobPath string) ([]byte, error) {
	if s == nil || s.fs == nil {
		return nil, ErrStoreNotInitialized
	}

	f, err := s.fs.Open(blobPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrBlobNotFound
		}
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *FilesystemStore) ListBlobs(dir string) ([]string, error) {
	if s == nil || s.fs == nil {
		return nil, ErrStoreNotInitialized
	}

	infos, err := s.fs.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, info := range infos {
		if !info.IsDir() {
			names = append(names, info.Name())
		}
	}
	return names, nil
}
