package ps

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/cache"
	"github.com/go-git/go-git/v6/plumbing/filemode"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/go-git/go-git/v6/storage/filesystem"
	"github.com/go-git/go-git/v6/storage/memory"

	"github.com/grizzlydb/LedgerDB/core"
)

// GitStore keeps checkpoints in a git object store, one commit per
// WriteBlob. The git history becomes an audit trail of every checkpoint
// ever taken, and any past checkpoint remains reachable through it.
//
// Blobs are written with the low-level plumbing API, never through a
// worktree: the store hashes the blob, rebuilds the affected trees, and
// advances the branch head directly.
type GitStore struct {
	mu       sync.Mutex
	repo     *git.Repository
	identity core.Identity
	last     Checkpoint
}

// Checkpoint identifies one recorded checkpoint commit.
type Checkpoint struct {
	ID   string
	When time.Time
}

// NewGitMemoryStore creates a git-backed store held entirely in memory.
func NewGitMemoryStore(identity core.Identity) (*GitStore, error) {
	repo, err := git.Init(memory.NewStorage(), git.WithWorkTree(memfs.New()))
	if err != nil {
		return nil, err
	}
	return &GitStore{repo: repo, identity: identity}, nil
}

// NewGitFileStore creates or reopens a git-backed store under baseDir.
func NewGitFileStore(baseDir string, identity core.Identity) (*GitStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	wt := osfs.New(baseDir)
	fs, err := wt.Chroot(".git")
	if err != nil {
		return nil, err
	}

	storer := filesystem.NewStorageWithOptions(
		fs,
		cache.NewObjectLRUDefault(),
		filesystem.Options{ExclusiveAccess: true})

	var repo *git.Repository
	if _, statErr := os.Stat(fs.Root()); statErr != nil {
		repo, err = git.Init(storer, git.WithWorkTree(wt))
	} else {
		repo, err = git.Open(storer, wt)
	}
	if err != nil {
		return nil, err
	}

	return &GitStore{repo: repo, identity: identity}, nil
}

// LastCheckpoint returns the most recent checkpoint written through this
// store instance.
func (s *GitStore) LastCheckpoint() Checkpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *GitStore) WriteBlob(blobPath string, data []byte) error {
	if s == nil || s.repo == nil {
		return ErrStoreNotInitialized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	blobHash, err := s.createBlob(data)
	if err != nil {
		return err
	}

	currentTree, err := s.currentTree()
	if err != nil {
		return err
	}

	newTree, err := s.updateTreePath(currentTree, blobPath, blobHash)
	if err != nil {
		return fmt.Errorf("failed to update tree: %w", err)
	}

	checkpoint, err := s.commitTree(newTree, fmt.Sprintf("checkpoint %s", blobPath))
	if err != nil {
		return err
	}

	s.last = checkpoint
	return nil
}

func (s *GitStore) ReadBlob(blobPath string) ([]byte, error) {
	if s == nil || s.repo == nil {
		return nil, ErrStoreNotInitialized
	}

	tree, err := s.headTree()
	if err != nil || tree == nil {
		return nil, ErrBlobNotFound
	}

	file, err := tree.File(blobPath)
	if err != nil {
		return nil, ErrBlobNotFound
	}

	content, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read blob contents: %w", err)
	}
	return []byte(content), nil
}

func (s *GitStore) ListBlobs(dir string) ([]string, error) {
	if s == nil || s.repo == nil {
		return nil, ErrStoreNotInitialized
	}

	tree, err := s.headTree()
	if err != nil || tree == nil {
		return nil, nil
	}

	target := tree
	if dir != "" && dir != "." {
		target, err = tree.Tree(dir)
		if err != nil {
			return nil, nil
		}
	}

	var names []string
	for _, entry := range target.Entries {
		if entry.Mode != filemode.Dir {
			names = append(names, entry.Name)
		}
	}
	return names, nil
}

// headTree returns the tree of the HEAD commit, or nil before the first
// checkpoint.
func (s *GitStore) headTree() (*object.Tree, error) {
	headRef, err := s.repo.Head()
	if err != nil {
		return nil, nil
	}

	commit, err := s.repo.CommitObject(headRef.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get head commit: %w", err)
	}
	return commit.Tree()
}

// createBlob writes a blob object straight into the object store.
func (s *GitStore) createBlob(data []byte) (plumbing.Hash, error) {
	obj := s.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(data)))

	writer, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to create blob writer: %w", err)
	}
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return plumbing.ZeroHash, fmt.Errorf("failed to write blob data: %w", err)
	}
	writer.Close()

	hash, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store blob: %w", err)
	}
	return hash, nil
}

// currentTree returns the HEAD commit's tree hash, or ZeroHash before the
// first checkpoint.
func (s *GitStore) currentTree() (plumbing.Hash, error) {
	headRef, err := s.repo.Head()
	if err != nil {
		return plumbing.ZeroHash, nil
	}

	commit, err := s.repo.CommitObject(headRef.Hash())
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to get head commit: %w", err)
	}
	return commit.TreeHash, nil
}

// updateTreePath sets a blob at a (possibly nested) path and returns the
// new root tree hash.
func (s *GitStore) updateTreePath(treeHash plumbing.Hash, blobPath string, blobHash plumbing.Hash) (plumbing.Hash, error) {
	parts := strings.Split(blobPath, "/")
	if len(parts) == 0 || parts[0] == "" {
		return plumbing.ZeroHash, fmt.Errorf("empty path")
	}
	return s.updateTreeRecursive(treeHash, parts, blobHash)
}

func (s *GitStore) updateTreeRecursive(treeHash plumbing.Hash, pathParts []string, blobHash plumbing.Hash) (plumbing.Hash, error) {
	entries, err := s.treeEntries(treeHash)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	name := pathParts[0]
	if len(pathParts) == 1 {
		entries[name] = object.TreeEntry{
			Name: name,
			Mode: filemode.Regular,
			Hash: blobHash,
		}
	} else {
		subTreeHash := plumbing.ZeroHash
		if existing, ok := entries[name]; ok && existing.Mode == filemode.Dir {
			subTreeHash = existing.Hash
		}

		newSubTreeHash, err := s.updateTreeRecursive(subTreeHash, pathParts[1:], blobHash)
		if err != nil {
			return plumbing.ZeroHash, err
		}

		entries[name] = object.TreeEntry{
			Name: name,
			Mode: filemode.Dir,
			Hash: newSubTreeHash,
		}
	}

	return s.buildTree(entries)
}

func (s *GitStore) treeEntries(treeHash plumbing.Hash) (map[string]object.TreeEntry, error) {
	entries := make(map[string]object.TreeEntry)
	if treeHash == plumbing.ZeroHash {
		return entries, nil
	}

	tree, err := object.GetTree(s.repo.Storer, treeHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}
	for _, entry := range tree.Entries {
		entries[entry.Name] = entry
	}
	return entries, nil
}

func (s *GitStore) buildTree(entryMap map[string]object.TreeEntry) (plumbing.Hash, error) {
	entries := make([]object.TreeEntry, 0, len(entryMap))
	for _, entry := range entryMap {
		entries = append(entries, entry)
	}

	// Git requires directory entries to sort with a trailing slash.
	sort.Slice(entries, func(i, j int) bool {
		nameI, nameJ := entries[i].Name, entries[j].Name
		if entries[i].Mode == filemode.Dir {
			nameI += "/"
		}
		if entries[j].Mode == filemode.Dir {
			nameJ += "/"
		}
		return nameI < nameJ
	})

	tree := &object.Tree{Entries: entries}
	obj := s.repo.Storer.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to encode tree: %w", err)
	}

	hash, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store tree: %w", err)
	}
	return hash, nil
}

// commitTree records a commit pointing at treeHash and advances the
// current branch to it.
func (s *GitStore) commitTree(treeHash plumbing.Hash, message string) (Checkpoint, error) {
	var parentHashes []plumbing.Hash
	headRef, err := s.repo.Head()
	if err == nil {
		parentHashes = []plumbing.Hash{headRef.Hash()}
	}

	sig := object.Signature{
		Name:  s.identity.Name,
		Email: s.identity.Email,
		When:  time.Now(),
	}

	commit := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      message,
		TreeHash:     treeHash,
		ParentHashes: parentHashes,
	}

	obj := s.repo.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return Checkpoint{}, fmt.Errorf("failed to encode commit: %w", err)
	}

	commitHash, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("failed to store commit: %w", err)
	}

	branchName := plumbing.Master
	if headRef != nil && headRef.Name().IsBranch() {
		branchName = headRef.Name()
	}

	ref := plumbing.NewHashReference(branchName, commitHash)
	if err := s.repo.Storer.SetReference(ref); err != nil {
		return Checkpoint{}, fmt.Errorf("failed to update HEAD: %w", err)
	}

	return Checkpoint{
		ID:   commitHash.String(),
		When: sig.When,
	}, nil
}
