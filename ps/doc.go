// Package ps provides the checkpoint blob stores. A timeline checkpoint
// is two blobs: the serialized commit tree arena and a separately pinned
// root hash, written through the Store interface.
//
//	store := ps.NewMemoryStore()
//	store.WriteBlob(ps.ArenaPath("ledger"), arena)
//	store.WriteBlob(ps.RootHashPath("ledger"), []byte(root))
//
// Four backends are available:
//
//   - NewMemoryStore: in-memory filesystem, for tests and ephemeral use
//   - NewFileStore: plain files under a local directory
//   - NewGitMemoryStore / NewGitFileStore: a git object store where every
//     checkpoint becomes a commit, keeping the full checkpoint history
//   - NewS3Store: objects under a prefix in an S3 bucket
//
// The arena and root hash are stored as separate blobs so a reader can
// hold the root it trusts apart from the bulk data it is verifying.
package ps
