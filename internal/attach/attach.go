// Package attach stores photo binaries, addressed by filename. Metadata
// lives in the store; this is the byte side only.
package attach

import (
	"fmt"

	"github.com/hack-pad/hackpadfs"
	"github.com/hack-pad/hackpadfs/mem"
)

// Store is byte-addressable attachment storage keyed by filename.
type Store interface {
	Put(filename string, data []byte) error
	Get(filename string) ([]byte, error)
	Delete(filename string) error
}

// FSStore persists attachments on a hackpadfs filesystem.
type FSStore struct {
	fs hackpadfs.FS
}

// NewFSStore wraps an existing filesystem.
func NewFSStore(fs hackpadfs.FS) *FSStore {
	return &FSStore{fs: fs}
}

// NewMemStore creates an in-memory attachment store for testing.
func NewMemStore() *FSStore {
	fs, err := mem.NewFS()
	if err != nil {
		panic(err) // mem.NewFS cannot fail
	}
	return &FSStore{fs: fs}
}

// Put writes attachment bytes under filename.
func (s *FSStore) Put(filename string, data []byte) error {
	if err := hackpadfs.WriteFullFile(s.fs, filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write attachment %s: %w", filename, err)
	}
	return nil
}

// Get reads attachment bytes by filename.
func (s *FSStore) Get(filename string) ([]byte, error) {
	data, err := hackpadfs.ReadFile(s.fs, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment %s: %w", filename, err)
	}
	return data, nil
}

// Delete removes an attachment.
func (s *FSStore) Delete(filename string) error {
	if err := hackpadfs.Remove(s.fs, filename); err != nil {
		return fmt.Errorf("failed to remove attachment %s: %w", filename, err)
	}
	return nil
}

// Compile-time interface check
var _ Store = (*FSStore)(nil)
