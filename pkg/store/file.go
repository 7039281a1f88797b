package store

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	rerr "github.com/regraft/regraft/pkg/errors"
	"github.com/regraft/regraft/pkg/hierarchy"
)

// FileStore keeps each hierarchy as a JSON file in a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a file-based store in the given directory.
// The directory will be created if it doesn't exist.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

// validateName extends the identifier rules with path safety, since store
// names become file names.
func validateName(name string) error {
	if err := rerr.ValidateID(name); err != nil {
		return err
	}
	if strings.ContainsAny(name, "/\\") || name != filepath.Base(name) {
		return rerr.New(rerr.ErrCodeInvalidInput, "store name %q must not contain path separators", name)
	}
	return nil
}

// Get retrieves a hierarchy by name.
func (s *FileStore) Get(ctx context.Context, name string) (*hierarchy.Hierarchy, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	path := s.path(name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, rerr.New(rerr.ErrCodeUnknownID, "hierarchy %q is not stored", name)
	}
	return hierarchy.ReadFile(path)
}

// Set stores a hierarchy under a name.
func (s *FileStore) Set(ctx context.Context, name string, h *hierarchy.Hierarchy) error {
	if err := validateName(name); err != nil {
		return err
	}
	return hierarchy.WriteFile(h, s.path(name))
}

// Delete removes a stored hierarchy. Deleting a missing name is not an error.
func (s *FileStore) Delete(ctx context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	err := os.Remove(s.path(name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// List returns the stored names in sorted order.
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// Close does nothing for file stores.
func (s *FileStore) Close(ctx context.Context) error {
	return nil
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// Ensure FileStore implements Store.
var _ Store = (*FileStore)(nil)
