// Package store persists named hierarchies.
//
// This package defines an interface for hierarchy storage with
// implementations for different backends:
//   - file: File-based storage for CLI applications
//   - mongo: MongoDB-backed storage for server deployments
//
// Hierarchies are stored in their canonical JSON form, so a file written
// by one backend can be imported into another.
package store

import (
	"context"

	"github.com/regraft/regraft/pkg/hierarchy"
)

// Store is the interface for hierarchy storage backends.
type Store interface {
	// Get retrieves a hierarchy by name.
	// Returns a HIERARCHY_UNKNOWN_ID error if the name is not stored.
	Get(ctx context.Context, name string) (*hierarchy.Hierarchy, error)

	// Set stores a hierarchy under a name, replacing any previous version.
	Set(ctx context.Context, name string, h *hierarchy.Hierarchy) error

	// Delete removes a stored hierarchy.
	Delete(ctx context.Context, name string) error

	// List returns the stored names in sorted order.
	List(ctx context.Context) ([]string, error)

	// Close releases any resources held by the backend.
	Close(ctx context.Context) error
}
