// Package store provides the resource storage interface and SQLite implementation.
package store

import (
	"context"

	"github.com/rcliao/layered-memory/internal/model"
)

// UpdateParams holds parameters for writing a resource.
type UpdateParams struct {
	ID            string
	WorkingMemory *string        // nil leaves the stored value untouched
	Metadata      model.Document // top-level keys are merged over the stored document
}

// ListParams holds parameters for listing resources.
type ListParams struct {
	Prefix string
	Limit  int
}

// Store defines the resource storage interface.
type Store interface {
	// GetResource returns the resource with the given id, or nil if none exists.
	GetResource(ctx context.Context, id string) (*model.Resource, error)

	// UpdateResource creates or updates a resource and returns the stored result.
	UpdateResource(ctx context.Context, p UpdateParams) (*model.Resource, error)

	// Close closes the store.
	Close() error
}
