package store

import (
	"context"

	"github.com/rcliao/layered-memory/internal/model"
)

// ExportAll returns all resources, optionally filtered by id prefix.
func (s *SQLiteStore) ExportAll(ctx context.Context, prefix string) ([]model.Resource, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+resourceColumns+` FROM resources WHERE id LIKE ? ESCAPE '\' ORDER BY id`,
		likePrefix(prefix))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var resources []model.Resource
	for rows.Next() {
		r, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		resources = append(resources, r)
	}
	return resources, rows.Err()
}

// Import writes resources from an export. Metadata is merged over any
// existing document with the same id.
func (s *SQLiteStore) Import(ctx context.Context, resources []model.Resource) (int, error) {
	imported := 0
	for _, r := range resources {
		_, err := s.UpdateResource(ctx, UpdateParams{
			ID:            r.ID,
			WorkingMemory: r.WorkingMemory,
			Metadata:      r.Metadata,
		})
		if err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}
