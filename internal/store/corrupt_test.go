package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAllSurfacesCorruptBlob(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "batch_tasks.db"), nil)
	require.NoError(t, err)
	defer s.Close()

	// A row written by something else with a malformed items blob.
	err = s.db.Exec(`INSERT INTO batch_tasks
		(id, name, type, status, progress, total_items, completed_items, failed_items,
		 created_at, config_json, items_json, results_json)
		VALUES ('bad', 'broken', 'text-to-image', 'pending', 0, 0, 0, 0,
		 '2025-01-01T00:00:00Z', '{}', 'not json at all', '[]')`).Error
	require.NoError(t, err)

	_, err = s.GetAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
	assert.Contains(t, err.Error(), "items")
}
