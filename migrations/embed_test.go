package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsAreEmbedded(t *testing.T) {
	files, err := fs.Glob(FS, "*.sql")
	require.NoError(t, err)
	require.Len(t, files, 2)

	for _, name := range files {
		raw, err := fs.ReadFile(FS, name)
		require.NoError(t, err)
		assert.True(t, strings.Contains(string(raw), "-- +goose Up"), name)
		assert.True(t, strings.Contains(string(raw), "-- +goose Down"), name)
	}
}

func TestVisibleBlocksVersionMigration(t *testing.T) {
	raw, err := fs.ReadFile(FS, "00002_visible_blocks_version.sql")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "ADD COLUMN version INTEGER NOT NULL DEFAULT 1")
}
