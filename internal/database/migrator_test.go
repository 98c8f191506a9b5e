package database

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListMigrationsSortsAndFilters(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/0002_b.up.sql":   {Data: []byte("SELECT 2;")},
		"sql/0001_a.up.sql":   {Data: []byte("SELECT 1;")},
		"sql/0001_a.down.sql": {Data: []byte("SELECT 0;")},
		"sql/README.md":       {Data: []byte("notes")},
		"sql/nested/x.up.sql": {Data: []byte("SELECT 3;")},
	}

	names, err := ListMigrations(fsys, "sql")
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_a.up.sql", "0002_b.up.sql"}, names)
}

func TestListMigrationsMissingDir(t *testing.T) {
	_, err := ListMigrations(fstest.MapFS{}, "nope")
	assert.Error(t, err)
}

func TestEmbeddedMigrations(t *testing.T) {
	names, err := ListMigrations(Migrations(), ".")
	require.NoError(t, err)
	require.Equal(t, []string{"0001_init.up.sql", "0002_seed_products.up.sql"}, names)

	schema, err := Migrations().Open("0001_init.up.sql")
	require.NoError(t, err)
	require.NoError(t, schema.Close())
}
