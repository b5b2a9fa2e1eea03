package migration

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add unit notes", "add_unit_notes"},
		{"Add-Unit-Notes", "add_unit_notes"},
		{"ADD__UNIT__NOTES", "add_unit_notes"},
		{"index 2 links", "index_2_links"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"_leading and trailing_", "leading_and_trailing"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestParseFilename(t *testing.T) {
	version, name, direction, ok := parseFilename("000002_create_invoices.up.sql")
	require.True(t, ok)
	assert.Equal(t, uint(2), version)
	assert.Equal(t, "create_invoices", name)
	assert.Equal(t, "up", direction)

	for _, bad := range []string{"README.md", "000002.up.sql", "abc_name.up.sql", "000002_name.sideways.sql", "000002_name.sql"} {
		_, _, _, ok := parseFilename(bad)
		assert.False(t, ok, bad)
	}
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"000010_later.up.sql":    {},
		"000002_second.up.sql":   {},
		"000002_second.down.sql": {},
		"000001_first.up.sql":    {},
		"notes.txt":              {},
	}

	entries, err := ListMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, Entry{Version: 1, Name: "first"}, entries[0])
	assert.Equal(t, Entry{Version: 2, Name: "second", HasDown: true}, entries[1])
	assert.Equal(t, "000010_later", entries[2].Basename())

	next, err := NextVersion(fsys)
	require.NoError(t, err)
	assert.Equal(t, uint(11), next)
}

func TestEmbeddedSource(t *testing.T) {
	entries, err := ListMigrations(EmbeddedSource())
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	for i, e := range entries {
		assert.Equal(t, uint(i+1), e.Version, "versions are contiguous")
		assert.True(t, e.HasDown, "%s has a down file", e.Basename())
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	first, err := CreateMigration(dir, "add unit notes")
	require.NoError(t, err)
	assert.Equal(t, uint(1), first.Version)
	assert.Equal(t, filepath.Join(dir, "000001_add_unit_notes.up.sql"), first.UpPath)
	assert.Equal(t, filepath.Join(dir, "000001_add_unit_notes.down.sql"), first.DownPath)

	content, err := os.ReadFile(first.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "-- add_unit_notes")

	second, err := CreateMigration(dir, "Index Links")
	require.NoError(t, err)
	assert.Equal(t, uint(2), second.Version)
	assert.Equal(t, "index_links", second.Name)

	entries, err := ListMigrations(os.DirFS(dir))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestCreateMigration_EmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!")
	assert.Error(t, err)
}

func TestListMigrations_MissingDir(t *testing.T) {
	entries, err := ListMigrations(os.DirFS(filepath.Join(t.TempDir(), "missing")))
	require.NoError(t, err)
	assert.Empty(t, entries)
}
