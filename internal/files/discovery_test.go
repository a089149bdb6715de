package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("transaction_id,product_name\n"), 0644))
	}
}

func TestFindLineItemFiles(t *testing.T) {
	tests := []struct {
		name     string
		files    []string
		expected []string
	}{
		{
			name:     "csv and xlsx sorted by name",
			files:    []string{"march.xlsx", "january.csv", "february.CSV"},
			expected: []string{"february.CSV", "january.csv", "march.xlsx"},
		},
		{
			name:     "unsupported and temporary files skipped",
			files:    []string{"sales.csv", "~$sales.xlsx", ".hidden.csv", "notes.pdf", "legacy.xls"},
			expected: []string{"sales.csv"},
		},
		{
			name:     "empty directory",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			createFiles(t, dir, tt.files...)
			require.NoError(t, os.Mkdir(filepath.Join(dir, "archive.csv"), 0755))

			found, err := NewDiscovery(nil).FindLineItemFiles(dir)
			require.NoError(t, err)

			var names []string
			for _, f := range found {
				names = append(names, f.Name)
				assert.Equal(t, filepath.Join(dir, f.Name), f.Path)
			}
			assert.Equal(t, tt.expected, names)
		})
	}
}

func TestResolveInputs(t *testing.T) {
	dir := t.TempDir()
	createFiles(t, dir, "a.csv", "b.xlsx")
	d := NewDiscovery(nil)

	t.Run("single file", func(t *testing.T) {
		inputs, err := d.ResolveInputs(filepath.Join(dir, "b.xlsx"))
		require.NoError(t, err)
		require.Len(t, inputs, 1)
		assert.Equal(t, "xlsx", inputs[0].Format)
	})

	t.Run("directory", func(t *testing.T) {
		inputs, err := d.ResolveInputs(dir)
		require.NoError(t, err)
		assert.Len(t, inputs, 2)
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := d.ResolveInputs(filepath.Join(dir, "absent.csv"))
		assert.Error(t, err)
	})

	t.Run("unsupported file", func(t *testing.T) {
		createFiles(t, dir, "report.pdf")
		_, err := d.ResolveInputs(filepath.Join(dir, "report.pdf"))
		assert.Error(t, err)
	})

	t.Run("directory without line items", func(t *testing.T) {
		_, err := d.ResolveInputs(t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no CSV or XLSX files")
	})
}

func TestGetLatestFile(t *testing.T) {
	now := time.Now()
	files := []FileInfo{
		{Name: "old.csv", ModTime: now.Add(-2 * time.Hour)},
		{Name: "new.csv", ModTime: now},
		{Name: "mid.csv", ModTime: now.Add(-time.Hour)},
	}

	latest, ok := GetLatestFile(files)
	require.True(t, ok)
	assert.Equal(t, "new.csv", latest.Name)

	_, ok = GetLatestFile(nil)
	assert.False(t, ok)
}

func TestValidateOutputDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "reports")
	require.NoError(t, ValidateOutputDirectory(dir, nil))
	assert.DirExists(t, dir)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))
	assert.Error(t, ValidateOutputDirectory(filepath.Join(blocker, "sub"), nil))
}
