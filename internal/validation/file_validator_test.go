package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileValidator_ValidateUploadFile(t *testing.T) {
	tests := []struct {
		name          string
		setup         func(t *testing.T) string
		errorContains string
	}{
		{
			name: "csv file",
			setup: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "sales.csv")
				require.NoError(t, os.WriteFile(path, []byte("date,sku,quantity\n"), 0644))
				return path
			},
		},
		{
			name: "upper case xlsx extension",
			setup: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "items.XLSX")
				require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
				return path
			},
		},
		{
			name: "missing file",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "absent.csv")
			},
			errorContains: "does not exist",
		},
		{
			name: "directory",
			setup: func(t *testing.T) string {
				return t.TempDir()
			},
			errorContains: "is a directory",
		},
		{
			name: "office lock file",
			setup: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "~$sales.xlsx")
				require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
				return path
			},
			errorContains: "temporary office file",
		},
		{
			name: "unsupported extension",
			setup: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "sales.pdf")
				require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
				return path
			},
			errorContains: "unsupported extension",
		},
	}

	v := NewFileValidator(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateUploadFile(tt.setup(t))
			if tt.errorContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	v := NewFileValidator(nil)

	dir := filepath.Join(t.TempDir(), "reports", "2024")
	require.NoError(t, v.ValidateOutputDirectory(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = os.Stat(filepath.Join(dir, ".write_test"))
	assert.True(t, os.IsNotExist(err), "probe file is removed")
}
