package files

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "demandplanner/internal/errors"
	"demandplanner/pkg/contracts/domain"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0644))
	}
}

func TestParseReportName(t *testing.T) {
	tests := []struct {
		name   string
		want   Report
		wantOK bool
	}{
		{
			name:   "demand_forecast_SIMULATION_2024-06-01.csv",
			want:   Report{Name: "demand_forecast_SIMULATION_2024-06-01.csv", Source: domain.DataSourceSimulation, Date: "2024-06-01", Format: "csv"},
			wantOK: true,
		},
		{
			name:   "demand_forecast_BIGQUERY_2024-12-31.xlsx",
			want:   Report{Name: "demand_forecast_BIGQUERY_2024-12-31.xlsx", Source: domain.DataSourceBigQuery, Date: "2024-12-31", Format: "xlsx"},
			wantOK: true,
		},
		{name: "demand_forecast_SIMULATION_2024-06-01.pdf"},
		{name: "demand_forecast_simulation_2024-06-01.csv"},
		{name: "../demand_forecast_SIMULATION_2024-06-01.csv"},
		{name: "sales.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseReportName(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestArchive_List(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir,
		"demand_forecast_SIMULATION_2024-05-01.csv",
		"demand_forecast_BIGQUERY_2024-06-01.csv",
		"demand_forecast_SIMULATION_2024-06-01.csv",
		"notes.txt",
	)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "demand_forecast_SIMULATION_2024-07-01.csv"), 0755))

	reports, err := NewArchive(dir, nil).List()
	require.NoError(t, err)

	var names []string
	for _, r := range reports {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{
		"demand_forecast_BIGQUERY_2024-06-01.csv",
		"demand_forecast_SIMULATION_2024-06-01.csv",
		"demand_forecast_SIMULATION_2024-05-01.csv",
	}, names)
	assert.Equal(t, filepath.Join(dir, names[0]), reports[0].Path)
	assert.Equal(t, int64(len(names[0])), reports[0].Size)
}

func TestArchive_ListMissingDirectory(t *testing.T) {
	reports, err := NewArchive(filepath.Join(t.TempDir(), "none"), nil).List()
	require.NoError(t, err)
	assert.Empty(t, reports)

	_, ok, err := NewArchive(filepath.Join(t.TempDir(), "none"), nil).Latest()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArchive_Latest(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "demand_forecast_SIMULATION_2024-05-01.csv", "demand_forecast_SIMULATION_2024-06-01.xlsx")

	latest, ok, err := NewArchive(dir, nil).Latest()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2024-06-01", latest.Date)
	assert.Equal(t, "xlsx", latest.Format)
}

func TestArchive_Open(t *testing.T) {
	dir := t.TempDir()
	name := "demand_forecast_SIMULATION_2024-06-01.csv"
	writeFiles(t, dir, name, "secrets.txt")
	archive := NewArchive(dir, nil)

	f, report, err := archive.Open(name)
	require.NoError(t, err)
	defer f.Close()
	body, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, name, string(body))
	assert.Equal(t, int64(len(name)), report.Size)
	assert.False(t, report.ModTime.IsZero())

	for _, bad := range []string{"secrets.txt", "../" + name, "demand_forecast_SIMULATION_2020-01-01.csv"} {
		_, _, err := archive.Open(bad)
		assert.True(t, apierrors.IsType(err, apierrors.ErrTypeNotFound), bad)
	}
}

func TestArchive_Prune(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir,
		"demand_forecast_SIMULATION_2024-03-01.csv",
		"demand_forecast_SIMULATION_2024-04-01.csv",
		"demand_forecast_SIMULATION_2024-05-01.csv",
		"keep.txt",
	)
	archive := NewArchive(dir, nil)

	removed, err := archive.Prune(0)
	require.NoError(t, err)
	assert.Zero(t, removed)

	removed, err = archive.Prune(1)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "demand_forecast_SIMULATION_2024-05-01.csv", entries[0].Name())
	assert.Equal(t, "keep.txt", entries[1].Name())

	removed, err = archive.Prune(5)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
