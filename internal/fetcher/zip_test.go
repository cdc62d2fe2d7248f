package fetcher

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestZIP(t *testing.T, files map[string]string) string {
	t.Helper()
	zipPath := filepath.Join(t.TempDir(), "test.zip")
	f, err := os.Create(zipPath)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	w := zip.NewWriter(f)
	for name, content := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return zipPath
}

func TestExtractDataset_CSV(t *testing.T) {
	zipPath := createTestZIP(t, map[string]string{
		"readme.txt": "notes",
		"sites.csv":  "site_id,lat,lon,cluster_id\n1,40,-75,c1\n",
	})

	destDir := t.TempDir()
	path, err := extractDataset(zipPath, destDir)
	require.NoError(t, err)
	assert.Equal(t, "sites.csv", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "site_id")
}

func TestExtractDataset_PrefersCSVOverShapefile(t *testing.T) {
	zipPath := createTestZIP(t, map[string]string{
		"sites.shp": "binary",
		"sites.dbf": "binary",
		"sites.csv": "site_id,lat,lon,cluster_id\n",
	})

	path, err := extractDataset(zipPath, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, ".csv", filepath.Ext(path))
}

func TestExtractDataset_ShapefileWithCompanions(t *testing.T) {
	zipPath := createTestZIP(t, map[string]string{
		"sites.shp": "shape data",
		"sites.shx": "index data",
		"sites.dbf": "attr data",
	})

	destDir := t.TempDir()
	path, err := extractDataset(zipPath, destDir)
	require.NoError(t, err)
	assert.Equal(t, "sites.shp", filepath.Base(path))

	// Companions must land next to the shapefile.
	_, err = os.Stat(filepath.Join(destDir, "sites.dbf"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(destDir, "sites.shx"))
	require.NoError(t, err)
}

func TestExtractDataset_Nested(t *testing.T) {
	zipPath := createTestZIP(t, map[string]string{
		"data/sites.csv": "site_id,lat,lon,cluster_id\n",
	})

	destDir := t.TempDir()
	path, err := extractDataset(zipPath, destDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(destDir, "data", "sites.csv"), path)
}

func TestExtractDataset_NoDataset(t *testing.T) {
	zipPath := createTestZIP(t, map[string]string{"readme.txt": "nothing here"})

	_, err := extractDataset(zipPath, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no dataset file")
}

func TestExtractDataset_ZipSlip(t *testing.T) {
	zipPath := createTestZIP(t, map[string]string{
		"../evil.csv": "site_id,lat,lon,cluster_id\n",
	})

	_, err := extractDataset(zipPath, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "illegal archive path")
}

func TestExtractDataset_NotAZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.zip")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))

	_, err := extractDataset(path, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open archive")
}
