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

func TestExtractZIP_MultiFile(t *testing.T) {
	zipPath := createTestZIP(t, map[string]string{
		"26100_shelter.geojson":  `{"type":"FeatureCollection","features":[]}`,
		"26100_landmark.geojson": `{"type":"FeatureCollection","features":[]}`,
		"sub/26100_park.geojson": `{"type":"FeatureCollection","features":[]}`,
	})

	destDir := filepath.Join(t.TempDir(), "related")
	extracted, err := ExtractZIP(zipPath, destDir)
	require.NoError(t, err)
	require.Len(t, extracted, 3)

	// Sorted output.
	assert.Equal(t, filepath.Join(destDir, "26100_landmark.geojson"), extracted[0])
	assert.Equal(t, filepath.Join(destDir, "26100_shelter.geojson"), extracted[1])
	assert.Equal(t, filepath.Join(destDir, "sub", "26100_park.geojson"), extracted[2])

	data, err := os.ReadFile(extracted[1])
	require.NoError(t, err)
	assert.Contains(t, string(data), "FeatureCollection")
}

func TestExtractZIP_SkipsResourceForks(t *testing.T) {
	zipPath := createTestZIP(t, map[string]string{
		"a_shelter.geojson":            "{}",
		"__MACOSX/._a_shelter.geojson": "junk",
		"._b_park.geojson":             "junk",
	})

	destDir := t.TempDir()
	extracted, err := ExtractZIP(zipPath, destDir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(destDir, "a_shelter.geojson")}, extracted)
}

func TestExtractZIP_ZipSlip(t *testing.T) {
	zipPath := createTestZIP(t, map[string]string{
		"../../etc/evil.geojson": "bad",
	})

	_, err := ExtractZIP(zipPath, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zip slip")
}

func TestExtractZIP_NotAnArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.zip")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))

	_, err := ExtractZIP(path, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zip: open archive")
}
