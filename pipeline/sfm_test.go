package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModelSummary(t *testing.T) {
	output := `Cameras: 1
Images: 42
Registered images: 42
Points: 38201
Observations: 152804
Mean track length: 4.000524
Mean observations per image: 3638.190476
Mean reprojection error: 0.812345px`

	registered, points, err := parseModelSummary(output)
	require.NoError(t, err)
	assert.Equal(t, 42, registered)
	assert.Equal(t, 38201, points)
}

func TestParseModelSummaryMissingCounts(t *testing.T) {
	_, _, err := parseModelSummary("ERROR: model directory is empty")
	assert.Error(t, err)
}

func TestCountImages(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))

	for _, name := range []string{"a.JPG", "b.jpeg", "nested/c.png", "flight_log.csv", "readme.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	count, err := countImages(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestZipRoundTrip(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "0"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "0", "points3D.bin"), []byte("points"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "cameras.bin"), []byte("cameras"), 0o644))

	archive := filepath.Join(t.TempDir(), "sparse.zip")
	require.NoError(t, zipDir(src, archive))

	dst := t.TempDir()
	require.NoError(t, Unpack(archive, dst))

	data, err := os.ReadFile(filepath.Join(dst, "0", "points3D.bin"))
	require.NoError(t, err)
	assert.Equal(t, "points", string(data))

	data, err = os.ReadFile(filepath.Join(dst, "cameras.bin"))
	require.NoError(t, err)
	assert.Equal(t, "cameras", string(data))
}
