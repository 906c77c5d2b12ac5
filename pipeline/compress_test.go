package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyBundle(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "meta.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "means_l.webp"), []byte("x"), 0o644))

	assert.NoError(t, verifyBundle(dir))
}

func TestVerifyBundleMissingMeta(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "means_l.webp"), []byte("x"), 0o644))

	assert.Error(t, verifyBundle(dir))
}

func TestVerifyBundleNoTextures(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "meta.json"), []byte("{}"), 0o644))

	assert.Error(t, verifyBundle(dir))
}
