package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "postergen/internal/common/errors"
	"postergen/internal/common/logger"
	"postergen/internal/profile"
)

func TestCache_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "profiles")
	c, err := New(dir, logger.NewTestLogger(t))
	require.NoError(t, err)
	require.True(t, c.Enabled())

	rec := profile.Record{"Case ID": "2021-05-04", "Given Name": "Jane Doe"}

	_, hit, err := c.Get("2021-05-04")
	require.NoError(t, err)
	assert.False(t, hit, "empty cache misses")

	require.NoError(t, c.Put("2021-05-04", rec))

	got, hit, err := c.Get("2021-05-04")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, rec, got)
}

func TestCache_TrailingSeparatorRejected(t *testing.T) {
	_, err := New("cache"+string(os.PathSeparator), logger.NewTestLogger(t))
	require.Error(t, err)
	assert.True(t, apperrors.IsConfigInvalid(err))
}

func TestCache_Disabled(t *testing.T) {
	c, err := New("", logger.NewTestLogger(t))
	require.NoError(t, err)
	assert.False(t, c.Enabled())

	require.NoError(t, c.Put("id", profile.Record{"Case ID": "id"}))
	_, hit, err := c.Get("id")
	require.NoError(t, err)
	assert.False(t, hit, "a disabled cache never hits")
}

func TestCache_SanitizesIdentifier(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, logger.NewTestLogger(t))
	require.NoError(t, err)

	require.NoError(t, c.Put("../a/b:c", profile.Record{"Case ID": "x"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].Name(), "/")
	assert.NotContains(t, entries[0].Name(), "..")

	_, hit, err := c.Get("../a/b:c")
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestCache_CorruptEntry(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, logger.NewTestLogger(t))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o644))

	_, _, err = c.Get("bad")
	assert.Error(t, err)
}
