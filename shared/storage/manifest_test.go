package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	m := NewManifest(dir)
	generated := time.Date(2024, 5, 4, 12, 0, 0, 0, time.UTC)

	m.Record(ReportRecord{
		Topic:       "Docker tutorials",
		Files:       []string{filepath.Join(dir, "docker_tutorials.md"), filepath.Join(dir, "docker_tutorials.html")},
		Found:       5,
		Retained:    3,
		GeneratedAt: generated,
	})
	m.Record(ReportRecord{Topic: "Go tutorials", Files: []string{filepath.Join(dir, "go_tutorials.md")}, Found: 2, Retained: 2})
	require.Equal(t, 2, m.Len())
	require.NoError(t, m.Save())

	loaded, err := LoadManifest(filepath.Join(dir, ManifestFile))
	require.NoError(t, err)
	require.Len(t, loaded.Reports, 2)

	first := loaded.Reports[0]
	assert.Equal(t, "Docker tutorials", first.Topic)
	assert.Equal(t, []string{"docker_tutorials.md", "docker_tutorials.html"}, first.Files)
	assert.Equal(t, 3, first.Retained)
	assert.True(t, first.GeneratedAt.Equal(generated))
	assert.False(t, loaded.Reports[1].GeneratedAt.IsZero())
}

func TestManifestOverwrites(t *testing.T) {
	dir := t.TempDir()

	old := NewManifest(dir)
	old.Record(ReportRecord{Topic: "old topic"})
	require.NoError(t, old.Save())

	fresh := NewManifest(dir)
	fresh.Record(ReportRecord{Topic: "new topic"})
	require.NoError(t, fresh.Save())

	loaded, err := LoadManifest(fresh.Path())
	require.NoError(t, err)
	require.Len(t, loaded.Reports, 1)
	assert.Equal(t, "new topic", loaded.Reports[0].Topic)
}

func TestManifestSaveFailsForMissingDir(t *testing.T) {
	m := NewManifest(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, m.Save())
}

func TestLoadManifestMissing(t *testing.T) {
	_, err := LoadManifest(filepath.Join(t.TempDir(), ManifestFile))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
