package service

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"geoassist-be/internal/pkg/logger"
	"geoassist-be/pkg/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, dir, name, content string) workflow.FileRef {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return workflow.FileRef{ID: name, Name: name, Path: path, Size: int64(len(content))}
}

func TestArchiveRoundTrip(t *testing.T) {
	uploads := t.TempDir()
	svc := NewArchiveService(t.TempDir(), logger.NewNopLogger())
	ctx := context.Background()

	a := writeTempFile(t, uploads, "site.jpg", "jpeg bytes")
	sub := filepath.Join(uploads, "other")
	require.NoError(t, os.Mkdir(sub, 0o755))
	b := writeTempFile(t, sub, "site.jpg", "another photo")
	c := writeTempFile(t, uploads, "notes.txt", "survey notes")

	zipped, err := svc.Compress(ctx, "survey.zip", []workflow.FileRef{a, b, c})
	require.NoError(t, err)
	assert.Equal(t, "survey.zip", zipped.Name)
	assert.True(t, zipped.IsZip())
	assert.Positive(t, zipped.Size)

	files, err := svc.Extract(ctx, zipped)
	require.NoError(t, err)
	require.Len(t, files, 3)

	names := make([]string, 0, len(files))
	contents := map[string]string{}
	for _, f := range files {
		names = append(names, f.Name)
		data, err := os.ReadFile(f.Path)
		require.NoError(t, err)
		contents[f.Name] = string(data)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"notes.txt", "site (1).jpg", "site.jpg"}, names)
	assert.Equal(t, "another photo", contents["site (1).jpg"])

	require.NoError(t, svc.Remove(append(files, zipped)...))
	for _, f := range append(files, zipped) {
		_, err := os.Stat(f.Path)
		assert.True(t, os.IsNotExist(err))
	}
}

func TestArchiveExtractFlattensEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "evil.zip")
	out, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(out)
	w, err := zw.Create("../../etc/passwd")
	require.NoError(t, err)
	_, err = w.Write([]byte("root"))
	require.NoError(t, err)
	_, err = zw.Create("folder/")
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())

	work := t.TempDir()
	svc := NewArchiveService(work, logger.NewNopLogger())
	files, err := svc.Extract(context.Background(), workflow.FileRef{Name: "evil.zip", Path: path})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "passwd", files[0].Name)

	rel, err := filepath.Rel(work, files[0].Path)
	require.NoError(t, err)
	assert.NotContains(t, rel, "..")
}

func TestArchiveErrors(t *testing.T) {
	svc := NewArchiveService(t.TempDir(), logger.NewNopLogger())
	ctx := context.Background()

	_, err := svc.Compress(ctx, "x.zip", []workflow.FileRef{{Name: "gone.jpg", Path: "/nonexistent/gone.jpg"}})
	assert.Error(t, err)

	bogus := writeTempFile(t, t.TempDir(), "not.zip", "plain text")
	_, err = svc.Extract(ctx, bogus)
	assert.Error(t, err)

	assert.NoError(t, svc.Remove(workflow.FileRef{Path: "/nonexistent/already-gone"}), "missing files are not an error")
}
