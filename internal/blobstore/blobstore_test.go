package blobstore

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s := New(Config{
		ImagesDir:     filepath.Join(dir, "images"),
		ThumbnailsDir: filepath.Join(dir, "thumbnails"),
	})
	require.NoError(t, s.Init())
	return s
}

func TestSaveAndRead(t *testing.T) {
	s := newTestStore(t)
	data := testPNG(t, 640, 480)

	result, err := s.Save(data, "")
	require.NoError(t, err)
	assert.NotEmpty(t, result.ID)
	assert.NotEmpty(t, result.ImagePath)
	assert.NotEmpty(t, result.ThumbnailPath)
	assert.Greater(t, result.SizeBytes, int64(0))

	full, err := s.Read(result.ID)
	require.NoError(t, err)
	img, _, err := image.Decode(bytes.NewReader(full))
	require.NoError(t, err)
	assert.Equal(t, 640, img.Bounds().Dx())

	thumbData, err := s.ReadThumbnail(result.ID)
	require.NoError(t, err)
	thumb, err := jpeg.Decode(bytes.NewReader(thumbData))
	require.NoError(t, err)
	// Fit-inside policy: neither dimension exceeds the bound and
	// aspect ratio is preserved.
	assert.LessOrEqual(t, thumb.Bounds().Dx(), thumbnailMaxWidth)
	assert.LessOrEqual(t, thumb.Bounds().Dy(), thumbnailMaxHeight)
	assert.Equal(t, thumbnailMaxWidth, thumb.Bounds().Dx())
}

func TestSaveWithExplicitID(t *testing.T) {
	s := newTestStore(t)
	result, err := s.Save(testPNG(t, 10, 10), "item-42")
	require.NoError(t, err)
	assert.Equal(t, "item-42", result.ID)
	assert.Equal(t, "item-42"+imageExt, filepath.Base(result.ImagePath))
}

func TestSaveRejectsNonImage(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Save([]byte("definitely not an image"), "")
	assert.Error(t, err)
}

func TestPathTraversalRejected(t *testing.T) {
	dir := t.TempDir()
	s := New(Config{
		ImagesDir:     filepath.Join(dir, "images"),
		ThumbnailsDir: filepath.Join(dir, "thumbnails"),
	})
	require.NoError(t, s.Init())

	for _, id := range []string{"../evil", "a/b", `a\b`, ".."} {
		_, err := s.Save(testPNG(t, 4, 4), id)
		assert.ErrorIs(t, err, ErrInvalidID, "save with id %q", id)

		_, err = s.Read(id)
		assert.ErrorIs(t, err, ErrInvalidID, "read with id %q", id)

		assert.False(t, s.Delete(id), "delete with id %q", id)
	}

	_, err := s.Read("")
	assert.ErrorIs(t, err, ErrInvalidID)

	// Nothing escaped the storage directories.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	result, err := s.Save(testPNG(t, 8, 8), "")
	require.NoError(t, err)

	assert.True(t, s.Delete(result.ID))
	_, err = s.Read(result.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Already gone is not a failure.
	assert.True(t, s.Delete(result.ID))
	assert.True(t, s.Delete("never-existed"))
}

func TestStats(t *testing.T) {
	s := newTestStore(t)

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.ImageCount)

	_, err = s.Save(testPNG(t, 16, 16), "")
	require.NoError(t, err)
	_, err = s.Save(testPNG(t, 32, 32), "")
	require.NoError(t, err)

	stats, err = s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ImageCount)
	assert.Equal(t, 2, stats.ThumbnailCount)
	assert.Greater(t, stats.TotalBytes, int64(0))
}
