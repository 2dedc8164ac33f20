package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleItems() []*Item {
	now := time.UnixMilli(time.Now().UnixMilli())
	base := func(t ItemType) *Item {
		item := NewItem(t)
		item.CreatedAt = now
		item.ContentHash = "hash-" + string(t)
		item.SourceApp = "Finder"
		return item
	}

	text := base(TypeText)
	text.Text = &TextPayload{Plain: "hello"}

	rich := base(TypeRichText)
	rich.Text = &TextPayload{Plain: "hello", Rich: "<b>hello</b>", RichKind: RichKindHTML}

	image := base(TypeImage)
	image.Image = &ImagePayload{
		Path:          "/data/images/abc.png",
		ThumbnailPath: "/data/thumbnails/abc.jpg",
		SizeBytes:     2048,
	}

	file := base(TypeFile)
	file.Files = &FilePayload{Paths: []string{"/tmp/doc.pdf"}, FileTypes: []string{"pdf"}}

	multi := base(TypeMultiFile)
	multi.Files = &FilePayload{
		Paths:     []string{"/tmp/a.png", "/tmp/b.png"},
		FileTypes: []string{"png", "png"},
		AllImages: true,
	}

	color := base(TypeColor)
	color.Color = &ColorPayload{Value: "#00ff88"}

	return []*Item{text, rich, image, file, multi, color}
}

func TestRowRoundTrip(t *testing.T) {
	for _, item := range sampleItems() {
		t.Run(string(item.Type), func(t *testing.T) {
			require.NoError(t, item.Validate())

			restored, err := ItemFromRow(item.ToRow())
			require.NoError(t, err)

			assert.Equal(t, item.ID, restored.ID)
			assert.Equal(t, item.Type, restored.Type)
			assert.True(t, item.CreatedAt.Equal(restored.CreatedAt))
			assert.Equal(t, item.ContentHash, restored.ContentHash)
			assert.Equal(t, item.SourceApp, restored.SourceApp)
			assert.Equal(t, item.Text, restored.Text)
			assert.Equal(t, item.Image, restored.Image)
			assert.Equal(t, item.Color, restored.Color)
			if item.Files != nil {
				assert.Equal(t, item.Files.Paths, restored.Files.Paths)
				assert.Equal(t, item.Files.AllImages, restored.Files.AllImages)
			}
		})
	}
}

func TestRowRejectsMismatchedPayload(t *testing.T) {
	// An image row claiming to be text keeps only the text fields;
	// an unknown type is rejected outright.
	row := &Row{
		ID:          "x",
		Type:        string(TypeText),
		CreatedAt:   time.Now().UnixMilli(),
		ContentHash: "h",
		ImagePath:   "/data/images/evil.png",
		PlainText:   "hi",
	}
	item, err := ItemFromRow(row)
	require.NoError(t, err)
	assert.Nil(t, item.Image)
	assert.Equal(t, "hi", item.Text.Plain)

	row.Type = "banana"
	_, err = ItemFromRow(row)
	assert.ErrorIs(t, err, ErrPayloadMismatch)
}

func TestValidate(t *testing.T) {
	item := NewItem(TypeText)
	assert.ErrorIs(t, item.Validate(), ErrPayloadMismatch)

	item.Text = &TextPayload{Plain: "ok"}
	assert.NoError(t, item.Validate())

	item.Color = &ColorPayload{Value: "#fff"}
	assert.ErrorIs(t, item.Validate(), ErrPayloadMismatch)

	wrong := NewItem(TypeImage)
	wrong.Text = &TextPayload{Plain: "not an image"}
	assert.ErrorIs(t, wrong.Validate(), ErrPayloadMismatch)
}

func TestFileCountDerivedOnToRow(t *testing.T) {
	item := NewItem(TypeMultiFile)
	item.ContentHash = "h"
	item.Files = &FilePayload{Paths: []string{"/a", "/b", "/c"}}
	assert.Equal(t, 3, item.ToRow().FileCount)
}

func TestIsImagePath(t *testing.T) {
	assert.True(t, IsImagePath("/tmp/shot.PNG"))
	assert.True(t, IsImagePath("photo.jpeg"))
	assert.False(t, IsImagePath("notes.txt"))
	assert.False(t, IsImagePath("archive"))
}

func TestPreview(t *testing.T) {
	text := NewItem(TypeText)
	text.Text = &TextPayload{Plain: "\n\n  first line\nsecond"}
	assert.Equal(t, "first line", text.Preview())

	image := NewItem(TypeImage)
	image.Image = &ImagePayload{SizeBytes: 3 * 1024}
	assert.Equal(t, "[Image 3.0 KB]", image.Preview())

	files := NewItem(TypeFile)
	files.Files = &FilePayload{Paths: []string{"/tmp/report.pdf"}}
	assert.Equal(t, "[File: report.pdf]", files.Preview())

	long := NewItem(TypeText)
	long.Text = &TextPayload{Plain: stringOf('a', 200)}
	assert.Len(t, []rune(long.Preview()), previewMaxLength+3)
}

func stringOf(r rune, n int) string {
	runes := make([]rune, n)
	for i := range runes {
		runes[i] = r
	}
	return string(runes)
}
