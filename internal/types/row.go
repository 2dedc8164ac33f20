package types

import "time"

// Row is the flat persistence projection of an Item. It owns no
// payload objects and is rebuilt into an Item on read.
type Row struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	CreatedAt   int64  `json:"created_at"` // unix milliseconds
	Pinned      bool   `json:"pinned"`
	Deleted     bool   `json:"deleted"`
	ContentHash string `json:"content_hash"`
	SourceApp   string `json:"source_app,omitempty"`

	PlainText string `json:"plain_text,omitempty"`
	RichText  string `json:"rich_text,omitempty"`
	RichKind  string `json:"rich_kind,omitempty"`

	ImagePath     string `json:"image_path,omitempty"`
	ThumbnailPath string `json:"thumbnail_path,omitempty"`
	ImageSize     int64  `json:"image_size,omitempty"`
	InlineImage   string `json:"inline_image,omitempty"`

	FilePaths []string `json:"file_paths,omitempty"`
	FileCount int      `json:"file_count,omitempty"`
	FileTypes []string `json:"file_types,omitempty"`
	AllImages bool     `json:"all_images,omitempty"`

	ColorValue string `json:"color_value,omitempty"`
}

// ToRow projects the item into its persistence representation.
func (i *Item) ToRow() *Row {
	r := &Row{
		ID:          i.ID,
		Type:        string(i.Type),
		CreatedAt:   i.CreatedAt.UnixMilli(),
		Pinned:      i.Pinned,
		Deleted:     i.Deleted,
		ContentHash: i.ContentHash,
		SourceApp:   i.SourceApp,
	}
	switch {
	case i.Text != nil:
		r.PlainText = i.Text.Plain
		r.RichText = i.Text.Rich
		r.RichKind = i.Text.RichKind
	case i.Image != nil:
		r.ImagePath = i.Image.Path
		r.ThumbnailPath = i.Image.ThumbnailPath
		r.ImageSize = i.Image.SizeBytes
		r.InlineImage = i.Image.Inline
	case i.Files != nil:
		r.FilePaths = i.Files.Paths
		r.FileCount = len(i.Files.Paths)
		r.FileTypes = i.Files.FileTypes
		r.AllImages = i.Files.AllImages
	case i.Color != nil:
		r.ColorValue = i.Color.Value
	}
	return r
}

// ItemFromRow rebuilds an Item from its persisted projection. Fields
// belonging to a payload other than the row's type are ignored;
// unknown types are rejected.
func ItemFromRow(r *Row) (*Item, error) {
	t := ItemType(r.Type)
	if !ValidType(t) {
		return nil, ErrPayloadMismatch
	}
	item := &Item{
		ID:          r.ID,
		Type:        t,
		CreatedAt:   time.UnixMilli(r.CreatedAt),
		Pinned:      r.Pinned,
		Deleted:     r.Deleted,
		ContentHash: r.ContentHash,
		SourceApp:   r.SourceApp,
	}
	switch t {
	case TypeText, TypeRichText:
		item.Text = &TextPayload{Plain: r.PlainText, Rich: r.RichText, RichKind: r.RichKind}
	case TypeImage:
		item.Image = &ImagePayload{
			Path:          r.ImagePath,
			ThumbnailPath: r.ThumbnailPath,
			SizeBytes:     r.ImageSize,
			Inline:        r.InlineImage,
		}
	case TypeFile, TypeMultiFile:
		item.Files = &FilePayload{
			Paths:     r.FilePaths,
			FileTypes: r.FileTypes,
			AllImages: r.AllImages,
		}
	case TypeColor:
		item.Color = &ColorPayload{Value: r.ColorValue}
	}
	return item, nil
}
