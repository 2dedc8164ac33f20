package types

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ItemType identifies the payload variant carried by an Item.
type ItemType string

const (
	TypeText      ItemType = "text"
	TypeRichText  ItemType = "rich_text"
	TypeImage     ItemType = "image"
	TypeFile      ItemType = "file"
	TypeMultiFile ItemType = "multi_file"
	TypeColor     ItemType = "color"
)

// ValidType reports whether t is one of the closed set of item types.
func ValidType(t ItemType) bool {
	switch t {
	case TypeText, TypeRichText, TypeImage, TypeFile, TypeMultiFile, TypeColor:
		return true
	}
	return false
}

var ErrPayloadMismatch = errors.New("item payload does not match its type")

// Rich markup kinds carried by a TextPayload.
const (
	RichKindHTML = "html"
	RichKindRTF  = "rtf"
)

// TextPayload backs Text and RichText items. Rich is only populated
// for RichText and holds the markup alongside Plain; RichKind records
// which pasteboard side channel it came from so write-back can route
// it to the matching representation.
type TextPayload struct {
	Plain    string
	Rich     string
	RichKind string
}

// ImagePayload backs Image items. A file-backed image has Path and
// ThumbnailPath set; an inline image (no blob store configured, or a
// legacy row awaiting migration) carries the encoded bytes in Inline.
type ImagePayload struct {
	Path          string
	ThumbnailPath string
	SizeBytes     int64
	Inline        string
}

// FileBacked reports whether the image payload lives on disk.
func (p *ImagePayload) FileBacked() bool {
	return p.Path != ""
}

// FilePayload backs File and MultiFile items.
type FilePayload struct {
	Paths     []string
	FileTypes []string
	AllImages bool
}

// ColorPayload backs Color items. Value is the canonical hex or
// rgb() string as seen on the clipboard.
type ColorPayload struct {
	Value string
}

// Item is one captured clipboard entry. Exactly one payload pointer
// is populated, matching Type.
type Item struct {
	ID          string
	Type        ItemType
	CreatedAt   time.Time
	Pinned      bool
	Deleted     bool
	ContentHash string
	SourceApp   string

	Text  *TextPayload
	Image *ImagePayload
	Files *FilePayload
	Color *ColorPayload
}

// NewItem returns an Item with a fresh id and capture timestamp.
// The caller populates the payload and content hash.
func NewItem(t ItemType) *Item {
	return &Item{
		ID:        uuid.New().String(),
		Type:      t,
		CreatedAt: time.Now(),
	}
}

// Validate checks that exactly the payload matching Type is populated.
func (i *Item) Validate() error {
	if !ValidType(i.Type) {
		return ErrPayloadMismatch
	}
	set := 0
	for _, p := range []bool{i.Text != nil, i.Image != nil, i.Files != nil, i.Color != nil} {
		if p {
			set++
		}
	}
	if set != 1 {
		return ErrPayloadMismatch
	}
	switch i.Type {
	case TypeText, TypeRichText:
		if i.Text == nil {
			return ErrPayloadMismatch
		}
	case TypeImage:
		if i.Image == nil {
			return ErrPayloadMismatch
		}
	case TypeFile, TypeMultiFile:
		if i.Files == nil {
			return ErrPayloadMismatch
		}
	case TypeColor:
		if i.Color == nil {
			return ErrPayloadMismatch
		}
	}
	return nil
}

// PlainText returns the searchable text representation of the item,
// empty for payloads with no text form.
func (i *Item) PlainText() string {
	switch {
	case i.Text != nil:
		return i.Text.Plain
	case i.Color != nil:
		return i.Color.Value
	}
	return ""
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
	".heic": true,
}

// IsImagePath reports whether path has a recognized image extension.
func IsImagePath(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}
