package clipboard

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/clipvault/clipvault/internal/encoding"
	"github.com/clipvault/clipvault/internal/fingerprint"
	"github.com/clipvault/clipvault/internal/types"

	"go.uber.org/zap"
)

// Classification priority is fixed: a file list outranks an image,
// which outranks text. A copied file usually carries its name as a
// text fallback at the same time; the file list is the richer signal.

var colorPattern = regexp.MustCompile(`^(#([0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})|rgba?\(\s*\d{1,3}\s*,\s*\d{1,3}\s*,\s*\d{1,3}\s*(,\s*(0|1|0?\.\d+)\s*)?\))$`)

// gateHash derives the change-detection hash for a snapshot: the
// digest of its highest-priority representation. Equal consecutive
// hashes mean the tick is a no-op.
func gateHash(snap *Snapshot) string {
	switch {
	case len(snap.Files) > 0:
		return fingerprint.Files(snap.Files)
	case len(snap.Image) > 0:
		return fingerprint.Image(snap.Image)
	default:
		text := snap.Text
		if c, ok := canonicalColor(text); ok {
			return fingerprint.Color(c)
		}
		return fingerprint.Text(text)
	}
}

// canonicalColor reports whether trimmed text is a color literal and
// returns its canonical form (lowercased, whitespace collapsed).
func canonicalColor(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || !colorPattern.MatchString(trimmed) {
		return "", false
	}
	return strings.ToLower(strings.Join(strings.Fields(trimmed), "")), true
}

// classify turns a snapshot into one or more items. A multi-file
// capture fans out into one item per path, each individually
// classified as image or file. Image payloads are routed through the
// blob store; without one, bytes are carried inline.
func (m *Monitor) classify(snap *Snapshot) ([]*types.Item, error) {
	switch {
	case len(snap.Files) > 0:
		return m.classifyFiles(snap)
	case len(snap.Image) > 0:
		item, err := m.buildImageItem(snap.Image, snap.SourceApp)
		if err != nil {
			return nil, err
		}
		return []*types.Item{item}, nil
	case snap.Text != "":
		return []*types.Item{m.buildTextItem(snap)}, nil
	}
	return nil, nil
}

func (m *Monitor) classifyFiles(snap *Snapshot) ([]*types.Item, error) {
	var items []*types.Item
	for _, path := range snap.Files {
		if types.IsImagePath(path) {
			data, err := os.ReadFile(path)
			if err == nil {
				item, imgErr := m.buildImageItem(data, snap.SourceApp)
				if imgErr == nil {
					items = append(items, item)
					continue
				}
				err = imgErr
			}
			// Unreadable or undecodable image file: keep the
			// capture as a plain file reference.
			m.logger.Warn("falling back to file item for image path",
				zap.String("path", path),
				zap.Error(err))
		}
		items = append(items, m.buildFileItem([]string{path}, snap.SourceApp))
	}
	return items, nil
}

func (m *Monitor) buildFileItem(paths []string, sourceApp string) *types.Item {
	t := types.TypeFile
	if len(paths) > 1 {
		t = types.TypeMultiFile
	}

	fileTypes := make([]string, 0, len(paths))
	allImages := len(paths) > 0
	for _, p := range paths {
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(p)), ".")
		fileTypes = append(fileTypes, ext)
		if !types.IsImagePath(p) {
			allImages = false
		}
	}

	item := types.NewItem(t)
	item.SourceApp = sourceApp
	item.Files = &types.FilePayload{
		Paths:     paths,
		FileTypes: fileTypes,
		AllImages: allImages,
	}
	item.ContentHash = fingerprint.Files(paths)
	return item
}

func (m *Monitor) buildImageItem(data []byte, sourceApp string) (*types.Item, error) {
	item := types.NewItem(types.TypeImage)
	item.SourceApp = sourceApp
	item.ContentHash = fingerprint.Image(data)

	if m.blobs != nil {
		result, err := m.blobs.Save(data, item.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to persist image payload: %w", err)
		}
		item.Image = &types.ImagePayload{
			Path:          result.ImagePath,
			ThumbnailPath: result.ThumbnailPath,
			SizeBytes:     result.SizeBytes,
		}
		return item, nil
	}

	// No blob store configured: carry bytes inline. Diagnostic mode,
	// the startup migration moves these onto disk once a store exists.
	inline, err := encoding.EncodeInline(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode inline image: %w", err)
	}
	item.Image = &types.ImagePayload{Inline: inline, SizeBytes: int64(len(data))}
	return item, nil
}

func (m *Monitor) buildTextItem(snap *Snapshot) *types.Item {
	if c, ok := canonicalColor(snap.Text); ok {
		item := types.NewItem(types.TypeColor)
		item.SourceApp = snap.SourceApp
		item.Color = &types.ColorPayload{Value: c}
		item.ContentHash = fingerprint.Color(c)
		return item
	}

	t := types.TypeText
	rich, richKind := "", ""
	if snap.HTML != "" {
		t = types.TypeRichText
		rich, richKind = snap.HTML, types.RichKindHTML
	} else if snap.RTF != "" {
		t = types.TypeRichText
		rich, richKind = snap.RTF, types.RichKindRTF
	}

	item := types.NewItem(t)
	item.SourceApp = snap.SourceApp
	item.Text = &types.TextPayload{Plain: snap.Text, Rich: rich, RichKind: richKind}
	item.ContentHash = fingerprint.Text(snap.Text)
	return item
}
