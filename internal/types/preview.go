package types

import (
	"fmt"
	"path/filepath"
	"strings"
)

const previewMaxLength = 120

// Preview returns a short single-line description of the item,
// suitable for change notifications and list output. Binary payloads
// are summarized, never included.
func (i *Item) Preview() string {
	switch {
	case i.Text != nil:
		return textPreview(i.Text.Plain, previewMaxLength)
	case i.Image != nil:
		if i.Image.SizeBytes > 0 {
			return fmt.Sprintf("[Image %s]", formatBytes(i.Image.SizeBytes))
		}
		return "[Image]"
	case i.Files != nil:
		return filePreview(i.Files.Paths)
	case i.Color != nil:
		return i.Color.Value
	}
	return ""
}

// textPreview collapses text to its first non-empty line, truncated
// to maxLength runes.
func textPreview(text string, maxLength int) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.Replace(line, "\t", "  ", -1))
		if line == "" {
			continue
		}
		runes := []rune(line)
		if len(runes) > maxLength {
			return string(runes[:maxLength]) + "..."
		}
		return line
	}
	return ""
}

func filePreview(paths []string) string {
	switch len(paths) {
	case 0:
		return "[Files: 0]"
	case 1:
		return fmt.Sprintf("[File: %s]", filepath.Base(paths[0]))
	default:
		names := make([]string, 0, 3)
		for i, p := range paths {
			if i == 3 {
				break
			}
			names = append(names, filepath.Base(p))
		}
		suffix := ""
		if len(paths) > 3 {
			suffix = ", ..."
		}
		return fmt.Sprintf("[Files: %d total] %s%s", len(paths), strings.Join(names, ", "), suffix)
	}
}

func formatBytes(n int64) string {
	switch {
	case n >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	case n >= 1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
