package history

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/clipvault/clipvault/internal/clipboard"
	"github.com/clipvault/clipvault/internal/encoding"
	"github.com/clipvault/clipvault/internal/types"

	"go.uber.org/zap"
)

// resumeDelay keeps the monitor paused briefly after a self-write so
// the OS clipboard change settles before sampling restarts.
const resumeDelay = 300 * time.Millisecond

// CopyToClipboard writes an item's content back to the OS clipboard.
// withFormatting controls whether rich text markup is written
// alongside the plain text. The monitor is paused around the write
// and resumed after a short delay so the app does not capture its
// own write.
func (c *Coordinator) CopyToClipboard(id string, withFormatting bool) error {
	if c.monitor == nil {
		return errors.New("no clipboard backend configured")
	}

	item, err := c.GetByID(id)
	if err != nil {
		return err
	}

	snap := &clipboard.Snapshot{}
	switch {
	case item.Text != nil:
		snap.Text = item.Text.Plain
		if withFormatting && item.Text.Rich != "" {
			// RTF markup goes back out on the RTF slot; everything
			// else (including legacy rows with no recorded kind) is
			// treated as HTML.
			if item.Text.RichKind == types.RichKindRTF {
				snap.RTF = item.Text.Rich
			} else {
				snap.HTML = item.Text.Rich
			}
		}
	case item.Color != nil:
		snap.Text = item.Color.Value
	case item.Files != nil:
		snap.Text = strings.Join(item.Files.Paths, "\n")
	case item.Image != nil:
		data, err := c.imageBytes(item.Image.Path, item.Image.Inline)
		if err != nil {
			return err
		}
		snap.Image = data
	}

	c.monitor.Pause()
	writeErr := c.monitor.Write(snap)
	time.AfterFunc(resumeDelay, c.monitor.Resume)

	if writeErr != nil {
		return fmt.Errorf("failed to write clipboard: %w", writeErr)
	}
	c.logger.Debug("item copied back to clipboard", zap.String("id", id))
	return nil
}

func (c *Coordinator) imageBytes(path, inline string) ([]byte, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			return data, nil
		}
		if inline == "" {
			return nil, fmt.Errorf("failed to read image file: %w", err)
		}
	}
	if inline == "" {
		return nil, errors.New("image item has no payload")
	}
	return encoding.DecodeInline(inline)
}
