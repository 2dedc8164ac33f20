package history

import (
	"github.com/clipvault/clipvault/internal/encoding"
	"github.com/clipvault/clipvault/internal/storage"
	"github.com/clipvault/clipvault/internal/types"

	"go.uber.org/zap"
)

// MigrateInlineImages is the one-shot startup compaction: every row
// still carrying inline image bytes is written through the blob store
// and its path fields populated. Idempotent — migrated rows have no
// inline data left to find. The content hash does not change; this
// is a storage-representation move, not a content change.
func (c *Coordinator) MigrateInlineImages() (int, error) {
	if c.blobs == nil {
		return 0, nil
	}

	rows, err := c.store.Query(storage.Filter{})
	if err != nil {
		return 0, err
	}

	migrated := 0
	for _, row := range rows {
		if row.Type != string(types.TypeImage) || row.InlineImage == "" || row.ImagePath != "" {
			continue
		}

		data, err := encoding.DecodeInline(row.InlineImage)
		if err != nil {
			c.logger.Warn("skipping undecodable inline image",
				zap.String("id", row.ID),
				zap.Error(err))
			continue
		}

		result, err := c.blobs.Save(data, row.ID)
		if err != nil {
			c.logger.Warn("failed to migrate inline image",
				zap.String("id", row.ID),
				zap.Error(err))
			continue
		}

		affected, err := c.store.Update(row.ID, storage.Fields{
			"image_path":     result.ImagePath,
			"thumbnail_path": result.ThumbnailPath,
			"image_size":     result.SizeBytes,
			"inline_image":   "",
		})
		if err != nil || !affected {
			c.logger.Warn("failed to record migrated image paths",
				zap.String("id", row.ID),
				zap.Error(err))
			continue
		}
		migrated++
	}
	return migrated, nil
}
