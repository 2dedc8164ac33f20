package storage

import (
	"encoding/json"
	"fmt"

	"github.com/clipvault/clipvault/internal/types"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

// Fields is a partial update keyed by row field name. Only the
// whitelisted mutable fields are applied; anything else is dropped.
type Fields map[string]interface{}

// Update applies the whitelisted fields to the row with the given id
// inside one transaction, keeping the hash index consistent across
// deleted-flag transitions. It reports whether a row was affected.
func (s *Store) Update(id string, fields Fields) (bool, error) {
	affected := false
	err := s.db.Update(func(tx *bbolt.Tx) error {
		items := tx.Bucket([]byte(itemsBucket))
		v := items.Get([]byte(id))
		if v == nil {
			return nil
		}

		var row types.Row
		if err := json.Unmarshal(v, &row); err != nil {
			return fmt.Errorf("failed to unmarshal row %s: %w", id, err)
		}
		wasDeleted := row.Deleted

		for name, value := range fields {
			if !s.applyField(&row, name, value) {
				s.logger.Debug("dropping non-mutable update field",
					zap.String("id", id),
					zap.String("field", name))
			}
		}
		row.FileCount = len(row.FilePaths)

		encoded, err := json.Marshal(&row)
		if err != nil {
			return fmt.Errorf("failed to marshal row %s: %w", id, err)
		}
		if err := items.Put([]byte(id), encoded); err != nil {
			return fmt.Errorf("failed to update row %s: %w", id, err)
		}

		if row.ContentHash != "" && wasDeleted != row.Deleted {
			index := tx.Bucket([]byte(hashIndexBucket))
			key := []byte(row.ContentHash)
			if row.Deleted {
				// A trashed row's hash no longer blocks recapture.
				if string(index.Get(key)) == id {
					if err := index.Delete(key); err != nil {
						return fmt.Errorf("failed to drop hash index entry: %w", err)
					}
				}
			} else {
				// Never steal the entry from another live row.
				if cur := index.Get(key); cur == nil || string(cur) == id {
					if err := index.Put(key, []byte(id)); err != nil {
						return fmt.Errorf("failed to restore hash index entry: %w", err)
					}
				}
			}
		}

		affected = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return affected, nil
}

// applyField mutates row for a whitelisted field, reporting whether
// the field was recognized with a usable value type.
func (s *Store) applyField(row *types.Row, name string, value interface{}) bool {
	switch name {
	case "pinned":
		if b, ok := value.(bool); ok {
			row.Pinned = b
			return true
		}
	case "deleted":
		if b, ok := value.(bool); ok {
			row.Deleted = b
			return true
		}
	case "created_at":
		if ts, ok := value.(int64); ok {
			row.CreatedAt = ts
			return true
		}
	case "plain_text":
		if text, ok := value.(string); ok {
			row.PlainText = text
			return true
		}
	case "rich_text":
		if text, ok := value.(string); ok {
			row.RichText = text
			return true
		}
	case "color_value":
		if c, ok := value.(string); ok {
			row.ColorValue = c
			return true
		}
	case "file_paths":
		if paths, ok := value.([]string); ok {
			row.FilePaths = paths
			return true
		}
	case "image_path":
		if p, ok := value.(string); ok {
			row.ImagePath = p
			return true
		}
	case "thumbnail_path":
		if p, ok := value.(string); ok {
			row.ThumbnailPath = p
			return true
		}
	case "image_size":
		if n, ok := value.(int64); ok {
			row.ImageSize = n
			return true
		}
	case "inline_image":
		if data, ok := value.(string); ok {
			row.InlineImage = data
			return true
		}
	}
	return false
}
