package storage

import (
	"encoding/json"
	"fmt"

	"github.com/clipvault/clipvault/internal/types"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

// migrate brings the database up to the current schema version with
// forward-only, additive steps. Existing rows are never dropped.
func (s *Store) migrate() error {
	version, err := s.readSchemaVersion()
	if err != nil {
		return err
	}
	if version > schemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported %d", version, schemaVersion)
	}
	if version == schemaVersion {
		return nil
	}
	if version == 0 {
		// Fresh database, nothing to migrate.
		return s.writeSchemaVersion(schemaVersion)
	}

	if version < 2 {
		if err := s.rebuildHashIndex(); err != nil {
			return fmt.Errorf("schema migration to v2 failed: %w", err)
		}
	}
	if version < 3 {
		if err := s.backfillFileMetadata(); err != nil {
			return fmt.Errorf("schema migration to v3 failed: %w", err)
		}
	}

	if err := s.writeSchemaVersion(schemaVersion); err != nil {
		return err
	}
	s.logger.Info("history schema migrated",
		zap.Int("from", version),
		zap.Int("to", schemaVersion))
	return nil
}

// rebuildHashIndex repopulates the live-row hash index from scratch.
// Earlier databases had no secondary index and deduped by scan.
func (s *Store) rebuildHashIndex() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(hashIndexBucket)); err != nil && err != bbolt.ErrBucketNotFound {
			return err
		}
		index, err := tx.CreateBucket([]byte(hashIndexBucket))
		if err != nil {
			return err
		}
		return tx.Bucket([]byte(itemsBucket)).ForEach(func(k, v []byte) error {
			var row types.Row
			if err := json.Unmarshal(v, &row); err != nil {
				s.logger.Warn("skipping unreadable row during index rebuild",
					zap.ByteString("id", k),
					zap.Error(err))
				return nil
			}
			if row.Deleted || row.ContentHash == "" {
				return nil
			}
			return index.Put([]byte(row.ContentHash), []byte(row.ID))
		})
	})
}

// backfillFileMetadata fills the derived file_count and all_images
// fields for rows written before they existed.
func (s *Store) backfillFileMetadata() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		items := tx.Bucket([]byte(itemsBucket))

		// Collect first: bbolt forbids writes to a bucket while
		// iterating it.
		updates := make(map[string][]byte)
		err := items.ForEach(func(k, v []byte) error {
			var row types.Row
			if err := json.Unmarshal(v, &row); err != nil {
				return nil
			}
			if len(row.FilePaths) == 0 || row.FileCount == len(row.FilePaths) {
				return nil
			}
			row.FileCount = len(row.FilePaths)
			allImages := true
			for _, p := range row.FilePaths {
				if !types.IsImagePath(p) {
					allImages = false
					break
				}
			}
			row.AllImages = allImages
			encoded, err := json.Marshal(&row)
			if err != nil {
				return nil
			}
			updates[string(k)] = encoded
			return nil
		})
		if err != nil {
			return err
		}

		for k, v := range updates {
			if err := items.Put([]byte(k), v); err != nil {
				return err
			}
		}
		return nil
	})
}
