// Package storage implements the persistent history store on bbolt.
// Rows are stored as JSON keyed by item id, with a secondary index
// mapping content hashes of live rows to their ids and a meta bucket
// tracking the schema version.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/clipvault/clipvault/internal/types"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

const (
	itemsBucket     = "items"
	hashIndexBucket = "hash_index"
	metaBucket      = "meta"

	schemaVersionKey = "schema_version"
	schemaVersion    = 3
)

var (
	ErrNotFound      = errors.New("item not found")
	ErrMissingFields = errors.New("row is missing required fields")
)

// Store is the structured persistence layer for item metadata. All
// mutating operations run inside a single bbolt transaction.
type Store struct {
	db     *bbolt.DB
	logger *zap.Logger
}

// Config holds configuration for Store initialization.
type Config struct {
	DBPath string
	Logger *zap.Logger
}

// Filter narrows query, search and count results.
type Filter struct {
	Pinned  *bool
	Deleted *bool

	Limit  int
	Offset int

	// OrderBy selects the sort field: "created_at" (default) or
	// "type". Ascending flips the default descending order.
	OrderBy   string
	Ascending bool
}

// Live matches non-deleted rows.
func Live() Filter {
	deleted := false
	return Filter{Deleted: &deleted}
}

// Trashed matches soft-deleted rows.
func Trashed() Filter {
	deleted := true
	return Filter{Deleted: &deleted}
}

// Open opens (creating if needed) the store at cfg.DBPath and runs
// any pending schema migrations.
func Open(cfg Config) (*Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := bbolt.Open(cfg.DBPath, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{itemsBucket, hashIndexBucket, metaBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("history store opened", zap.String("db_path", cfg.DBPath))
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert persists a new row. Required fields: id, type, content hash
// and a capture timestamp.
func (s *Store) Insert(row *types.Row) error {
	if row.ID == "" || row.Type == "" || row.ContentHash == "" || row.CreatedAt == 0 {
		return ErrMissingFields
	}
	if !types.ValidType(types.ItemType(row.Type)) {
		return fmt.Errorf("%w: unknown type %q", ErrMissingFields, row.Type)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		encoded, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("failed to marshal row: %w", err)
		}
		if err := tx.Bucket([]byte(itemsBucket)).Put([]byte(row.ID), encoded); err != nil {
			return fmt.Errorf("failed to store row: %w", err)
		}
		if !row.Deleted {
			if err := tx.Bucket([]byte(hashIndexBucket)).Put([]byte(row.ContentHash), []byte(row.ID)); err != nil {
				return fmt.Errorf("failed to index row: %w", err)
			}
		}
		s.logger.Debug("row inserted",
			zap.String("id", row.ID),
			zap.String("type", row.Type),
			zap.String("hash", row.ContentHash))
		return nil
	})
}

// GetByID returns the row for id, or ErrNotFound.
func (s *Store) GetByID(id string) (*types.Row, error) {
	var row *types.Row
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(itemsBucket)).Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}
		row = &types.Row{}
		if err := json.Unmarshal(v, row); err != nil {
			return fmt.Errorf("failed to unmarshal row: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Query returns rows matching the filter, ordered and paginated.
func (s *Store) Query(f Filter) ([]*types.Row, error) {
	return s.collect(f, nil)
}

// Search returns rows matching the filter whose plain-text content or
// file paths contain text, case-insensitively.
func (s *Store) Search(text string, f Filter) ([]*types.Row, error) {
	needle := strings.ToLower(text)
	return s.collect(f, func(row *types.Row) bool {
		if strings.Contains(strings.ToLower(row.PlainText), needle) {
			return true
		}
		if strings.Contains(strings.ToLower(row.ColorValue), needle) {
			return true
		}
		for _, p := range row.FilePaths {
			if strings.Contains(strings.ToLower(p), needle) {
				return true
			}
		}
		return false
	})
}

// Count returns the number of rows matching the filter, ignoring
// pagination.
func (s *Store) Count(f Filter) (int, error) {
	f.Limit = 0
	f.Offset = 0
	rows, err := s.collect(f, nil)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// ExistsByHash returns the id of the live row with the given content
// hash. Soft-deleted rows do not participate: trashed content does
// not block recapture.
func (s *Store) ExistsByHash(hash string) (string, bool, error) {
	var id string
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(hashIndexBucket)).Get([]byte(hash))
		if v != nil {
			id = string(v)
		}
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to look up hash: %w", err)
	}
	return id, id != "", nil
}

// Delete physically removes the rows with the given ids, returning
// how many existed.
func (s *Store) Delete(ids []string) (int, error) {
	deleted := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		items := tx.Bucket([]byte(itemsBucket))
		index := tx.Bucket([]byte(hashIndexBucket))
		for _, id := range ids {
			v := items.Get([]byte(id))
			if v == nil {
				continue
			}
			var row types.Row
			if err := json.Unmarshal(v, &row); err == nil && row.ContentHash != "" {
				if indexed := index.Get([]byte(row.ContentHash)); string(indexed) == id {
					if err := index.Delete([]byte(row.ContentHash)); err != nil {
						return fmt.Errorf("failed to drop hash index entry: %w", err)
					}
				}
			}
			if err := items.Delete([]byte(id)); err != nil {
				return fmt.Errorf("failed to delete row: %w", err)
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.logger.Debug("rows deleted", zap.Int("count", deleted))
	}
	return deleted, nil
}

func (s *Store) collect(f Filter, match func(*types.Row) bool) ([]*types.Row, error) {
	var rows []*types.Row

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(itemsBucket)).ForEach(func(k, v []byte) error {
			var row types.Row
			if err := json.Unmarshal(v, &row); err != nil {
				s.logger.Warn("skipping unreadable row",
					zap.ByteString("id", k),
					zap.Error(err))
				return nil
			}
			if f.Pinned != nil && row.Pinned != *f.Pinned {
				return nil
			}
			if f.Deleted != nil && row.Deleted != *f.Deleted {
				return nil
			}
			if match != nil && !match(&row) {
				return nil
			}
			rows = append(rows, &row)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan rows: %w", err)
	}

	sortRows(rows, f)

	if f.Offset > 0 {
		if f.Offset >= len(rows) {
			return nil, nil
		}
		rows = rows[f.Offset:]
	}
	if f.Limit > 0 && len(rows) > f.Limit {
		rows = rows[:f.Limit]
	}
	return rows, nil
}

func sortRows(rows []*types.Row, f Filter) {
	less := func(i, j int) bool {
		switch f.OrderBy {
		case "type":
			if rows[i].Type != rows[j].Type {
				return rows[i].Type < rows[j].Type
			}
			return rows[i].CreatedAt < rows[j].CreatedAt
		default:
			if rows[i].CreatedAt != rows[j].CreatedAt {
				return rows[i].CreatedAt < rows[j].CreatedAt
			}
			return rows[i].ID < rows[j].ID
		}
	}
	if f.Ascending {
		sort.SliceStable(rows, less)
	} else {
		sort.SliceStable(rows, func(i, j int) bool { return less(j, i) })
	}
}

// meta helpers

func (s *Store) readSchemaVersion() (int, error) {
	version := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(metaBucket)).Get([]byte(schemaVersionKey))
		if v == nil {
			return nil
		}
		parsed, err := strconv.Atoi(string(v))
		if err != nil {
			return fmt.Errorf("corrupt schema version %q: %w", v, err)
		}
		version = parsed
		return nil
	})
	return version, err
}

func (s *Store) writeSchemaVersion(version int) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(metaBucket)).Put(
			[]byte(schemaVersionKey),
			[]byte(strconv.Itoa(version)))
	})
}
