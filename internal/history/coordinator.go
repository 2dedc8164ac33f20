// Package history orchestrates captured items into the store:
// dedup-by-hash upserts, pin/trash/restore transitions, retention and
// max-count eviction, and blob cleanup on physical deletes.
package history

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/clipvault/clipvault/internal/blobstore"
	"github.com/clipvault/clipvault/internal/clipboard"
	"github.com/clipvault/clipvault/internal/config"
	"github.com/clipvault/clipvault/internal/fingerprint"
	"github.com/clipvault/clipvault/internal/storage"
	"github.com/clipvault/clipvault/internal/types"

	"go.uber.org/zap"
)

var ErrNotFound = storage.ErrNotFound

// Coordinator owns the history store exclusively and is the only
// component that deletes blob files, so the delete-on-item-delete
// invariant lives in one place.
type Coordinator struct {
	store   *storage.Store
	blobs   *blobstore.Store
	monitor *clipboard.Monitor
	logger  *zap.Logger

	prefsPath string
	prefsMu   sync.Mutex
	prefs     config.Preferences

	enforceMu sync.Mutex

	events chan Event
}

// Config holds configuration for Coordinator construction. Blobs and
// Monitor may be nil: without blobs, images stay inline; without a
// monitor, capture and clipboard write-back are unavailable.
type Config struct {
	Store     *storage.Store
	Blobs     *blobstore.Store
	Monitor   *clipboard.Monitor
	Logger    *zap.Logger
	Prefs     *config.Preferences
	PrefsPath string
}

// New creates a Coordinator and runs startup maintenance: inline
// image migration and an initial limits pass.
func New(cfg Config) (*Coordinator, error) {
	if cfg.Store == nil {
		return nil, errors.New("history: store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	prefs := cfg.Prefs
	if prefs == nil {
		prefs = config.DefaultPreferences()
	}

	c := &Coordinator{
		store:     cfg.Store,
		blobs:     cfg.Blobs,
		monitor:   cfg.Monitor,
		logger:    logger,
		prefsPath: cfg.PrefsPath,
		prefs:     *prefs,
		events:    make(chan Event, 64),
	}

	if migrated, err := c.MigrateInlineImages(); err != nil {
		logger.Warn("inline image migration failed", zap.Error(err))
	} else if migrated > 0 {
		logger.Info("migrated inline images to blob store", zap.Int("count", migrated))
	}
	c.EnforceLimits()

	return c, nil
}

// Preferences returns the current preference set.
func (c *Coordinator) Preferences() config.Preferences {
	c.prefsMu.Lock()
	defer c.prefsMu.Unlock()
	return c.prefs
}

// SetPreferences validates, persists and applies new limits,
// re-running enforcement immediately.
func (c *Coordinator) SetPreferences(prefs config.Preferences) error {
	if err := prefs.Validate(); err != nil {
		return err
	}
	c.prefsMu.Lock()
	c.prefs = prefs
	c.prefsMu.Unlock()

	if c.prefsPath != "" {
		if err := prefs.Save(c.prefsPath); err != nil {
			return err
		}
	}
	c.EnforceLimits()
	return nil
}

// Add upserts a captured item by content hash: re-copied content
// bumps the existing live row's timestamp instead of duplicating.
// Returns the id now holding the content.
func (c *Coordinator) Add(item *types.Item) (string, error) {
	if err := item.Validate(); err != nil {
		return "", err
	}
	if item.ContentHash == "" {
		item.ContentHash = fingerprint.ForItem(item)
	}

	if id, ok, err := c.store.ExistsByHash(item.ContentHash); err != nil {
		return "", err
	} else if ok {
		affected, err := c.store.Update(id, storage.Fields{
			"created_at": time.Now().UnixMilli(),
		})
		if err != nil {
			return "", err
		}
		if affected {
			c.logger.Debug("re-copy bumped existing item",
				zap.String("id", id),
				zap.String("hash", item.ContentHash))
			return id, nil
		}
		// Index pointed at a row that vanished; fall through to
		// insert.
	}

	if err := c.store.Insert(item.ToRow()); err != nil {
		return "", fmt.Errorf("failed to insert item: %w", err)
	}
	c.logger.Debug("item added",
		zap.String("id", item.ID),
		zap.String("type", string(item.Type)))

	go c.EnforceLimits()
	return item.ID, nil
}

// EnforceLimits applies the max-count and retention policies. The
// two passes are independent and best-effort: a failure in one never
// prevents the other.
func (c *Coordinator) EnforceLimits() {
	c.enforceMu.Lock()
	defer c.enforceMu.Unlock()

	prefs := c.Preferences()

	if err := c.enforceMaxItems(prefs.MaxHistoryItems); err != nil {
		c.logger.Warn("max-count eviction failed", zap.Error(err))
	}
	if err := c.enforceRetention(prefs.RetentionDays); err != nil {
		c.logger.Warn("retention eviction failed", zap.Error(err))
	}
}

// enforceMaxItems deletes the oldest non-pinned live items down to
// the limit. Pinned items never count-evict: the limit is a soft
// target when pins dominate.
func (c *Coordinator) enforceMaxItems(maxItems int) error {
	liveCount, err := c.store.Count(storage.Live())
	if err != nil {
		return err
	}
	over := liveCount - maxItems
	if over <= 0 {
		return nil
	}

	pinned := false
	filter := storage.Live()
	filter.Pinned = &pinned
	filter.Ascending = true
	filter.Limit = over
	rows, err := c.store.Query(filter)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	deleted, err := c.DeleteItems(ids)
	if err != nil {
		return err
	}
	c.logger.Info("evicted items over history limit",
		zap.Int("deleted", deleted),
		zap.Int("max_items", maxItems))
	return nil
}

// enforceRetention deletes non-pinned live items older than the
// retention window, regardless of total count.
func (c *Coordinator) enforceRetention(retentionDays int) error {
	cutoff := time.Now().AddDate(0, 0, -retentionDays).UnixMilli()

	pinned := false
	filter := storage.Live()
	filter.Pinned = &pinned
	rows, err := c.store.Query(filter)
	if err != nil {
		return err
	}

	var ids []string
	for _, row := range rows {
		if row.CreatedAt < cutoff {
			ids = append(ids, row.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	deleted, err := c.DeleteItems(ids)
	if err != nil {
		return err
	}
	c.logger.Info("evicted items past retention window",
		zap.Int("deleted", deleted),
		zap.Int("retention_days", retentionDays))
	return nil
}

// PinItem, UnpinItem and TogglePin manage the pinned flag.

func (c *Coordinator) PinItem(id string) (bool, error) {
	return c.store.Update(id, storage.Fields{"pinned": true})
}

func (c *Coordinator) UnpinItem(id string) (bool, error) {
	return c.store.Update(id, storage.Fields{"pinned": false})
}

func (c *Coordinator) TogglePin(id string) (bool, error) {
	row, err := c.store.GetByID(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return c.store.Update(id, storage.Fields{"pinned": !row.Pinned})
}

// MoveToTrash soft-deletes an item; its hash stops blocking
// recapture.
func (c *Coordinator) MoveToTrash(id string) (bool, error) {
	return c.store.Update(id, storage.Fields{"deleted": true})
}

// RestoreFromTrash returns a trashed item to the live history. When
// the same content was recaptured while the item sat in the trash,
// restoring would create a second live row for one hash; instead the
// trashed copy merges into the live row: the live row's timestamp is
// bumped and the duplicate is physically deleted.
func (c *Coordinator) RestoreFromTrash(id string) (bool, error) {
	row, err := c.store.GetByID(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if row.Deleted && row.ContentHash != "" {
		liveID, ok, err := c.store.ExistsByHash(row.ContentHash)
		if err != nil {
			return false, err
		}
		if ok && liveID != id {
			if _, err := c.store.Update(liveID, storage.Fields{
				"created_at": time.Now().UnixMilli(),
			}); err != nil {
				return false, err
			}
			if _, err := c.DeleteItems([]string{id}); err != nil {
				return false, err
			}
			c.logger.Debug("restored item merged into live duplicate",
				zap.String("id", id),
				zap.String("live_id", liveID))
			return true, nil
		}
	}

	return c.store.Update(id, storage.Fields{"deleted": false})
}

// DeleteItems physically removes items, cleaning up blob files for
// any file-backed image rows.
func (c *Coordinator) DeleteItems(ids []string) (int, error) {
	var blobIDs []string
	if c.blobs != nil {
		for _, id := range ids {
			row, err := c.store.GetByID(id)
			if err != nil {
				continue
			}
			if blobID := blobIDForRow(row); blobID != "" {
				blobIDs = append(blobIDs, blobID)
			}
		}
	}

	deleted, err := c.store.Delete(ids)
	if err != nil {
		return 0, err
	}

	for _, blobID := range blobIDs {
		if !c.blobs.Delete(blobID) {
			c.logger.Warn("blob cleanup incomplete", zap.String("id", blobID))
		}
	}
	return deleted, nil
}

// blobIDForRow derives the blob key from an image row. The save path
// keys blobs by item id, but imported rows may reference files named
// differently, so the path's basename wins when present.
func blobIDForRow(row *types.Row) string {
	if row.ImagePath == "" {
		return ""
	}
	base := filepath.Base(row.ImagePath)
	id := strings.TrimSuffix(base, filepath.Ext(base))
	if blobstore.ValidateID(id) != nil {
		return row.ID
	}
	return id
}

// EmptyTrash permanently deletes all trashed items.
func (c *Coordinator) EmptyTrash() (int, error) {
	rows, err := c.store.Query(storage.Trashed())
	if err != nil {
		return 0, err
	}
	return c.deleteRows(rows)
}

// ClearHistory permanently deletes all non-pinned live items.
func (c *Coordinator) ClearHistory() (int, error) {
	pinned := false
	filter := storage.Live()
	filter.Pinned = &pinned
	rows, err := c.store.Query(filter)
	if err != nil {
		return 0, err
	}
	return c.deleteRows(rows)
}

func (c *Coordinator) deleteRows(rows []*types.Row) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	return c.DeleteItems(ids)
}

// History returns live items, newest first.
func (c *Coordinator) History(limit, offset int) ([]*types.Item, error) {
	filter := storage.Live()
	filter.Limit = limit
	filter.Offset = offset
	return c.queryItems(filter)
}

// Trash returns soft-deleted items, newest first.
func (c *Coordinator) Trash(limit, offset int) ([]*types.Item, error) {
	filter := storage.Trashed()
	filter.Limit = limit
	filter.Offset = offset
	return c.queryItems(filter)
}

// Search returns live items matching query, newest first.
func (c *Coordinator) Search(query string, limit, offset int) ([]*types.Item, error) {
	filter := storage.Live()
	filter.Limit = limit
	filter.Offset = offset
	rows, err := c.store.Search(query, filter)
	if err != nil {
		return nil, err
	}
	return rowsToItems(rows, c.logger)
}

// GetByID returns one item regardless of trash state.
func (c *Coordinator) GetByID(id string) (*types.Item, error) {
	row, err := c.store.GetByID(id)
	if err != nil {
		return nil, err
	}
	return types.ItemFromRow(row)
}

func (c *Coordinator) queryItems(filter storage.Filter) ([]*types.Item, error) {
	rows, err := c.store.Query(filter)
	if err != nil {
		return nil, err
	}
	return rowsToItems(rows, c.logger)
}

func rowsToItems(rows []*types.Row, logger *zap.Logger) ([]*types.Item, error) {
	items := make([]*types.Item, 0, len(rows))
	for _, row := range rows {
		item, err := types.ItemFromRow(row)
		if err != nil {
			logger.Warn("skipping malformed row",
				zap.String("id", row.ID),
				zap.Error(err))
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// Stats aggregates store and blob usage for diagnostics.
type Stats struct {
	LiveItems    int
	PinnedItems  int
	TrashedItems int
	Blobs        *blobstore.Stats
}

func (c *Coordinator) Stats() (*Stats, error) {
	stats := &Stats{}
	var err error
	if stats.LiveItems, err = c.store.Count(storage.Live()); err != nil {
		return nil, err
	}
	pinned := true
	pinnedFilter := storage.Live()
	pinnedFilter.Pinned = &pinned
	if stats.PinnedItems, err = c.store.Count(pinnedFilter); err != nil {
		return nil, err
	}
	if stats.TrashedItems, err = c.store.Count(storage.Trashed()); err != nil {
		return nil, err
	}
	if c.blobs != nil {
		if stats.Blobs, err = c.blobs.Stats(); err != nil {
			return nil, err
		}
	}
	return stats, nil
}
