package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/clipvault/clipvault/internal/storage"
	"github.com/clipvault/clipvault/internal/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const exportVersion = 1

// exportDocument is the interchange format for history export and
// import.
type exportDocument struct {
	Version    int          `json:"version"`
	ExportDate time.Time    `json:"exportDate"`
	Items      []*types.Row `json:"items"`
}

// Export writes the complete history (live, pinned and trashed) as a
// JSON document.
func (c *Coordinator) Export(w io.Writer) error {
	rows, err := c.store.Query(storage.Filter{})
	if err != nil {
		return err
	}

	doc := exportDocument{
		Version:    exportVersion,
		ExportDate: time.Now().UTC(),
		Items:      rows,
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(&doc); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	c.logger.Info("history exported", zap.Int("items", len(rows)))
	return nil
}

// Import reads an export document, optionally replacing the current
// history, and routes every item through the same Add path as live
// capture so dedup and limits apply uniformly. Returns how many
// items were imported.
func (c *Coordinator) Import(r io.Reader, merge bool) (int, error) {
	var doc exportDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return 0, fmt.Errorf("failed to parse import file: %w", err)
	}
	if doc.Items == nil {
		return 0, errors.New("import file has no items array")
	}

	if !merge {
		rows, err := c.store.Query(storage.Filter{})
		if err != nil {
			return 0, err
		}
		if _, err := c.deleteRows(rows); err != nil {
			return 0, fmt.Errorf("failed to clear existing history: %w", err)
		}
	}

	imported := 0
	for _, row := range doc.Items {
		item, err := types.ItemFromRow(row)
		if err != nil {
			c.logger.Warn("skipping invalid import item",
				zap.String("id", row.ID),
				zap.Error(err))
			continue
		}
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		if item.CreatedAt.UnixMilli() == 0 {
			item.CreatedAt = time.Now()
		}
		if _, err := c.Add(item); err != nil {
			c.logger.Warn("failed to import item",
				zap.String("id", item.ID),
				zap.Error(err))
			continue
		}
		imported++
	}

	c.logger.Info("history imported",
		zap.Int("items", imported),
		zap.Bool("merge", merge))
	return imported, nil
}
