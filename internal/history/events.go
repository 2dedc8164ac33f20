package history

import (
	"context"
	"time"

	"github.com/clipvault/clipvault/internal/types"

	"go.uber.org/zap"
)

// Event is the light change notification pushed per captured item.
// It deliberately excludes binary payloads.
type Event struct {
	ID        string         `json:"id"`
	Type      types.ItemType `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Pinned    bool           `json:"pinned"`
	Preview   string         `json:"preview"`
	SourceApp string         `json:"source_app,omitempty"`
}

// Events is the change-notification channel. Slow consumers lose
// old notifications, never captures.
func (c *Coordinator) Events() <-chan Event {
	return c.events
}

func (c *Coordinator) emit(item *types.Item) {
	event := Event{
		ID:        item.ID,
		Type:      item.Type,
		Timestamp: item.CreatedAt,
		Pinned:    item.Pinned,
		Preview:   item.Preview(),
		SourceApp: item.SourceApp,
	}
	select {
	case c.events <- event:
	default:
		select {
		case <-c.events:
		default:
		}
		select {
		case c.events <- event:
		default:
		}
	}
}

// Run consumes monitor batches until ctx is cancelled, adding each
// item and emitting change notifications. A store failure for one
// item never stops the loop.
func (c *Coordinator) Run(ctx context.Context) error {
	if c.monitor == nil {
		<-ctx.Done()
		return ctx.Err()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-c.monitor.Batches():
			if !ok {
				return nil
			}
			for _, item := range batch {
				id, err := c.Add(item)
				if err != nil {
					c.logger.Warn("failed to store captured item",
						zap.String("type", string(item.Type)),
						zap.Error(err))
					continue
				}
				// On a dedup hit the event carries the surviving id.
				item.ID = id
				c.emit(item)
			}
		}
	}
}
