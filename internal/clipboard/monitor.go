package clipboard

import (
	"errors"
	"sync"
	"time"

	"github.com/clipvault/clipvault/internal/blobstore"
	"github.com/clipvault/clipvault/internal/types"

	"go.uber.org/zap"
)

// State is the monitor's lifecycle state.
type State int

const (
	StateIdle State = iota
	StateMonitoring
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateMonitoring:
		return "monitoring"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

const (
	// DefaultInterval keeps a copy feeling instantly captured while
	// the per-tick work (a change-count check or one hash) stays
	// negligible.
	DefaultInterval = 50 * time.Millisecond

	// batchBuffer bounds how many delivered-but-unconsumed batches
	// may queue before the oldest is dropped.
	batchBuffer = 16
)

var ErrAlreadyRunning = errors.New("monitor is already running")

// BlobSaver is the slice of the blob store the monitor needs.
type BlobSaver interface {
	Save(data []byte, id string) (*blobstore.SaveResult, error)
}

// Monitor samples the clipboard on a fixed interval, gates on the
// content hash, and delivers classified item batches on a bounded
// channel. A failed sample never stops the loop.
type Monitor struct {
	backend  Backend
	blobs    BlobSaver
	logger   *zap.Logger
	interval time.Duration

	mu       sync.Mutex // guards state and serializes samples
	state    State
	lastHash string
	stop     chan struct{}

	batches chan []*types.Item
}

// MonitorConfig holds configuration for Monitor construction.
type MonitorConfig struct {
	Backend  Backend
	Blobs    BlobSaver
	Logger   *zap.Logger
	Interval time.Duration
}

// NewMonitor creates a Monitor in the Idle state.
func NewMonitor(cfg MonitorConfig) *Monitor {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		backend:  cfg.Backend,
		blobs:    cfg.Blobs,
		logger:   logger,
		interval: interval,
		state:    StateIdle,
		batches:  make(chan []*types.Item, batchBuffer),
	}
}

// Batches is the channel of captured item batches. Under sustained
// rapid-fire changes faster than the consumer, the oldest queued
// batch is dropped (and logged), never a silently truncated one.
func (m *Monitor) Batches() <-chan []*types.Item {
	return m.batches
}

// State returns the current lifecycle state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Start transitions Idle/Stopped to Monitoring: one immediate sample,
// then periodic sampling until Stop.
func (m *Monitor) Start() error {
	m.mu.Lock()
	if m.state == StateMonitoring || m.state == StatePaused {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	m.state = StateMonitoring
	m.stop = make(chan struct{})
	stop := m.stop
	m.mu.Unlock()

	m.logger.Info("clipboard monitor started",
		zap.String("backend", m.backend.Name()),
		zap.Duration("interval", m.interval))

	m.sample()

	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				m.sample()
			}
		}
	}()
	return nil
}

// Pause suppresses sampling without cancelling the schedule. Used
// around self-writes so the app does not capture its own clipboard
// updates.
func (m *Monitor) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateMonitoring {
		m.state = StatePaused
		m.logger.Debug("clipboard monitor paused")
	}
}

// Resume re-enables sampling after Pause.
func (m *Monitor) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StatePaused {
		m.state = StateMonitoring
		m.logger.Debug("clipboard monitor resumed")
	}
}

// Stop cancels the schedule. In-flight work from the last tick is
// allowed to finish; it is idempotent and content-addressed.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateMonitoring || m.state == StatePaused {
		close(m.stop)
		m.state = StateStopped
		m.logger.Info("clipboard monitor stopped")
	}
}

// sample performs one read-compare-dispatch pass. The mutex keeps
// ticks from overlapping; every failure is logged and swallowed so
// the polling loop survives.
func (m *Monitor) sample() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateMonitoring {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("clipboard sample panicked", zap.Any("panic", r))
		}
	}()

	if counter, ok := m.backend.(ChangeCounter); ok && m.lastHash != "" {
		if !counter.Changed() {
			return
		}
	}

	snap, err := m.backend.Read()
	if err != nil {
		m.logger.Warn("clipboard read failed", zap.Error(err))
		return
	}
	if snap.Empty() {
		return
	}

	hash := gateHash(snap)
	if hash == m.lastHash {
		return
	}

	items, err := m.classify(snap)
	if err != nil {
		m.logger.Warn("clipboard classification failed", zap.Error(err))
		return
	}
	// The gate hash updates even when classification yields nothing,
	// so the same unusable payload is not re-attempted every tick.
	m.lastHash = hash
	if len(items) == 0 {
		return
	}

	m.logger.Debug("clipboard change captured",
		zap.Int("items", len(items)),
		zap.String("hash", hash))
	m.deliver(items)
}

// deliver enqueues a batch, dropping the oldest queued batch when the
// consumer has fallen more than batchBuffer batches behind.
func (m *Monitor) deliver(batch []*types.Item) {
	select {
	case m.batches <- batch:
		return
	default:
	}

	select {
	case dropped := <-m.batches:
		m.logger.Warn("dropping oldest clipboard batch",
			zap.Int("dropped_items", len(dropped)))
	default:
	}

	select {
	case m.batches <- batch:
	default:
		m.logger.Warn("dropping clipboard batch",
			zap.Int("dropped_items", len(batch)))
	}
}

// Write puts an item's content back on the clipboard. Callers pause
// the monitor around this and resume after a short delay so the OS
// change is not raced.
func (m *Monitor) Write(snap *Snapshot) error {
	return m.backend.Write(snap)
}
