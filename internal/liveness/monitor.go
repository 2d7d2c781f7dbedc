package liveness

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"fuel-station-monitor/internal/notify"
)

// OfflineMarker persists the offline transition for a nozzle.
type OfflineMarker interface {
	MarkNozzleOffline(ctx context.Context, dispenserID, nozzleID string) error
}

// OfflineFunc adapts a function to OfflineMarker.
type OfflineFunc func(ctx context.Context, dispenserID, nozzleID string) error

func (f OfflineFunc) MarkNozzleOffline(ctx context.Context, dispenserID, nozzleID string) error {
	return f(ctx, dispenserID, nozzleID)
}

type Entry struct {
	NozzleID    string        `json:"nozzle_id"`
	DispenserID string        `json:"dispenser_id"`
	LastSeen    time.Time     `json:"last_seen"`
	ExpiresIn   time.Duration `json:"expires_in"`
}

type Config struct {
	Timeout  time.Duration
	Interval time.Duration
}

type tracked struct {
	dispenserID string
	lastSeen    time.Time
}

// Monitor flags nozzles offline when no online reading arrives within the timeout.
// An entry is dropped when it fires and comes back with the next online reading.
type Monitor struct {
	mu      sync.Mutex
	entries map[string]tracked

	timeout  time.Duration
	interval time.Duration
	marker   OfflineMarker
	notifier notify.Notifier
	now      func() time.Time
	logger   *zap.Logger

	hooksMu sync.RWMutex
	hooks   []func(Entry)
}

type Option func(*Monitor)

func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

func NewMonitor(cfg Config, marker OfflineMarker, notifier notify.Notifier, logger *zap.Logger, opts ...Option) *Monitor {
	if notifier == nil {
		notifier = notify.Nop()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Monitor{
		entries:  make(map[string]tracked),
		timeout:  cfg.Timeout,
		interval: cfg.Interval,
		marker:   marker,
		notifier: notifier,
		now:      time.Now,
		logger:   logger.Named("liveness"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetMarker replaces the offline marker. Used to close the reconciler/monitor cycle at wiring time.
func (m *Monitor) SetMarker(marker OfflineMarker) {
	m.mu.Lock()
	m.marker = marker
	m.mu.Unlock()
}

// OnOffline registers a callback fired after each offline transition.
func (m *Monitor) OnOffline(fn func(Entry)) {
	m.hooksMu.Lock()
	m.hooks = append(m.hooks, fn)
	m.hooksMu.Unlock()
}

// Touch records an online reading for the nozzle.
func (m *Monitor) Touch(nozzleID, dispenserID string) {
	m.mu.Lock()
	m.entries[nozzleID] = tracked{dispenserID: dispenserID, lastSeen: m.now()}
	m.mu.Unlock()
}

// Seed starts tracking a nozzle as already expired so that silence after a restart
// reads as offline. Nozzles already tracked are left alone.
func (m *Monitor) Seed(nozzleID, dispenserID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[nozzleID]; ok {
		return false
	}
	m.entries[nozzleID] = tracked{dispenserID: dispenserID, lastSeen: m.now().Add(-m.timeout)}
	return true
}

// Sweep marks every expired nozzle offline and stops tracking it.
func (m *Monitor) Sweep(ctx context.Context) []Entry {
	now := m.now()

	m.mu.Lock()
	var expired []Entry
	for id, t := range m.entries {
		if now.Sub(t.lastSeen) > m.timeout {
			expired = append(expired, Entry{NozzleID: id, DispenserID: t.dispenserID, LastSeen: t.lastSeen})
			delete(m.entries, id)
		}
	}
	marker := m.marker
	m.mu.Unlock()

	fired := expired[:0]
	for _, e := range expired {
		// an online reading that raced the sweep wins
		m.mu.Lock()
		_, back := m.entries[e.NozzleID]
		m.mu.Unlock()
		if back {
			continue
		}

		if marker != nil {
			if err := marker.MarkNozzleOffline(ctx, e.DispenserID, e.NozzleID); err != nil {
				m.logger.Error("Failed to mark nozzle offline",
					zap.String("nozzle_id", e.NozzleID),
					zap.String("dispenser_id", e.DispenserID),
					zap.Error(err),
				)
			}
		}

		m.logger.Info("Nozzle went silent, marked offline",
			zap.String("nozzle_id", e.NozzleID),
			zap.String("dispenser_id", e.DispenserID),
			zap.Time("last_seen", e.LastSeen),
			zap.Duration("timeout", m.timeout),
		)
		m.notifier.Notify(notify.NewSystem(
			"Nozzle Offline",
			fmt.Sprintf("No ping received for nozzle %s in %s", e.NozzleID, m.timeout),
			notify.LevelWarning,
			map[string]any{"nozzle_id": e.NozzleID, "dispenser_id": e.DispenserID},
		))
		m.fireHooks(e)
		fired = append(fired, e)
	}
	return fired
}

func (m *Monitor) fireHooks(e Entry) {
	m.hooksMu.RLock()
	defer m.hooksMu.RUnlock()
	for _, fn := range m.hooks {
		fn(e)
	}
}

// Run sweeps on every interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("Liveness monitor started",
		zap.Duration("interval", m.interval),
		zap.Duration("timeout", m.timeout),
	)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Liveness monitor stopped")
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Entries lists tracked nozzles ordered by id.
func (m *Monitor) Entries() []Entry {
	now := m.now()

	m.mu.Lock()
	out := make([]Entry, 0, len(m.entries))
	for id, t := range m.entries {
		left := m.timeout - now.Sub(t.lastSeen)
		if left < 0 {
			left = 0
		}
		out = append(out, Entry{NozzleID: id, DispenserID: t.dispenserID, LastSeen: t.lastSeen, ExpiresIn: left})
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].NozzleID < out[j].NozzleID })
	return out
}
