package calibration

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// FileSystem is the slice of file access the cache needs.
type FileSystem interface {
	Stat(path string) (os.FileInfo, error)
	Open(path string) (io.ReadCloser, error)
}

type osFileSystem struct{}

func (osFileSystem) Stat(path string) (os.FileInfo, error) { return os.Stat(path) }

func (osFileSystem) Open(path string) (io.ReadCloser, error) { return os.Open(path) }

type entry struct {
	ref     TankRef
	table   *Table
	modTime time.Time
}

// TankRef names a tank and the dip chart it is calibrated with. A tank is
// identified by its controller address plus the gauge index on that controller,
// since every controller numbers its gauges from 1.
type TankRef struct {
	Address string
	TankID  string
	Path    string
}

func (r TankRef) key() string {
	return entryKey(r.Address, r.TankID)
}

func entryKey(address, tankID string) string {
	return address + "/" + tankID
}

// CacheStats is a point-in-time view of the cache.
type CacheStats struct {
	Entries int           `json:"entries"`
	Hits    uint64        `json:"hits"`
	Misses  uint64        `json:"misses"`
	Tanks   []CachedTable `json:"tanks"`
}

type CachedTable struct {
	Address  string    `json:"address"`
	TankID   string    `json:"tank_id"`
	Path     string    `json:"path"`
	Points   int       `json:"points"`
	LoadedAt time.Time `json:"loaded_at"`
	ModTime  time.Time `json:"mod_time"`
}

// Cache holds parsed dip charts per tank (address plus tank id). An entry is reused while its path and
// file modification time are unchanged and it is younger than the TTL.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	hits    uint64
	misses  uint64

	group  singleflight.Group
	ttl    time.Duration
	fs     FileSystem
	now    func() time.Time
	logger *zap.Logger
}

type Option func(*Cache)

func WithFileSystem(fs FileSystem) Option {
	return func(c *Cache) { c.fs = fs }
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func NewCache(ttl time.Duration, logger *zap.Logger, opts ...Option) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Cache{
		entries: make(map[string]*entry),
		ttl:     ttl,
		fs:      osFileSystem{},
		now:     time.Now,
		logger:  logger.Named("calibration"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetTable returns the dip chart for the tank, reloading it from ref.Path when
// the cached copy is stale. Concurrent loads for the same tank share one read.
func (c *Cache) GetTable(ctx context.Context, ref TankRef) (*Table, error) {
	if ref.Path == "" {
		return nil, fmt.Errorf("tank %s has no dip chart configured", ref.key())
	}

	info, err := c.fs.Stat(ref.Path)
	if err != nil {
		return nil, fmt.Errorf("stat dip chart %s: %w", ref.Path, err)
	}

	key := ref.key()
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && c.fresh(e, ref.Path, info.ModTime()) {
		c.hits++
		c.mu.Unlock()
		return e.table, nil
	}
	c.misses++
	c.mu.Unlock()

	ch := c.group.DoChan(key+"|"+ref.Path, func() (interface{}, error) {
		return c.load(ref, info.ModTime())
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Table), nil
	}
}

func (c *Cache) fresh(e *entry, path string, modTime time.Time) bool {
	if e.ref.Path != path || !e.modTime.Equal(modTime) {
		return false
	}
	return c.ttl <= 0 || c.now().Sub(e.table.LoadedAt) < c.ttl
}

func (c *Cache) load(ref TankRef, modTime time.Time) (*Table, error) {
	f, err := c.fs.Open(ref.Path)
	if err != nil {
		return nil, fmt.Errorf("open dip chart %s: %w", ref.Path, err)
	}
	defer f.Close()

	table, err := Parse(f)
	if err != nil {
		c.logger.Warn("Failed to parse dip chart",
			zap.String("address", ref.Address),
			zap.String("tank_id", ref.TankID),
			zap.String("path", ref.Path),
			zap.Error(err),
		)
		return nil, err
	}
	table.Source = ref.Path
	table.LoadedAt = c.now()

	c.mu.Lock()
	c.entries[ref.key()] = &entry{ref: ref, table: table, modTime: modTime}
	c.mu.Unlock()

	c.logger.Info("Dip chart loaded",
		zap.String("address", ref.Address),
		zap.String("tank_id", ref.TankID),
		zap.String("path", ref.Path),
		zap.Int("points", table.Len()),
	)
	return table, nil
}

// Clear drops the cached chart for one tank. It reports whether an entry existed.
func (c *Cache) Clear(address, tankID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := entryKey(address, tankID)
	_, ok := c.entries[key]
	delete(c.entries, key)
	return ok
}

// ClearAll drops every cached chart and returns how many were removed.
func (c *Cache) ClearAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.entries)
	c.entries = make(map[string]*entry)
	return n
}

func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := CacheStats{
		Entries: len(c.entries),
		Hits:    c.hits,
		Misses:  c.misses,
		Tanks:   make([]CachedTable, 0, len(c.entries)),
	}
	for _, e := range c.entries {
		stats.Tanks = append(stats.Tanks, CachedTable{
			Address:  e.ref.Address,
			TankID:   e.ref.TankID,
			Path:     e.ref.Path,
			Points:   e.table.Len(),
			LoadedAt: e.table.LoadedAt,
			ModTime:  e.modTime,
		})
	}
	return stats
}

// Preload warms the cache for every tank that has a chart configured.
func (c *Cache) Preload(ctx context.Context, refs []TankRef) (loaded, failed int) {
	for _, ref := range refs {
		if ref.Path == "" {
			continue
		}
		if ctx.Err() != nil {
			return loaded, failed
		}
		if _, err := c.GetTable(ctx, ref); err != nil {
			failed++
			c.logger.Warn("Dip chart preload failed",
				zap.String("address", ref.Address),
				zap.String("tank_id", ref.TankID),
				zap.Error(err),
			)
			continue
		}
		loaded++
	}

	c.logger.Info("Dip chart preload finished",
		zap.Int("loaded", loaded),
		zap.Int("failed", failed),
	)
	return loaded, failed
}
