package dedup

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Deduplicator remembers recently written updates. Callers check Seen before a
// write and call Record only once the write has succeeded, so a failed write
// never suppresses its own redelivery.
type Deduplicator interface {
	Seen(key string, payload any) bool
	Record(key string, payload any)
}

// Fingerprint hashes the entity key together with the canonical JSON form of the payload.
func Fingerprint(key string, payload any) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(key)
	_, _ = d.WriteString("\x00")

	raw, err := json.Marshal(payload)
	if err != nil {
		_, _ = d.WriteString(fmt.Sprintf("%#v", payload))
	} else {
		_, _ = d.Write(raw)
	}
	return d.Sum64()
}

func fingerprintHex(fp uint64) string {
	return strconv.FormatUint(fp, 16)
}

// Window suppresses identical updates seen within a fixed interval. It is safe for concurrent use.
type Window struct {
	mu        sync.Mutex
	seen      map[uint64]time.Time
	window    time.Duration
	now       func() time.Time
	lastPurge time.Time
}

type Option func(*Window)

func WithClock(now func() time.Time) Option {
	return func(w *Window) { w.now = now }
}

func NewWindow(window time.Duration, opts ...Option) *Window {
	w := &Window{
		seen:   make(map[uint64]time.Time),
		window: window,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.lastPurge = w.now()
	return w
}

// Seen reports whether the same key and payload were recorded less than the window ago.
func (w *Window) Seen(key string, payload any) bool {
	fp := Fingerprint(key, payload)

	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.purgeLocked(now)

	at, ok := w.seen[fp]
	return ok && now.Sub(at) < w.window
}

// Record stamps the fingerprint of an applied update with the current time.
func (w *Window) Record(key string, payload any) {
	fp := Fingerprint(key, payload)

	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.purgeLocked(now)
	w.seen[fp] = now
}

// Len is the number of fingerprints currently retained.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.seen)
}

// purgeLocked drops expired fingerprints at most once per window.
func (w *Window) purgeLocked(now time.Time) {
	if now.Sub(w.lastPurge) < w.window {
		return
	}
	for fp, at := range w.seen {
		if now.Sub(at) >= w.window {
			delete(w.seen, fp)
		}
	}
	w.lastPurge = now
}
