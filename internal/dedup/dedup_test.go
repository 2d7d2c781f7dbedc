package dedup

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
}

type reading struct {
	Status int `json:"status"`
}

func TestWindowSuppressesRepeatWithinInterval(t *testing.T) {
	c := newClock()
	w := NewWindow(5*time.Second, WithClock(c.Now))

	assert.False(t, w.Seen("00001-A1", reading{1}))
	w.Record("00001-A1", reading{1})
	c.Advance(time.Second)
	assert.True(t, w.Seen("00001-A1", reading{1}))
	c.Advance(5 * time.Second)
	assert.False(t, w.Seen("00001-A1", reading{1}))
}

func TestWindowDistinguishesKeysAndPayloads(t *testing.T) {
	c := newClock()
	w := NewWindow(5*time.Second, WithClock(c.Now))

	w.Record("00001-A1", reading{1})
	assert.True(t, w.Seen("00001-A1", reading{1}))
	assert.False(t, w.Seen("00001-A2", reading{1}))
	assert.False(t, w.Seen("00001-A1", reading{0}))
}

func TestWindowSeenDoesNotRecord(t *testing.T) {
	c := newClock()
	w := NewWindow(5*time.Second, WithClock(c.Now))

	// a checked but never written update must stay eligible
	assert.False(t, w.Seen("00001-A1", reading{0}))
	assert.False(t, w.Seen("00001-A1", reading{0}))
	assert.Equal(t, 0, w.Len())
}

func TestWindowRecordRefreshesTimestamp(t *testing.T) {
	c := newClock()
	w := NewWindow(5*time.Second, WithClock(c.Now))

	w.Record("00001-A1", reading{0})
	c.Advance(4 * time.Second)
	w.Record("00001-A1", reading{0})
	c.Advance(4 * time.Second)
	assert.True(t, w.Seen("00001-A1", reading{0}))
}

func TestWindowPurgesExpired(t *testing.T) {
	c := newClock()
	w := NewWindow(5*time.Second, WithClock(c.Now))

	for i := 0; i < 10; i++ {
		w.Record("nozzle", reading{i})
	}
	assert.Equal(t, 10, w.Len())

	c.Advance(6 * time.Second)
	w.Record("other", reading{1})
	assert.Equal(t, 1, w.Len())
}

func TestWindowConcurrentUse(t *testing.T) {
	c := newClock()
	w := NewWindow(5*time.Second, WithClock(c.Now))

	var seen atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w.Record("tank:T1", reading{i % 4})
			if w.Seen("tank:T1", reading{i % 4}) {
				seen.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(32), seen.Load())
	assert.Equal(t, 4, w.Len())
}

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint("k", map[string]int{"b": 2, "a": 1})
	b := Fingerprint("k", map[string]int{"a": 1, "b": 2})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, Fingerprint("j", map[string]int{"a": 1, "b": 2}))
}
