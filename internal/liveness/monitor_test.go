package liveness

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fuel-station-monitor/internal/notify"
)

type markCall struct {
	dispenserID string
	nozzleID    string
}

type fakeMarker struct {
	mu    sync.Mutex
	calls []markCall
	err   error
}

func (f *fakeMarker) MarkNozzleOffline(_ context.Context, dispenserID, nozzleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, markCall{dispenserID, nozzleID})
	return f.err
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func newTestMonitor(marker OfflineMarker, notifier notify.Notifier) (*Monitor, *testClock) {
	clock := &testClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	m := NewMonitor(Config{Timeout: 3 * time.Minute, Interval: 10 * time.Second}, marker, notifier, zap.NewNop(), WithClock(clock.Now))
	return m, clock
}

func TestSweepFlagsSilentNozzleExactlyOnce(t *testing.T) {
	marker := &fakeMarker{}
	m, clock := newTestMonitor(marker, nil)
	start := clock.Now()

	clock.Set(start.Add(-4 * time.Minute))
	m.Touch("D00001-A1", "DSP-1")
	clock.Set(start)

	fired := m.Sweep(context.Background())
	require.Len(t, fired, 1)
	assert.Equal(t, "D00001-A1", fired[0].NozzleID)
	assert.Equal(t, []markCall{{"DSP-1", "D00001-A1"}}, marker.calls)
	assert.Empty(t, m.Entries())

	assert.Empty(t, m.Sweep(context.Background()))
	assert.Len(t, marker.calls, 1)

	m.Touch("D00001-A1", "DSP-1")
	assert.Len(t, m.Entries(), 1)
}

func TestSweepKeepsFreshNozzles(t *testing.T) {
	marker := &fakeMarker{}
	m, clock := newTestMonitor(marker, nil)

	m.Touch("D00001-A1", "DSP-1")
	clock.Set(clock.Now().Add(2 * time.Minute))

	assert.Empty(t, m.Sweep(context.Background()))
	entries := m.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, time.Minute, entries[0].ExpiresIn)
}

func TestSeedExpiresOnFirstSweep(t *testing.T) {
	marker := &fakeMarker{}
	rec := notify.NewRecorder(8)
	m, clock := newTestMonitor(marker, rec)

	assert.True(t, m.Seed("D00001-A1", "DSP-1"))
	assert.True(t, m.Seed("D00001-B1", "DSP-1"))

	m.Touch("D00001-B1", "DSP-1")
	assert.False(t, m.Seed("D00001-B1", "DSP-1"))

	clock.Set(clock.Now().Add(10 * time.Second))
	fired := m.Sweep(context.Background())

	require.Len(t, fired, 1)
	assert.Equal(t, "D00001-A1", fired[0].NozzleID)

	notes := rec.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, notify.LevelWarning, notes[0].NotificationType)
}

func TestSweepDropsEntryEvenWhenMarkFails(t *testing.T) {
	marker := &fakeMarker{err: errors.New("db down")}
	m, clock := newTestMonitor(marker, nil)

	m.Seed("D00001-A1", "DSP-1")
	clock.Set(clock.Now().Add(time.Second))

	assert.Len(t, m.Sweep(context.Background()), 1)
	assert.Empty(t, m.Entries())
}

func TestOnOfflineHook(t *testing.T) {
	m, clock := newTestMonitor(OfflineFunc(func(context.Context, string, string) error { return nil }), nil)

	var got []string
	m.OnOffline(func(e Entry) { got = append(got, e.NozzleID) })

	m.Seed("D00002-A2", "DSP-2")
	clock.Set(clock.Now().Add(time.Second))
	m.Sweep(context.Background())

	assert.Equal(t, []string{"D00002-A2"}, got)
}

func TestRunStopsOnCancel(t *testing.T) {
	marker := &fakeMarker{}
	m := NewMonitor(Config{Timeout: time.Millisecond, Interval: 5 * time.Millisecond}, marker, nil, zap.NewNop())
	m.Seed("D00001-A1", "DSP-1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		marker.mu.Lock()
		defer marker.mu.Unlock()
		return len(marker.calls) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}

func TestConcurrentTouchAndSweep(t *testing.T) {
	m, _ := newTestMonitor(&fakeMarker{}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Touch("D00001-A1", "DSP-1")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Sweep(context.Background())
			}
		}()
	}
	wg.Wait()

	assert.Len(t, m.Entries(), 1)
}
