package jobs

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuel-station-monitor/internal/domain/station"
	"fuel-station-monitor/pkg/mocks"
)

func TestNextMidnight(t *testing.T) {
	loc := time.FixedZone("ICT", 7*3600)

	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"mid day", time.Date(2024, 3, 10, 15, 30, 0, 0, loc), time.Date(2024, 3, 11, 0, 0, 0, 0, loc)},
		{"exactly midnight", time.Date(2024, 3, 10, 0, 0, 0, 0, loc), time.Date(2024, 3, 11, 0, 0, 0, 0, loc)},
		{"month end", time.Date(2024, 2, 29, 23, 59, 59, 0, loc), time.Date(2024, 3, 1, 0, 0, 0, 0, loc)},
		{"other zone input", time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC), time.Date(2024, 3, 12, 0, 0, 0, 0, loc)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.True(t, tt.want.Equal(NextMidnight(tt.in, loc)), "got %s", NextMidnight(tt.in, loc))
		})
	}
}

func TestInitializeSeedsTodaysTotals(t *testing.T) {
	loc := time.UTC
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, loc)

	nozzles := mocks.NewMockNozzleRepository(
		&station.Nozzle{DispenserID: "d1", NozzleID: "D00001-A1", TotalSalesToday: 999},
		&station.Nozzle{DispenserID: "d1", NozzleID: "D00001-A2", TotalSalesToday: 50},
	)
	txs := &mocks.MockTransactionRepository{Records: []station.Transaction{
		{DispenserID: "d1", NozzleID: "D00001-A1", Time: now.Add(-2 * time.Hour), Amount: 100},
		{DispenserID: "d1", NozzleID: "D00001-A1", Time: now.Add(-time.Hour), Amount: 25.5},
		{DispenserID: "d1", NozzleID: "D00001-A1", Time: now.Add(-13 * time.Hour), Amount: 70},
	}}

	job := NewDailySalesJob(nozzles, txs, loc, nil)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Initialize(context.Background()))

	assert.InDelta(t, 125.5, nozzles.Snapshot("d1", "D00001-A1").TotalSalesToday, 1e-9)
	assert.Zero(t, nozzles.Snapshot("d1", "D00001-A2").TotalSalesToday)
}

func TestInitializeSumFailure(t *testing.T) {
	nozzles := mocks.NewMockNozzleRepository()
	txs := &mocks.MockTransactionRepository{Err: errors.New("db down")}

	job := NewDailySalesJob(nozzles, txs, time.UTC, nil)
	assert.Error(t, job.Initialize(context.Background()))
}

func TestResetZeroesEveryNozzle(t *testing.T) {
	nozzles := mocks.NewMockNozzleRepository(
		&station.Nozzle{DispenserID: "d1", NozzleID: "n1", TotalSalesToday: 10},
		&station.Nozzle{DispenserID: "d2", NozzleID: "n1", TotalSalesToday: 20},
	)
	job := NewDailySalesJob(nozzles, &mocks.MockTransactionRepository{}, time.UTC, nil)

	job.Reset(context.Background())

	assert.Zero(t, nozzles.Snapshot("d1", "n1").TotalSalesToday)
	assert.Zero(t, nozzles.Snapshot("d2", "n1").TotalSalesToday)
}

func TestRunStopsOnCancel(t *testing.T) {
	job := NewDailySalesJob(mocks.NewMockNozzleRepository(), &mocks.MockTransactionRepository{}, time.UTC, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job did not stop")
	}
}

func TestRunResetsAtLocalMidnightAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	nozzles := mocks.NewMockNozzleRepository(&station.Nozzle{DispenserID: "d1", NozzleID: "n1", TotalSalesToday: 10})
	job := NewDailySalesJob(nozzles, &mocks.MockTransactionRepository{}, loc, nil)

	clock := time.Date(2024, 3, 9, 15, 0, 0, 0, loc)
	job.now = func() time.Time { return clock }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var fired []time.Time
	job.after = func(d time.Duration) <-chan time.Time {
		clock = clock.Add(d)
		fired = append(fired, clock)
		if len(fired) == 3 {
			cancel()
			return nil
		}
		ch := make(chan time.Time, 1)
		ch <- clock
		return ch
	}

	job.Run(ctx)

	// 2024-03-10 is 23 hours long in New York
	want := []time.Time{
		time.Date(2024, 3, 10, 0, 0, 0, 0, loc),
		time.Date(2024, 3, 11, 0, 0, 0, 0, loc),
		time.Date(2024, 3, 12, 0, 0, 0, 0, loc),
	}
	require.Len(t, fired, len(want))
	for i := range want {
		assert.True(t, want[i].Equal(fired[i]), "reset %d at %s, want %s", i, fired[i], want[i])
	}
	assert.Zero(t, nozzles.Snapshot("d1", "n1").TotalSalesToday)
}
